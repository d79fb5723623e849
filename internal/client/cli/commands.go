package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/prompt"
)

var errUsage = errors.New("usage")

func (a *App) Login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login <email>", errUsage)
	}

	pw, err := prompt.GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	ctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.Login(ctx, args[0], string(pw))
	if err != nil {
		return err
	}

	a.email = resp.User.Email
	fmt.Fprintf(a.out, "Signed in as %s until %s\n", resp.User.Email, resp.ExpiresAt.Local().Format(time.DateTime))
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.WhoAmI(ctx)
	if err != nil {
		return err
	}

	u := resp.User
	fmt.Fprintf(a.out, "%s <%s>\n", u.Name, u.Email)
	fmt.Fprintf(a.out, "  id:            %s\n", u.ID)
	fmt.Fprintf(a.out, "  admin:         %t\n", resp.IsAdmin)
	fmt.Fprintf(a.out, "  vision tokens: %d\n", u.VisionTokens)
	fmt.Fprintf(a.out, "  session ends:  %s\n", resp.ExpiresAt.Local().Format(time.DateTime))
	return nil
}

func (a *App) Spend(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: spend <n>", errUsage)
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a whole number", errUsage, args[0])
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	bal, err := a.client.Spend(ctx, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Balance: %d\n", bal)
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()

	if err := a.client.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Server is serving")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.client.Logout()
	a.email = ""
	fmt.Fprintln(a.out, "Signed out")
	return nil
}
