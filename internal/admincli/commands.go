package admincli

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/prompt"
	"github.com/dmitrijs2005/meetauth/internal/server/export"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
)

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// parseInterleaved lets flags appear before, between or after positional
// arguments.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func want(args []string, n int, form string) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s", ErrUsage, form)
	}
	return nil
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrUsage, s)
	}
	return n, nil
}

// resolve finds a user by email or id.
func (a *App) resolve(ctx context.Context, ref string) (*models.PublicUser, error) {
	if strings.Contains(ref, "@") {
		return a.services.Store.FindByEmail(ctx, ref)
	}
	return a.services.Store.FindByID(ctx, ref)
}

func (a *App) createUser(ctx context.Context, args []string) error {
	fs := a.newFlagSet("create-user")
	admin := fs.Bool("admin", false, "grant the admin role")
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(pos) < 1 || len(pos) > 2 {
		return fmt.Errorf("%w: create-user <email> [name] [-admin]", ErrUsage)
	}

	name := ""
	if len(pos) == 2 {
		name = pos[1]
	} else {
		name, err = prompt.GetSimpleText(a.reader, "Full name", a.out)
		if err != nil {
			return err
		}
	}

	password, err := prompt.GetNewPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.services.Store.Create(ctx, models.Draft{Name: name, Email: pos[0], Password: password, IsAdmin: *admin})
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

func (a *App) show(ctx context.Context, args []string) error {
	if err := want(args, 1, "show <user>"); err != nil {
		return err
	}
	u, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

// triState is a flag.Value for an optional boolean filter.
type triState struct{ v *bool }

func (t *triState) String() string {
	if t.v == nil {
		return ""
	}
	return strconv.FormatBool(*t.v)
}

func (t *triState) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	t.v = &b
	return nil
}

func (t *triState) IsBoolFlag() bool { return true }

func (a *App) list(ctx context.Context, args []string) error {
	var admin, banned, active triState

	fs := a.newFlagSet("list")
	fs.Var(&admin, "admin", "only admins (true) or non-admins (false)")
	fs.Var(&banned, "banned", "filter by banned flag")
	fs.Var(&active, "active", "filter by active flag")
	email := fs.String("email", "", "email substring")
	sortField := fs.String("sort", string(models.SortByCreatedAt), "created_at, email, last_login or vision_tokens")
	desc := fs.Bool("desc", false, "descending order")

	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 0 {
		return fmt.Errorf("%w: list takes no positional arguments", ErrUsage)
	}

	f := models.ListFilter{Admin: admin.v, Banned: banned.v, Active: active.v, EmailContains: *email}
	s := models.Sort{Field: models.SortField(*sortField), Desc: *desc}

	tw := newTable(a.out)
	n := 0
	for u, err := range a.services.Store.List(ctx, f, s) {
		if err != nil {
			return err
		}
		tw.row(u)
		n++
	}
	if err := tw.flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d user(s)\n", n)
	return nil
}

func (a *App) promote(ctx context.Context, args []string, admin bool) error {
	form := "promote <user>"
	if !admin {
		form = "demote <user>"
	}
	if err := want(args, 1, form); err != nil {
		return err
	}
	u, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}

	if admin {
		u, err = a.services.Roles.PromoteToAdmin(ctx, u.ID)
	} else {
		u, err = a.services.Roles.DemoteFromAdmin(ctx, u.ID)
	}
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

func (a *App) ban(ctx context.Context, args []string, banned bool) error {
	if err := want(args, 1, "ban|unban <user>"); err != nil {
		return err
	}
	u, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	if u, err = a.services.Roles.SetBanned(ctx, u.ID, banned); err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

func (a *App) activate(ctx context.Context, args []string, active bool) error {
	if err := want(args, 1, "activate|deactivate <user>"); err != nil {
		return err
	}
	u, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	if u, err = a.services.Roles.SetActive(ctx, u.ID, active); err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

func (a *App) credit(ctx context.Context, args []string) error {
	return a.adjust(ctx, args, "credit <user> <n>", a.services.Ledger.Credit)
}

func (a *App) debit(ctx context.Context, args []string) error {
	return a.adjust(ctx, args, "debit <user> <n>", a.services.Ledger.Debit)
}

func (a *App) adjust(ctx context.Context, args []string, form string, op func(context.Context, string, int64) (int64, error)) error {
	if err := want(args, 2, form); err != nil {
		return err
	}
	n, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	u, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	bal, err := op(ctx, u.ID, n)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s balance: %d\n", u.Email, bal)
	return nil
}

func (a *App) setBalance(ctx context.Context, args []string) error {
	if err := want(args, 2, "set-balance <user> <n>"); err != nil {
		return err
	}
	n, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	u, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	if u, err = a.services.Ledger.SetBalance(ctx, u.ID, n); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s balance: %d\n", u.Email, u.VisionTokens)
	return nil
}

func (a *App) setPassword(ctx context.Context, args []string) error {
	if err := want(args, 1, "set-password <user>"); err != nil {
		return err
	}
	u, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	password, err := prompt.GetNewPassword(a.out)
	if err != nil {
		return err
	}
	if _, err := a.services.Reset.ChangePassword(ctx, u.ID, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "password changed for %s\n", u.Email)
	return nil
}

func (a *App) resetRequest(ctx context.Context, args []string) error {
	if err := want(args, 1, "reset-request <email>"); err != nil {
		return err
	}
	token, err := a.services.Reset.Request(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "reset token: %s\nvalid for: %s\n", token, a.config.ResetTokenTTL)
	return nil
}

func (a *App) resetComplete(ctx context.Context, args []string) error {
	if err := want(args, 1, "reset-complete <token>"); err != nil {
		return err
	}
	password, err := prompt.GetNewPassword(a.out)
	if err != nil {
		return err
	}
	u, err := a.services.Reset.Complete(ctx, args[0], password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "password reset for %s\n", u.Email)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	if err := want(args, 1, "login <email>"); err != nil {
		return err
	}
	pw, err := prompt.GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	res, err := a.services.Flow.Login(ctx, args[0], string(pw))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "token: %s\nexpires: %s\n", res.Token, res.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
	a.printUser(res.User)
	return nil
}

func (a *App) export(ctx context.Context, args []string) error {
	fs := a.newFlagSet("export")
	dir := fs.String("dir", "", "write to a local directory instead of S3")
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if err := want(pos, 0, "export [-dir path]"); err != nil {
		return err
	}

	var up export.Uploader = export.DirUploader{Root: *dir}
	scheme := "file"
	if *dir == "" {
		scheme = "s3"
		if up, err = a.newUploader(ctx, a.config); err != nil {
			return err
		}
	}

	res, err := export.NewExporter(up, a.config.S3Bucket, a.logger).
		Export(ctx, a.services.Store.List(ctx, models.ListFilter{}, models.Sort{}))
	if err != nil {
		return err
	}
	if *dir != "" {
		res.Bucket = filepath.Join(*dir, res.Bucket)
	}
	fmt.Fprintf(a.out, "exported %d user(s) to %s://%s/%s\n", res.Users, scheme, res.Bucket, res.Key)
	return nil
}

func (a *App) migrate(ctx context.Context, args []string) error {
	if err := want(args, 0, "migrate"); err != nil {
		return err
	}
	if err := a.repomanager.RunMigrations(ctx, a.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	fmt.Fprintln(a.out, "migrations applied")
	return nil
}
