package admincli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/dustin/go-humanize"
)

func lastLogin(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.Time(*t)
}

func (a *App) printUser(u *models.PublicUser) {
	fmt.Fprintf(a.out, "id:            %s\n", u.ID)
	fmt.Fprintf(a.out, "name:          %s\n", u.Name)
	fmt.Fprintf(a.out, "email:         %s\n", u.Email)
	fmt.Fprintf(a.out, "standing:      %s\n", u.Standing())
	fmt.Fprintf(a.out, "admin:         %t\n", u.IsAdmin)
	fmt.Fprintf(a.out, "vision tokens: %s\n", humanize.Comma(u.VisionTokens))
	fmt.Fprintf(a.out, "last login:    %s\n", lastLogin(u.LastLogin))
	fmt.Fprintf(a.out, "created:       %s\n", u.CreatedAt.UTC().Format(time.RFC3339))
}

type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	fmt.Fprintln(t.tw, "ID\tEMAIL\tNAME\tSTANDING\tADMIN\tTOKENS\tLAST LOGIN")
	return t
}

func (t *table) row(u *models.PublicUser) {
	fmt.Fprintf(t.tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
		u.ID, u.Email, u.Name, u.Standing(), strconv.FormatBool(u.IsAdmin), u.VisionTokens, lastLogin(u.LastLogin))
}

func (t *table) flush() error {
	return t.tw.Flush()
}
