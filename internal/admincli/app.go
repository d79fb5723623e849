package admincli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/meetauth/internal/dbx"
	"github.com/dmitrijs2005/meetauth/internal/logging"
	"github.com/dmitrijs2005/meetauth/internal/server/config"
	"github.com/dmitrijs2005/meetauth/internal/server/export"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/meetauth/internal/server/services"
)

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage error")

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	services    *services.Set
	newUploader func(ctx context.Context, c *config.Config) (export.Uploader, error)
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp opens the configured database. Logs go to stderr so command output
// on stdout stays scriptable.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{Level: c.LogLevel, Format: c.LogFormat, SentryDSN: c.SentryDSN, Output: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := dbx.Open(ctx, "pgx", c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newApp(c, logger, db, rm, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, l logging.Logger, db *sql.DB, rm repomanager.RepositoryManager, in io.Reader, out io.Writer) *App {
	return &App{
		config:      c,
		logger:      l.With("module", "admincli"),
		db:          db,
		repomanager: rm,
		services:    services.NewSet(db, rm, c, l),
		newUploader: export.NewS3Uploader,
		reader:      bufio.NewReader(in),
		out:         out,
	}
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

const usage = `usage: admin [config flags] <command> [args]

  create-user <email> [name] [-admin]   create an account (password prompted)
  show <user>                           print one account
  list [-admin=B] [-banned=B] [-active=B] [-email S] [-sort F] [-desc]
  promote <user> | demote <user>        grant or revoke admin
  ban <user> | unban <user>
  activate <user> | deactivate <user>
  credit <user> <n> | debit <user> <n>  adjust vision tokens
  set-balance <user> <n>
  set-password <user>                   replace the password (prompted)
  reset-request <email>                 print a password reset token
  reset-complete <token>                redeem a reset token (password prompted)
  login <email>                         verify credentials, print a session token
  export [-dir path]                    upload the user directory to S3 or a local directory
  migrate                               apply database migrations

<user> is an email address or a user id.`

// Run executes one command.
func (a *App) Run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "create-user":
		return a.createUser(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "list":
		return a.list(ctx, args)
	case "promote":
		return a.promote(ctx, args, true)
	case "demote":
		return a.promote(ctx, args, false)
	case "ban":
		return a.ban(ctx, args, true)
	case "unban":
		return a.ban(ctx, args, false)
	case "activate":
		return a.activate(ctx, args, true)
	case "deactivate":
		return a.activate(ctx, args, false)
	case "credit":
		return a.credit(ctx, args)
	case "debit":
		return a.debit(ctx, args)
	case "set-balance":
		return a.setBalance(ctx, args)
	case "set-password":
		return a.setPassword(ctx, args)
	case "reset-request":
		return a.resetRequest(ctx, args)
	case "reset-complete":
		return a.resetComplete(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "export":
		return a.export(ctx, args)
	case "migrate":
		return a.migrate(ctx, args)
	case "", "help":
		fmt.Fprintln(a.out, usage)
		if cmd == "" {
			return ErrUsage
		}
		return nil
	default:
		fmt.Fprintln(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}
