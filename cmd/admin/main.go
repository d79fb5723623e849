package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/meetauth/internal/admincli"
	"github.com/dmitrijs2005/meetauth/internal/flagx"
	"github.com/dmitrijs2005/meetauth/internal/server/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 2
	}

	cmd, args := flagx.Subcommand(os.Args[1:], config.ValueFlags)
	args = flagx.DropArgs(args, config.ValueFlags)

	app, err := admincli.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer app.Close()

	if err := app.Run(ctx, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, admincli.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
