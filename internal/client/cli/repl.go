package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context) error
	Spend(ctx context.Context, args []string) error
	Ping(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads a line from scanner, parses the first token as the command,
// and dispatches to methods on a. Command errors are printed and the loop
// carries on. It exits on EOF or on "exit" / "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner, out io.Writer) {
	for {
		fmt.Fprintf(out, "meetauth%s> ", statusFn())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, "Available commands: whoami, spend <n>, ping, logout, exit")
			} else {
				fmt.Fprintln(out, "Available commands: login <email>, ping, exit")
			}
		case "login":
			err = a.Login(ctx, args)
		case "whoami":
			err = a.WhoAmI(ctx)
		case "spend":
			err = a.Spend(ctx, args)
		case "ping":
			err = a.Ping(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}
