// Package cli provides the interactive meetauth shell.
//
// The shell keeps one session token in memory for as long as it runs:
//
//	login <email>   authenticate (password prompted without echo)
//	whoami          show the signed-in account
//	spend <n>       debit n vision tokens from the signed-in account
//	ping            check that the server is serving
//	logout          forget the session token
//	exit | quit     leave the shell
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
