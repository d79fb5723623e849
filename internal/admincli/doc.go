// Package admincli implements the meetauth operator command line.
//
// Every command runs once against the configured PostgreSQL database and
// exits. Users are addressed by email (anything containing "@") or by id.
// Passwords are always read from the terminal without echo, never from
// arguments.
//
//	admin [config flags] <command> [args]
//
// Commands: create-user, show, list, promote, demote, ban, unban, activate,
// deactivate, credit, debit, set-balance, set-password, reset-request,
// reset-complete, login, export, migrate.
package admincli
