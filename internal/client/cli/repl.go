package cli

import (
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it
// with a stub.
var printlnFn = fmt.Println

// lineScanner is the input surface the REPL reads from (a bufio.Scanner
// in production, a slice-backed stub in tests).
type lineScanner interface {
	Scan() bool
	Text() string
}

// execIface defines the minimal command surface the REPL needs. The real
// App satisfies it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, callbackURL string) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Addresses(ctx context.Context) error
	Use(ctx context.Context, handle string) error
	Fetch(ctx context.Context, vertical string) error
	Resync(ctx context.Context, vertical string) error
	List(ctx context.Context, vertical string) error
	AddStatus(ctx context.Context, text string) error
	AddPaste(ctx context.Context, title, text string) error
	AddPURL(ctx context.Context, name, target string) error
	Reconcile(ctx context.Context) error
}

// runREPL reads lines, parses the first token as the command, and
// dispatches to a. Handler errors are already reported by the handlers;
// the loop stays resilient and focused on I/O. Exits on scanner EOF or
// "exit"/"quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner lineScanner) {
	for {
		printlnFn(fmt.Sprintf("addrhub> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, refresh, addresses, use, fetch, resync, list, status, paste, purl, reconcile, logout, exit")
			} else {
				printlnFn("Available commands: login <callback-url>, exit")
			}

		case "login":
			if len(args) != 1 {
				printlnFn("Usage: login <callback-url>")
				continue
			}
			_ = a.Login(ctx, args[0])

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "addresses":
			_ = a.Addresses(ctx)

		case "use":
			if len(args) != 1 {
				printlnFn("Usage: use <address>")
				continue
			}
			_ = a.Use(ctx, args[0])

		case "fetch":
			if len(args) != 1 {
				printlnFn("Usage: fetch <vertical>")
				continue
			}
			_ = a.Fetch(ctx, args[0])

		case "resync":
			if len(args) != 1 {
				printlnFn("Usage: resync <vertical>")
				continue
			}
			_ = a.Resync(ctx, args[0])

		case "l", "list":
			if len(args) != 1 {
				printlnFn("Usage: list <vertical>")
				continue
			}
			_ = a.List(ctx, args[0])

		case "status":
			if len(args) == 0 {
				printlnFn("Usage: status <text>")
				continue
			}
			_ = a.AddStatus(ctx, strings.Join(args, " "))

		case "paste":
			if len(args) < 2 {
				printlnFn("Usage: paste <title> <content>")
				continue
			}
			_ = a.AddPaste(ctx, args[0], strings.Join(args[1:], " "))

		case "purl":
			if len(args) != 2 {
				printlnFn("Usage: purl <name> <url>")
				continue
			}
			_ = a.AddPURL(ctx, args[0], args[1])

		case "reconcile":
			_ = a.Reconcile(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
