package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Vote(ctx context.Context, args []string, value int) error
	Cancel(ctx context.Context, args []string) error
	My(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
	Counts(ctx context.Context) error
	Refresh(ctx context.Context, args []string) error
}

// runREPL reads commands line by line from reader and dispatches them to
// a. It returns on EOF or when the user types "exit" or "quit".
//
//	Always:
//	  - help                        show available commands
//	  - stats <pledge_id>           public statistics of a pledge
//	  - counts                      number of elections, candidates, pledges
//	  - exit | quit
//
//	Not logged in:
//	  - register | login
//
//	Logged in:
//	  - like | dislike <pledge_id>  vote
//	  - cancel <pledge_id>          withdraw the vote
//	  - my <pledge_id>              show your vote
//	  - refresh [elections|candidates|pledges|all]   admin only
//	  - logout
//
// Handler errors are ignored here; handlers report them to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pb %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: like, dislike, cancel, my, stats, counts, refresh, logout, exit")
			} else {
				printlnFn("Available commands: register, login, stats, counts, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "like":
			_ = a.Vote(ctx, args, 1)

		case "dislike":
			_ = a.Vote(ctx, args, -1)

		case "cancel":
			_ = a.Cancel(ctx, args)

		case "my":
			_ = a.My(ctx, args)

		case "stats":
			_ = a.Stats(ctx, args)

		case "counts":
			_ = a.Counts(ctx)

		case "refresh":
			_ = a.Refresh(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
