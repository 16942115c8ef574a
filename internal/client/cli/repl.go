package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/services"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/cryptox"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Unpin(ctx context.Context, args []string) error

	Rooms(ctx context.Context) error
	CreateRoom(ctx context.Context, args []string) error
	Open(ctx context.Context, args []string) error
	Members(ctx context.Context) error
	Invite(ctx context.Context, args []string) error
	Leave(ctx context.Context) error
	MarkRead(ctx context.Context) error

	History(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	Reply(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	SendFile(ctx context.Context, args []string) error
	GetFile(ctx context.Context, args []string) error
}

const (
	guestHelp = "Available commands: register, login, unpin <user>, ping, exit"
	userHelp  = "Available commands: rooms, create <name> [user ...], open <room>, history [page], " +
		"send [text], reply <#> [text], edit <#> [text], members, invite <user>, leave, read, " +
		"sendfile <path>, getfile <#>, ping, logout, exit"
)

// runREPL starts a read–eval–print loop for the GophChat CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and passes the remaining tokens to the handler on 'a'. The loop
// exits on scanner EOF or when the user types "exit" or "quit".
//
// Commands other than help, register, login, unpin, ping and exit require a
// logged in session. Handler errors are reported to the user and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("gc> %s > ", statusFn()))
		if !scanner.Scan() {
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
				printlnFn(userHelp)
			} else {
				printlnFn(guestHelp)
			}
			continue
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "ping":
			err = a.Ping(ctx)
		case "unpin":
			err = a.Unpin(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			if !a.isLoggedIn() {
				if isSessionCommand(cmd) {
					printlnFn("Please log in first")
				} else {
					printlnFn("Unknown command:", cmd)
				}
				continue
			}
			err = dispatch(ctx, a, cmd, args)
		}

		if err != nil {
			printlnFn("Error:", describe(err))
		}
	}
}

var sessionCommands = map[string]bool{
	"rooms": true, "r": true, "create": true, "open": true, "o": true,
	"history": true, "h": true, "send": true, "s": true, "reply": true,
	"edit": true, "members": true, "invite": true, "leave": true, "read": true,
	"sendfile": true, "getfile": true, "logout": true,
}

func isSessionCommand(cmd string) bool {
	return sessionCommands[cmd]
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "r", "rooms":
		return a.Rooms(ctx)
	case "create":
		return a.CreateRoom(ctx, args)
	case "o", "open":
		return a.Open(ctx, args)
	case "h", "history":
		return a.History(ctx, args)
	case "s", "send":
		return a.Send(ctx, args)
	case "reply":
		return a.Reply(ctx, args)
	case "edit":
		return a.Edit(ctx, args)
	case "members":
		return a.Members(ctx)
	case "invite":
		return a.Invite(ctx, args)
	case "leave":
		return a.Leave(ctx)
	case "read":
		return a.MarkRead(ctx)
	case "sendfile":
		return a.SendFile(ctx, args)
	case "getfile":
		return a.GetFile(ctx, args)
	case "logout":
		return a.Logout(ctx)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}

// describe turns known failures into short user-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrForbidden):
		return "you are not an active member of this room"
	case errors.Is(err, common.ErrDanglingReply):
		return "the message you reply to is not in this room"
	case errors.Is(err, common.ErrUsernameTaken):
		return "username is already taken"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, client.ErrUnauthorized):
		return "session expired, please log in again"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.Is(err, services.ErrNotLoggedIn):
		return "please log in first"
	case errors.Is(err, cryptox.ErrAuthenticationFailure):
		return "data could not be decrypted with your key"
	default:
		return err.Error()
	}
}
