package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) credentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	if userName == "" {
		return "", nil, common.ErrValidation
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// Register prompts for a username and password and creates the account.
// Logging in is a separate step.
func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.chat.Register(ctx, userName, string(password)); err != nil {
		return err
	}

	a.printf("Registered %s, you can log in now\n", userName)
	return nil
}

// Login authenticates and derives the message key. A salt that differs from
// the one pinned on an earlier login aborts with metadata.ErrSaltChanged.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.chat.Login(ctx, userName, string(password)); err != nil {
		if errors.Is(err, metadata.ErrSaltChanged) {
			a.printf("WARNING: the server returned a different key salt for %s than before\n", userName)
		}
		return err
	}

	a.resetRoom()
	a.rooms = nil
	a.printf("Logged in as %s\n", userName)
	return nil
}

// Logout drops the in-memory key and the selected room.
func (a *App) Logout(ctx context.Context) error {
	a.chat.Logout()
	a.resetRoom()
	a.rooms = nil
	a.printf("Logged out\n")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.chat.Ping(ctx); err != nil {
		return err
	}
	a.printf("Server is reachable\n")
	return nil
}

// Unpin forgets the salt pinned for a username after the user confirms it.
func (a *App) Unpin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: unpin <username>", common.ErrValidation)
	}
	answer, err := getSimpleText(a.reader, "Old messages of "+args[0]+" will stay unreadable. Type yes to continue", a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		a.printf("Cancelled\n")
		return nil
	}
	if err := a.chat.ForgetSalt(ctx, args[0]); err != nil {
		return err
	}
	a.printf("Salt for %s forgotten\n", args[0])
	return nil
}
