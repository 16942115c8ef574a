package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

// Rooms lists the caller's active rooms with unread counters and previews.
// The numbers shown can be passed to open.
func (a *App) Rooms(ctx context.Context) error {
	rooms, err := a.chat.ListRooms(ctx)
	if err != nil {
		return err
	}
	a.rooms = rooms

	if len(rooms) == 0 {
		a.printf("No rooms yet, use: create <name> [user ...]\n")
		return nil
	}
	for i, r := range rooms {
		a.printf("%s\n", formatRoom(i+1, r))
	}
	return nil
}

// CreateRoom takes the room name and invitees from args, or prompts for them.
func (a *App) CreateRoom(ctx context.Context, args []string) error {
	var name string
	var participants []string

	if len(args) > 0 {
		name, participants = args[0], args[1:]
	} else {
		var err error
		name, err = getSimpleText(a.reader, "Room name", a.out)
		if err != nil {
			return err
		}
		line, err := getSimpleText(a.reader, "Participants (space separated, may be empty)", a.out)
		if err != nil {
			return err
		}
		participants = strings.Fields(line)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: room name is required", common.ErrValidation)
	}

	id, err := a.chat.CreateRoom(ctx, name, participants)
	if err != nil {
		return err
	}

	a.rooms = nil
	a.resetRoom()
	a.room = &models.Room{ID: id, Name: name, Participants: participants}
	a.printf("Room %s created\n", name)
	return nil
}

// resolveRoom accepts a list number, a room id or a room name.
func (a *App) resolveRoom(ctx context.Context, ref string) (*models.Room, error) {
	if a.rooms == nil {
		rooms, err := a.chat.ListRooms(ctx)
		if err != nil {
			return nil, err
		}
		a.rooms = rooms
	}

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(a.rooms) {
		r := a.rooms[n-1]
		return &r, nil
	}
	for _, r := range a.rooms {
		if r.ID == ref || r.Name == ref {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("room %q not found", ref)
}

// Open selects a room, shows its latest page and marks it read.
func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: open <number|name|id>", common.ErrValidation)
	}
	room, err := a.resolveRoom(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	a.resetRoom()
	a.room = room
	a.printf("Room %s\n", room.Name)

	if err := a.showPage(ctx, a.lastPage()); err != nil {
		return err
	}
	return a.chat.MarkRead(ctx, room.ID)
}

func (a *App) requireRoom() error {
	if a.room == nil {
		return ErrNoRoom
	}
	return nil
}

func (a *App) Members(ctx context.Context) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	members, err := a.chat.Members(ctx, a.room.ID)
	if err != nil {
		return err
	}
	for _, m := range members {
		a.printf("%s\n", formatMember(m))
	}
	return nil
}

func (a *App) Invite(ctx context.Context, args []string) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: invite <username>", common.ErrValidation)
	}
	if err := a.chat.AddMember(ctx, a.room.ID, args[0]); err != nil {
		return err
	}
	a.printf("%s added to %s\n", args[0], a.room.Name)
	return nil
}

// Leave deactivates the membership; the history stays on the server.
func (a *App) Leave(ctx context.Context) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	name := a.room.Name
	if err := a.chat.Leave(ctx, a.room.ID); err != nil {
		return err
	}
	a.resetRoom()
	a.rooms = nil
	a.printf("Left %s\n", name)
	return nil
}

func (a *App) MarkRead(ctx context.Context) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	return a.chat.MarkRead(ctx, a.room.ID)
}
