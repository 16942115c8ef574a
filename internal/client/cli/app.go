package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchat/internal/client/services"
)

var ErrNoRoom = errors.New("no room selected, use: open <room>")

type App struct {
	config  *config.Config
	chat    services.ChatService
	closeFn func() error
	reader  *bufio.Reader
	out     io.Writer

	rooms  []models.Room
	room   *models.Room
	loaded map[int64]models.Message
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	chat := services.NewChatService(apiClient, metadata.NewSQLiteRepository(db), c.PageSize)

	closeFn := func() error {
		return errors.Join(apiClient.Close(), db.Close())
	}

	return newApp(c, chat, closeFn, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, chat services.ChatService, closeFn func() error, in io.Reader, out io.Writer) *App {
	return &App{
		config:  c,
		chat:    chat,
		closeFn: closeFn,
		reader:  bufio.NewReader(in),
		out:     out,
		loaded:  make(map[int64]models.Message),
	}
}

// Run blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer func() {
		a.chat.Logout()
		if a.closeFn != nil {
			_ = a.closeFn()
		}
	}()
	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	_, ok := a.chat.CurrentUser()
	return ok
}

// status is the prompt prefix: user and open room.
func (a *App) status() string {
	user, ok := a.chat.CurrentUser()
	if !ok {
		return "guest"
	}
	if a.room == nil {
		return user
	}
	return user + " #" + a.room.Name
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) resetRoom() {
	a.room = nil
	clear(a.loaded)
}
