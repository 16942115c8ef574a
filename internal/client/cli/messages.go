package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/filex"
)

// downloadsDir is where getfile stores decrypted attachments.
var downloadsDir = func() (string, error) {
	return filex.EnsureSubdDir("downloads")
}

func (a *App) pageSize() int {
	if a.config == nil || a.config.PageSize <= 0 {
		return 50
	}
	return a.config.PageSize
}

// lastPage is the zero-based page holding the newest known message.
func (a *App) lastPage() int {
	if a.room == nil || a.room.Latest == nil || a.room.Latest.Seq < 1 {
		return 0
	}
	return int((a.room.Latest.Seq - 1) / int64(a.pageSize()))
}

func (a *App) showPage(ctx context.Context, page int) error {
	msgs, err := a.chat.History(ctx, a.room.ID, page)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		a.printf("(no messages)\n")
		return nil
	}
	for _, m := range msgs {
		a.loaded[m.Seq] = m
		a.printf("%s\n", formatMessage(m))
	}
	return nil
}

// History prints a page of the open room. Pages are numbered from 1 for the
// user; without an argument the newest page is shown.
func (a *App) History(ctx context.Context, args []string) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	page := a.lastPage()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: page must be a positive number", common.ErrValidation)
		}
		page = n - 1
	}
	return a.showPage(ctx, page)
}

// messageBySeq finds a message of the open room, fetching the page that
// holds seq when it is not loaded yet.
func (a *App) messageBySeq(ctx context.Context, ref string) (models.Message, error) {
	seq, err := strconv.ParseInt(strings.TrimPrefix(ref, "#"), 10, 64)
	if err != nil || seq < 1 {
		return models.Message{}, fmt.Errorf("%w: bad message number %q", common.ErrValidation, ref)
	}
	if m, ok := a.loaded[seq]; ok {
		return m, nil
	}

	msgs, err := a.chat.History(ctx, a.room.ID, int((seq-1)/int64(a.pageSize())))
	if err != nil {
		return models.Message{}, err
	}
	for _, m := range msgs {
		a.loaded[m.Seq] = m
	}
	if m, ok := a.loaded[seq]; ok {
		return m, nil
	}
	return models.Message{}, fmt.Errorf("%w: message #%d", common.ErrorNotFound, seq)
}

func (a *App) messageText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return GetMultiline(a.reader, "Message", a.out)
}

func (a *App) sent(m *models.Message) {
	a.loaded[m.Seq] = *m
	a.room.Latest = m
	a.printf("%s\n", formatMessage(*m))
}

// Send posts text to the open room. Without inline text the body is read
// as multiple lines.
func (a *App) Send(ctx context.Context, args []string) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	text, err := a.messageText(args)
	if err != nil {
		return err
	}
	m, err := a.chat.Send(ctx, a.room.ID, text, nil)
	if err != nil {
		return err
	}
	a.sent(m)
	return nil
}

// Reply posts text linked to message number args[0].
func (a *App) Reply(ctx context.Context, args []string) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: reply <#> [text]", common.ErrValidation)
	}
	target, err := a.messageBySeq(ctx, args[0])
	if err != nil {
		return err
	}
	text, err := a.messageText(args[1:])
	if err != nil {
		return err
	}

	m, err := a.chat.Send(ctx, a.room.ID, text, &target.ID)
	if err != nil {
		return err
	}
	if m.ReplyToSender == nil {
		sender := target.Sender
		m.ReplyToSender = &sender
	}
	a.sent(m)
	return nil
}

// Edit replaces the text of one of the caller's own messages.
func (a *App) Edit(ctx context.Context, args []string) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: edit <#> [text]", common.ErrValidation)
	}
	target, err := a.messageBySeq(ctx, args[0])
	if err != nil {
		return err
	}
	text, err := a.messageText(args[1:])
	if err != nil {
		return err
	}

	m, err := a.chat.Edit(ctx, a.room.ID, target.ID, text)
	if err != nil {
		return err
	}
	a.loaded[m.Seq] = *m
	a.printf("%s\n", formatMessage(*m))
	return nil
}

// SendFile encrypts and uploads a local file to the open room.
func (a *App) SendFile(ctx context.Context, args []string) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	path := strings.Join(args, " ")
	if path == "" {
		var err error
		if path, err = getSimpleText(a.reader, "File path", a.out); err != nil {
			return err
		}
	}
	if path == "" {
		return fmt.Errorf("%w: file path is required", common.ErrValidation)
	}

	m, err := a.chat.SendFile(ctx, a.room.ID, path)
	if err != nil {
		return err
	}
	a.sent(m)
	return nil
}

// GetFile downloads and decrypts the attachment of message args[0] into the
// downloads directory.
func (a *App) GetFile(ctx context.Context, args []string) error {
	if err := a.requireRoom(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: getfile <#>", common.ErrValidation)
	}
	m, err := a.messageBySeq(ctx, args[0])
	if err != nil {
		return err
	}
	if m.File == nil {
		return models.ErrNotAFile
	}

	data, err := a.chat.FetchFile(ctx, a.room.ID, m.File)
	if err != nil {
		return err
	}

	dir, err := downloadsDir()
	if err != nil {
		return err
	}
	name := filepath.Base(m.File.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "attachment"
	}
	dest := filepath.Join(dir, name)
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}

	a.printf("Saved %s (%d bytes)\n", dest, len(data))
	return nil
}
