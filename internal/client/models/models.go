// Package models defines the decrypted, client-side views of rooms and
// messages shown by the CLI.
package models

import (
	"encoding/json"
	"errors"
	"time"
)

// UndecryptablePlaceholder stands in for text that failed authentication.
const UndecryptablePlaceholder = "[unable to decrypt]"

var ErrNotAFile = errors.New("message is not a file attachment")

// FileDescriptor is the plaintext of a file message envelope. The file bytes
// themselves are encrypted separately and stored under StorageKey.
type FileDescriptor struct {
	StorageKey string `json:"storage_key"`
	Name       string `json:"name"`
	IV         []byte `json:"iv"`
	Size       int    `json:"size"`
}

func (d FileDescriptor) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

func UnmarshalFileDescriptor(data []byte) (*FileDescriptor, error) {
	var d FileDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if d.StorageKey == "" || len(d.IV) == 0 {
		return nil, errors.New("incomplete file descriptor")
	}
	return &d, nil
}

// Message is a history entry after decryption.
type Message struct {
	ID            string
	Seq           int64
	Sender        string
	SenderID      string
	Kind          string
	Text          string
	File          *FileDescriptor
	Undecryptable bool
	IsEdited      bool
	ReplyToID     *string
	ReplyToSender *string
	CreatedAt     time.Time
}

// Room is a room list entry with a decrypted preview of its latest message.
type Room struct {
	ID           string
	Name         string
	Participants []string
	UnreadCount  int
	Latest       *Message
	CreatedAt    time.Time
}

type Member struct {
	UserID   string
	Username string
	JoinedAt time.Time
}
