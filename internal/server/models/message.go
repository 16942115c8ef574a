package models

import "time"

// Envelope is one encrypted message body. The server never interprets it.
type Envelope struct {
	Ciphertext []byte
	IV         []byte
}

const (
	EnvelopeIVSize    = 12
	EnvelopeMinCTSize = 16
	EnvelopeMaxCTSize = 64 << 10
)

// WellFormed reports whether the envelope has the shape produced by an
// AES-GCM client: a 12-byte IV and at least a tag worth of ciphertext.
func (e Envelope) WellFormed() bool {
	return len(e.IV) == EnvelopeIVSize &&
		len(e.Ciphertext) >= EnvelopeMinCTSize &&
		len(e.Ciphertext) <= EnvelopeMaxCTSize
}

type Message struct {
	ID            string
	RoomID        string
	SenderID      string
	SenderName    string
	Seq           int64
	Envelope      Envelope
	Kind          string
	IsEdited      bool
	EditedAt      *time.Time
	ReplyToID     *string
	ReplyToSender *string
	CreatedAt     time.Time
}
