package grpc

import (
	"github.com/dmitrijs2005/gophchat/internal/chatapi"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// envelopeFromWire rejects envelopes that cannot be AES-GCM output before
// they reach the core.
func envelopeFromWire(e chatapi.Envelope) (models.Envelope, error) {
	if len(e.IV) != models.EnvelopeIVSize || len(e.Ciphertext) < models.EnvelopeMinCTSize {
		return models.Envelope{}, status.Error(codes.InvalidArgument, "invalid envelope")
	}
	return models.Envelope{Ciphertext: e.Ciphertext, IV: e.IV}, nil
}

func messageToWire(m *models.Message) chatapi.Message {
	return chatapi.Message{
		ID:            m.ID,
		RoomID:        m.RoomID,
		SenderID:      m.SenderID,
		Sender:        m.SenderName,
		Seq:           m.Seq,
		Envelope:      chatapi.Envelope{Ciphertext: m.Envelope.Ciphertext, IV: m.Envelope.IV},
		Kind:          m.Kind,
		IsEdited:      m.IsEdited,
		EditedAt:      m.EditedAt,
		ReplyToID:     m.ReplyToID,
		ReplyToSender: m.ReplyToSender,
		CreatedAt:     m.CreatedAt,
	}
}

func memberToWire(m *models.Member) chatapi.Member {
	return chatapi.Member{UserID: m.UserID, Username: m.UserName, JoinedAt: m.JoinedAt}
}

func summaryToWire(s *models.RoomSummary) chatapi.RoomSummary {
	out := chatapi.RoomSummary{
		RoomID:       s.Room.ID,
		Name:         s.Room.Name,
		CreatorID:    s.Room.CreatorID,
		IsEncrypted:  s.Room.IsEncrypted,
		CreatedAt:    s.Room.CreatedAt,
		Participants: s.Participants,
		UnreadCount:  s.UnreadCount,
	}
	if s.LatestMessage != nil {
		latest := messageToWire(s.LatestMessage)
		out.LatestMessage = &latest
	}
	return out
}
