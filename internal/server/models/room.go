package models

import "time"

type Room struct {
	ID          string
	Name        string
	CreatorID   string
	IsEncrypted bool
	CreatedAt   time.Time
}

// Member is an active participant of a room as listed to other members.
type Member struct {
	UserID   string
	UserName string
	JoinedAt time.Time
}

// RoomSummary is a room as seen from one member's room list.
type RoomSummary struct {
	Room          *Room
	Participants  []string
	LatestMessage *Message
	UnreadCount   int
}
