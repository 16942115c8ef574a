package models

import (
	"errors"
	"time"
)

// MembershipState is the lifecycle of a (room, user) pair. There is no hard
// delete: once a pair exists it only moves between active and inactive.
type MembershipState int

const (
	MembershipAbsent MembershipState = iota
	MembershipActive
	MembershipInactive
)

var ErrInvalidTransition = errors.New("invalid membership transition")

func (s MembershipState) String() string {
	switch s {
	case MembershipActive:
		return "active"
	case MembershipInactive:
		return "inactive"
	default:
		return "absent"
	}
}

// Join moves absent or inactive to active. Joining while active is a no-op.
func (s MembershipState) Join() (MembershipState, error) {
	return MembershipActive, nil
}

// Leave moves active to inactive; anything else is invalid.
func (s MembershipState) Leave() (MembershipState, error) {
	if s != MembershipActive {
		return s, ErrInvalidTransition
	}
	return MembershipInactive, nil
}

type Membership struct {
	RoomID     string
	UserID     string
	JoinedAt   time.Time
	IsActive   bool
	LastReadAt *time.Time
}

// State derives the lifecycle state; a nil membership is absent.
func (m *Membership) State() MembershipState {
	switch {
	case m == nil:
		return MembershipAbsent
	case m.IsActive:
		return MembershipActive
	default:
		return MembershipInactive
	}
}
