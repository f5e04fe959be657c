// Package domain contains core concepts of the messenger.
// This file defines the User reference and its public projection.
// Identity is owned by the external auth subsystem; we consume it by id.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID
	Username string
	Avatar   string
	LastSeen time.Time
}

// UserPublic is the wire shape of a user, detached from the persistence shape.
type UserPublic struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
	LastSeen time.Time `json:"lastSeen"`
}

func (u User) Public() UserPublic {
	return UserPublic{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		LastSeen: u.LastSeen,
	}
}
