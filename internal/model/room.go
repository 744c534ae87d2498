package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	RoomCodeLength    = 6
	MaxRoomCodeLength = 16
)

type Room struct {
	ID        string    `db:"id" json:"id"`
	HostID    string    `db:"host_id" json:"host_id"`
	HostName  string    `db:"host_name" json:"host_name"`
	GuestID   *string   `db:"guest_id" json:"guest_id"`
	GuestName *string   `db:"guest_name" json:"guest_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasGuest reports whether the single guest slot has been taken.
func (r Room) HasGuest() bool {
	return r.GuestID != nil && *r.GuestID != ""
}

// RoleOf returns the role userID holds in the room, or false when the user
// is neither host nor guest.
func (r Room) RoleOf(userID string) (PlayerRole, bool) {
	switch {
	case userID == "":
		return "", false
	case r.HostID == userID:
		return RoleHost, true
	case r.HasGuest() && *r.GuestID == userID:
		return RoleGuest, true
	}
	return "", false
}

// NormalizeRoomCode trims and uppercases a code and rejects empty or oversized ones.
func NormalizeRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("%w: room code is empty", ErrValidation)
	}
	if utf8.RuneCountInString(code) > MaxRoomCodeLength {
		return "", fmt.Errorf("%w: room code longer than %d characters", ErrValidation, MaxRoomCodeLength)
	}
	return code, nil
}
