package model

import "fmt"

type PlayerRole string

const (
	RoleHost  PlayerRole = "host"
	RoleGuest PlayerRole = "guest"
)

func (r PlayerRole) Valid() bool {
	return r == RoleHost || r == RoleGuest
}

// Partner returns the opposite role.
func (r PlayerRole) Partner() PlayerRole {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

func ParseRole(s string) (PlayerRole, error) {
	r := PlayerRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
	return r, nil
}
