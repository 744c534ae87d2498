package identity

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/state"
	"github.com/google/uuid"
)

const (
	userIDKey   = "morningstar_uid"
	userNameKey = "morningstar_uname"

	MaxNameLength = 40
)

type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store keeps this device's user id and display name in the local store.
type Store struct {
	kv state.Store
}

func NewStore(kv state.Store) *Store {
	return &Store{kv: kv}
}

// Current returns the saved identity, generating and saving an id on first use.
func (s *Store) Current() (Identity, error) {
	id, exists, err := s.kv.Get(userIDKey)
	if err != nil {
		return Identity{}, err
	}
	if !exists || id == "" {
		id = uuid.NewString()
		if err := s.kv.Set(userIDKey, id); err != nil {
			return Identity{}, err
		}
	}
	name, _, err := s.kv.Get(userNameKey)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: id, Name: name}, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", model.ErrValidation)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name longer than %d characters", model.ErrValidation, MaxNameLength)
	}
	return name, nil
}

func (s *Store) SetName(name string) (Identity, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Identity{}, err
	}
	if err := s.kv.Set(userNameKey, name); err != nil {
		return Identity{}, err
	}
	return s.Current()
}

// Restore replaces the device identity with a previously used id so that
// its rooms show up again.
func (s *Store) Restore(id string) (Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Identity{}, fmt.Errorf("%w: user id is empty", model.ErrValidation)
	}
	if err := s.kv.Set(userIDKey, id); err != nil {
		return Identity{}, err
	}
	return s.Current()
}
