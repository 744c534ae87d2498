package state

import (
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/reveal"
)

func answersCacheKey(code string) string { return KeyPrefix + code }
func roleKey(code string) string         { return KeyPrefix + "role_" + code }

// Cache persists the merged answer map and our role per room.
type Cache struct {
	Store Store
}

func NewCache(store Store) *Cache {
	return &Cache{Store: store}
}

func (c *Cache) LoadAnswers(code string) (reveal.Answers, error) {
	answers := reveal.Answers{}
	if _, err := getJSON(c.Store, answersCacheKey(code), &answers); err != nil {
		return reveal.Answers{}, err
	}
	return answers, nil
}

func (c *Cache) SaveAnswers(code string, answers reveal.Answers) error {
	return setJSON(c.Store, answersCacheKey(code), answers)
}

func (c *Cache) LoadRole(code string) (model.PlayerRole, bool, error) {
	raw, exists, err := c.Store.Get(roleKey(code))
	if err != nil || !exists {
		return "", false, err
	}
	role, err := model.ParseRole(raw)
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

func (c *Cache) SaveRole(code string, role model.PlayerRole) error {
	return c.Store.Set(roleKey(code), string(role))
}

// Forget drops everything cached for the room.
func (c *Cache) Forget(code string) error {
	if err := c.Store.Delete(answersCacheKey(code)); err != nil {
		return err
	}
	return c.Store.Delete(roleKey(code))
}
