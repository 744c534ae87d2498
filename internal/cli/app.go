package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/anchal00/morningstar/internal/client"
	"github.com/anchal00/morningstar/internal/config"
	"github.com/anchal00/morningstar/internal/identity"
	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/reveal"
	"github.com/anchal00/morningstar/internal/session"
	"github.com/anchal00/morningstar/internal/state"
)

// app holds everything a client command needs, built from the config.
type app struct {
	cfg     *config.Config
	out     io.Writer
	logger  logger.Logger
	kv      state.Store
	ids     *identity.Store
	cache   *state.Cache
	backend reveal.Backend
	push    *client.Push
	remote  *client.Client
}

func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	kv, err := state.NewFileStore(cfg.StateFile)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:    cfg,
		out:    out,
		logger: logger.New("cli"),
		kv:     kv,
		ids:    identity.NewStore(kv),
		cache:  state.NewCache(kv),
	}
	remote, err := client.New(cfg.Server)
	switch {
	case errors.Is(err, model.ErrNotConfigured):
		a.logger.Debug(fmt.Sprintf("No server configured, using local state in %s", cfg.StateFile))
		a.backend = state.NewBackend(kv)
	case err != nil:
		return nil, err
	default:
		a.remote = remote
		a.push = client.NewPush(remote)
		a.backend = remote
	}
	return a, nil
}

func (a *app) manager() *session.Manager {
	m := &session.Manager{
		Identity:     a.ids,
		Backend:      a.backend,
		Cache:        a.cache,
		Logger:       a.logger,
		PollInterval: a.cfg.PollInterval,
	}
	if a.push != nil {
		m.Broadcaster = a.push
	}
	return m
}

// requireServer is used by commands that only make sense against a server.
func (a *app) requireServer(what string) (*client.Client, error) {
	if a.remote == nil {
		return nil, fmt.Errorf("%w: %s needs --server", model.ErrNotConfigured, what)
	}
	return a.remote, nil
}
