package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvFillsUnsetFlags(t *testing.T) {
	t.Setenv("MORNINGSTAR_PORT", "9191")
	t.Setenv("MORNINGSTAR_PUBLIC_URL", "https://example.com")
	t.Setenv("MORNINGSTAR_POLL_INTERVAL", "5s")

	cfg := &Config{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddClientFlags(fs, cfg)
	AddServeFlags(fs, cfg)
	BindFlags(NewViper(), fs)
	require.Nil(t, fs.Parse([]string{"--db", "other.db"}))

	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "https://example.com", cfg.PublicURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "other.db", cfg.DBPath)
	assert.Nil(t, cfg.Validate())
	assert.Nil(t, cfg.ValidateServe())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		description string
		cfg         Config
		serve       bool
		wantErr     bool
	}{
		{"Test valid client config", Config{PollInterval: time.Second, StateFile: "s.json"}, false, false},
		{"Test zero poll interval", Config{PollInterval: 0, StateFile: "s.json"}, false, true},
		{"Test empty state file", Config{PollInterval: time.Second}, false, true},
		{"Test port out of range", Config{Port: 70000, PurgeAfter: time.Hour, DBPath: "x.db"}, true, true},
		{"Test zero purge threshold", Config{Port: 8080, DBPath: "x.db"}, true, true},
		{"Test valid serve config", Config{Port: 8080, PurgeAfter: time.Hour, DBPath: "x.db"}, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			var err error
			if tc.serve {
				err = tc.cfg.ValidateServe()
			} else {
				err = tc.cfg.Validate()
			}
			assert.Equal(t, tc.wantErr, err != nil)
		})
	}
}
