package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anchal00/morningstar/internal/reveal"
	"github.com/anchal00/morningstar/internal/server"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "MORNINGSTAR"

type Config struct {
	// Client side.
	Server       string
	StateFile    string
	PollInterval time.Duration
	Verbose      bool

	// serve.
	Bind       string
	Port       int
	DBPath     string
	Admin      bool
	PublicURL  string
	PurgeAfter time.Duration
}

func DefaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "morningstar", "state.json")
}

// Validate checks the client settings; ValidateServe adds the serve ones.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval (must be positive): %s", c.PollInterval)
	}
	if strings.TrimSpace(c.StateFile) == "" {
		return errors.New("--state must not be empty")
	}
	return nil
}

func (c *Config) ValidateServe() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.PurgeAfter <= 0 {
		return fmt.Errorf("invalid purge threshold (must be positive): %s", c.PurgeAfter)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("--db must not be empty")
	}
	return nil
}

func (c *Config) ServerOptions() server.Options {
	return server.Options{
		Bind:       c.Bind,
		Port:       c.Port,
		DBPath:     c.DBPath,
		Admin:      c.Admin,
		PublicURL:  c.PublicURL,
		PurgeAfter: c.PurgeAfter,
	}
}

func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags lets MORNINGSTAR_<FLAG> env vars fill every flag of fs that was
// not given on the command line.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func AddClientFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVarP(&c.Server, "server", "s", "", "MorningStar server url, local state is used when empty (env: MORNINGSTAR_SERVER)")
	fs.StringVar(&c.StateFile, "state", DefaultStateFile(), "path to the local state file (env: MORNINGSTAR_STATE)")
	fs.DurationVar(&c.PollInterval, "poll-interval", reveal.DefaultPollInterval, "how often rooms are refreshed (env: MORNINGSTAR_POLL_INTERVAL)")
	fs.BoolVarP(&c.Verbose, "verbose", "v", false, "display debug logs (env: MORNINGSTAR_VERBOSE)")
}

func AddServeFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVarP(&c.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: MORNINGSTAR_BIND)")
	fs.IntVarP(&c.Port, "port", "p", 8080, "port to listen on (env: MORNINGSTAR_PORT)")
	fs.StringVar(&c.DBPath, "db", "morningstar.db", "path to the sqlite database (env: MORNINGSTAR_DB)")
	fs.BoolVar(&c.Admin, "admin", false, "register admin routes (env: MORNINGSTAR_ADMIN)")
	fs.StringVar(&c.PublicURL, "public-url", "", "base url encoded in room QR codes (env: MORNINGSTAR_PUBLIC_URL)")
	fs.DurationVar(&c.PurgeAfter, "purge-after", 24*time.Hour, "default age of rooms removed by a purge (env: MORNINGSTAR_PURGE_AFTER)")
}
