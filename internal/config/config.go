package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/firefly-engineering/adminmux/internal/auth"
	"github.com/firefly-engineering/adminmux/internal/backend"
	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
	"github.com/firefly-engineering/adminmux/internal/policy"
	"github.com/firefly-engineering/adminmux/internal/session"
)

const (
	DefaultConfigPath = "/etc/adminmux/config.toml"
	DefaultListen     = ":4000"
	DefaultStateDir   = "/var/lib/adminmux"
	DefaultTick       = 450 * time.Millisecond
	DefaultWait       = 500 * time.Millisecond
)

// Config is the gateway configuration file.
type Config struct {
	Listen        string              `toml:"listen" yaml:"listen"`
	StateDir      string              `toml:"state_dir" yaml:"state_dir"`
	Backends      []backend.Backend   `toml:"backend" yaml:"backend"`
	Users         []UserConfig        `toml:"user" yaml:"user"`
	Authorization map[string][]string `toml:"authorization" yaml:"authorization"`
	Policy        PolicyConfig        `toml:"policy" yaml:"policy"`
	Timing        TimingConfig        `toml:"timing" yaml:"timing"`
}

// UserConfig is one entry of the user table.
type UserConfig struct {
	Name     string   `toml:"name" yaml:"name"`
	Password string   `toml:"password" yaml:"password"` // bcrypt hash
	Gender   string   `toml:"gender" yaml:"gender"`
	Flags    []string `toml:"flags" yaml:"flags"`
}

// PolicyConfig overrides the elision patterns. Lists left out keep their
// built-in defaults.
type PolicyConfig struct {
	policy.Patterns `yaml:",inline"`

	StatusCommand string `toml:"status_command" yaml:"status_command"`
}

// TimingConfig tunes polling and the main loop. Zero values take defaults.
type TimingConfig struct {
	FocusedPoll      time.Duration `toml:"focused_poll" yaml:"focused_poll"`
	FocusedJitter    time.Duration `toml:"focused_jitter" yaml:"focused_jitter"`
	BackgroundPoll   time.Duration `toml:"background_poll" yaml:"background_poll"`
	BackgroundJitter time.Duration `toml:"background_jitter" yaml:"background_jitter"`
	Tick             time.Duration `toml:"tick" yaml:"tick"`
	Wait             time.Duration `toml:"wait" yaml:"wait"`
}

// Env holds settings taken from ADMINMUX_* environment variables. They
// override the file.
type Env struct {
	Config   string `envconfig:"CONFIG" default:"/etc/adminmux/config.toml"`
	Listen   string `envconfig:"LISTEN"`
	StateDir string `envconfig:"STATE_DIR"`
}

// LoadEnv reads ADMINMUX_* variables.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("ADMINMUX", &env); err != nil {
		return nil, gwerrors.Config("failed to read environment", err)
	}
	return &env, nil
}

// Load reads, defaults and validates a configuration file. Files ending
// in .yaml or .yml are YAML; anything else is TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gwerrors.Config("failed to read config", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		_, err = toml.Decode(string(data), &cfg)
	}
	if err != nil {
		return nil, gwerrors.Config(fmt.Sprintf("failed to parse %s", path), err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Apply overrides file settings with non-empty environment settings.
func (c *Config) Apply(env *Env) {
	if env == nil {
		return
	}
	if env.Listen != "" {
		c.Listen = env.Listen
	}
	if env.StateDir != "" {
		c.StateDir = env.StateDir
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	if c.Policy.StatusCommand == "" {
		c.Policy.StatusCommand = session.DefaultStatusCommand
	}

	d := session.DefaultTiming()
	t := &c.Timing
	if t.FocusedPoll == 0 {
		t.FocusedPoll = d.FocusedPoll
	}
	if t.FocusedJitter == 0 {
		t.FocusedJitter = d.FocusedJitter
	}
	if t.BackgroundPoll == 0 {
		t.BackgroundPoll = d.BackgroundPoll
	}
	if t.BackgroundJitter == 0 {
		t.BackgroundJitter = d.BackgroundJitter
	}
	if t.Tick == 0 {
		t.Tick = DefaultTick
	}
	if t.Wait == 0 {
		t.Wait = DefaultWait
	}
}

// Validate checks that the Config is consistent.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return gwerrors.Validation("listen is required")
	}

	backends := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.Name == "" {
			return gwerrors.Validation(fmt.Sprintf("backend %d: name is required", i))
		}
		if backends[b.Name] {
			return gwerrors.Validation(fmt.Sprintf("backend %s: duplicate name", b.Name))
		}
		backends[b.Name] = true
		if b.Host == "" {
			return gwerrors.Validation(fmt.Sprintf("backend %s: host is required", b.Name))
		}
		if b.Port < 1 || b.Port > 65535 {
			return gwerrors.Validation(fmt.Sprintf("backend %s: port %d out of range", b.Name, b.Port))
		}
	}

	users := make(map[string]bool, len(c.Users))
	for i := range c.Users {
		u := &c.Users[i]
		if err := u.Validate(); err != nil {
			return err
		}
		if users[u.Name] {
			return gwerrors.Validation(fmt.Sprintf("user %s: duplicate name", u.Name))
		}
		users[u.Name] = true
	}

	for b, names := range c.Authorization {
		if !backends[b] {
			return gwerrors.Validation(fmt.Sprintf("authorization: unknown backend %s", b))
		}
		for _, name := range names {
			if !users[name] {
				return gwerrors.Validation(fmt.Sprintf("authorization %s: unknown user %s", b, name))
			}
		}
	}

	if _, err := policy.Compile(c.Policy.Patterns); err != nil {
		return gwerrors.Config("invalid policy", err)
	}

	return c.Timing.Validate()
}

// Validate checks that the UserConfig is valid.
func (u *UserConfig) Validate() error {
	if u.Name == "" {
		return gwerrors.Validation("user name is required")
	}
	if _, err := bcrypt.Cost([]byte(u.Password)); err != nil {
		return gwerrors.Validation(fmt.Sprintf("user %s: password is not a bcrypt hash", u.Name))
	}
	for _, f := range u.Flags {
		if _, err := auth.ParseFlag(f); err != nil {
			return gwerrors.Validation(fmt.Sprintf("user %s: %v", u.Name, err))
		}
	}
	return nil
}

// Validate checks that the TimingConfig is valid.
func (t *TimingConfig) Validate() error {
	for name, d := range map[string]time.Duration{
		"focused_poll":      t.FocusedPoll,
		"focused_jitter":    t.FocusedJitter,
		"background_poll":   t.BackgroundPoll,
		"background_jitter": t.BackgroundJitter,
		"tick":              t.Tick,
		"wait":              t.Wait,
	} {
		if d < 0 {
			return gwerrors.Validation(fmt.Sprintf("timing %s must not be negative", name))
		}
	}
	return nil
}

// UserStore builds the user table.
func (c *Config) UserStore() (*auth.UserStore, error) {
	users := make([]*auth.User, 0, len(c.Users))
	for _, uc := range c.Users {
		var flags auth.Flags
		for _, name := range uc.Flags {
			f, err := auth.ParseFlag(name)
			if err != nil {
				return nil, gwerrors.Config("user "+uc.Name, err)
			}
			flags |= f
		}
		users = append(users, &auth.User{
			Name:         uc.Name,
			PasswordHash: uc.Password,
			Gender:       uc.Gender,
			Flags:        flags,
		})
	}
	return auth.NewUserStore(users), nil
}

// SessionDeps assembles the collaborators every session shares, apart
// from the cache, dialer and audit log which the caller owns.
func (c *Config) SessionDeps() (*session.Deps, error) {
	users, err := c.UserStore()
	if err != nil {
		return nil, err
	}
	pol, err := policy.Compile(c.Policy.Patterns)
	if err != nil {
		return nil, gwerrors.Config("invalid policy", err)
	}
	return &session.Deps{
		Users:         users,
		Authz:         auth.NewAuthorization(c.Authorization),
		Policy:        pol,
		Backends:      c.Backends,
		StatusCommand: c.Policy.StatusCommand,
		Timing: session.Timing{
			FocusedPoll:      c.Timing.FocusedPoll,
			FocusedJitter:    c.Timing.FocusedJitter,
			BackgroundPoll:   c.Timing.BackgroundPoll,
			BackgroundJitter: c.Timing.BackgroundJitter,
		},
	}, nil
}
