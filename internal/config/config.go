// Package config loads application configuration from environment variables
// and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone database for scratch images

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// Prefix is prepended to every environment variable name.
const Prefix = "WWWMIN"

// Config holds the application configuration.
type Config struct {
	ListenAddr    string        `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8000"`
	DBPath        string        `envconfig:"DB_PATH" default:"wwwmin.db"`
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"720h"`
	SecureCookies bool          `envconfig:"SECURE_COOKIES" default:"true"`
	HashPermits   int           `envconfig:"HASH_PERMITS" default:"2"`
	LogLevel      slog.Level    `envconfig:"LOG_LEVEL" default:"INFO"`
	Title         string        `envconfig:"TITLE" default:"wwwmin"`
	ContentFile   string        `envconfig:"CONTENT_FILE"`
	ConfigFile    string        `envconfig:"CONFIG_FILE" default:"wwwmin.yaml"`

	Upgrade Upgrade `envconfig:"UPGRADE"`
	Email   Email   `envconfig:"EMAIL"`
	Push    Push    `envconfig:"PUSH"`
	Hours   Hours   `envconfig:"HOURS"`

	// Links are the static contact links declared in the config file.
	Links []model.StaticLink `ignored:"true"`
}

// Upgrade configures the self-upgrade controller.
type Upgrade struct {
	Enabled         bool          `envconfig:"ENABLED" default:"false"`
	WebhookSecret   string        `envconfig:"WEBHOOK_SECRET"`
	Branch          string        `envconfig:"BRANCH"`
	VerifySignature bool          `envconfig:"VERIFY_SIGNATURE" default:"true"`
	VerifyBranch    bool          `envconfig:"VERIFY_BRANCH" default:"true"`
	InstallCommand  []string      `envconfig:"INSTALL_COMMAND" default:"go,install"`
	Source          string        `envconfig:"SOURCE" default:"github.com/aidaco/wwwmin/cmd/wwwmin@latest"`
	WorkDir         string        `envconfig:"WORK_DIR"`
	BinDir          string        `envconfig:"BIN_DIR"`
	InstallTimeout  time.Duration `envconfig:"INSTALL_TIMEOUT" default:"10m"`
	CleanupTimeout  time.Duration `envconfig:"CLEANUP_TIMEOUT" default:"10s"`
	DrainTimeout    time.Duration `envconfig:"DRAIN_TIMEOUT" default:"10s"`
	GitHubRepo      string        `envconfig:"GITHUB_REPO"`
	GitHubToken     string        `envconfig:"GITHUB_TOKEN"`
}

// Email configures the SMTP notifier.
type Email struct {
	Enabled     bool   `envconfig:"ENABLED" default:"false"`
	Host        string `envconfig:"HOST"`
	Port        int    `envconfig:"PORT" default:"587"`
	Username    string `envconfig:"USERNAME"`
	Password    string `envconfig:"PASSWORD"`
	To          string `envconfig:"TO"`
	MaxAttempts uint64 `envconfig:"MAX_ATTEMPTS" default:"4"`
}

// Push configures Web Push notifications.
type Push struct {
	Enabled    bool   `envconfig:"ENABLED" default:"false"`
	KeyFile    string `envconfig:"KEY_FILE" default:"vapid-keys.yaml"`
	Subscriber string `envconfig:"SUBSCRIBER"`
}

// Hours configures operating hours. The weekly schedule comes from the
// config file and defaults to Monday through Friday, 09:00 to 17:00.
type Hours struct {
	Enabled  bool   `envconfig:"ENABLED" default:"true"`
	Timezone string `envconfig:"TIMEZONE" default:"America/New_York"`

	Location *time.Location `ignored:"true"`
	Schedule model.Schedule `ignored:"true"`
}

// file is the layout of the YAML config file.
type file struct {
	OperatingHours struct {
		Schedule map[string][]string `yaml:"schedule"`
	} `yaml:"operating_hours"`
	Links []model.StaticLink `yaml:"links"`
}

// Load reads configuration and returns a validated Config. A .env file in the
// working directory is applied first without overriding the environment.
// WWWMIN_JWT_SECRET is required; a missing config file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Hours.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s_HOURS_TIMEZONE has invalid time zone %q: %w", Prefix, cfg.Hours.Timezone, err)
	}
	cfg.Hours.Location = loc
	cfg.Hours.Schedule = model.DefaultSchedule()

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile() error {
	if c.ConfigFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.ConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", c.ConfigFile, err)
	}

	if f.OperatingHours.Schedule != nil {
		schedule, err := parseSchedule(f.OperatingHours.Schedule)
		if err != nil {
			return fmt.Errorf("parse config file %s: %w", c.ConfigFile, err)
		}
		c.Hours.Schedule = schedule
	}
	for i, l := range f.Links {
		if l.Category == "" || l.Name == "" || l.Href == "" {
			return fmt.Errorf("parse config file %s: link %d needs category, name and href", c.ConfigFile, i)
		}
	}
	c.Links = f.Links
	return nil
}

// parseSchedule reads day name -> [open, close]. A null or empty entry, or an
// absent day, is closed.
func parseSchedule(raw map[string][]string) (model.Schedule, error) {
	schedule := model.Schedule{}
	for _, day := range model.Weekdays {
		schedule[day] = nil
	}

	for name, window := range raw {
		day, ok := parseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		switch len(window) {
		case 0:
			continue
		case 2:
		default:
			return nil, fmt.Errorf("%s: want [open, close], got %d values", name, len(window))
		}

		open, err := model.ParseClockTime(window[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		closing, err := model.ParseClockTime(window[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if closing.Minutes() < open.Minutes() {
			return nil, fmt.Errorf("%s: closes before it opens", name)
		}
		schedule[day] = &model.DayHours{Open: open, Close: closing}
	}
	return schedule, nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	for _, d := range model.Weekdays {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return d, true
		}
	}
	return 0, false
}

func (c *Config) validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%s_TOKEN_TTL must be positive", Prefix)
	}
	if c.HashPermits <= 0 {
		return fmt.Errorf("%s_HASH_PERMITS must be positive", Prefix)
	}
	if c.Upgrade.Enabled && c.Upgrade.VerifySignature && c.Upgrade.WebhookSecret == "" {
		return fmt.Errorf("%s_UPGRADE_WEBHOOK_SECRET is required when signature verification is enabled", Prefix)
	}
	if c.Upgrade.Enabled && len(c.Upgrade.InstallCommand) == 0 {
		return fmt.Errorf("%s_UPGRADE_INSTALL_COMMAND must not be empty", Prefix)
	}
	if c.Email.Enabled && (c.Email.Host == "" || c.Email.Username == "" || c.Email.To == "") {
		return fmt.Errorf("%s_EMAIL_HOST, %s_EMAIL_USERNAME and %s_EMAIL_TO are required when email is enabled", Prefix, Prefix, Prefix)
	}
	if c.Push.Enabled && c.Push.Subscriber == "" {
		return fmt.Errorf("%s_PUSH_SUBSCRIBER is required when push is enabled", Prefix)
	}
	return nil
}
