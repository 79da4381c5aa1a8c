package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Channel is a chat the user must be a member of before using the bot.
type Channel struct {
	ID   int64
	Name string
}

// Config holds application configuration loaded from environment variables.
type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Telegram struct {
		BotToken string  `env:"BOT_TOKEN,required,notEmpty"`
		Debug    bool    `env:"TELEGRAM_DEBUG" envDefault:"false"`
		OwnerIDs []int64 `env:"OWNER_IDS" envSeparator:","`
		// Required channels as id:name pairs, e.g. "-1002191851646:KeyShareBD"
		RawChannels     []string `env:"REQUIRED_CHANNELS" envSeparator:","`
		SupportContacts string   `env:"SUPPORT_CONTACTS" envDefault:""`
	}

	Storage struct {
		DataFile  string `env:"DATA_FILE" envDefault:"data.json"`
		UploadDir string `env:"UPLOAD_DIR" envDefault:"uploaded_files"`
	}

	Server struct {
		Port        int           `env:"HTTP_PORT" envDefault:"8080"`
		Origin      string        `env:"CORS_ORIGIN" envDefault:"*"`
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
	}

	Redis struct {
		// Empty address disables the membership cache.
		Addr     string `env:"REDIS_ADDR" envDefault:""`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Bot struct {
		MembershipCacheTTL   time.Duration `env:"MEMBERSHIP_CACHE_TTL" envDefault:"5m"`
		SessionTimeout       time.Duration `env:"SESSION_TIMEOUT" envDefault:"10m"`
		SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
		DefaultAccountPrefix string        `env:"DEFAULT_ACCOUNT_PREFIX" envDefault:"KeyShareBD"`
		DefaultFilePrefix    string        `env:"DEFAULT_FILE_PREFIX" envDefault:"File"`
	}

	channels []Channel
}

// Load reads .env (if present) and the process environment into Config.
func Load() (*Config, error) {
	// A missing .env is fine: production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	channels, err := ParseChannels(cfg.Telegram.RawChannels)
	if err != nil {
		return nil, err
	}
	cfg.channels = channels

	return cfg, nil
}

// Channels returns the membership-gate channels parsed from REQUIRED_CHANNELS.
func (c *Config) Channels() []Channel {
	return c.channels
}

// ParseChannels converts "id:name" entries into channels.
func ParseChannels(raw []string) ([]Channel, error) {
	channels := make([]Channel, 0, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idPart, name, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid REQUIRED_CHANNELS entry %q: want id:name", entry)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUIRED_CHANNELS id %q: %w", idPart, err)
		}
		channels = append(channels, Channel{ID: id, Name: strings.TrimSpace(name)})
	}
	return channels, nil
}

// IsOwner reports whether id is one of the statically configured owners.
func (c *Config) IsOwner(id int64) bool {
	for _, owner := range c.Telegram.OwnerIDs {
		if owner == id {
			return true
		}
	}
	return false
}
