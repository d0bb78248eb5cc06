package verifysubscription

import (
	"fmt"
	"time"

	"community-bot/internal/common/config"
)

type Config struct {
	GuildID string
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 15 * time.Second}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.GuildID = cfg.Discord.GuildID
	if cfg.Discord.EventTimeout > 0 {
		c.Timeout = config.GetDuration(cfg.Discord.EventTimeout)
	}
	return c
}

func (c *Config) Validate() error {
	if c.GuildID == "" {
		return fmt.Errorf("guild_id is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
