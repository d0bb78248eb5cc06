package syncmembership

import (
	"fmt"
	"time"

	"community-bot/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	GuildID       string        `mapstructure:"guild_id"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
	}
}

// LoadConfig builds the worker config from the application config.
func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, WorkerName)
	c := DefaultConfig()
	c.Enabled = wcfg.Enabled
	c.GuildID = cfg.Discord.GuildID
	if wcfg.MaxJobsActive > 0 {
		c.MaxJobsActive = wcfg.MaxJobsActive
	}
	if wcfg.Timeout > 0 {
		c.Timeout = config.GetDuration(wcfg.Timeout)
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.GuildID == "" {
		return fmt.Errorf("guild_id is required")
	}
	return nil
}
