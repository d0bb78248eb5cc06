package verifyprompt

import (
	"fmt"

	"community-bot/internal/common/config"
)

type Config struct {
	VerifyMessage string
}

func DefaultConfig() *Config {
	return &Config{VerifyMessage: "Click the button below to verify your subscription."}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg.Discord.VerifyMessage != "" {
		c.VerifyMessage = cfg.Discord.VerifyMessage
	}
	return c
}

func (c *Config) Validate() error {
	if c.VerifyMessage == "" {
		return fmt.Errorf("verify_message is required")
	}
	return nil
}
