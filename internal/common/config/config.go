package config

import "time"

type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Discord      DiscordConfig           `mapstructure:"discord"`
	WordPress    WordPressConfig         `mapstructure:"wordpress"`
	Membership   MembershipConfig        `mapstructure:"membership"`
	Server       ServerConfig            `mapstructure:"server"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DiscordConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	ClientID      string `mapstructure:"client_id"`
	GuildID       string `mapstructure:"guild_id"`
	VerifyMessage string `mapstructure:"verify_message"`
	EventTimeout  int    `mapstructure:"event_timeout"` // milliseconds
}

type WordPressConfig struct {
	APIHost     string `mapstructure:"api_host"`
	BearerToken string `mapstructure:"bearer_token"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
}

// MembershipConfig holds the raw role mapping strings. They are parsed once
// into a membership.Policy at startup.
type MembershipConfig struct {
	SKURoles       string `mapstructure:"sku_roles"`
	SpecialRoleIDs string `mapstructure:"special_role_ids"`
}

type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	RequestTimeout int             `mapstructure:"request_timeout"` // milliseconds
	BasicAuth      BasicAuthConfig `mapstructure:"basic_auth"`
}

type BasicAuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func (b BasicAuthConfig) Enabled() bool {
	return b.Username != "" && b.Password != ""
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool     `mapstructure:"enabled"`
			FromEmail string   `mapstructure:"from_email"`
			ToEmails  []string `mapstructure:"to_emails"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
