package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"community-bot/internal/membership"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// legacyEnv maps config keys to the flat variable names the bot has always
// been deployed with.
var legacyEnv = map[string]string{
	"discord.bot_token":           "DISCORD_BOT_TOKEN",
	"discord.client_id":           "DISCORD_CLIENT_ID",
	"discord.guild_id":            "DISCORD_GUILD_ID",
	"discord.verify_message":      "VERIFY_MESSAGE",
	"wordpress.api_host":          "WP_API_HOST",
	"wordpress.bearer_token":      "WP_BEARER_TOKEN",
	"membership.sku_roles":        "SKU_ROLES",
	"membership.special_role_ids": "SPECIAL_ROLE_IDS",
	"server.port":                 "PORT",
	"database.redis.address":      "REDIS_ADDRESS",
	"database.redis.password":     "REDIS_PASSWORD",
	"camunda.broker_address":      "ZEEBE_ADDRESS",
	"logging.level":               "LOG_LEVEL",
}

// Load reads .env, configs/config.yaml and the environment overlay
// config.<APP_ENVIRONMENT>.yaml. Environment variables win over files.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return decode(v)
}

// LoadFromFile reads a single YAML file plus the environment.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		_ = v.BindEnv(key, name)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} references left in YAML values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// Unset variables expand to "" so optional sections stay disabled.
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "community-bot"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Discord.VerifyMessage == "" {
		cfg.Discord.VerifyMessage = "Click the button below to verify your subscription and unlock your community roles."
	}
	if cfg.Discord.EventTimeout == 0 {
		cfg.Discord.EventTimeout = 15000
	}

	cfg.WordPress.APIHost = strings.TrimRight(cfg.WordPress.APIHost, "/")
	if cfg.WordPress.Timeout == 0 {
		cfg.WordPress.Timeout = 30000
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30000
	}

	if cfg.Database.Redis.KeyPrefix == "" {
		cfg.Database.Redis.KeyPrefix = "community-bot"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 5
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 10000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = cfg.Camunda.MaxJobsActive
		}
		if worker.Timeout == 0 {
			worker.Timeout = cfg.Camunda.Timeout
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Discord.BotToken == "" {
		return fmt.Errorf("discord.bot_token is required")
	}
	if cfg.Discord.GuildID == "" {
		return fmt.Errorf("discord.guild_id is required")
	}

	if cfg.WordPress.APIHost == "" {
		return fmt.Errorf("wordpress.api_host is required")
	}
	if !strings.HasPrefix(cfg.WordPress.APIHost, "http://") && !strings.HasPrefix(cfg.WordPress.APIHost, "https://") {
		return fmt.Errorf("wordpress.api_host must be an http(s) URL")
	}
	if cfg.WordPress.BearerToken == "" {
		return fmt.Errorf("wordpress.bearer_token is required")
	}

	if _, err := membership.ParseRoleMap(cfg.Membership.SKURoles); err != nil {
		return fmt.Errorf("membership.sku_roles: %w", err)
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	if cfg.Integrations.AWS.SNS.Enabled || cfg.Integrations.AWS.SES.Enabled {
		if cfg.Integrations.AWS.Region == "" {
			return fmt.Errorf("integrations.aws.region is required when notifications are enabled")
		}
	}
	if cfg.Integrations.AWS.SNS.Enabled && cfg.Integrations.AWS.SNS.TopicARN == "" {
		return fmt.Errorf("integrations.aws.sns.topic_arn is required")
	}
	if cfg.Integrations.AWS.SES.Enabled {
		if cfg.Integrations.AWS.SES.FromEmail == "" {
			return fmt.Errorf("integrations.aws.ses.from_email is required")
		}
		if len(cfg.Integrations.AWS.SES.ToEmails) == 0 {
			return fmt.Errorf("integrations.aws.ses.to_emails is required")
		}
	}

	return nil
}

// GetWorkerConfig returns the named worker's settings, falling back to the
// camunda defaults when the worker has no section of its own.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: cfg.Camunda.MaxJobsActive,
		Timeout:       cfg.Camunda.Timeout,
	}
}
