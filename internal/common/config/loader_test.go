package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_BOT_TOKEN", "bot-token")
	t.Setenv("DISCORD_GUILD_ID", "213guild")
	t.Setenv("WP_API_HOST", "https://shop.example.com/")
	t.Setenv("WP_BEARER_TOKEN", "user:app-password")
}

func TestLoadFromFile_LegacyEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SKU_ROLES", "SKU5:role213;SKU1:role100")
	t.Setenv("SPECIAL_ROLE_IDS", "pqr,xyz")
	t.Setenv("PORT", "8081")

	cfg, err := LoadFromFile(writeConfigFile(t, "app:\n  name: test-bot\n"))
	require.NoError(t, err)

	assert.Equal(t, "test-bot", cfg.App.Name)
	assert.Equal(t, "bot-token", cfg.Discord.BotToken)
	assert.Equal(t, "213guild", cfg.Discord.GuildID)
	assert.Equal(t, "https://shop.example.com", cfg.WordPress.APIHost, "trailing slash trimmed")
	assert.Equal(t, "SKU5:role213;SKU1:role100", cfg.Membership.SKURoles)
	assert.Equal(t, "pqr,xyz", cfg.Membership.SpecialRoleIDs)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoadFromFile_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadFromFile(writeConfigFile(t, "workers:\n  membership-sync:\n    enabled: true\n"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 30000, cfg.WordPress.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "community-bot", cfg.Database.Redis.KeyPrefix)
	assert.NotEmpty(t, cfg.Discord.VerifyMessage)

	worker := GetWorkerConfig(cfg, "membership-sync")
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 30000, worker.Timeout)
}

func TestLoadFromFile_ExpandsReferences(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TEST_VERIFY_TEXT", "Press the button")

	cfg, err := LoadFromFile(writeConfigFile(t, "discord:\n  verify_message: ${TEST_VERIFY_TEXT}\n"))
	require.NoError(t, err)
	assert.Equal(t, "Press the button", cfg.Discord.VerifyMessage)
}

func TestLoadFromFile_UnsetReferencesBecomeEmpty(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadFromFile(writeConfigFile(t, "server:\n  basic_auth:\n    username: ${TEST_UNSET_USER}\n    password: ${TEST_UNSET_PASSWORD}\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Server.BasicAuth.Enabled())
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Discord.BotToken = "token"
		cfg.Discord.GuildID = "guild"
		cfg.WordPress.APIHost = "https://shop.example.com"
		cfg.WordPress.BearerToken = "secret"
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(cfg *Config) {}},
		{name: "missing bot token", mutate: func(cfg *Config) { cfg.Discord.BotToken = "" }, wantErr: "discord.bot_token is required"},
		{name: "missing guild", mutate: func(cfg *Config) { cfg.Discord.GuildID = "" }, wantErr: "discord.guild_id is required"},
		{name: "missing host", mutate: func(cfg *Config) { cfg.WordPress.APIHost = "" }, wantErr: "wordpress.api_host is required"},
		{name: "host without scheme", mutate: func(cfg *Config) { cfg.WordPress.APIHost = "shop.example.com" }, wantErr: "http(s) URL"},
		{name: "missing token", mutate: func(cfg *Config) { cfg.WordPress.BearerToken = "" }, wantErr: "wordpress.bearer_token is required"},
		{name: "sku roles parse", mutate: func(cfg *Config) { cfg.Membership.SKURoles = "SKU1:role100;SKU5:role213" }},
		{name: "sku role without role id", mutate: func(cfg *Config) { cfg.Membership.SKURoles = "SKU1:role100;SKU5" }, wantErr: "membership.sku_roles"},
		{name: "sku mapped twice", mutate: func(cfg *Config) { cfg.Membership.SKURoles = "SKU1:a;SKU1:b" }, wantErr: "mapped to both"},
		{
			name: "camunda without broker",
			mutate: func(cfg *Config) {
				cfg.Camunda.Enabled = true
			},
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "sns without topic",
			mutate: func(cfg *Config) {
				cfg.Integrations.AWS.Region = "eu-west-1"
				cfg.Integrations.AWS.SNS.Enabled = true
			},
			wantErr: "topic_arn is required",
		},
		{
			name: "ses without region",
			mutate: func(cfg *Config) {
				cfg.Integrations.AWS.SES.Enabled = true
			},
			wantErr: "integrations.aws.region is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
