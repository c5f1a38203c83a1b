package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[telegram]
token = "123456:ABC-DEF1234ghIkl-zyx57W2v1u"

[alarm]
audio_file = "/srv/alarm.mp3"
volume = 80

[database]
path = "/var/lib/alarmbot/alarmbot.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123456:ABC-DEF1234ghIkl-zyx57W2v1u", cfg.Telegram.Token)
	assert.Equal(t, "/srv/alarm.mp3", cfg.Alarm.AudioFile)
	assert.Equal(t, 80, cfg.Alarm.Volume)

	// Defaults for unset fields.
	assert.Equal(t, "alarmbot", cfg.Alarm.Tag)
	assert.Equal(t, 30, cfg.Telegram.PollTimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":8000", cfg.Webserver.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	assert.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, `[telegram`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("ALARMBOT_TOKEN", "987654:real-token-from-env-xyz")

	path := writeConfig(t, `
[telegram]
token = "${ALARMBOT_TOKEN:fallback}"

[alarm]
audio_file = "/srv/alarm.wav"

[database]
path = "/tmp/alarmbot.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "987654:real-token-from-env-xyz", cfg.Telegram.Token)
}

func TestLoadEnvVarDefault(t *testing.T) {
	path := writeConfig(t, `
[telegram]
token = "${ALARMBOT_UNSET_VAR:111222:default-token-value}"

[alarm]
audio_file = "/srv/alarm.wav"

[database]
path = "/tmp/alarmbot.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "111222:default-token-value", cfg.Telegram.Token)
}

func TestLoadExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path := writeConfig(t, `
[telegram]
token = "123456:ABC-DEF1234ghIkl-zyx57W2v1u"

[alarm]
audio_file = "~/alarm.mp3"
lock_dir = "~/.alarmbot"

[database]
path = "~/.alarmbot/alarmbot.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "alarm.mp3"), cfg.Alarm.AudioFile)
	assert.Equal(t, filepath.Join(home, ".alarmbot"), cfg.Alarm.LockDir)
	assert.Equal(t, filepath.Join(home, ".alarmbot", "alarmbot.db"), cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Telegram.Token = "" },
			wantErr: "telegram.token is required",
		},
		{
			name:    "token without colon",
			mutate:  func(c *Config) { c.Telegram.Token = "not-a-token" },
			wantErr: "invalid format",
		},
		{
			name:    "token with non-numeric bot id",
			mutate:  func(c *Config) { c.Telegram.Token = "abc123:ABC-DEF1234ghIkl-zyx" },
			wantErr: "digits only",
		},
		{
			name:    "missing audio file",
			mutate:  func(c *Config) { c.Alarm.AudioFile = "" },
			wantErr: "alarm.audio_file is required",
		},
		{
			name:    "tag with whitespace",
			mutate:  func(c *Config) { c.Alarm.Tag = "alarm bot" },
			wantErr: "whitespace",
		},
		{
			name:    "volume out of range",
			mutate:  func(c *Config) { c.Alarm.Volume = 150 },
			wantErr: "alarm.volume",
		},
		{
			name: "webserver enabled without password",
			mutate: func(c *Config) {
				c.Webserver.Enabled = true
				c.Webserver.InitPassword = ""
			},
			wantErr: "init_password",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			found := false
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.wantErr) {
					found = true
				}
			}
			assert.True(t, found, "expected an error containing %q, got %v", tt.wantErr, errs)
		})
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Alarm.AudioFile = ""
	cfg.Database.Path = ""
	cfg.Telegram.Token = ""

	errs := cfg.Validate()
	assert.GreaterOrEqual(t, len(errs), 3)
}

func TestMaskTelegramToken(t *testing.T) {
	masked := maskTelegramToken("123456:ABC-DEF1234ghIkl-zyx57W2v1u")
	assert.Contains(t, masked, "123456:")
	assert.Contains(t, masked, "ABC-")
	assert.Contains(t, masked, "2v1u")
	assert.NotContains(t, masked, "DEF1234ghIkl")
}

func TestMaskSecretShort(t *testing.T) {
	assert.Equal(t, "******", maskSecret("secret"))
}

func TestMasked(t *testing.T) {
	cfg := validConfig()
	cfg.Webserver.InitPassword = "hunter2hunter2"

	masked := cfg.Masked()
	assert.NotEqual(t, cfg.Telegram.Token, masked.Telegram.Token)
	assert.NotEqual(t, cfg.Webserver.InitPassword, masked.Webserver.InitPassword)

	// Original untouched.
	assert.Equal(t, "hunter2hunter2", cfg.Webserver.InitPassword)
}

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Telegram.Token = "123456:ABC-DEF1234ghIkl-zyx57W2v1u"
	cfg.Alarm.AudioFile = "/srv/alarm.mp3"
	cfg.Database.Path = "/tmp/alarmbot.db"
	cfg.Webserver.InitPassword = "changeme-init"
	return cfg
}
