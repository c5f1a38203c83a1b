package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads, defaults and expands the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errors []error

	if c.Telegram.Token == "" {
		errors = append(errors, fmt.Errorf("telegram.token is required"))
	} else if err := validateTelegramToken(c.Telegram.Token); err != nil {
		errors = append(errors, err)
	}

	if c.Alarm.AudioFile == "" {
		errors = append(errors, fmt.Errorf("alarm.audio_file is required"))
	}
	if c.Alarm.Tag == "" {
		errors = append(errors, fmt.Errorf("alarm.tag is required"))
	} else if strings.ContainsAny(c.Alarm.Tag, " \t") {
		errors = append(errors, fmt.Errorf("alarm.tag must not contain whitespace"))
	}
	if c.Alarm.Volume < 0 || c.Alarm.Volume > 100 {
		errors = append(errors, fmt.Errorf("alarm.volume must be in [0,100], got %d", c.Alarm.Volume))
	}

	if c.Database.Path == "" {
		errors = append(errors, fmt.Errorf("database.path is required"))
	}

	if c.Webserver.Enabled {
		if c.Webserver.Addr == "" {
			errors = append(errors, fmt.Errorf("webserver.addr is required when webserver is enabled"))
		}
		if c.Webserver.InitPassword == "" {
			errors = append(errors, fmt.Errorf("webserver.init_password is required when webserver is enabled"))
		}
	}

	if c.Logging.Level == "" {
		errors = append(errors, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format == "" {
		errors = append(errors, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Logging.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	return errors
}

func validateTelegramToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("telegram token has invalid format (expected <bot_id>:<token>, got: %s)", maskSecret(token))
	}

	botID := parts[0]
	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d)", len(botID))
	}
	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}

	if len(parts[1]) < 10 || len(parts[1]) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(parts[1]))
	}

	return nil
}

func applyDefaults(c *Config) {
	if c.Telegram.PollTimeoutSeconds == 0 {
		c.Telegram.PollTimeoutSeconds = 30
	}
	if c.Telegram.SendTimeoutSeconds == 0 {
		c.Telegram.SendTimeoutSeconds = 10
	}

	if c.Alarm.Tag == "" {
		c.Alarm.Tag = "alarmbot"
	}
	if c.Alarm.LockDir == "" {
		c.Alarm.LockDir = "~/.alarmbot"
	}
	if c.Alarm.Volume == 0 {
		c.Alarm.Volume = 100
	}

	if c.Database.Path == "" {
		c.Database.Path = "~/.alarmbot/alarmbot.db"
	}

	if c.Webserver.Addr == "" {
		c.Webserver.Addr = ":8000"
	}
	if c.Webserver.SessionTTLMinutes == 0 {
		c.Webserver.SessionTTLMinutes = 720
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

func expandEnvVars(c *Config) {
	if strings.HasPrefix(c.Telegram.Token, "${") {
		c.Telegram.Token = expandEnv(c.Telegram.Token)
	}
	if strings.HasPrefix(c.Webserver.InitPassword, "${") {
		c.Webserver.InitPassword = expandEnv(c.Webserver.InitPassword)
	}

	c.Alarm.AudioFile = expandHome(c.Alarm.AudioFile)
	c.Alarm.LockDir = expandHome(c.Alarm.LockDir)
	c.Database.Path = expandHome(c.Database.Path)
	c.Timezone.SetScript = expandHome(c.Timezone.SetScript)
	c.Logging.Output = normalizeOutput(c.Logging.Output)
}

// expandEnv expands an environment reference of the form ${VAR:default}.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		if val := os.Getenv(parts[0]); val != "" {
			return val
		}
		return parts[1]
	}

	return os.Getenv(content)
}

// expandHome expands a leading ~ in a path.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// normalizeOutput leaves stdout/stderr alone but expands file paths.
func normalizeOutput(output string) string {
	switch strings.ToLower(output) {
	case "stdout", "stderr":
		return output
	default:
		return expandHome(output)
	}
}
