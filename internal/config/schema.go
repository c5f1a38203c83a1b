// Package config provides configuration loading and validation for
// Alarmbot. It supports TOML configuration files with environment
// variable expansion, default values, and comprehensive validation.
//
// Configuration structure:
//   - [telegram]: Bot token and transport timeouts
//   - [alarm]: Owner tag, audio asset, lock directory, volume
//   - [database]: SQLite database path
//   - [webserver]: Admin panel listener and first-run password
//   - [timezone]: Zoneinfo directory and privileged set script
//   - [logging]: Logging level, format, and output
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax, for example: token = "${ALARMBOT_TOKEN}".
package config

// Config represents the main application configuration.
type Config struct {
	Telegram  TelegramConfig  `toml:"telegram"`
	Alarm     AlarmConfig     `toml:"alarm"`
	Database  DatabaseConfig  `toml:"database"`
	Webserver WebserverConfig `toml:"webserver"`
	Timezone  TimezoneConfig  `toml:"timezone"`
	Logging   LoggingConfig   `toml:"logging"`
}

// TelegramConfig holds the bot transport settings.
type TelegramConfig struct {
	Token              string `toml:"token"`
	PollTimeoutSeconds int    `toml:"poll_timeout_seconds"`
	SendTimeoutSeconds int    `toml:"send_timeout_seconds"`
}

// AlarmConfig holds the alarm domain settings. Tag is the owner marker
// embedded in crontab comments; it must not contain whitespace.
type AlarmConfig struct {
	Tag       string `toml:"tag"`
	AudioFile string `toml:"audio_file"`
	LockDir   string `toml:"lock_dir"`
	Volume    int    `toml:"volume"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// WebserverConfig holds the admin panel settings. InitPassword seeds
// the admin account on the very first run only.
type WebserverConfig struct {
	Enabled           bool   `toml:"enabled"`
	Addr              string `toml:"addr"`
	InitPassword      string `toml:"init_password"`
	SessionTTLMinutes int    `toml:"session_ttl_minutes"`
}

// TimezoneConfig holds the timezone helper settings.
type TimezoneConfig struct {
	ZoneinfoDir string `toml:"zoneinfo_dir"`
	SetScript   string `toml:"set_script"`
}

// LoggingConfig holds the logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}
