package config

import "strings"

// maskSecret keeps the first and last 4 characters of a secret visible.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// maskTelegramToken keeps the bot ID visible and masks the secret part.
func maskTelegramToken(token string) string {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return maskSecret(token)
	}
	return parts[0] + ":" + maskSecret(parts[1])
}

// Masked returns a copy of the config safe for printing.
func (c *Config) Masked() Config {
	masked := *c
	masked.Telegram.Token = maskTelegramToken(c.Telegram.Token)
	if c.Webserver.InitPassword != "" {
		masked.Webserver.InitPassword = maskSecret(c.Webserver.InitPassword)
	}
	return masked
}
