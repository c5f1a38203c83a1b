package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "debug", level: "debug"},
		{name: "info", level: "info"},
		{name: "warn", level: "warn"},
		{name: "error", level: "error"},
		{name: "case insensitive", level: "INFO"},
		{name: "invalid", level: "verbose", wantErr: true},
		{name: "empty", level: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(Config{Level: tt.level, Format: "text", Output: "stdout"})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, log)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "xml", Output: "stdout"})
	assert.Error(t, err)
	assert.Nil(t, log)
}

func TestNew_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "bot.log")

	log, err := New(Config{Level: "info", Format: "json", Output: logPath})
	require.NoError(t, err)

	log.Info("hello", Field{Key: "answer", Value: 42})

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"answer":42`)
	assert.Contains(t, string(data), "hello")
}

func TestWith_AttachesFields(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "bot.log")

	log, err := New(Config{Level: "debug", Format: "json", Output: logPath})
	require.NoError(t, err)

	child := log.With(Field{Key: "component", Value: "crontab"})
	child.Debug("listing jobs")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"crontab"`)
}
