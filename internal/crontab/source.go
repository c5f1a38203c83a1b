package crontab

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Source abstracts reads and writes of the user's whole crontab. The
// system crontab has no partial-update API, so every mutation goes
// through a full read, an in-memory edit and a full write. Last writer
// wins; concurrent external editors of the same table are not guarded.
type Source interface {
	// Read returns the full crontab text. A missing crontab reads as empty.
	Read() (string, error)

	// Write replaces the full crontab with text.
	Write(text string) error
}

// SystemSource reads and writes the invoking user's crontab through the
// crontab(1) command.
type SystemSource struct{}

func (SystemSource) Read() (string, error) {
	cmd := exec.Command("crontab", "-l")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// crontab -l exits non-zero when the user has no crontab yet.
		if strings.Contains(stderr.String(), "no crontab") {
			return "", nil
		}
		return "", fmt.Errorf("crontab -l failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

func (SystemSource) Write(text string) error {
	cmd := exec.Command("crontab", "-")
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("crontab - failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// MemSource is an in-memory Source for tests and dry runs.
type MemSource struct {
	Text string
}

func (m *MemSource) Read() (string, error) {
	return m.Text, nil
}

func (m *MemSource) Write(text string) error {
	m.Text = text
	return nil
}
