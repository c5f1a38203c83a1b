// Package lockfile manages the per-application lock directory used to
// discover running playback processes. Each playback process writes an
// empty file named <pid>.lock on start and removes it on its own clean
// exit; the stop operation signals every PID found in the directory.
//
// Lock files are a discovery mechanism only. A crashed playback process
// can leave a stale file behind; nothing here cleans those up.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/alarmbot/alarmbot/internal/logger"
)

// DefaultDirName is the lock directory created under the user's home.
const DefaultDirName = ".alarmbot"

// Killer sends a signal to a process. Injectable for tests.
type Killer func(pid int, sig syscall.Signal) error

// Dir is a handle on the lock directory.
type Dir struct {
	path   string
	logger *logger.Logger
	kill   Killer
}

// New creates a handle on the lock directory at path.
func New(path string, log *logger.Logger) *Dir {
	return &Dir{
		path:   path,
		logger: log,
		kill:   syscall.Kill,
	}
}

// DefaultPath returns the lock directory under the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// SetKiller replaces the signal delivery function. Used by tests.
func (d *Dir) SetKiller(k Killer) {
	d.kill = k
}

// Path returns the lock directory path.
func (d *Dir) Path() string {
	return d.path
}

// Acquire creates the lock directory if needed and writes an empty
// <pid>.lock file. It returns the path of the created file.
func (d *Dir) Acquire(pid int) (string, error) {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return "", fmt.Errorf("failed to create lock directory: %w", err)
	}

	lockPath := filepath.Join(d.path, fmt.Sprintf("%d.lock", pid))
	if err := os.WriteFile(lockPath, nil, 0666); err != nil {
		return "", fmt.Errorf("failed to write lock file: %w", err)
	}

	return lockPath, nil
}

// Release removes the <pid>.lock file.
func (d *Dir) Release(pid int) error {
	lockPath := filepath.Join(d.path, fmt.Sprintf("%d.lock", pid))
	if err := os.Remove(lockPath); err != nil {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// PIDs lists the process IDs recorded in the lock directory. File names
// that do not parse as <pid>.lock are skipped.
func (d *Dir) PIDs() ([]int, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lock directory: %w", err)
	}

	var pids []int
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".lock")
		if !ok {
			continue
		}
		pid, err := strconv.Atoi(name)
		if err != nil {
			d.logger.Warn("skipping unparseable lock file",
				logger.Field{Key: "name", Value: entry.Name()})
			continue
		}
		pids = append(pids, pid)
	}

	return pids, nil
}

// StopAll sends SIGINT to every PID found in the lock directory and
// returns the number of processes signaled. Delivery failures for
// individual PIDs (typically: process already gone) are skipped; the
// remaining PIDs are still signaled. Lock files are not removed here,
// that is the playback process's own responsibility on exit.
func (d *Dir) StopAll() (int, error) {
	pids, err := d.PIDs()
	if err != nil {
		return 0, err
	}

	signaled := 0
	for _, pid := range pids {
		if err := d.kill(pid, syscall.SIGINT); err != nil {
			d.logger.Debug("skipping pid, signal not delivered",
				logger.Field{Key: "pid", Value: pid},
				logger.Field{Key: "reason", Value: err.Error()})
			continue
		}
		signaled++
	}

	return signaled, nil
}
