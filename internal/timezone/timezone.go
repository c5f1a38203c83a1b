// Package timezone lists the system's named timezones grouped by
// continent and applies a selected zone through a privileged helper
// script. Zone names come straight from the zoneinfo directory; there
// is no bundled copy.
package timezone

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alarmbot/alarmbot/internal/logger"
)

// DefaultZoneinfoDir is where Linux distributions install tzdata.
const DefaultZoneinfoDir = "/usr/share/zoneinfo"

// skippedGroups are top-level zoneinfo entries that are not geographic
// continents (compatibility trees and fixed offsets).
var skippedGroups = map[string]bool{
	"Etc":     true,
	"GMT":     true,
	"SystemV": true,
	"posix":   true,
	"right":   true,
}

// Runner executes the privileged helper command. Injectable for tests.
type Runner func(name string, args ...string) error

// Manager lists and sets timezones.
type Manager struct {
	zoneinfoDir string
	script      string
	run         Runner
	logger      *logger.Logger
}

// New creates a Manager. script is the helper invoked (via sudo) to
// apply a zone system-wide; empty disables Set.
func New(zoneinfoDir, script string, log *logger.Logger) *Manager {
	if zoneinfoDir == "" {
		zoneinfoDir = DefaultZoneinfoDir
	}
	return &Manager{
		zoneinfoDir: zoneinfoDir,
		script:      script,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
		logger: log,
	}
}

// SetRunner replaces the command runner. Used by tests.
func (m *Manager) SetRunner(r Runner) {
	m.run = r
}

// Zones returns zone names grouped by continent, each group sorted.
// Single-segment entries (UTC, CET, ...) and compatibility groups are
// left out, matching the continent-first selection flow.
func (m *Manager) Zones() (map[string][]string, error) {
	groups := make(map[string][]string)

	err := filepath.WalkDir(m.zoneinfoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != m.zoneinfoDir && skippedGroups[name] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(m.zoneinfoDir, path)
		if err != nil {
			return err
		}
		parts := strings.SplitN(rel, string(filepath.Separator), 2)
		if len(parts) < 2 || strings.Contains(rel, ".") {
			return nil
		}
		continent := parts[0]
		if skippedGroups[continent] {
			return nil
		}
		groups[continent] = append(groups[continent], filepath.ToSlash(parts[1]))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan zoneinfo directory: %w", err)
	}

	for _, zones := range groups {
		sort.Strings(zones)
	}
	return groups, nil
}

// Continents returns the sorted continent names.
func (m *Manager) Continents() ([]string, error) {
	groups, err := m.Zones()
	if err != nil {
		return nil, err
	}

	continents := make([]string, 0, len(groups))
	for c := range groups {
		continents = append(continents, c)
	}
	sort.Strings(continents)
	return continents, nil
}

// Set applies the zone system-wide through the helper script. The zone
// must name an existing zoneinfo file.
func (m *Manager) Set(zone string) error {
	if m.script == "" {
		return fmt.Errorf("no timezone helper script configured")
	}

	if _, err := os.Stat(filepath.Join(m.zoneinfoDir, filepath.FromSlash(zone))); err != nil {
		return fmt.Errorf("timezone file does not exist: %s", zone)
	}

	m.logger.Info("setting system timezone",
		logger.Field{Key: "zone", Value: zone})

	if err := m.run("sudo", m.script, zone); err != nil {
		return fmt.Errorf("timezone helper failed: %w", err)
	}
	return nil
}
