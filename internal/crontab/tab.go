// Package crontab manages the application's recurring alarm entries
// inside the user's shared crontab. Entries are tagged through their
// comment field ("<tag> <id>") so they can be filtered out of a table
// that may also hold unrelated jobs from other applications.
//
// There is no in-process cache: every operation re-reads the full table,
// and every mutation rewrites it whole. Two concurrent writers can race
// on that rewrite (and on id allocation, which checks against a listing
// taken at call time). This weak-consistency model is accepted for
// single-operator use; callers needing more must add their own file lock
// around the whole sequence.
package crontab

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alarmbot/alarmbot/internal/alarmid"
	"github.com/alarmbot/alarmbot/internal/logger"
	cronparse "github.com/robfig/cron/v3"
)

// weekdayRange covers Sunday through Thursday inclusive.
const weekdayRange = "0-4"

// Tab is a tagged view over the user's crontab.
type Tab struct {
	tag    string
	source Source
	logger *logger.Logger
	now    func() time.Time
	parser cronparse.Parser
}

// New creates a Tab for the given owner tag. The tag is embedded as the
// first token of each entry's comment and must not contain whitespace.
func New(tag string, source Source, log *logger.Logger) (*Tab, error) {
	if strings.ContainsAny(tag, " \t") {
		return nil, fmt.Errorf("crontab tag %q must not contain whitespace", tag)
	}

	return &Tab{
		tag:    tag,
		source: source,
		logger: log,
		now:    time.Now,
		parser: cronparse.NewParser(cronparse.Minute | cronparse.Hour | cronparse.Dom | cronparse.Month | cronparse.Dow),
	}, nil
}

// SetNow replaces the time reference used for next-fire ordering. Used
// by tests to keep listings deterministic.
func (t *Tab) SetNow(now func() time.Time) {
	t.now = now
}

// AddDaily creates an enabled alarm firing every day at hour:minute and
// returns its identifier.
func (t *Tab) AddDaily(command string, hour, minute int) (string, error) {
	return t.add(command, hour, minute, "*")
}

// AddWeekday creates an enabled alarm firing Sunday through Thursday at
// hour:minute and returns its identifier.
func (t *Tab) AddWeekday(command string, hour, minute int) (string, error) {
	return t.add(command, hour, minute, weekdayRange)
}

func (t *Tab) add(command string, hour, minute int, dow string) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("hour %d out of range [0,23]", hour)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("minute %d out of range [0,59]", minute)
	}

	lines, jobs, err := t.read()
	if err != nil {
		return "", err
	}

	excluded := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if id, ok := job.ID(); ok {
			excluded[id] = struct{}{}
		}
	}
	id := alarmid.Generate(excluded)

	job := Job{
		Minute:    fmt.Sprintf("%d", minute),
		Hour:      fmt.Sprintf("%d", hour),
		DayOfWeek: dow,
		Command:   command,
		Comment:   t.tag + " " + id,
		Enabled:   true,
	}
	lines = append(lines, job.Line())

	if err := t.write(lines); err != nil {
		return "", err
	}

	return id, nil
}

// Jobs lists this application's alarms, sorted ascending by next fire
// time computed from a single "now" reference. Jobs with equal next-fire
// times keep their table order.
func (t *Tab) Jobs() ([]Job, error) {
	_, jobs, err := t.read()
	if err != nil {
		return nil, err
	}

	now := t.now()
	sort.SliceStable(jobs, func(i, j int) bool {
		return t.nextFire(jobs[i], now).Before(t.nextFire(jobs[j], now))
	})

	return jobs, nil
}

// IDs returns the identifiers of all currently stored alarms. Entries
// with a malformed comment are skipped and logged.
func (t *Tab) IDs() ([]string, error) {
	jobs, err := t.Jobs()
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, job := range jobs {
		id, ok := t.JobID(job)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Find returns the stored alarm with the given identifier.
func (t *Tab) Find(id string) (Job, bool, error) {
	jobs, err := t.Jobs()
	if err != nil {
		return Job{}, false, err
	}

	for _, job := range jobs {
		if jobID, ok := t.JobID(job); ok && jobID == id {
			return job, true, nil
		}
	}
	return Job{}, false, nil
}

// JobID extracts the identifier from a job's comment. A malformed
// comment makes the job unaddressable: this logs and reports false, it
// never fails into the caller.
func (t *Tab) JobID(job Job) (string, bool) {
	id, ok := job.ID()
	if !ok {
		t.logger.Warn("alarm entry has unparseable comment, skipping",
			logger.Field{Key: "comment", Value: job.Comment})
		return "", false
	}
	return id, true
}

// Enable marks the job enabled and rewrites the table. Enabling an
// already enabled job is a no-op rewrite. The identifier is unchanged.
func (t *Tab) Enable(job Job) error {
	return t.setEnabled(job, true)
}

// Disable marks the job disabled and rewrites the table. The entry stays
// stored and keeps its identifier, it just no longer fires.
func (t *Tab) Disable(job Job) error {
	return t.setEnabled(job, false)
}

func (t *Tab) setEnabled(job Job, enabled bool) error {
	id, ok := t.JobID(job)
	if !ok {
		return fmt.Errorf("alarm has no parseable id")
	}

	return t.rewrite(id, func(j Job) (Job, bool) {
		j.Enabled = enabled
		return j, true
	})
}

// Remove deletes the job's row and rewrites the table.
func (t *Tab) Remove(job Job) error {
	id, ok := t.JobID(job)
	if !ok {
		return fmt.Errorf("alarm has no parseable id")
	}

	return t.rewrite(id, func(Job) (Job, bool) {
		return Job{}, false
	})
}

// rewrite re-reads the table, applies mutate to the entry with the given
// id (keep=false drops the row) and writes the whole table back.
func (t *Tab) rewrite(id string, mutate func(Job) (Job, bool)) error {
	raw, err := t.source.Read()
	if err != nil {
		return err
	}

	var out []string
	found := false
	for _, line := range splitLines(raw) {
		job, ok := parseJob(line, t.tag)
		if !ok {
			out = append(out, line)
			continue
		}
		jobID, ok := job.ID()
		if !ok || jobID != id {
			out = append(out, line)
			continue
		}

		found = true
		mutated, keep := mutate(job)
		if keep {
			out = append(out, mutated.Line())
		}
	}

	if !found {
		return fmt.Errorf("alarm %q not found in crontab", id)
	}

	return t.write(out)
}

// read parses the table into its verbatim lines plus this tag's jobs in
// table order.
func (t *Tab) read() ([]string, []Job, error) {
	raw, err := t.source.Read()
	if err != nil {
		return nil, nil, err
	}

	lines := splitLines(raw)
	var jobs []Job
	for _, line := range lines {
		if job, ok := parseJob(line, t.tag); ok {
			jobs = append(jobs, job)
		}
	}

	return lines, jobs, nil
}

func (t *Tab) write(lines []string) error {
	text := strings.Join(lines, "\n")
	if text != "" {
		text += "\n"
	}
	return t.source.Write(text)
}

// nextFire computes the job's next scheduled fire time after now. An
// unparseable trigger sorts to the end of listings.
func (t *Tab) nextFire(job Job, now time.Time) time.Time {
	sched, err := t.parser.Parse(job.Spec())
	if err != nil {
		t.logger.Warn("alarm entry has unparseable schedule",
			logger.Field{Key: "spec", Value: job.Spec()})
		return now.AddDate(100, 0, 0)
	}
	return sched.Next(now)
}

func splitLines(raw string) []string {
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
