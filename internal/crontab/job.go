package crontab

import (
	"fmt"
	"strings"
)

// Job is one alarm entry in the crontab. The comment field carries
// "<tag> <id>", which is the only key used to re-locate the entry for
// enable/disable/remove.
type Job struct {
	Minute    string
	Hour      string
	DayOfWeek string
	Command   string
	Comment   string
	Enabled   bool
}

// Spec returns the five-field cron expression for the job's trigger.
func (j Job) Spec() string {
	return fmt.Sprintf("%s %s * * %s", j.Minute, j.Hour, j.DayOfWeek)
}

// Line renders the job as a crontab line. Disabled jobs are rendered
// commented out, the way crontab editors conventionally park them.
func (j Job) Line() string {
	line := fmt.Sprintf("%s %s # %s", j.Spec(), j.Command, j.Comment)
	if !j.Enabled {
		return "# " + line
	}
	return line
}

// ID returns the identifier token of the job's comment, or false when
// the comment is not in "<tag> <id>" form.
func (j Job) ID() (string, bool) {
	fields := strings.Fields(j.Comment)
	if len(fields) < 2 {
		return "", false
	}
	return fields[1], true
}

// parseJob parses a crontab line into a Job when the line is an alarm
// entry owned by tag. Any other line (environment assignments, plain
// comments, jobs written by other applications) reports ok=false and is
// preserved verbatim by the table writer.
func parseJob(line, tag string) (Job, bool) {
	enabled := true
	body := line

	if rest, found := strings.CutPrefix(body, "# "); found {
		enabled = false
		body = rest
	} else if strings.HasPrefix(body, "#") {
		return Job{}, false
	}

	// Split the trailing " # <comment>" marker off the command part.
	idx := strings.LastIndex(body, " # ")
	if idx < 0 {
		return Job{}, false
	}
	comment := strings.TrimSpace(body[idx+3:])
	body = strings.TrimSpace(body[:idx])

	if first, _, _ := strings.Cut(comment, " "); first != tag {
		return Job{}, false
	}

	fields := strings.Fields(body)
	if len(fields) < 6 {
		return Job{}, false
	}

	return Job{
		Minute:    fields[0],
		Hour:      fields[1],
		DayOfWeek: fields[4],
		Command:   strings.Join(fields[5:], " "),
		Comment:   comment,
		Enabled:   enabled,
	}, true
}
