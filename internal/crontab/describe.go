package crontab

import (
	"strings"

	"github.com/alarmbot/alarmbot/internal/logger"
	lcron "github.com/lnquy/cron"
)

// replacements compact the descriptor's output for chat display: 3-letter
// weekday names, "-" for ranges, and no leading "At". Purely cosmetic.
var replacements = [][2]string{
	{"Sunday", "Sun"},
	{"Monday", "Mon"},
	{"Tuesday", "Tue"},
	{"Wednesday", "Wed"},
	{"Thursday", "Thr"},
	{"Friday", "Fri"},
	{"Saturday", "Sat"},
	{" through ", "-"},
	{"At", ""},
}

// Describe renders the job's schedule as a short human-readable string,
// e.g. "8:00" or "7:30, Sun-Thr".
func (t *Tab) Describe(job Job) string {
	desc, err := describeSpec(job.Spec())
	if err != nil {
		t.logger.Warn("failed to describe alarm schedule",
			logger.Field{Key: "spec", Value: job.Spec()},
			logger.Field{Key: "error", Value: err.Error()})
		return job.Spec()
	}
	return desc
}

func describeSpec(spec string) (string, error) {
	descriptor, err := lcron.NewDescriptor(lcron.Use24HourTimeFormat(true))
	if err != nil {
		return "", err
	}

	desc, err := descriptor.ToDescription(spec, lcron.Locale_en)
	if err != nil {
		return "", err
	}

	for _, r := range replacements {
		desc = strings.ReplaceAll(desc, r[0], r[1])
	}
	return strings.TrimSpace(desc), nil
}
