package crontab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_Daily(t *testing.T) {
	tab := newTestTab(t, &MemSource{})

	desc := tab.Describe(Job{Minute: "0", Hour: "8", DayOfWeek: "*"})
	assert.Contains(t, desc, "8:00")
	assert.NotContains(t, desc, "At")

	for _, full := range []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"} {
		assert.NotContains(t, desc, full)
	}
}

func TestDescribe_WeekdayRange(t *testing.T) {
	tab := newTestTab(t, &MemSource{})

	desc := tab.Describe(Job{Minute: "30", Hour: "7", DayOfWeek: "0-4"})
	assert.Contains(t, desc, "7:30")
	assert.Contains(t, desc, "Sun")
	assert.Contains(t, desc, "Thr")
	assert.Contains(t, desc, "-")
	assert.NotContains(t, desc, " through ")
	assert.NotContains(t, desc, "Sunday")
	assert.NotContains(t, desc, "Thursday")
}

func TestDescribe_UnparseableSpecFallsBackToRawSpec(t *testing.T) {
	tab := newTestTab(t, &MemSource{})

	job := Job{Minute: "bogus", Hour: "x", DayOfWeek: "*"}
	assert.Equal(t, job.Spec(), tab.Describe(job))
}

func TestDescribeSpec_StripsAtPrefix(t *testing.T) {
	desc, err := describeSpec("0 20 * * *")
	require.NoError(t, err)
	assert.NotEqual(t, "", desc)
	assert.NotContains(t, desc, "At ")
	assert.Contains(t, desc, "20:00")
}
