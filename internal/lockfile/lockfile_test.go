package lockfile

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDir(t *testing.T) *Dir {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return New(filepath.Join(t.TempDir(), "locks"), log)
}

func TestAcquireRelease(t *testing.T) {
	d := newTestDir(t)

	lockPath, err := d.Acquire(4242)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(d.Path(), "4242.lock"), lockPath)

	info, err := os.Stat(lockPath)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	entries, err := os.ReadDir(d.Path())
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, d.Release(4242))
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))
}

func TestPIDs_SkipsUnparseableNames(t *testing.T) {
	d := newTestDir(t)

	_, err := d.Acquire(100)
	require.NoError(t, err)
	_, err = d.Acquire(200)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(d.Path(), "garbage.lock"), nil, 0666))
	require.NoError(t, os.WriteFile(filepath.Join(d.Path(), "notalock.txt"), nil, 0666))

	pids, err := d.PIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{100, 200}, pids)
}

func TestPIDs_MissingDirectory(t *testing.T) {
	d := newTestDir(t)

	pids, err := d.PIDs()
	require.NoError(t, err)
	assert.Empty(t, pids)
}

func TestStopAll_SignalsEveryPIDAndSkipsDeadOnes(t *testing.T) {
	d := newTestDir(t)

	for _, pid := range []int{100, 200, 9999999} {
		_, err := d.Acquire(pid)
		require.NoError(t, err)
	}

	var attempted []int
	d.SetKiller(func(pid int, sig syscall.Signal) error {
		attempted = append(attempted, pid)
		assert.Equal(t, syscall.SIGINT, sig)
		if pid == 9999999 {
			return syscall.ESRCH
		}
		return nil
	})

	signaled, err := d.StopAll()
	require.NoError(t, err)
	assert.Equal(t, 2, signaled)
	assert.ElementsMatch(t, []int{100, 200, 9999999}, attempted)
}

func TestStopAll_DoesNotRemoveLockFiles(t *testing.T) {
	d := newTestDir(t)

	_, err := d.Acquire(100)
	require.NoError(t, err)

	d.SetKiller(func(pid int, sig syscall.Signal) error { return nil })

	_, err = d.StopAll()
	require.NoError(t, err)

	entries, err := os.ReadDir(d.Path())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "stop must leave lock removal to the playback process")
}
