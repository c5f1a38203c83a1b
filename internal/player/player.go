// Package player implements the standalone playback process: it loops a
// single audio clip until an external stop signal arrives, and marks
// itself discoverable through a PID-named lock file while playing.
//
// The lifecycle is STARTING (resolve the asset, write the lock file),
// PLAYING (stream 50 ms chunks to the audio device, polling a stop
// flag), STOPPING (release the device) and TERMINATED (remove the lock
// file, exit 0). SIGINT and SIGTERM are the only ways the stop flag is
// set; a crash can leave the lock file behind, which is accepted.
package player

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alarmbot/alarmbot/internal/lockfile"
	"github.com/alarmbot/alarmbot/internal/logger"
)

// chunkDuration is the size of one playback slice. The stop flag is
// checked at every chunk boundary.
const chunkDuration = 50 * time.Millisecond

// Player runs the playback lifecycle for one clip.
type Player struct {
	locks  *lockfile.Dir
	logger *logger.Logger
	volume int
	stop   atomic.Bool
}

// New creates a Player using the given lock directory. Volume is a
// 0-100 percentage applied once before playback starts.
func New(locks *lockfile.Dir, volume int, log *logger.Logger) *Player {
	return &Player{
		locks:  locks,
		logger: log,
		volume: volume,
	}
}

// RequestStop sets the stop flag. The playback loop observes it at the
// next chunk boundary. Safe to call from any goroutine; this is what
// the signal handler does.
func (p *Player) RequestStop() {
	p.stop.Store(true)
}

// Run plays the audio file at path in a loop until the stop flag is
// set, then tears down the sink and removes the lock file. A nil return
// is the process's exit-0 path.
func (p *Player) Run(path string, sink Sink) error {
	clip, err := Decode(path)
	if err != nil {
		return err
	}
	ApplyVolume(clip, p.volume)

	pid := os.Getpid()
	lockPath, err := p.locks.Acquire(pid)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		p.logger.Info("stop signal received",
			logger.Field{Key: "signal", Value: sig.String()})
		p.RequestStop()
	}()

	p.logger.Info("playback started",
		logger.Field{Key: "file", Value: path},
		logger.Field{Key: "pid", Value: pid},
		logger.Field{Key: "lock", Value: lockPath},
		logger.Field{Key: "duration_sec", Value: clip.Duration()})

	if err := p.play(clip, sink); err != nil {
		// Best effort: do not strand the lock file on a sink failure.
		_ = p.locks.Release(pid)
		return err
	}

	if err := p.locks.Release(pid); err != nil {
		// The lock file may have been removed externally; playback
		// itself finished cleanly.
		p.logger.Warn("failed to remove lock file",
			logger.Field{Key: "error", Value: err.Error()})
	}

	p.logger.Info("playback stopped gracefully")
	return nil
}

// play streams the clip to the sink in 50 ms chunks, restarting from
// the top each pass, until the stop flag is observed.
func (p *Player) play(clip Clip, sink Sink) error {
	if err := sink.Open(clip.Format()); err != nil {
		return err
	}

	frameSize := clip.Channels * clip.BytesPerSample
	chunkSize := int(float64(clip.SampleRate) * chunkDuration.Seconds())
	chunkBytes := chunkSize * frameSize
	if chunkBytes <= 0 {
		chunkBytes = frameSize
	}

	length := clip.Duration()
	chunkSeconds := chunkDuration.Seconds()

	for !p.stop.Load() {
		elapsed := 0.0
		for off := 0; off < len(clip.PCM); off += chunkBytes {
			end := off + chunkBytes
			if end > len(clip.PCM) {
				end = len(clip.PCM)
			}
			if err := sink.Write(clip.PCM[off:end]); err != nil {
				_ = sink.Close()
				return fmt.Errorf("failed to write audio chunk: %w", err)
			}
			elapsed += chunkSeconds
			if p.stop.Load() {
				break
			}
			if elapsed >= length {
				break
			}
		}
	}

	return sink.Close()
}
