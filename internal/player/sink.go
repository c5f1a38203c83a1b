package player

import (
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
)

// Format describes the PCM stream handed to a Sink.
type Format struct {
	SampleRate     int
	Channels       int
	BytesPerSample int
}

// Sink is an audio output device. The playback loop opens it once,
// streams fixed-size chunks into Write, and closes it once on stop.
type Sink interface {
	Open(format Format) error
	Write(chunk []byte) error
	Close() error
}

// OtoSink plays PCM through the system audio device via oto.
type OtoSink struct {
	player *oto.Player
	pipe   *io.PipeWriter
}

// NewOtoSink creates an unopened audio device sink.
func NewOtoSink() *OtoSink {
	return &OtoSink{}
}

// Open initializes the audio device for the clip's native format.
func (s *OtoSink) Open(format Format) error {
	var sampleFormat oto.Format
	switch format.BytesPerSample {
	case 1:
		sampleFormat = oto.FormatUnsignedInt8
	case 2:
		sampleFormat = oto.FormatSignedInt16LE
	default:
		return fmt.Errorf("unsupported sample width: %d bytes", format.BytesPerSample)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       sampleFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	// The player pulls from the read end of the pipe; writes block once
	// the device buffer is full, which paces the playback loop.
	pr, pw := io.Pipe()
	s.player = ctx.NewPlayer(pr)
	s.pipe = pw
	s.player.Play()

	return nil
}

// Write streams one chunk to the device.
func (s *OtoSink) Write(chunk []byte) error {
	if s.pipe == nil {
		return fmt.Errorf("sink is not open")
	}
	_, err := s.pipe.Write(chunk)
	return err
}

// Close stops playback and releases the device.
func (s *OtoSink) Close() error {
	if s.pipe != nil {
		_ = s.pipe.Close()
		s.pipe = nil
	}
	if s.player != nil {
		if err := s.player.Close(); err != nil {
			return fmt.Errorf("failed to close audio device: %w", err)
		}
		s.player = nil
	}
	return nil
}
