package player

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Clip is a fully decoded audio asset in its native format. Playback
// streams it as-is: no resampling, no downmixing.
type Clip struct {
	PCM            []byte
	SampleRate     int
	Channels       int
	BytesPerSample int
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	frameSize := c.Channels * c.BytesPerSample
	if frameSize == 0 || c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.PCM)) / float64(frameSize) / float64(c.SampleRate)
}

// Format returns the clip's output format.
func (c Clip) Format() Format {
	return Format{
		SampleRate:     c.SampleRate,
		Channels:       c.Channels,
		BytesPerSample: c.BytesPerSample,
	}
}

// Decode reads and decodes the audio file at path. MP3 and WAV assets
// are supported.
func Decode(path string) (Clip, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to resolve audio path: %w", err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(abs)) {
	case ".mp3":
		return decodeMP3(f)
	case ".wav":
		return decodeWAV(f)
	default:
		return Clip{}, fmt.Errorf("unsupported audio format: %s", filepath.Ext(abs))
	}
}

func decodeMP3(r io.Reader) (Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to decode mp3: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to read mp3 stream: %w", err)
	}

	// go-mp3 always emits 16-bit little-endian stereo.
	return Clip{
		PCM:            pcm,
		SampleRate:     dec.SampleRate(),
		Channels:       2,
		BytesPerSample: 2,
	}, nil
}

func decodeWAV(f *os.File) (Clip, error) {
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("failed to decode wav: %w", err)
	}

	bytesPerSample := int(dec.BitDepth) / 8
	switch bytesPerSample {
	case 1, 2:
	default:
		return Clip{}, fmt.Errorf("unsupported wav sample width: %d bits", dec.BitDepth)
	}

	pcm := make([]byte, 0, len(buf.Data)*bytesPerSample)
	for _, sample := range buf.Data {
		switch bytesPerSample {
		case 1:
			pcm = append(pcm, byte(sample))
		case 2:
			pcm = append(pcm, byte(sample), byte(sample>>8))
		}
	}

	return Clip{
		PCM:            pcm,
		SampleRate:     int(dec.SampleRate),
		Channels:       int(dec.NumChans),
		BytesPerSample: bytesPerSample,
	}, nil
}

// ApplyVolume attenuates the clip in place from a 0-100 percentage.
// 100 is unity gain, lower values fall off on a 60 dB scale. Applied
// once, before the playback loop.
func ApplyVolume(clip Clip, percent int) {
	if percent >= 100 || clip.BytesPerSample != 2 {
		return
	}
	if percent < 0 {
		percent = 0
	}

	attenuationDB := 60 - 60*float64(percent)/100
	gain := math.Pow(10, -attenuationDB/20)

	for i := 0; i+1 < len(clip.PCM); i += 2 {
		sample := int16(uint16(clip.PCM[i]) | uint16(clip.PCM[i+1])<<8)
		scaled := int16(float64(sample) * gain)
		clip.PCM[i] = byte(scaled)
		clip.PCM[i+1] = byte(uint16(scaled) >> 8)
	}
}
