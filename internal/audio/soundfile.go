// Package audio writes sound files for scripts.
//
// Only uncompressed PCM WAV output is supported. Samples arrive as float32 in
// [-1, 1], interleaved by channel, and are clipped and quantised to the
// file's bit depth.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag.
const wavFormatPCM = 1

// Defaults for zero Format fields.
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 1
	DefaultBitDepth   = 16
)

// ErrInvalidFormat is returned for unsupported sample rates, channel counts
// or bit depths.
var ErrInvalidFormat = errors.New("invalid sound file format")

// ErrClosed is returned when writing to a closed sound file.
var ErrClosed = errors.New("sound file closed")

// Format describes the output file. Zero fields take the defaults:
// 44100 Hz, mono, 16-bit.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is 44.1 kHz mono 16-bit PCM.
func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels, BitDepth: DefaultBitDepth}
}

func (f Format) withDefaults() Format {
	d := DefaultFormat()
	if f.SampleRate == 0 {
		f.SampleRate = d.SampleRate
	}
	if f.Channels == 0 {
		f.Channels = d.Channels
	}
	if f.BitDepth == 0 {
		f.BitDepth = d.BitDepth
	}
	return f
}

// Validate checks the format after defaults are applied.
func (f Format) Validate() error {
	f = f.withDefaults()
	if f.SampleRate < 1 || f.SampleRate > 768000 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels < 1 || f.Channels > 32 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, f.Channels)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: bit depth %d", ErrInvalidFormat, f.BitDepth)
	}
	return nil
}

// SoundFile is an open WAV file being written.
type SoundFile struct {
	path   string
	format Format
	file   *os.File
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	frames int64
	closed bool
}

// Create opens path for writing, truncating any existing file.
func Create(path string, f Format) (*SoundFile, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f = f.withDefaults()

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create sound file: %w", err)
	}

	return &SoundFile{
		path:   path,
		format: f,
		file:   file,
		enc:    wav.NewEncoder(file, f.SampleRate, f.BitDepth, f.Channels, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
			SourceBitDepth: f.BitDepth,
		},
	}, nil
}

// WriteFloat appends interleaved samples. A trailing partial frame is
// written as-is; callers are expected to write whole frames.
func (s *SoundFile) WriteFloat(samples []float32) error {
	if s.closed {
		return ErrClosed
	}
	if len(samples) == 0 {
		return nil
	}

	scale := float64(int64(1)<<(s.format.BitDepth-1) - 1)
	data := s.buf.Data[:0]
	for _, v := range samples {
		data = append(data, quantise(v, scale, s.format.BitDepth))
	}
	s.buf.Data = data

	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.frames += int64(len(samples) / s.format.Channels)
	return nil
}

// quantise clips v to [-1, 1] and scales it. 8-bit WAV is unsigned, offset
// by 128.
func quantise(v float32, scale float64, bitDepth int) int {
	x := float64(v)
	if math.IsNaN(x) {
		x = 0
	}
	x = math.Max(-1, math.Min(1, x))
	q := int(math.Round(x * scale))
	if bitDepth == 8 {
		q += 128
	}
	return q
}

// Frames returns the number of whole frames written.
func (s *SoundFile) Frames() int64 {
	return s.frames
}

// Format returns the file format.
func (s *SoundFile) Format() Format {
	return s.format
}

// Path returns the output path.
func (s *SoundFile) Path() string {
	return s.path
}

// Close finalises the WAV header and closes the file. Closing twice is a no-op.
func (s *SoundFile) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	encErr := s.enc.Close()
	fileErr := s.file.Close()
	if encErr != nil {
		return fmt.Errorf("finalise %s: %w", s.path, encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close %s: %w", s.path, fileErr)
	}
	return nil
}

// Sine returns seconds of a full-scale sine wave at freq Hz.
func Sine(freq, seconds float64, sampleRate int) []float32 {
	n := int(seconds * float64(sampleRate))
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
	}
	return out
}
