package sound

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/igolaizola/rapbattle/pkg/sound/ffmpeg"
)

// ErrFormatMismatch is returned when joining tracks with different sample
// rates or channel counts.
var ErrFormatMismatch = errors.New("sound: format mismatch")

// Track is a decoded waveform of interleaved 16-bit samples.
type Track struct {
	samples  []int16
	channels int
	rate     int
}

// NewTrack creates a track from interleaved samples.
func NewTrack(samples []int16, channels, rate int) *Track {
	if channels < 1 {
		channels = 1
	}
	return &Track{
		samples:  samples,
		channels: channels,
		rate:     rate,
	}
}

// Load decodes an mp3 file with ffmpeg. Encoder delay and padding declared in
// the LAME header are trimmed, so a saved track loads back with its original
// length. The decoded track is always stereo at the file's sample rate.
func Load(ctx context.Context, path string) (*Track, error) {
	rate, err := SampleRate(path)
	if err != nil {
		return nil, err
	}
	pcm, err := ffmpeg.Decode(ctx, path, rate, 2)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't decode %s: %w", path, err)
	}
	return FromPCM(pcm, 2, rate), nil
}

// SampleRate reads the sample rate of an mp3 file from its frame headers.
func SampleRate(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("sound: couldn't open file: %w", err)
	}
	defer f.Close()
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("sound: couldn't read mp3 header of %s: %w", path, err)
	}
	return decoder.SampleRate(), nil
}

// FromPCM creates a track from 16-bit little endian interleaved PCM bytes.
// A trailing partial frame is dropped.
func FromPCM(pcm []byte, channels, rate int) *Track {
	frameBytes := 2 * channels
	pcm = pcm[:len(pcm)-len(pcm)%frameBytes]
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return NewTrack(samples, channels, rate)
}

// PCM returns the samples as 16-bit little endian bytes.
func (t *Track) PCM() []byte {
	buf := make([]byte, len(t.samples)*2)
	for i, s := range t.samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func (t *Track) Samples() []int16 {
	return t.samples
}

func (t *Track) Channels() int {
	return t.channels
}

func (t *Track) SampleRate() int {
	return t.rate
}

// Frames returns the number of samples per channel.
func (t *Track) Frames() int {
	return len(t.samples) / t.channels
}

// DurationMs returns the length of the track rounded to the nearest
// millisecond.
func (t *Track) DurationMs() int64 {
	if t.rate == 0 {
		return 0
	}
	return msOf(int64(t.Frames()), t.rate)
}

func msOf(frames int64, rate int) int64 {
	return (frames*1000 + int64(rate)/2) / int64(rate)
}

func (t *Track) frameAt(ms int64) int {
	if ms <= 0 {
		return 0
	}
	f := (ms*int64(t.rate) + 500) / 1000
	if f > int64(t.Frames()) {
		return t.Frames()
	}
	return int(f)
}

// frames returns a copy of the frames [start, end).
func (t *Track) frames(start, end int) *Track {
	if end < start {
		end = start
	}
	samples := make([]int16, (end-start)*t.channels)
	copy(samples, t.samples[start*t.channels:end*t.channels])
	return NewTrack(samples, t.channels, t.rate)
}

// SplitPoint returns the offset in milliseconds where a track of the given
// length is split. Ratio 0.5 (or 0) is the midpoint, floor(total/2).
func SplitPoint(totalMs int64, ratio float64) int64 {
	if ratio <= 0 || ratio == 0.5 {
		return totalMs / 2
	}
	if ratio >= 1 {
		return totalMs
	}
	return int64(float64(totalMs) * ratio)
}

// Split partitions the track into [0, point) and [point, end).
func (t *Track) Split(ratio float64) (*Track, *Track, int64) {
	total := t.DurationMs()
	point := SplitPoint(total, ratio)
	k := t.splitFrame(point, total)
	return t.frames(0, k), t.frames(k, t.Frames()), point
}

// splitFrame returns the frame boundary closest to point for which the first
// segment measures point and the second total-point milliseconds. Such a
// boundary exists whenever a millisecond spans at least one frame.
func (t *Track) splitFrame(point, total int64) int {
	k := int64(t.frameAt(point))
	if t.rate == 0 {
		return int(k)
	}
	n := int64(t.Frames())
	span := int64(t.rate)/1000 + 1
	for d := int64(0); d <= span; d++ {
		for _, c := range [2]int64{k - d, k + d} {
			if c < 0 || c > n {
				continue
			}
			if msOf(c, t.rate) == point && msOf(n-c, t.rate) == total-point {
				return int(c)
			}
		}
	}
	return int(k)
}

// Append returns a new track with o's samples after t's.
func (t *Track) Append(o *Track) (*Track, error) {
	if t.rate != o.rate || t.channels != o.channels {
		return nil, fmt.Errorf("%w: %d Hz/%d ch vs %d Hz/%d ch", ErrFormatMismatch, t.rate, t.channels, o.rate, o.channels)
	}
	samples := make([]int16, 0, len(t.samples)+len(o.samples))
	samples = append(samples, t.samples...)
	samples = append(samples, o.samples...)
	return NewTrack(samples, t.channels, t.rate), nil
}

// Save encodes the track to mp3 using ffmpeg.
func (t *Track) Save(ctx context.Context, path, bitrate string) error {
	if err := ffmpeg.Encode(ctx, t.PCM(), t.rate, t.channels, path, bitrate); err != nil {
		return fmt.Errorf("sound: couldn't save %s: %w", path, err)
	}
	return nil
}

// mono averages the channels of every frame to a value in [-1, 1].
func (t *Track) mono() []float64 {
	frames := t.Frames()
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < t.channels; c++ {
			sum += float64(t.samples[i*t.channels+c]) / 32768.0
		}
		mono[i] = sum / float64(t.channels)
	}
	return mono
}

// Resample returns the min and max of every window of the mono signal.
func (t *Track) Resample(windowMs int64) []float64 {
	samples := t.mono()
	windowLength := int(int64(t.rate) * windowMs / 1000)
	if windowLength < 1 {
		windowLength = 1
	}

	var resampled []float64
	for i := 0; i < len(samples); i += windowLength {
		end := i + windowLength
		if end > len(samples) {
			end = len(samples)
		}
		window := samples[i:end]
		var min, max float64
		for _, v := range window {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		resampled = append(resampled, min)
		resampled = append(resampled, max)
	}
	return resampled
}

// Peak returns the largest absolute sample value.
func Peak(samples []int16) int {
	var peak int
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
