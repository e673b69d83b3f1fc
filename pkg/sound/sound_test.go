package sound

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/igolaizola/rapbattle/pkg/sound/ffmpeg"
)

func silence(ms int64, channels, rate int) *Track {
	frames := ms * int64(rate) / 1000
	return NewTrack(make([]int16, frames*int64(channels)), channels, rate)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		frames    int64
		rate      int
		wantTotal int64
		wantPoint int64
		wantA     int64
		wantB     int64
	}{
		{"even", 2646000, 44100, 60000, 30000, 30000, 30000},
		{"odd", 2645955, 44100, 59999, 29999, 29999, 30000},
		{"odd rounded up", 2645956, 44100, 59999, 29999, 29999, 30000},
		{"odd 48k", 2879952, 48000, 59999, 29999, 29999, 30000},
		{"empty", 0, 48000, 0, 0, 0, 0},
		{"one", 48, 48000, 1, 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := NewTrack(make([]int16, tt.frames*2), 2, tt.rate)
			if got := track.DurationMs(); got != tt.wantTotal {
				t.Fatalf("DurationMs() = %d; want %d", got, tt.wantTotal)
			}
			a, b, point := track.Split(0.5)
			if point != tt.wantPoint {
				t.Errorf("split point = %d; want %d", point, tt.wantPoint)
			}
			if got := a.DurationMs(); got != tt.wantA {
				t.Errorf("first = %dms; want %dms", got, tt.wantA)
			}
			if got := b.DurationMs(); got != tt.wantB {
				t.Errorf("second = %dms; want %dms", got, tt.wantB)
			}
			if a.Frames()+b.Frames() != track.Frames() {
				t.Errorf("frames %d + %d != %d", a.Frames(), b.Frames(), track.Frames())
			}
		})
	}
}

func TestSplitCoversTrack(t *testing.T) {
	// At 1 kHz every frame is one millisecond
	for total := int64(0); total < 500; total++ {
		track := silence(total, 1, 1000)
		a, b, point := track.Split(0.5)
		if point != total/2 {
			t.Fatalf("total %d: point = %d; want %d", total, point, total/2)
		}
		if a.DurationMs()+b.DurationMs() != total {
			t.Fatalf("total %d: %d + %d != %d", total, a.DurationMs(), b.DurationMs(), total)
		}
	}
}

func TestSplitCoversTrack44k(t *testing.T) {
	// A millisecond is 44.1 frames, every frame count up to 5s is checked
	const rate = 44100
	buf := make([]int16, 5*rate*2)
	for n := 0; n <= 5*rate; n++ {
		track := NewTrack(buf[:n*2], 2, rate)
		total := track.DurationMs()
		for _, ratio := range []float64{0.5, 0.3} {
			point := SplitPoint(total, ratio)
			k := track.splitFrame(point, total)
			if a, b := msOf(int64(k), rate), msOf(int64(n-k), rate); a != point || a+b != total {
				t.Fatalf("frames %d ratio %v: %d + %d; want %d + %d", n, ratio, a, b, point, total-point)
			}
		}
	}

	for n := 0; n <= 5*rate; n += 997 {
		track := NewTrack(buf[:n*2], 2, rate)
		a, b, point := track.Split(0.5)
		if a.DurationMs() != point || a.DurationMs()+b.DurationMs() != track.DurationMs() {
			t.Fatalf("frames %d: %d + %d != %d", n, a.DurationMs(), b.DurationMs(), track.DurationMs())
		}
		if a.Frames()+b.Frames() != n {
			t.Fatalf("frames %d: %d + %d", n, a.Frames(), b.Frames())
		}
	}
}

func TestSplitPoint(t *testing.T) {
	tests := []struct {
		total int64
		ratio float64
		want  int64
	}{
		{60000, 0.5, 30000},
		{59999, 0.5, 29999},
		{59999, 0, 29999},
		{10000, 0.25, 2500},
		{10000, 1, 10000},
	}
	for _, tt := range tests {
		if got := SplitPoint(tt.total, tt.ratio); got != tt.want {
			t.Errorf("SplitPoint(%d, %v) = %d; want %d", tt.total, tt.ratio, got, tt.want)
		}
	}
}

func TestAppend(t *testing.T) {
	a := NewTrack([]int16{1, 2, 3, 4}, 2, 1000)
	b := NewTrack([]int16{5, 6}, 2, 1000)
	c, err := a.Append(b)
	if err != nil {
		t.Fatalf("Append() err = %v; want nil", err)
	}
	want := []int16{1, 2, 3, 4, 5, 6}
	got := c.Samples()
	if len(got) != len(want) {
		t.Fatalf("len(samples) = %d; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples[%d] = %d; want %d", i, got[i], want[i])
		}
	}
	if c.DurationMs() != a.DurationMs()+b.DurationMs() {
		t.Errorf("DurationMs() = %d; want %d", c.DurationMs(), a.DurationMs()+b.DurationMs())
	}

	_, err = a.Append(NewTrack([]int16{1, 2}, 2, 44100))
	if !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Append() err = %v; want ErrFormatMismatch", err)
	}
}

func TestSplitThenAppend(t *testing.T) {
	samples := make([]int16, 2*48000)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	track := NewTrack(samples, 2, 48000)
	a, b, _ := track.Split(0.5)
	joined, err := a.Append(b)
	if err != nil {
		t.Fatalf("Append() err = %v; want nil", err)
	}
	for i, s := range joined.Samples() {
		if s != samples[i] {
			t.Fatalf("samples[%d] = %d; want %d", i, s, samples[i])
		}
	}
}

func TestPCM(t *testing.T) {
	track := NewTrack([]int16{-1, 256, 7}, 1, 8000)
	pcm := track.PCM()
	got := FromPCM(append(pcm, 0xff), 1, 8000)
	if len(got.Samples()) != 3 {
		t.Fatalf("len(samples) = %d; want 3", len(got.Samples()))
	}
	for i, s := range track.Samples() {
		if got.Samples()[i] != s {
			t.Errorf("samples[%d] = %d; want %d", i, got.Samples()[i], s)
		}
	}
}

func TestPlotWave(t *testing.T) {
	track := silence(1000, 2, 8000)
	b, err := track.PlotWave("wave", 500)
	if err != nil {
		t.Fatalf("PlotWave() err = %v; want nil", err)
	}
	if len(b) < 2 || b[0] != 0xff || b[1] != 0xd8 {
		t.Fatalf("PlotWave() didn't return a jpeg")
	}
}

func sine(ms int64, rate int) *Track {
	frames := int(ms * int64(rate) / 1000)
	samples := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(10000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		samples[2*i] = v
		samples[2*i+1] = v
	}
	return NewTrack(samples, 2, rate)
}

func TestSaveLoad(t *testing.T) {
	if _, err := exec.LookPath(ffmpeg.BinPath); err != nil {
		t.Skip("ffmpeg not installed")
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sine.mp3")
	if err := sine(2000, 44100).Save(ctx, path, ""); err != nil {
		t.Fatalf("Save() err = %v; want nil", err)
	}
	track, err := Load(ctx, path)
	if err != nil {
		t.Fatalf("Load() err = %v; want nil", err)
	}
	if track.SampleRate() != 44100 || track.Channels() != 2 {
		t.Errorf("format = %d Hz/%d ch; want 44100 Hz/2 ch", track.SampleRate(), track.Channels())
	}
	if d := track.DurationMs(); d < 1999 || d > 2001 {
		t.Errorf("DurationMs() = %d; want 2000", d)
	}
	// Encoder delay must not show up as leading silence
	if peak := Peak(track.Samples()[:2*441]); peak < 2000 {
		t.Errorf("peak of the first 10ms = %d; want signal", peak)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load() err = %v; want not exist", err)
	}
}
