package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// BinPath is the path to the ffmpeg binary
var BinPath = "ffmpeg"

// DefaultBitrate is used when Encode is called without a bitrate.
const DefaultBitrate = "128k"

func Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, BinPath, "-version")
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return "", fmt.Errorf("ffmpeg: couldn't get version: %w: %s", err, msg)
	}
	line := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0])
	if !strings.HasPrefix(line, "ffmpeg version ") {
		return "", fmt.Errorf("ffmpeg: invalid version: %s", line)
	}
	fields := strings.Fields(strings.TrimPrefix(line, "ffmpeg version "))
	if len(fields) == 0 {
		return "", fmt.Errorf("ffmpeg: invalid version: %s", line)
	}
	return fields[0], nil
}

// Encode writes 16-bit little endian PCM to an mp3 file.
func Encode(ctx context.Context, pcm []byte, rate, channels int, output, bitrate string) error {
	if bitrate == "" {
		bitrate = DefaultBitrate
	}

	// Write to a temporary file so a failed encode never leaves a partial output
	tmp := fmt.Sprintf("%s.tmp%s", output, filepath.Ext(output))

	cmd := exec.CommandContext(ctx, BinPath, "-y", "-loglevel", "error",
		"-f", "s16le", "-ar", fmt.Sprint(rate), "-ac", fmt.Sprint(channels), "-i", "pipe:0",
		"-codec:a", "libmp3lame", "-b:a", bitrate, "-f", "mp3", tmp)
	cmd.Stdin = bytes.NewReader(pcm)
	data, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(tmp)
		msg := string(data)
		return fmt.Errorf("ffmpeg: couldn't encode: %w: %s", err, msg)
	}

	// Move the temporary file to the output path
	_ = os.Remove(output)
	if err := os.Rename(tmp, output); err != nil {
		return fmt.Errorf("ffmpeg: couldn't rename temporary file: %w", err)
	}
	return nil
}

// Decode converts an audio file to 16-bit little endian PCM. ffmpeg drops
// the encoder delay and padding declared in the LAME header of mp3 files.
func Decode(ctx context.Context, input string, rate, channels int) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, BinPath, "-nostdin", "-loglevel", "error", "-i", input,
		"-f", "s16le", "-acodec", "pcm_s16le", "-ar", fmt.Sprint(rate), "-ac", fmt.Sprint(channels), "pipe:1")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: couldn't decode: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
