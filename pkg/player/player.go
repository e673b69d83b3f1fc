package player

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/pkg/browser"
)

// BinPath is the path to the ffplay binary
var BinPath = "ffplay"

// openFile opens a file with the default application of the OS.
var openFile = browser.OpenFile

// Play plays an audio file and blocks until playback ends. When ffplay is not
// available the file is handed to the default application and Play returns
// right away.
func Play(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("player: couldn't find %s: %w", path, err)
	}
	bin, err := exec.LookPath(BinPath)
	if err != nil {
		log.Printf("player: %s not found, opening %s with the default application\n", BinPath, path)
		if err := openFile(path); err != nil {
			return fmt.Errorf("player: couldn't open %s: %w", path, err)
		}
		return nil
	}
	cmd := exec.CommandContext(ctx, bin, "-nodisp", "-autoexit", "-loglevel", "error", path)
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return fmt.Errorf("player: couldn't play %s: %w: %s", path, err, msg)
	}
	return nil
}
