package chime

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Player plays a chime on the local audio device.
type Player interface {
	Play(ctx context.Context, src Source) error
}

// CommandPlayer shells out to a command-line player per format; the file path
// is appended as the last argument.
type CommandPlayer struct {
	MP3Command []string
	WAVCommand []string
}

// DefaultCommandPlayer uses mpg123 for mp3 and aplay for wav.
func DefaultCommandPlayer() *CommandPlayer {
	return &CommandPlayer{
		MP3Command: []string{"mpg123", "-q"},
		WAVCommand: []string{"aplay", "-q"},
	}
}

func (p *CommandPlayer) Play(ctx context.Context, src Source) error {
	var argv []string
	switch src.Format {
	case FormatMP3:
		argv = p.MP3Command
	case FormatWAV:
		argv = p.WAVCommand
	default:
		return fmt.Errorf("chime: unsupported format %q", src.Format)
	}
	if len(argv) == 0 {
		return fmt.Errorf("chime: no player configured for %s", src.Format)
	}

	args := append(append([]string{}, argv[1:]...), src.Path)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("chime: %s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
