package discord

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// transcodePCM converts whatever container/codec the synthesis backend
// returned into raw 48kHz stereo s16le PCM via ffmpeg, fully in pipes. No
// temp files.
func transcodePCM(ctx context.Context, audio []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(playbackSampleRate),
		"-ac", strconv.Itoa(playbackChannels),
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(audio)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	return stdout.Bytes(), nil
}
