package discord

import (
	"context"
	"encoding/binary"
	"log/slog"

	"gopkg.in/hraban/opus.v2"

	"github.com/harunnryd/voxa/pkg/adapters/voicechat"
	"github.com/harunnryd/voxa/pkg/errorsx"
)

const (
	playbackSampleRate = 48000
	playbackChannels   = 2
	playbackFrameSize  = 960
	maxOpusFrameBytes  = 4000
)

type playback struct {
	cancel context.CancelFunc
}

func (p *Provider) IsPlaying(scopeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing[scopeID] != nil
}

// Play transcodes the synthesized audio to 48kHz stereo PCM, opus-encodes it
// frame by frame and streams it to the voice connection. Blocks until the
// last frame is handed off or the playback is cancelled. A busy scope
// declines instead of queueing.
func (p *Provider) Play(ctx context.Context, scopeID string, audio []byte) error {
	vc := p.voiceConn(scopeID)
	if vc == nil || !vc.Ready {
		return errorsx.New(errorsx.ReasonVoiceConnLost, "no live voice connection")
	}

	pctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	if p.playing[scopeID] != nil {
		p.mu.Unlock()
		cancel()
		return errorsx.New(errorsx.ReasonPlaybackBusy, "playback already in progress")
	}
	p.playing[scopeID] = &playback{cancel: cancel}
	p.mu.Unlock()
	defer func() {
		cancel()
		p.mu.Lock()
		delete(p.playing, scopeID)
		p.mu.Unlock()
	}()

	pcm, err := transcodePCM(pctx, audio)
	if err != nil {
		return err
	}

	enc, err := opus.NewEncoder(playbackSampleRate, playbackChannels, opus.AppAudio)
	if err != nil {
		return err
	}

	if err := vc.Speaking(true); err != nil {
		return err
	}
	defer func() {
		if err := vc.Speaking(false); err != nil {
			p.logger.Debug("speaking off failed", slog.String("error", err.Error()))
		}
	}()

	samplesPerFrame := playbackFrameSize * playbackChannels
	frame := make([]int16, samplesPerFrame)
	packet := make([]byte, maxOpusFrameBytes)
	for offset := 0; offset < len(pcm); offset += samplesPerFrame * 2 {
		for i := 0; i < samplesPerFrame; i++ {
			pos := offset + i*2
			if pos+1 < len(pcm) {
				frame[i] = int16(binary.LittleEndian.Uint16(pcm[pos:]))
			} else {
				frame[i] = 0
			}
		}
		n, err := enc.Encode(frame, packet)
		if err != nil {
			return err
		}
		out := make([]byte, n)
		copy(out, packet[:n])
		select {
		case vc.OpusSend <- out:
		case <-pctx.Done():
			return nil
		}
	}
	return nil
}

var _ voicechat.Player = (*Provider)(nil)
