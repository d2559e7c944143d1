package discord

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/hraban/opus.v2"

	"github.com/harunnryd/voxa/pkg/adapters/capture"
	"github.com/harunnryd/voxa/pkg/errorsx"
)

const (
	captureSampleRate = 48000
	captureChannels   = 2
	// One opus frame is 20ms: 960 samples per channel.
	captureFrameSize = 960
)

// CaptureService buffers decoded voice audio per speaker until stopped.
// Buffers are in-memory only and die with the capture session.
type CaptureService struct {
	provider *Provider
	logger   *slog.Logger
}

func NewCapture(provider *Provider) *CaptureService {
	return &CaptureService{
		provider: provider,
		logger:   provider.logger.With(slog.String("component", "discord_capture")),
	}
}

func (c *CaptureService) Name() string { return "discord_capture" }

type captureSession struct {
	scopeID  string
	provider *Provider

	mu       sync.Mutex
	buffers  map[uint32]*bytes.Buffer
	decoders map[uint32]*opus.Decoder

	stop chan struct{}
	done chan struct{}
}

func (s *captureSession) ScopeID() string { return s.scopeID }

func (c *CaptureService) Start(ctx context.Context, scopeID string) (capture.Handle, error) {
	vc := c.provider.voiceConn(scopeID)
	if vc == nil || !vc.Ready {
		return nil, errorsx.New(errorsx.ReasonCaptureStart, "no live voice connection")
	}

	s := &captureSession{
		scopeID:  scopeID,
		provider: c.provider,
		buffers:  make(map[uint32]*bytes.Buffer),
		decoders: make(map[uint32]*opus.Decoder),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.readLoop(vc.OpusRecv, c.logger)
	return s, nil
}

func (c *CaptureService) Stop(h capture.Handle) (map[string][]byte, error) {
	s, ok := h.(*captureSession)
	if !ok {
		return nil, errors.New("foreign capture handle")
	}
	close(s.stop)
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte)
	for ssrc, buf := range s.buffers {
		userID, ok := c.provider.ssrcUser(s.scopeID, ssrc)
		if !ok {
			// No speaking update arrived for this SSRC; the audio cannot be
			// attributed to a participant and is dropped.
			c.logger.Warn("unattributed audio dropped",
				slog.String("guild_id", s.scopeID),
				slog.Uint64("ssrc", uint64(ssrc)),
				slog.Int("bytes", buf.Len()))
			continue
		}
		out[userID] = append(out[userID], buf.Bytes()...)
	}
	return out, nil
}

func (s *captureSession) readLoop(packets <-chan *discordgo.Packet, logger *slog.Logger) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			if err := s.decode(pkt); err != nil {
				logger.Debug("packet decode failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *captureSession) decode(pkt *discordgo.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dec, ok := s.decoders[pkt.SSRC]
	if !ok {
		var err error
		dec, err = opus.NewDecoder(captureSampleRate, captureChannels)
		if err != nil {
			return err
		}
		s.decoders[pkt.SSRC] = dec
		s.buffers[pkt.SSRC] = &bytes.Buffer{}
	}

	pcm := make([]int16, captureFrameSize*captureChannels)
	n, err := dec.Decode(pkt.Opus, pcm)
	if err != nil {
		return err
	}
	buf := s.buffers[pkt.SSRC]
	for _, sample := range pcm[:n*captureChannels] {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(sample))
		buf.Write(b[:])
	}
	return nil
}

var _ capture.Service = (*CaptureService)(nil)
