package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/hraban/opus.v2"

	"github.com/yagizdas/voiceflare/internal/audio"
	"github.com/yagizdas/voiceflare/internal/transport"
)

// Voice frames arrive as 48kHz stereo opus, 20ms each
const (
	receiveSampleRate = 48000
	receiveChannels   = 2
	receiveFrameSize  = 960 // samples per channel per 20ms frame
)

// Receiver drains one voice connection's opus stream, decodes it to PCM,
// and feeds the capture sink. Speaking updates map SSRCs to user IDs; frames
// with no mapping yet are dropped since they cannot be attributed.
type Receiver struct {
	vc      *discordgo.VoiceConnection
	sink    transport.Sink
	resolve func(userID string) string
	logger  *slog.Logger

	mu       sync.Mutex
	ssrcMap  map[uint32]string
	decoders map[uint32]*opus.Decoder
}

// NewReceiver creates a receiver for a live voice connection. resolve turns
// user IDs into display names.
func NewReceiver(vc *discordgo.VoiceConnection, sink transport.Sink,
	resolve func(userID string) string, logger *slog.Logger) *Receiver {
	r := &Receiver{
		vc:       vc,
		sink:     sink,
		resolve:  resolve,
		logger:   logger.With(slog.String("component", "receiver")),
		ssrcMap:  make(map[uint32]string),
		decoders: make(map[uint32]*opus.Decoder),
	}

	vc.AddHandler(r.handleSpeakingUpdate)

	return r
}

// handleSpeakingUpdate keeps the SSRC map fresh and forwards speaking
// transitions to the sink
func (r *Receiver) handleSpeakingUpdate(vc *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
	if su == nil || su.SSRC == 0 || su.UserID == "" {
		return
	}

	r.mu.Lock()
	r.ssrcMap[uint32(su.SSRC)] = su.UserID
	r.mu.Unlock()

	if su.Speaking {
		r.sink.OnSpeakingStart(su.UserID, r.resolve(su.UserID))
	} else {
		r.sink.OnSpeakingStop(su.UserID)
	}
}

// Listen decodes incoming frames until the context ends or the receive
// channel closes. A closed channel means the voice connection dropped and
// returns an error; context cancellation is a graceful end and returns nil.
func (r *Receiver) Listen(ctx context.Context) error {
	pcmBuf := make([]int16, receiveFrameSize*receiveChannels)

	for {
		select {
		case <-ctx.Done():
			return nil
		case packet, ok := <-r.vc.OpusRecv:
			if !ok {
				return fmt.Errorf("voice receive channel closed")
			}
			r.handlePacket(packet, pcmBuf)
		}
	}
}

func (r *Receiver) handlePacket(packet *discordgo.Packet, pcmBuf []int16) {
	if packet == nil || len(packet.Opus) == 0 {
		return
	}

	r.mu.Lock()
	userID, known := r.ssrcMap[packet.SSRC]
	r.mu.Unlock()
	if !known {
		return
	}

	dec, err := r.decoderFor(packet.SSRC)
	if err != nil {
		r.logger.Error("failed to create opus decoder", slog.String("error", err.Error()))
		return
	}

	n, err := dec.Decode(packet.Opus, pcmBuf)
	if err != nil {
		r.logger.Debug("opus decode failed",
			slog.String("speaker_id", userID),
			slog.String("error", err.Error()))
		return
	}

	pcm := audio.SamplesToBytes(pcmBuf[:n*receiveChannels])
	r.sink.OnAudio(userID, pcm, receiveChannels)
}

// decoderFor returns the per-SSRC decoder, creating it on first use. Opus
// decoders carry stream state, so streams must not share one.
func (r *Receiver) decoderFor(ssrc uint32) (*opus.Decoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dec, exists := r.decoders[ssrc]; exists {
		return dec, nil
	}

	dec, err := opus.NewDecoder(receiveSampleRate, receiveChannels)
	if err != nil {
		return nil, err
	}
	r.decoders[ssrc] = dec
	return dec, nil
}
