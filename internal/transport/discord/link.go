package discord

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/hraban/opus.v2"

	"github.com/yagizdas/voiceflare/internal/audio"
)

// sendTimeout bounds a single frame push into the voice connection
const sendTimeout = 5 * time.Second

// Link plays WAV files into a voice connection. One playback at a time; the
// playback worker polls Playing before starting the next item.
type Link struct {
	vc      *discordgo.VoiceConnection
	logger  *slog.Logger
	playing atomic.Bool
}

// NewLink creates a playback link for a live voice connection
func NewLink(vc *discordgo.VoiceConnection, logger *slog.Logger) *Link {
	return &Link{
		vc:     vc,
		logger: logger.With(slog.String("component", "link")),
	}
}

// Playing reports whether a playback is in progress
func (l *Link) Playing() bool {
	return l.playing.Load()
}

// Play reads a WAV file, converts it to the voice frame format, and streams
// it. Blocks until the whole file has been handed to the connection.
func (l *Link) Play(ctx context.Context, path string) error {
	if !l.playing.CompareAndSwap(false, true) {
		return fmt.Errorf("playback already in progress")
	}
	defer l.playing.Store(false)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	pcm, rate, channels, err := audio.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("failed to decode WAV: %w", err)
	}

	frames, err := l.prepareFrames(pcm, rate, channels)
	if err != nil {
		return err
	}

	if err := l.vc.Speaking(true); err != nil {
		return fmt.Errorf("failed to set speaking: %w", err)
	}
	defer l.vc.Speaking(false)

	started := time.Now()
	for _, frame := range frames {
		select {
		case l.vc.OpusSend <- frame:
		case <-time.After(sendTimeout):
			return fmt.Errorf("timed out sending audio frame")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.logger.Debug("playback complete",
		slog.String("path", path),
		slog.Int("frames", len(frames)),
		slog.Duration("took", time.Since(started)))

	return nil
}

// prepareFrames converts arbitrary WAV PCM into 20ms stereo opus frames at
// the voice sample rate
func (l *Link) prepareFrames(pcm []byte, rate, channels int) ([][]byte, error) {
	if channels == 2 {
		pcm = audio.StereoToMono(pcm)
	}

	pcm, err := audio.Resample(pcm, rate, receiveSampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to resample playback audio: %w", err)
	}

	mono := audio.BytesToSamples(pcm)

	enc, err := opus.NewEncoder(receiveSampleRate, receiveChannels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	frame := make([]int16, receiveFrameSize*receiveChannels)
	packet := make([]byte, 4000)
	var frames [][]byte

	for off := 0; off < len(mono); off += receiveFrameSize {
		end := off + receiveFrameSize
		if end > len(mono) {
			end = len(mono)
		}

		// Duplicate mono samples into both channels, zero-padding the
		// final partial frame
		for i := range frame {
			frame[i] = 0
		}
		for i, s := range mono[off:end] {
			frame[i*2] = s
			frame[i*2+1] = s
		}

		n, err := enc.Encode(frame, packet)
		if err != nil {
			return nil, fmt.Errorf("failed to encode opus frame: %w", err)
		}
		frames = append(frames, append([]byte(nil), packet[:n]...))
	}

	return frames, nil
}
