package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yagizdas/voiceflare/internal/pipeline"
	"github.com/yagizdas/voiceflare/internal/transport"
)

// settleDelay gives Discord a moment between teardown and rejoin during a
// restart. Rejoining immediately tends to race the old connection's cleanup.
const settleDelay = 500 * time.Millisecond

// VoiceSession owns one voice channel connection: the receiver feeding the
// capture sink and the playback link. It satisfies the supervisor's restart
// contract by rebuilding both from scratch.
type VoiceSession struct {
	id        string
	gateway   *Gateway
	guildID   string
	channelID string
	sink      transport.Sink
	logger    *slog.Logger

	// onEnd is invoked with the listener's exit error (nil on graceful
	// stop). Set before Start.
	onEnd func(error)

	mu           sync.Mutex
	vc           *discordgo.VoiceConnection
	link         *Link
	receiver     *Receiver
	cancelListen context.CancelFunc
	wg           sync.WaitGroup
}

// NewVoiceSession creates a voice session. Call SetListenEndHandler and then
// Start to bring it up.
func NewVoiceSession(id string, gateway *Gateway, guildID, channelID string,
	sink transport.Sink, logger *slog.Logger) *VoiceSession {
	return &VoiceSession{
		id:        id,
		gateway:   gateway,
		guildID:   guildID,
		channelID: channelID,
		sink:      sink,
		logger: logger.With(
			slog.String("component", "voice_session"),
			slog.String("session_id", id)),
	}
}

// SetListenEndHandler registers the listener-termination callback. Must be
// called before Start.
func (v *VoiceSession) SetListenEndHandler(fn func(error)) {
	v.onEnd = fn
}

// ID returns the session identifier
func (v *VoiceSession) ID() string {
	return v.id
}

// link accessor; the concrete link is replaced on every restart
func (v *VoiceSession) currentLink() *Link {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.link
}

// Playing reports whether the current connection is mid-playback. Satisfies
// the playback worker's link contract across restarts.
func (v *VoiceSession) Playing() bool {
	l := v.currentLink()
	return l != nil && l.Playing()
}

// Play streams a WAV file into the current connection
func (v *VoiceSession) Play(ctx context.Context, path string) error {
	l := v.currentLink()
	if l == nil {
		return fmt.Errorf("no voice connection")
	}
	return l.Play(ctx, path)
}

var _ pipeline.VoiceLink = (*VoiceSession)(nil)

// Start joins the voice channel and begins listening
func (v *VoiceSession) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connectLocked()
}

// connectLocked joins the channel and spins up the receiver. Caller holds
// v.mu.
func (v *VoiceSession) connectLocked() error {
	vc, err := v.gateway.joinVoice(v.guildID, v.channelID)
	if err != nil {
		return err
	}

	v.vc = vc
	v.link = NewLink(vc, v.logger)
	v.receiver = NewReceiver(vc, v.sink, func(userID string) string {
		return v.gateway.displayName(v.guildID, userID)
	}, v.logger)

	listenCtx, cancel := context.WithCancel(context.Background())
	v.cancelListen = cancel

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		err := v.receiver.Listen(listenCtx)
		if listenCtx.Err() != nil {
			// Deliberate teardown during restart or shutdown; the caller
			// drives what happens next
			return
		}
		if v.onEnd != nil {
			v.onEnd(err)
		}
	}()

	v.logger.Info("voice session started",
		slog.String("guild_id", v.guildID),
		slog.String("channel_id", v.channelID))

	return nil
}

// teardownLocked stops the listener and drops the connection. Caller holds
// v.mu.
func (v *VoiceSession) teardownLocked() {
	if v.cancelListen != nil {
		v.cancelListen()
		v.cancelListen = nil
	}
	v.mu.Unlock()
	v.wg.Wait()
	v.mu.Lock()

	if v.vc != nil {
		if err := v.vc.Disconnect(); err != nil {
			v.logger.Warn("voice disconnect failed", slog.String("error", err.Error()))
		}
		v.vc = nil
	}
	v.link = nil
	v.receiver = nil
}

// Restart tears the connection down, waits for things to settle, and brings
// it back up. Called by the supervisor after backoff.
func (v *VoiceSession) Restart(ctx context.Context) error {
	v.logger.Info("restarting voice session")

	v.mu.Lock()
	defer v.mu.Unlock()

	v.teardownLocked()

	// Pre-failure audio must not leak into the new connection
	v.sink.Reset()

	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := v.connectLocked(); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}
	return nil
}

// Stop gracefully shuts the session down
func (v *VoiceSession) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.teardownLocked()
	v.logger.Info("voice session stopped")
}
