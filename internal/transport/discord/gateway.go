package discord

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/yagizdas/voiceflare/internal/config"
)

// Gateway wraps the Discord gateway connection. Voice sessions are joined
// through it and share its websocket.
type Gateway struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// NewGateway creates a gateway client from the Discord config section
func NewGateway(cfg config.DiscordConfig, logger *slog.Logger) (*Gateway, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers

	return &Gateway{
		session: session,
		logger:  logger.With(slog.String("component", "gateway")),
	}, nil
}

// Open connects to the gateway
func (g *Gateway) Open() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	g.logger.Info("gateway connected")
	return nil
}

// Close disconnects from the gateway
func (g *Gateway) Close() error {
	g.logger.Info("gateway closing")
	return g.session.Close()
}

// joinVoice connects to a voice channel, unmuted and undeafened so the
// connection both receives and sends audio
func (g *Gateway) joinVoice(guildID, channelID string) (*discordgo.VoiceConnection, error) {
	vc, err := g.session.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel %s: %w", channelID, err)
	}
	return vc, nil
}

// displayName resolves a user ID to something readable, falling back to the
// raw ID when lookups fail
func (g *Gateway) displayName(guildID, userID string) string {
	if g.session.State != nil {
		if member, err := g.session.State.Member(guildID, userID); err == nil && member != nil {
			if member.Nick != "" {
				return member.Nick
			}
			if member.User != nil && member.User.Username != "" {
				return member.User.Username
			}
		}
	}
	if user, err := g.session.User(userID); err == nil && user != nil && user.Username != "" {
		return user.Username
	}
	return userID
}
