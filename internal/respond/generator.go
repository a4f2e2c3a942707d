package respond

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/yagizdas/voiceflare/internal/config"
)

// Generator produces spoken responses through an OpenAI-compatible chat
// completion endpoint. Each trigger gets either the primary or the
// alternative prompt pair, chosen by configured probability.
type Generator struct {
	client openai.Client
	cfg    config.ResponderConfig
	logger *slog.Logger

	// roll returns a number in [0, 100). Injectable for tests.
	roll func() int
}

// NewGenerator creates a response generator from the responder config section
func NewGenerator(cfg config.ResponderConfig, logger *slog.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Generator{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		logger: logger.With(slog.String("component", "responder")),
		roll:   func() int { return rand.Intn(100) },
	}, nil
}

// Generate produces a spoken announcement for a matched trigger phrase. The
// speaker's words are declared to the model verbatim so the reply can
// reference them, and the same declaration opens the returned text, so the
// played response always names who triggered it.
func (g *Generator) Generate(ctx context.Context, speakerName, targetName, phrase, victimName string) (string, error) {
	prompt := g.cfg.Primary
	if g.cfg.AlternativeProbability > 0 && g.roll() < g.cfg.AlternativeProbability {
		prompt = g.cfg.Alternative
	}

	system := renderTemplate(prompt.System, speakerName, targetName, victimName)
	user := renderTemplate(prompt.UserTemplate, speakerName, targetName, victimName)
	declaration := fmt.Sprintf("%s said '%s'. ", speakerName, phrase)

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.GetTimeoutDuration())
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(declaration + user),
		},
	}
	if g.cfg.Temperature > 0 {
		params.Temperature = param.NewOpt(g.cfg.Temperature)
	}
	if g.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(g.cfg.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	text := cleanResponse(resp.Choices[0].Message.Content, targetName)
	if text == "" {
		return "", fmt.Errorf("chat completion returned empty text")
	}
	announcement := declaration + text

	g.logger.Debug("response generated",
		slog.String("speaker", speakerName),
		slog.Int("length", len(announcement)))

	return announcement, nil
}

// renderTemplate substitutes the prompt placeholders
func renderTemplate(tmpl, speakerName, targetName, victimName string) string {
	r := strings.NewReplacer(
		"{speaker_name}", speakerName,
		"{target_name}", targetName,
		"{victim_name}", victimName,
	)
	return r.Replace(tmpl)
}

// cleanResponse strips artifacts models sometimes emit and substitutes any
// placeholder that leaked into the output
func cleanResponse(text, targetName string) string {
	text = strings.ReplaceAll(text, "\\", "")
	text = strings.ReplaceAll(text, "{target_name}", targetName)
	text = strings.ReplaceAll(text, "{anne}", targetName)
	return strings.TrimSpace(text)
}
