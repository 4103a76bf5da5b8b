package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"github.com/jjenkins/regwatch/internal/logger"
)

// Summarizer turns a rendered report into a prose briefing
type Summarizer interface {
	Summarize(ctx context.Context, reportText string) (string, error)
}

// summaryInstruction mirrors the sections compliance teams expect in the briefing
const summaryInstruction = `You are a compliance change analyst for US healthcare organizations.
You receive a regulatory change report built from the Federal Register. Rewrite it as a concise briefing with three sections:

1. "Recent Rules": separate Final rules and Proposed rules. Keep document number, publication date, title and URL.
2. "Change vs Previous Period": how many documents were published in the current versus the previous period, and which rules are newly introduced.
3. "Why This Matters": compliance and privacy impact, security and IT impact, engineering and product impact.

Use only the data in the report. Do not invent regulations. If there are no rules or no change, say so plainly.`

// ClaudeConfig configures the Claude summarizer
type ClaudeConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Claude summarizes reports with Anthropic's Messages API behind a circuit breaker
type Claude struct {
	client  anthropic.Client
	breaker *gobreaker.CircuitBreaker
	cfg     ClaudeConfig
	logger  logger.Logger
}

// NewClaude creates a Claude summarizer, filling unset config fields with defaults
func NewClaude(cfg ClaudeConfig, log logger.Logger, opts ...option.RequestOption) *Claude {
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientOpts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)

	return &Claude{
		client: anthropic.NewClient(clientOpts...),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "claude-api",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("Circuit breaker state changed",
					logger.String("circuit", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()))
			},
		}),
		cfg:    cfg,
		logger: log,
	}
}

// Summarize asks Claude for a briefing of the report text
func (c *Claude) Summarize(ctx context.Context, reportText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doSummarize(ctx, reportText)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("claude api unavailable: %w", err)
		}
		return "", err
	}

	return result.(string), nil
}

func (c *Claude) doSummarize(ctx context.Context, reportText string) (string, error) {
	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: summaryInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(reportText)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	c.logger.Info("Summary generated",
		logger.String("model", c.cfg.Model),
		logger.Int("input_length", len(reportText)),
		logger.Int("summary_length", len(textBlock.Text)),
		logger.Duration("duration", time.Since(start)))

	return textBlock.Text, nil
}

// NoopSummarizer returns the report text unchanged
type NoopSummarizer struct{}

// Summarize returns reportText as is
func (NoopSummarizer) Summarize(_ context.Context, reportText string) (string, error) {
	return reportText, nil
}
