// Package collaborator talks to the remote text generator through
// langchaingo. One Client is bound to one provider and model.
package collaborator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/okian/edusynth/internal/domain/prompt"
	"github.com/okian/edusynth/pkg/logger"
	"github.com/okian/edusynth/pkg/metrics"
)

// Provider names.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGoogleAI = "googleai"
)

// DeepSeekBaseURL is the OpenAI-compatible endpoint used when no base URL is set.
const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// Completer is the one operation the orchestrator needs.
type Completer interface {
	Complete(ctx context.Context, req prompt.Request) (string, error)
}

// Settings selects and tunes the remote model.
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	APIBase     string
	Temperature float64
	MaxTokens   int
}

// Client is a Completer backed by a langchaingo model.
type Client struct {
	settings Settings
	llm      llms.Model
	log      logger.Logger
}

var _ Completer = (*Client)(nil)

// New builds a Client for s. WithModel skips provider construction.
func New(ctx context.Context, s Settings, opts ...Option) (*Client, error) {
	c := &Client{settings: s, log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.llm != nil {
		return c, nil
	}

	llm, err := newModel(ctx, s)
	if err != nil {
		return nil, err
	}
	c.llm = llm
	return c, nil
}

func newModel(ctx context.Context, s Settings) (llms.Model, error) {
	switch s.Provider {
	case ProviderOpenAI:
		return newOpenAI(s, s.APIBase)
	case ProviderDeepSeek:
		base := s.APIBase
		if base == "" {
			base = DeepSeekBaseURL
		}
		return newOpenAI(s, base)
	case ProviderGoogleAI:
		if s.APIBase != "" {
			return nil, fmt.Errorf("%w: googleai does not accept a custom base URL", ErrUnsupportedProvider)
		}
		opts := []googleai.Option{googleai.WithDefaultModel(s.Model)}
		if s.APIKey != "" {
			opts = append(opts, googleai.WithAPIKey(s.APIKey))
		}
		return googleai.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, s.Provider)
	}
}

func newOpenAI(s Settings, base string) (llms.Model, error) {
	opts := []openai.Option{openai.WithModel(s.Model)}
	if s.APIKey != "" {
		opts = append(opts, openai.WithToken(s.APIKey))
	}
	if base != "" {
		opts = append(opts, openai.WithBaseURL(base))
	}
	return openai.New(opts...)
}

// Complete sends one system+user exchange and returns the first choice text.
// Any failure is a *TransportError.
func (c *Client) Complete(ctx context.Context, req prompt.Request) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	callOpts := []llms.CallOption{llms.WithTemperature(c.settings.Temperature)}
	if c.settings.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.settings.MaxTokens))
	}
	if req.JSON {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	elapsed := time.Since(start)
	metrics.RecordCollaboratorLatency(c.settings.Provider, elapsed.Seconds())

	if err != nil {
		return "", c.fail(err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", c.fail(ErrEmptyResponse)
	}

	c.log.Debug(ctx, "collaborator responded",
		logger.String("model", c.settings.Model),
		logger.Duration("elapsed", elapsed),
		logger.Int("chars", len(resp.Choices[0].Content)))
	return resp.Choices[0].Content, nil
}

func (c *Client) fail(err error) error {
	return &TransportError{Provider: c.settings.Provider, Model: c.settings.Model, Err: err}
}
