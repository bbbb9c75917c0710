package collaborator

import (
	"github.com/tmc/langchaingo/llms"

	"github.com/okian/edusynth/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithModel injects a ready langchaingo model instead of building one from
// the provider settings.
func WithModel(m llms.Model) Option {
	return func(c *Client) {
		if m != nil {
			c.llm = m
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
