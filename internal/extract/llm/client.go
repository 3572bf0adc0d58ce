// Package llm implements the extract collaborators on top of an
// OpenAI-compatible chat completions API.
package llm

import (
	"context"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config for the OpenAI-compatible client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // empty keeps the go-openai default
	Model       string        // text model used for entity extraction
	VisionModel string        // model used for image-to-text
	Temperature float32       // 0..2
	Timeout     time.Duration // per call
}

// ChatClient is the subset of *openai.Client the extractors use.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (c Config) withDefaults() Config {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model == "" {
		c.Model = openai.GPT4oMini
	}
	if c.VisionModel == "" {
		c.VisionModel = c.Model
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// NewChatClient builds a go-openai client for cfg.
func NewChatClient(cfg Config) *openai.Client {
	cfg = cfg.withDefaults()
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func firstChoice(resp openai.ChatCompletionResponse) (string, bool) {
	if len(resp.Choices) == 0 {
		return "", false
	}
	return resp.Choices[0].Message.Content, true
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func truncateForLog(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
