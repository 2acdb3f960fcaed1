package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"euroassist/internal/config"
)

const mockReply = "EuroAssist is running in mock mode: no language model is configured."

// NewFromConfig selecciona el proveedor segun LLM_PROVIDER. El io.Closer devuelto
// libera recursos del proveedor (puede ser un no-op).
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Client, io.Closer, error) {
	switch cfg.LLMProvider {
	case "", "openai":
		if cfg.LLMAPIKey == "" {
			return nil, nil, errors.New("LLM_API_KEY is required for the openai provider")
		}
		return NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, logger), nopCloser{}, nil
	case "gemini":
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	case "mock":
		return &MockClient{Response: mockReply, Deltas: []string{mockReply}}, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
