package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"euroassist/internal/llm"
)

const (
	// FallbackTitle se usa cuando el LLM no produce un titulo util.
	FallbackTitle = "University Information"

	maxTitleRunes     = 50
	answerMaxTokens   = 1000
	answerTemperature = 0.7
	titleMaxTokens    = 24
	titleTemperature  = 0.3
)

const assistantSystemPrompt = `You are EuroAssist.ai, a helpful AI assistant specializing in European university information.
You provide accurate, up-to-date information about:
- University rankings and comparisons across Europe
- Tuition fees and living costs
- Scholarship opportunities and financial aid
- Admission requirements and application deadlines
- Academic programs and specializations
- Student life and campus information

Always provide specific, actionable information when possible. If you don't have current data,
clearly state this and suggest where users might find the most recent information.

Format your responses in a clear, structured way using markdown when helpful.
Be encouraging and supportive to students planning their education journey.`

const titleSystemPrompt = `Generate a concise, descriptive title (max 50 characters) for a chat conversation based on the user's first message. The title should capture the main topic they're asking about regarding European universities. Respond with only the title, no quotes or extra text.`

// AssistantService envuelve el proveedor LLM: respuestas completas, streaming y titulos.
type AssistantService struct {
	logger  *zap.Logger
	client  llm.Client
	timeout time.Duration
}

func NewAssistantService(logger *zap.Logger, client llm.Client, timeout time.Duration) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{logger: logger, client: client, timeout: timeout}
}

// Answer devuelve la respuesta completa o un *GenerationError, nunca contenido parcial.
func (s *AssistantService) Answer(ctx context.Context, question string) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	out, err := s.client.Generate(ctx, answerPrompt(question))
	if err != nil {
		return "", &GenerationError{Cause: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &GenerationError{Cause: llm.ErrEmptyResponse}
	}
	return out, nil
}

// StreamAnswer reenvia cada delta a onDelta y devuelve el texto acumulado.
// Si el proveedor no soporta streaming se degrada a Answer con un unico delta.
// Ante una falla a mitad de stream los deltas ya emitidos no se retractan.
func (s *AssistantService) StreamAnswer(ctx context.Context, question string, onDelta func(string) error) (string, error) {
	streamer, ok := s.client.(llm.StreamClient)
	if !ok {
		out, err := s.Answer(ctx, question)
		if err != nil {
			return "", err
		}
		if err := onDelta(out); err != nil {
			return "", &GenerationError{Cause: err}
		}
		return out, nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	var sb strings.Builder
	err := streamer.Stream(ctx, answerPrompt(question), func(delta string) error {
		sb.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		return "", &GenerationError{Cause: err}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &GenerationError{Cause: llm.ErrEmptyResponse}
	}
	return sb.String(), nil
}

// GenerateTitle nunca falla: ante cualquier error devuelve FallbackTitle.
func (s *AssistantService) GenerateTitle(ctx context.Context, firstMessage string) string {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	out, err := s.client.Generate(ctx, llm.Prompt{
		System:      titleSystemPrompt,
		User:        sanitizeQuestion(firstMessage),
		MaxTokens:   titleMaxTokens,
		Temperature: titleTemperature,
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("title generation failed", zap.Error(err))
		}
		return FallbackTitle
	}
	title := cleanTitle(out)
	if title == "" {
		return FallbackTitle
	}
	return title
}

func (s *AssistantService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func answerPrompt(question string) llm.Prompt {
	return llm.Prompt{
		System:      assistantSystemPrompt,
		User:        sanitizeQuestion(question),
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	}
}

// sanitizeQuestion elimina caracteres de control salvo saltos de linea y tabs.
func sanitizeQuestion(q string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, q))
}
