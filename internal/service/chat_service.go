package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"euroassist/internal/domain"
	"euroassist/internal/metrics"
	"euroassist/internal/repository"
)

const (
	MaxMessageLength = 8000
	MaxTitleLength   = 200
	DefaultChatTitle = "New Chat"
)

// ExchangeObserver recibe el resultado de cada intercambio (metricas).
type ExchangeObserver interface {
	ObserveExchange(channel, outcome string, generation time.Duration)
	ObserveTitle()
}

type nopObserver struct{}

func (nopObserver) ObserveExchange(string, string, time.Duration) {}
func (nopObserver) ObserveTitle()                                 {}

// Exchange es el resultado de un envio: el mensaje del usuario siempre esta persistido;
// AssistantMessage es nil cuando la generacion fallo y Error lo explica.
type Exchange struct {
	UserMessage      domain.Message
	AssistantMessage *domain.Message
	Error            *GenerationError
}

// Partial indica que el mensaje del usuario quedo guardado sin respuesta del asistente.
func (e Exchange) Partial() bool { return e.Error != nil }

// ChatDetail agrupa un chat con sus mensajes en orden cronologico.
type ChatDetail struct {
	Chat     domain.Chat      `json:"chat"`
	Messages []domain.Message `json:"messages"`
}

// ChatService orquesta chats y el intercambio de mensajes con el asistente.
// El userID llega siempre resuelto desde la capa HTTP.
type ChatService struct {
	logger    *zap.Logger
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	assistant *AssistantService
	observer  ExchangeObserver
	now       func() time.Time
}

func NewChatService(logger *zap.Logger, chats repository.ChatRepository, messages repository.MessageRepository, assistant *AssistantService, observer ExchangeObserver) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &ChatService{
		logger:    logger,
		chats:     chats,
		messages:  messages,
		assistant: assistant,
		observer:  observer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	chats, err := s.chats.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	return chats, nil
}

// CreateChat crea un chat vacio; sin titulo usa DefaultChatTitle hasta el primer intercambio.
func (s *ChatService) CreateChat(ctx context.Context, userID, title string) (domain.Chat, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultChatTitle
	}
	title, err := normalizeTitle(title)
	if err != nil {
		return domain.Chat{}, err
	}
	now := s.now()
	chat := domain.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func (s *ChatService) GetChat(ctx context.Context, userID, chatID string) (ChatDetail, error) {
	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return ChatDetail{}, err
	}
	messages, err := s.messages.ListByChatID(ctx, chat.ID)
	if err != nil {
		return ChatDetail{}, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return ChatDetail{Chat: chat, Messages: messages}, nil
}

func (s *ChatService) RenameChat(ctx context.Context, userID, chatID, title string) (domain.Chat, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return domain.Chat{}, err
	}
	chat, err := s.chats.Rename(ctx, chatID, userID, title, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// DeleteChat borra el chat y sus mensajes; no hace nada si no pertenece al usuario.
func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID string) error {
	return s.chats.Delete(ctx, chatID, userID)
}

// SendMessage ejecuta un intercambio con respuesta completa.
// Los errores de validacion y autorizacion se devuelven antes de cualquier escritura;
// una falla del LLM queda en Exchange.Error y no como error de la funcion.
func (s *ChatService) SendMessage(ctx context.Context, userID, chatID, content string) (Exchange, error) {
	chat, userMsg, err := s.begin(ctx, userID, chatID, content)
	if err != nil {
		return Exchange{}, err
	}

	work := context.WithoutCancel(ctx)
	started := time.Now()
	reply, genErr := s.assistant.Answer(work, userMsg.Content)
	return s.finish(work, metrics.ChannelBuffered, chat, userMsg, reply, genErr, time.Since(started))
}

// StreamMessage ejecuta un intercambio reenviando cada delta a onDelta apenas llega.
// Si onDelta falla (cliente desconectado) se deja de reenviar, pero la generacion
// continua y el texto acumulado se persiste igual.
func (s *ChatService) StreamMessage(ctx context.Context, userID, chatID, content string, onDelta func(string) error) (Exchange, error) {
	chat, userMsg, err := s.begin(ctx, userID, chatID, content)
	if err != nil {
		return Exchange{}, err
	}

	relaying := true
	relay := func(delta string) error {
		if !relaying {
			return nil
		}
		if err := onDelta(delta); err != nil {
			relaying = false
			s.logger.Info("stream client gone, continuing generation",
				zap.String("chat_id", chat.ID),
				zap.Error(err),
			)
		}
		return nil
	}

	work := context.WithoutCancel(ctx)
	started := time.Now()
	reply, genErr := s.assistant.StreamAnswer(work, userMsg.Content, relay)
	return s.finish(work, metrics.ChannelStream, chat, userMsg, reply, genErr, time.Since(started))
}

func (s *ChatService) begin(ctx context.Context, userID, chatID, content string) (domain.Chat, domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Chat{}, domain.Message{}, &ValidationError{Field: "content", Reason: "required"}
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return domain.Chat{}, domain.Message{}, &ValidationError{Field: "content", Reason: fmt.Sprintf("must be at most %d characters", MaxMessageLength)}
	}

	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return domain.Chat{}, domain.Message{}, err
	}

	userMsg := domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		Role:      domain.RoleUser,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return domain.Chat{}, domain.Message{}, err
	}
	return chat, userMsg, nil
}

func (s *ChatService) finish(ctx context.Context, channel string, chat domain.Chat, userMsg domain.Message, reply string, genErr error, elapsed time.Duration) (Exchange, error) {
	ex := Exchange{UserMessage: userMsg}

	if genErr != nil {
		var ge *GenerationError
		if !errors.As(genErr, &ge) {
			ge = &GenerationError{Cause: genErr}
		}
		s.logger.Warn("assistant generation failed",
			zap.String("chat_id", chat.ID),
			zap.String("channel", channel),
			zap.Error(genErr),
		)
		ex.Error = ge
		s.observer.ObserveExchange(channel, metrics.OutcomeGenerationFailed, elapsed)
		s.touch(ctx, chat.ID)
		return ex, nil
	}

	createdAt := s.now()
	if !createdAt.After(userMsg.CreatedAt) {
		createdAt = userMsg.CreatedAt.Add(time.Microsecond)
	}
	assistantMsg := domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		Role:      domain.RoleAssistant,
		Content:   reply,
		CreatedAt: createdAt,
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		s.observer.ObserveExchange(channel, metrics.OutcomeStorageFailed, elapsed)
		return ex, fmt.Errorf("persist assistant message: %w", err)
	}
	ex.AssistantMessage = &assistantMsg

	s.maybeRetitle(ctx, chat, userMsg.Content)
	s.touch(ctx, chat.ID)
	s.observer.ObserveExchange(channel, metrics.OutcomeOK, elapsed)
	return ex, nil
}

// maybeRetitle deriva el titulo solo si el chat tiene exactamente 2 mensajes
// tras este intercambio. Las fallas aqui se registran y no afectan la respuesta.
func (s *ChatService) maybeRetitle(ctx context.Context, chat domain.Chat, firstMessage string) {
	count, err := s.messages.CountByChatID(ctx, chat.ID)
	if err != nil {
		s.logger.Error("count messages failed", zap.String("chat_id", chat.ID), zap.Error(err))
		return
	}
	if count != 2 {
		return
	}
	title := s.assistant.GenerateTitle(ctx, firstMessage)
	if _, err := s.chats.Rename(ctx, chat.ID, chat.UserID, title, s.now()); err != nil {
		s.logger.Error("update chat title failed", zap.String("chat_id", chat.ID), zap.Error(err))
		return
	}
	s.observer.ObserveTitle()
}

func (s *ChatService) touch(ctx context.Context, chatID string) {
	if err := s.chats.Touch(ctx, chatID, s.now()); err != nil {
		s.logger.Error("touch chat failed", zap.String("chat_id", chatID), zap.Error(err))
	}
}

func (s *ChatService) ownedChat(ctx context.Context, userID, chatID string) (domain.Chat, error) {
	chat, err := s.chats.GetByIDForUser(ctx, strings.TrimSpace(chatID), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Reason: "required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLength)}
	}
	return title, nil
}
