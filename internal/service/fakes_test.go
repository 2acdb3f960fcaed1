package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"euroassist/internal/domain"
	"euroassist/internal/llm"
	"euroassist/internal/repository"
)

type fakeUserRepo struct {
	byID      map[string]domain.User
	createErr error
	creates   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]domain.User)}
}

func (m *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.byID {
		if u.Email != "" && u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.creates++
	m.byID[user.ID] = user
	return nil
}

func (m *fakeUserRepo) Upsert(_ context.Context, user domain.User) (domain.User, error) {
	if existing, ok := m.byID[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
		user.PasswordHash = existing.PasswordHash
	}
	m.byID[user.ID] = user
	return user, nil
}

func (m *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

type fakeChatRepo struct {
	chats   map[string]domain.Chat
	renames []string
	touches int
}

func newFakeChatRepo(chats ...domain.Chat) *fakeChatRepo {
	m := &fakeChatRepo{chats: make(map[string]domain.Chat)}
	for _, c := range chats {
		m.chats[c.ID] = c
	}
	return m
}

func (m *fakeChatRepo) Create(_ context.Context, chat domain.Chat) error {
	m.chats[chat.ID] = chat
	return nil
}

func (m *fakeChatRepo) ListByUserID(_ context.Context, userID string) ([]domain.Chat, error) {
	var out []domain.Chat
	for _, c := range m.chats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *fakeChatRepo) GetByIDForUser(_ context.Context, chatID, userID string) (domain.Chat, error) {
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return domain.Chat{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *fakeChatRepo) Rename(_ context.Context, chatID, userID, title string, at time.Time) (domain.Chat, error) {
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return domain.Chat{}, repository.ErrNotFound
	}
	c.Title = title
	c.UpdatedAt = at
	m.chats[chatID] = c
	m.renames = append(m.renames, title)
	return c, nil
}

func (m *fakeChatRepo) Delete(_ context.Context, chatID, userID string) error {
	if c, ok := m.chats[chatID]; ok && c.UserID == userID {
		delete(m.chats, chatID)
	}
	return nil
}

func (m *fakeChatRepo) Touch(_ context.Context, chatID string, at time.Time) error {
	if c, ok := m.chats[chatID]; ok {
		c.UpdatedAt = at
		m.chats[chatID] = c
	}
	m.touches++
	return nil
}

type fakeMessageRepo struct {
	messages      []domain.Message
	failAssistant error
	countErr      error
}

func (m *fakeMessageRepo) Create(_ context.Context, message domain.Message) error {
	if message.Role == domain.RoleAssistant && m.failAssistant != nil {
		return m.failAssistant
	}
	m.messages = append(m.messages, message)
	return nil
}

func (m *fakeMessageRepo) ListByChatID(_ context.Context, chatID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *fakeMessageRepo) CountByChatID(ctx context.Context, chatID string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	list, _ := m.ListByChatID(ctx, chatID)
	return len(list), nil
}

func (m *fakeMessageRepo) byRole(chatID, role string) []domain.Message {
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.ChatID == chatID && msg.Role == role {
			out = append(out, msg)
		}
	}
	return out
}

// fakeLLM responde distinto a la llamada de titulo y a la de respuesta.
type fakeLLM struct {
	answer    string
	answerErr error
	title     string
	titleErr  error
	deltas    []string
	streamErr error

	answerCalls int
	titleCalls  int
}

var errCanceledUpstream = errors.New("upstream saw canceled context")

func (f *fakeLLM) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	if ctx.Err() != nil {
		return "", errCanceledUpstream
	}
	if prompt.System == titleSystemPrompt {
		f.titleCalls++
		return f.title, f.titleErr
	}
	f.answerCalls++
	return f.answer, f.answerErr
}

func (f *fakeLLM) Stream(ctx context.Context, _ llm.Prompt, onDelta func(string) error) error {
	if ctx.Err() != nil {
		return errCanceledUpstream
	}
	f.answerCalls++
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return f.streamErr
}

// bufferedOnlyLLM expone solo Generate para probar la degradacion a respuesta completa.
type bufferedOnlyLLM struct {
	inner *fakeLLM
}

func (b bufferedOnlyLLM) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	return b.inner.Generate(ctx, prompt)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	titles   int
}

func (r *recordingObserver) ObserveExchange(channel, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, channel+":"+outcome)
}

func (r *recordingObserver) ObserveTitle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles++
}
