package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"euroassist/internal/domain"
	"euroassist/internal/llm"
	"euroassist/internal/repository"
	"euroassist/internal/service"
)

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]domain.User
}

func (m *memUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memUserRepo) Upsert(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

type memChatRepo struct {
	mu    sync.Mutex
	chats map[string]domain.Chat
	msgs  *memMessageRepo
}

func (m *memChatRepo) Create(_ context.Context, chat domain.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chat.ID] = chat
	return nil
}

func (m *memChatRepo) ListByUserID(_ context.Context, userID string) ([]domain.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chat
	for _, c := range m.chats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memChatRepo) GetByIDForUser(_ context.Context, chatID, userID string) (domain.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return domain.Chat{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *memChatRepo) Rename(_ context.Context, chatID, userID, title string, at time.Time) (domain.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return domain.Chat{}, repository.ErrNotFound
	}
	c.Title = title
	c.UpdatedAt = at
	m.chats[chatID] = c
	return c, nil
}

func (m *memChatRepo) Delete(_ context.Context, chatID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.chats[chatID]; ok && c.UserID == userID {
		delete(m.chats, chatID)
		m.msgs.deleteChat(chatID)
	}
	return nil
}

func (m *memChatRepo) Touch(_ context.Context, chatID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.chats[chatID]; ok {
		c.UpdatedAt = at
		m.chats[chatID] = c
	}
	return nil
}

type memMessageRepo struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (m *memMessageRepo) Create(_ context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memMessageRepo) ListByChatID(_ context.Context, chatID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for _, msg := range m.msgs {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessageRepo) CountByChatID(ctx context.Context, chatID string) (int, error) {
	list, _ := m.ListByChatID(ctx, chatID)
	return len(list), nil
}

func (m *memMessageRepo) deleteChat(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.msgs[:0]
	for _, msg := range m.msgs {
		if msg.ChatID != chatID {
			kept = append(kept, msg)
		}
	}
	m.msgs = kept
}

// scriptedLLM separa la respuesta de titulo de la respuesta principal.
type scriptedLLM struct {
	answer    string
	err       error
	deltas    []string
	streamErr error
	title     string
}

func (s *scriptedLLM) Generate(_ context.Context, p llm.Prompt) (string, error) {
	if strings.Contains(p.System, "title") {
		return s.title, nil
	}
	return s.answer, s.err
}

func (s *scriptedLLM) Stream(_ context.Context, _ llm.Prompt, onDelta func(string) error) error {
	for _, d := range s.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return s.streamErr
}

type testServer struct {
	router   *gin.Engine
	users    *memUserRepo
	chats    *memChatRepo
	messages *memMessageRepo
}

const testCookieName = "euroassist.sid"

func newTestServer(t *testing.T, client llm.Client) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	users := &memUserRepo{byID: make(map[string]domain.User)}
	messages := &memMessageRepo{}
	chats := &memChatRepo{chats: make(map[string]domain.Chat), msgs: messages}

	userSvc := service.NewUserService(logger, users)
	sessionSvc := service.NewSessionService("test-secret", time.Hour, service.NewMemorySessionStore())
	assistant := service.NewAssistantService(logger, client, time.Second)
	chatSvc := service.NewChatService(logger, chats, messages, assistant, nil)
	cookie := CookieConfig{Name: testCookieName}

	router := NewRouter(logger, RouterDeps{
		Sessions:    sessionSvc,
		Cookie:      cookie,
		CORSOrigins: []string{"http://localhost:5173"},
		Auth:        NewAuthHandler(logger, userSvc, sessionSvc, nil, cookie),
		Chats:       NewChatHandler(logger, chatSvc),
		Health:      NewHealthHandler(nil, nil),
	})
	return &testServer{router: router, users: users, chats: chats, messages: messages}
}

func (s *testServer) do(method, path, body string, cookie *http.Cookie, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookieName && c.Value != "" {
			return c
		}
	}
	return nil
}

// register crea un usuario y devuelve su cookie de sesion.
func (s *testServer) register(t *testing.T, email string) *http.Cookie {
	t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", `{"email":"`+email+`","password":"secret1","firstName":"Test"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register %s: status %d body %s", email, w.Code, w.Body.String())
	}
	c := sessionCookie(w)
	if c == nil {
		t.Fatalf("register %s: missing session cookie", email)
	}
	return c
}
