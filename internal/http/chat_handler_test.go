package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"euroassist/internal/domain"
	"euroassist/internal/service"
)

type chatDetailBody struct {
	Chat     domain.Chat      `json:"chat"`
	Messages []domain.Message `json:"messages"`
}

func createChat(t *testing.T, s *testServer, cookie *http.Cookie, title string) domain.Chat {
	t.Helper()
	w := s.do(http.MethodPost, "/api/chats", `{"title":"`+title+`"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("create chat: %d %s", w.Code, w.Body.String())
	}
	var chat domain.Chat
	if err := json.Unmarshal(w.Body.Bytes(), &chat); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	return chat
}

func getChat(t *testing.T, s *testServer, cookie *http.Cookie, id string) chatDetailBody {
	t.Helper()
	w := s.do(http.MethodGet, "/api/chats/"+id, "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("get chat: %d %s", w.Code, w.Body.String())
	}
	var detail chatDetailBody
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	return detail
}

func TestChatHandler_RoundTrip(t *testing.T) {
	s := newTestServer(t, &scriptedLLM{answer: "Oxford fees are about £30k.", title: "Oxford Fees"})
	cookie := s.register(t, "ana@example.com")
	chat := createChat(t, s, cookie, "New Chat")

	w := s.do(http.MethodPost, "/api/chats/"+chat.ID+"/messages", `{"content":"What are Oxford's fees?"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("post message: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		UserMessage      domain.Message  `json:"userMessage"`
		AssistantMessage *domain.Message `json:"assistantMessage"`
		Error            string          `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AssistantMessage == nil || resp.Error != "" {
		t.Fatalf("expected assistant message, got %s", w.Body.String())
	}

	detail := getChat(t, s, cookie, chat.ID)
	if len(detail.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(detail.Messages))
	}
	if detail.Messages[0].Role != "user" || detail.Messages[0].Content != "What are Oxford's fees?" {
		t.Fatalf("unexpected first message %+v", detail.Messages[0])
	}
	if detail.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected second message %+v", detail.Messages[1])
	}
	if detail.Chat.Title != "Oxford Fees" {
		t.Fatalf("expected generated title, got %q", detail.Chat.Title)
	}
}

func TestChatHandler_GenerationFailureIsPartialSuccess(t *testing.T) {
	s := newTestServer(t, &scriptedLLM{err: errors.New("provider down")})
	cookie := s.register(t, "ana@example.com")
	chat := createChat(t, s, cookie, "New Chat")

	w := s.do(http.MethodPost, "/api/chats/"+chat.ID+"/messages", `{"content":"Hello?"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 partial success, got %d", w.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := resp["assistantMessage"]; ok {
		t.Fatalf("assistantMessage must be absent: %s", w.Body.String())
	}
	if string(resp["error"]) != `"`+service.GenerationFailedMessage+`"` {
		t.Fatalf("unexpected error field %s", resp["error"])
	}

	detail := getChat(t, s, cookie, chat.ID)
	if len(detail.Messages) != 1 || detail.Messages[0].Role != "user" {
		t.Fatalf("expected only the user message, got %+v", detail.Messages)
	}
	if detail.Chat.Title != "New Chat" {
		t.Fatalf("title must not change, got %q", detail.Chat.Title)
	}
}

func TestChatHandler_Validation(t *testing.T) {
	s := newTestServer(t, &scriptedLLM{answer: "x"})
	cookie := s.register(t, "ana@example.com")
	chat := createChat(t, s, cookie, "New Chat")

	for _, body := range []string{`{"content":""}`, `{"content":"   "}`, `{}`, `not json`} {
		w := s.do(http.MethodPost, "/api/chats/"+chat.ID+"/messages", body, cookie)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"errors"`) {
			t.Fatalf("body %s: expected errors field, got %s", body, w.Body.String())
		}
	}
	if len(s.messages.msgs) != 0 {
		t.Fatalf("validation failures must not persist messages")
	}
}

func TestChatHandler_OwnershipIsolation(t *testing.T) {
	s := newTestServer(t, &scriptedLLM{answer: "x"})
	alice := s.register(t, "alice@example.com")
	bob := s.register(t, "bob@example.com")
	chat := createChat(t, s, alice, "Alice chat")
	createChat(t, s, bob, "Bob chat")

	w := s.do(http.MethodGet, "/api/chats", "", alice)
	var list []domain.Chat
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != chat.ID {
		t.Fatalf("alice must only see her chat, got %+v", list)
	}

	if w := s.do(http.MethodGet, "/api/chats/"+chat.ID, "", bob); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-owner, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/chats/"+chat.ID+"/messages", `{"content":"hi"}`, bob); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 posting to foreign chat, got %d", w.Code)
	}
	if w := s.do(http.MethodDelete, "/api/chats/"+chat.ID, "", bob); w.Code != http.StatusOK {
		t.Fatalf("non-owner delete must look like success, got %d", w.Code)
	}
	getChat(t, s, alice, chat.ID)

	if w := s.do(http.MethodDelete, "/api/chats/"+chat.ID, "", alice); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/chats/"+chat.ID, "", alice); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestChatHandler_RenameChat(t *testing.T) {
	s := newTestServer(t, &scriptedLLM{})
	cookie := s.register(t, "ana@example.com")
	chat := createChat(t, s, cookie, "New Chat")

	w := s.do(http.MethodPatch, "/api/chats/"+chat.ID, `{"title":"Erasmus"}`, cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Erasmus") {
		t.Fatalf("rename: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodPatch, "/api/chats/missing", `{"title":"x"}`, cookie); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestChatHandler_StreamingSuccess(t *testing.T) {
	s := newTestServer(t, &scriptedLLM{deltas: []string{"Hel", "lo"}, title: "Greeting"})
	cookie := s.register(t, "ana@example.com")
	chat := createChat(t, s, cookie, "New Chat")

	w := s.do(http.MethodPost, "/api/chats/"+chat.ID+"/messages", `{"content":"hi"}`, cookie, "Accept", "text/event-stream")
	if w.Code != http.StatusOK {
		t.Fatalf("stream: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}
	events := sseEvents(t, w.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %s", len(events), w.Body.String())
	}
	if events[0]["text"] != "Hel" || events[1]["text"] != "lo" || events[2]["done"] != true {
		t.Fatalf("unexpected events %+v", events)
	}

	detail := getChat(t, s, cookie, chat.ID)
	if len(detail.Messages) != 2 || detail.Messages[1].Content != "Hello" {
		t.Fatalf("expected concatenated assistant message, got %+v", detail.Messages)
	}
}

func TestChatHandler_StreamingFailureEmitsError(t *testing.T) {
	s := newTestServer(t, &scriptedLLM{deltas: []string{"par"}, streamErr: errors.New("reset")})
	cookie := s.register(t, "ana@example.com")
	chat := createChat(t, s, cookie, "New Chat")

	w := s.do(http.MethodGet, "/api/chats/"+chat.ID+"/messages/stream?q=hi", "", cookie)
	events := sseEvents(t, w.Body.String())
	if len(events) != 2 || events[0]["text"] != "par" || events[1]["error"] != service.GenerationFailedMessage {
		t.Fatalf("unexpected events %+v", events)
	}
	detail := getChat(t, s, cookie, chat.ID)
	if len(detail.Messages) != 1 {
		t.Fatalf("expected only the user message, got %+v", detail.Messages)
	}
}

func TestChatHandler_StreamingRequestErrorsAreJSON(t *testing.T) {
	s := newTestServer(t, &scriptedLLM{deltas: []string{"x"}})
	cookie := s.register(t, "ana@example.com")

	w := s.do(http.MethodPost, "/api/chats/missing/messages?stream=true", `{"content":"hi"}`, cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before stream starts, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Chat not found") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	chat := createChat(t, s, cookie, "New Chat")
	if w := s.do(http.MethodGet, "/api/chats/"+chat.ID+"/messages/stream", "", cookie); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", w.Code)
	}
}

func sseEvents(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if !strings.HasPrefix(frame, "data: ") {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev); err != nil {
			t.Fatalf("decode event %q: %v", frame, err)
		}
		out = append(out, ev)
	}
	return out
}
