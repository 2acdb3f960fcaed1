package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"euroassist/internal/service"
)

// ChatHandler expone chats y el intercambio de mensajes.
type ChatHandler struct {
	logger *zap.Logger
	chats  *service.ChatService
}

func NewChatHandler(logger *zap.Logger, chats *service.ChatService) *ChatHandler {
	return &ChatHandler{logger: logger, chats: chats}
}

// ListChats maneja GET /api/chats.
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.chats.ListChats(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeServiceError(c, h.logger, err, "Failed to fetch chats")
		return
	}
	c.JSON(http.StatusOK, chats)
}

// CreateChat maneja POST /api/chats.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"max=200"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
	}
	chat, err := h.chats.CreateChat(c.Request.Context(), currentUserID(c), req.Title)
	if err != nil {
		writeServiceError(c, h.logger, err, "Failed to create chat")
		return
	}
	c.JSON(http.StatusOK, chat)
}

// GetChat maneja GET /api/chats/:chatId.
func (h *ChatHandler) GetChat(c *gin.Context) {
	detail, err := h.chats.GetChat(c.Request.Context(), currentUserID(c), c.Param("chatId"))
	if err != nil {
		writeServiceError(c, h.logger, err, "Failed to fetch chat")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// RenameChat maneja PATCH /api/chats/:chatId.
func (h *ChatHandler) RenameChat(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required,max=200"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	chat, err := h.chats.RenameChat(c.Request.Context(), currentUserID(c), c.Param("chatId"), req.Title)
	if err != nil {
		writeServiceError(c, h.logger, err, "Failed to rename chat")
		return
	}
	c.JSON(http.StatusOK, chat)
}

// DeleteChat maneja DELETE /api/chats/:chatId. No informa si el chat era ajeno.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	if err := h.chats.DeleteChat(c.Request.Context(), currentUserID(c), c.Param("chatId")); err != nil {
		writeServiceError(c, h.logger, err, "Failed to delete chat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat deleted successfully"})
}

// PostMessage maneja POST /api/chats/:chatId/messages en modo completo o SSE.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required,max=8000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if wantsStream(c) {
		h.stream(c, req.Content)
		return
	}

	ex, err := h.chats.SendMessage(c.Request.Context(), currentUserID(c), c.Param("chatId"), req.Content)
	if err != nil {
		writeServiceError(c, h.logger, err, "Failed to create message")
		return
	}
	if ex.Partial() {
		c.JSON(http.StatusOK, gin.H{
			"userMessage": ex.UserMessage,
			"error":       ex.Error.Message(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userMessage":      ex.UserMessage,
		"assistantMessage": ex.AssistantMessage,
	})
}

// StreamMessage maneja GET /api/chats/:chatId/messages/stream?q=.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid request",
			"errors":  []fieldError{{Field: "q", Message: "is required"}},
		})
		return
	}
	h.stream(c, q)
}

func (h *ChatHandler) stream(c *gin.Context, content string) {
	sse := &sseWriter{c: c}
	ex, err := h.chats.StreamMessage(c.Request.Context(), currentUserID(c), c.Param("chatId"), content, func(delta string) error {
		return sse.send(gin.H{"text": delta})
	})
	if err != nil {
		if !sse.started {
			writeServiceError(c, h.logger, err, "Failed to create message")
			return
		}
		h.logger.Error("stream exchange failed", zap.String("chat_id", c.Param("chatId")), zap.Error(err))
		_ = sse.send(gin.H{"error": "Failed to stream AI response"})
		return
	}
	if ex.Partial() {
		_ = sse.send(gin.H{"error": ex.Error.Message()})
		return
	}
	_ = sse.send(gin.H{
		"done":             true,
		"userMessage":      ex.UserMessage,
		"assistantMessage": ex.AssistantMessage,
	})
}
