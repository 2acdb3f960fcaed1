package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message es un turno inmutable dentro de un chat.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidRole indica si role pertenece al conjunto cerrado user|assistant.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
