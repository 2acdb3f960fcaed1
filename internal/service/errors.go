package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrChatNotFound       = errors.New("chat not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("user already exists")
	ErrUnauthorized       = errors.New("unauthorized")
)

// GenerationFailedMessage es el texto que ve el usuario cuando el LLM falla.
const GenerationFailedMessage = "failed to generate a response, try again later"

// GenerationError envuelve una falla del proveedor LLM. Message es seguro para el cliente;
// Cause queda solo para logs.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	if e.Cause == nil {
		return "generation failed"
	}
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// Message devuelve el texto apto para mostrar al usuario.
func (e *GenerationError) Message() string { return GenerationFailedMessage }

// ValidationError describe campos invalidos; cumple errors.Is(err, ErrInvalidInput).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }
