package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation — сервер отклонил вход (400).
	ErrValidation = errors.New("validation error")
	// ErrNotFound — сущность не найдена (404).
	ErrNotFound = errors.New("not found")
	// ErrConflict — дубликат, например повторная подписка (400/already_exists).
	ErrConflict = errors.New("conflict")
	// ErrTimeout — истёк дедлайн запроса (клиентский или 504 сервера).
	ErrTimeout = errors.New("timeout")
	// ErrInternal — прочие ответы сервера с ошибкой.
	ErrInternal = errors.New("internal")
)

// CodeAlreadyExists — код конверта ошибки для дубликата.
const CodeAlreadyExists = "already_exists"

// FieldError — нарушение ограничения одного поля.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// APIError — ошибка, декодированная из конверта {"error":{...}} ответа сервера.
type APIError struct {
	Status    int          `json:"-"`
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	RequestID string       `json:"request_id,omitempty"`
	Details   []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api error %d %s: %s (request_id=%s)", e.Status, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Is сопоставляет статус и код ответа с сентинелами пакета для errors.Is.
// Дубль приходит как 400, поэтому ErrConflict определяется по коду.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Status == http.StatusBadRequest && e.Code != CodeAlreadyExists
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Code == CodeAlreadyExists
	case ErrTimeout:
		return e.Status == http.StatusGatewayTimeout
	case ErrInternal:
		return e.Status >= http.StatusInternalServerError && e.Status != http.StatusGatewayTimeout
	}
	return false
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}
