// handlers — REST-обработчики feed-service поверх service.Service.
// Хендлеры только разбирают запрос (путь, query, JSON) и сериализуют ответ;
// валидация и маппинг ошибок живут в service и apierrors.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
)

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc *service.Service
}

func New(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return malformedBody()
	}
	return nil
}

// decodeOptional — как decodeStrict, но пустое тело допустимо
// (обязательность полей проверяет сервис).
func decodeOptional(r *http.Request, value any) error {
	if r.Body == nil {
		return nil
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil && !errors.Is(err, io.EOF) {
		return malformedBody()
	}
	return nil
}

// malformedBody — локальная ошибка разбора тела -> ValidationError по полю body.
func malformedBody() error {
	return &service.ValidationError{Fields: []service.FieldError{{Field: "body", Reason: "malformed JSON"}}}
}
