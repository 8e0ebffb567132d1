package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError — нарушение ограничения одного поля входа.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError — ошибка валидации с деталями по полям.
// errors.Is(err, ErrInvalidArgument) для неё истинно.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}

	return ErrInvalidArgument.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// validate — общий экземпляр go-playground/validator; имена полей в ошибках
// берутся из json-тегов, чтобы совпадать с форматом API.
var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// violations — нарушения по полям: сначала теги validate в порядке полей
// структуры, затем доменные правила, добавленные через add.
type violations []FieldError

// check прогоняет структуру через validate. Строки должны быть уже после TrimSpace.
func check(s any) violations {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: на вход пришла не структура.
		panic(fmt.Sprintf("service: validate %T: %v", s, err))
	}

	out := make(violations, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Reason: reason(fe)})
	}

	return out
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be > " + fe.Param()
	default:
		return "failed " + fe.Tag() + " rule"
	}
}

func (v *violations) add(field, reason string) {
	*v = append(*v, FieldError{Field: field, Reason: reason})
}

// has сообщает, есть ли уже нарушение по полю.
func (v violations) has(field string) bool {
	for _, f := range v {
		if f.Field == field {
			return true
		}
	}
	return false
}

// err возвращает *ValidationError или nil, если нарушений нет.
func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}

	return &ValidationError{Fields: v}
}

// Ссылки на сущности для операций со скалярными аргументами.
type (
	videoRef struct {
		VideoID string `json:"videoId" validate:"required"`
	}
	viewerVideoRef struct {
		VideoID  string `json:"videoId" validate:"required"`
		ViewerID string `json:"viewerId" validate:"required"`
	}
	commentRef struct {
		CommentID string `json:"commentId" validate:"required"`
	}
	viewerCommentRef struct {
		CommentID string `json:"commentId" validate:"required"`
		ViewerID  string `json:"viewerId" validate:"required"`
	}
	userRef struct {
		UserID string `json:"userId" validate:"required"`
	}
	usernameRef struct {
		Username string `json:"username" validate:"required"`
	}
	followEdge struct {
		UserID     string `json:"userId" validate:"required"`
		FollowerID string `json:"followerId" validate:"required"`
	}
	followingRef struct {
		UserID       string `json:"userId" validate:"required"`
		TargetUserID string `json:"targetUserId" validate:"required"`
	}
)
