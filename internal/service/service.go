// service содержит бизнес-логику ленты коротких видео:
//   - валидация входов на границе (с деталями по полям);
//   - оркестрация операций хранилища (видео, комментарии, подписки, профили, пользователи);
//   - read-through кэш профилей и работа с аватарами (оба опциональны);
//   - маппинг ошибок storage -> service.
//
// Сервис не хранит состояние между вызовами: всё состояние живёт в storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-shortvideo-feed/internal/cache"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

var (
	// ErrInvalidArgument — некорректные входные данные; всегда приходит внутри *ValidationError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — сущность не найдена.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference — ссылка на несуществующую сущность (например, видео комментария).
	ErrInvalidReference = errors.New("invalid reference")
	// ErrConflict — конфликт уникальности/дубликат (повторная подписка, занятый username).
	ErrConflict = errors.New("conflict")
	// ErrTimeout — истёк дедлайн запроса.
	ErrTimeout = errors.New("timeout")
	// ErrCanceled — клиент отменил запрос.
	ErrCanceled = errors.New("canceled")
	// ErrUnavailable — опциональная подсистема не сконфигурирована (например, S3).
	ErrUnavailable = errors.New("unavailable")
	// ErrInternal — внутренняя ошибка (стораж/БД/кэш и т.д.).
	ErrInternal = errors.New("internal")
)

// Recorder — приёмник метрик взаимодействий (лайки, комментарии, подписки).
type Recorder interface {
	Interaction(kind, outcome string)
}

// Service — описывает бизнес-логику feed-service.
type Service struct {
	storage  storage.Storage
	avatars  storage.Avatars    // может быть nil, если S3 не сконфигурирован
	profiles cache.ProfileCache // может быть nil, если кэш не сконфигурирован
	recorder Recorder           // может быть nil
}

// New создает новый экземпляр Service.
func New(storage storage.Storage) *Service {
	return &Service{storage: storage}
}

// SetAvatars устанавливает хранилище аватаров (опционально).
func (s *Service) SetAvatars(a storage.Avatars) {
	s.avatars = a
}

// SetProfileCache устанавливает кэш профилей (опционально).
func (s *Service) SetProfileCache(c cache.ProfileCache) {
	s.profiles = c
}

// SetRecorder устанавливает приёмник метрик (опционально).
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// record фиксирует исход взаимодействия в метриках.
func (s *Service) record(kind string, err error) {
	if s.recorder == nil {
		return
	}

	s.recorder.Interaction(kind, Outcome(err))
}

// Outcome — короткая метка исхода операции для метрик.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidReference):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrCanceled):
		return "timeout"
	default:
		return "error"
	}
}

// internalError маппит «прочие» ошибки стораджа: истёкший дедлайн -> ErrTimeout,
// отмена клиентом -> ErrCanceled, всё остальное -> ErrInternal (с логом уровня Error).
func internalError(lg *slog.Logger, op, method string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		lg.Warn("deadline exceeded on "+method, "err", err)
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	case errors.Is(err, context.Canceled):
		lg.Warn("request canceled on "+method)
		return fmt.Errorf("%s: %w", op, ErrCanceled)
	default:
		lg.Error("storage error on "+method, "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}
}

// invalidateProfiles сбрасывает профили в кэше; ошибки кэша только логируются.
func (s *Service) invalidateProfiles(ctx context.Context, lg *slog.Logger, userIDs ...string) {
	if s.profiles == nil || len(userIDs) == 0 {
		return
	}

	if err := s.profiles.Invalidate(ctx, userIDs...); err != nil {
		lg.Warn("profile cache invalidate failed", "err", err)
	}
}
