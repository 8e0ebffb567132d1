package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFoundAvatar — объект (ключ) отсутствует в бакете.
	ErrNotFoundAvatar = errors.New("avatar not found")
	// ErrInvalidAvatar — нарушены ограничения загрузки (тип/размер/префикс ключа).
	ErrInvalidAvatar = errors.New("invalid avatar")
)

// UploadInfo — информация для клиента о presigned PUT загрузке.
//   - UploadURL: конечная URL для PUT-запроса;
//   - AvatarKey: ключ будущего объекта в бакете;
//   - Expires: время жизни подписи;
//   - RequiredHeader: заголовки, которые клиент обязан передать при PUT.
type UploadInfo struct {
	UploadURL      string
	AvatarKey      string
	Expires        time.Duration
	RequiredHeader map[string]string
}

// Avatars — контракт выдачи presigned URL и подтверждения факта загрузки аватара.
type Avatars interface {
	// AvatarUploadURL генерирует presigned PUT; проверяет contentType и contentLength.
	AvatarUploadURL(ctx context.Context, userID, contentType string, contentLength int64) (*UploadInfo, error)
	// CheckAvatarUpload проверяет наличие объекта и ограничения, возвращает публичный URL.
	CheckAvatarUpload(ctx context.Context, userID, key string) (publicURL string, err error)
}
