// Package models содержит доменные сущности ленты коротких видео.
// Эти типы используются слоями хранилища, бизнес-логики, транспорта и клиента;
// json-теги совпадают с форматом REST API.
package models

// Video — опубликованное видео с агрегированными счётчиками.
//   - Likes/Comments/Shares — канонические счётчики (>= 0), мутирует только storage;
//   - IsLiked — состояние для конкретного зрителя (viewerId), вычисляется при чтении
//     по таблице лайков (viewerId, videoId); без зрителя всегда false.
type Video struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatarUrl"`
	VideoURL    string `json:"videoUrl"`
	Description string `json:"description"`
	SoundName   string `json:"soundName"`
	Likes       int64  `json:"likes"`
	Comments    int64  `json:"comments"`
	Shares      int64  `json:"shares"`
	IsLiked     bool   `json:"isLiked"`
}
