package models

import "time"

// Comment — комментарий к видео.
// ID и CreatedAt назначает сервер; CreatedAt не меняется после создания.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl"`
	Text      string    `json:"text"`
	Likes     int64     `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}
