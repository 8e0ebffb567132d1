package models

// UserProfile — публичный профиль пользователя.
// FollowersCount/FollowingCount поддерживаются storage вместе с рёбрами Follow
// (в той же транзакции/критической секции) и не меняются через UpdateUserProfile.
type UserProfile struct {
	UserID         string  `json:"userId"`
	Username       string  `json:"username"`
	AvatarURL      string  `json:"avatarUrl"`
	Bio            *string `json:"bio"`
	FollowersCount int64   `json:"followersCount"`
	FollowingCount int64   `json:"followingCount"`
	LikesCount     int64   `json:"likesCount"`
	VideosCount    int64   `json:"videosCount"`
}

// ProfileUpdate — частичное обновление описательных полей профиля.
// nil означает «не менять».
type ProfileUpdate struct {
	Username  *string
	AvatarURL *string
	Bio       *string
}

// Empty сообщает, что обновление ничего не меняет.
func (u ProfileUpdate) Empty() bool {
	return u.Username == nil && u.AvatarURL == nil && u.Bio == nil
}

// Apply накладывает обновление на профиль.
func (u ProfileUpdate) Apply(p *UserProfile) {
	if u.Username != nil {
		p.Username = *u.Username
	}

	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}

	if u.Bio != nil {
		bio := *u.Bio
		p.Bio = &bio
	}
}
