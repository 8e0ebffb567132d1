package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
)

// profileColumns — единый список колонок таблицы profiles,
// используемый в SELECT/RETURNING, чтобы гарантировать одинаковый порядок сканирования.
const profileColumns = `
user_id, username, avatar_url, bio, followers_count, following_count, likes_count, videos_count
`

func scanProfile(row pgx.Row) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := row.Scan(
		&p.UserID,
		&p.Username,
		&p.AvatarURL,
		&p.Bio,
		&p.FollowersCount,
		&p.FollowingCount,
		&p.LikesCount,
		&p.VideosCount,
	); err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *Storage) UserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	const op = "storage/postgres/profiles/UserProfile"

	p, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return p, nil
}

// CreateUserProfile вставляет профиль; счётчики вычисляются по рёбрам подписок
// и видео владельца, значения из входа игнорируются.
// Ошибки: storage.ErrConflict, если профиль уже есть.
func (s *Storage) CreateUserProfile(ctx context.Context, in models.UserProfile) (*models.UserProfile, error) {
	const op = "storage/postgres/profiles/CreateUserProfile"

	q := `
	INSERT INTO profiles (user_id, username, avatar_url, bio, followers_count, following_count, videos_count, likes_count)
	VALUES ($1, $2, $3, $4,
		(SELECT count(*) FROM follows WHERE following_id = $1),
		(SELECT count(*) FROM follows WHERE follower_id = $1),
		(SELECT count(*) FROM videos WHERE user_id = $1),
		(SELECT COALESCE(sum(likes), 0)::BIGINT FROM videos WHERE user_id = $1))
	RETURNING ` + profileColumns

	p, err := scanProfile(s.db.QueryRow(ctx, q, in.UserID, in.Username, in.AvatarURL, in.Bio))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return p, nil
}

// UpdateUserProfile выполняет частичный апдейт: обновляет только поля,
// указанные непустыми pointer-полями, и всегда сдвигает updated_at = now().
// Ошибки: storage.ErrNotFound при отсутствии записи.
func (s *Storage) UpdateUserProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error) {
	const op = "storage/postgres/profiles/UpdateUserProfile"

	sets := []string{"updated_at = now()"}
	args := make([]any, 0, 4)
	count := 0

	if update.Username != nil {
		count++
		sets = append(sets, fmt.Sprintf("username = $%d", count))
		args = append(args, *update.Username)
	}

	if update.AvatarURL != nil {
		count++
		sets = append(sets, fmt.Sprintf("avatar_url = $%d", count))
		args = append(args, *update.AvatarURL)
	}

	if update.Bio != nil {
		count++
		sets = append(sets, fmt.Sprintf("bio = $%d", count))
		args = append(args, *update.Bio)
	}

	count++
	args = append(args, userID)

	q := fmt.Sprintf(`UPDATE profiles SET %s WHERE user_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), count, profileColumns)

	p, err := scanProfile(s.db.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return p, nil
}
