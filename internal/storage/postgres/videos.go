package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

// videoColumns — колонки видео и признак лайка зрителя ($1 — viewerID).
const videoColumns = `
v.id, v.user_id, v.username, v.avatar_url, v.video_url, v.description, v.sound_name,
v.likes, v.comments, v.shares,
($1 <> '' AND EXISTS (SELECT 1 FROM video_likes l WHERE l.video_id = v.id AND l.viewer_id = $1))
`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	if err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.Username,
		&v.AvatarURL,
		&v.VideoURL,
		&v.Description,
		&v.SoundName,
		&v.Likes,
		&v.Comments,
		&v.Shares,
		&v.IsLiked,
	); err != nil {
		return nil, err
	}

	return &v, nil
}

// videoByID читает видео в рамках q (пул или транзакция).
func videoByID(ctx context.Context, q pgx.Tx, id, viewerID string) (*models.Video, error) {
	return scanVideo(q.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.id = $2`, viewerID, id))
}

// Videos возвращает ленту в порядке публикации.
func (s *Storage) Videos(ctx context.Context, viewerID string) ([]models.Video, error) {
	const op = "storage/postgres/videos/Videos"

	rows, err := s.db.Query(ctx, `SELECT `+videoColumns+` FROM videos v ORDER BY v.seq`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Storage) VideoByID(ctx context.Context, id, viewerID string) (*models.Video, error) {
	const op = "storage/postgres/videos/VideoByID"

	v, err := scanVideo(s.db.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.id = $2`, viewerID, id))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return v, nil
}

// CreateVideo вставляет видео и в той же транзакции обновляет videos_count/likes_count владельца.
func (s *Storage) CreateVideo(ctx context.Context, in storage.NewVideo) (*models.Video, error) {
	const op = "storage/postgres/videos/CreateVideo"

	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	var out *models.Video
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
		INSERT INTO videos (id, user_id, username, avatar_url, video_url, description, sound_name, likes, comments, shares)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, in.ID, in.UserID, in.Username, in.AvatarURL, in.VideoURL, in.Description, in.SoundName,
			max(in.Likes, 0), max(in.Comments, 0), max(in.Shares, 0))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
		UPDATE profiles SET videos_count = videos_count + 1, likes_count = likes_count + $2
		WHERE user_id = $1
		`, in.UserID, max(in.Likes, 0)); err != nil {
			return err
		}

		out, err = videoByID(ctx, tx, in.ID, "")
		return err
	})
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}

// LikeVideo идемпотентно ставит лайк: счётчики растут, только если ребро создано.
func (s *Storage) LikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error) {
	const op = "storage/postgres/videos/LikeVideo"

	var out *models.Video
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		owner, err := lockVideo(ctx, tx, videoID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
		INSERT INTO video_likes (video_id, viewer_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, videoID, viewerID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 1 {
			if _, err := tx.Exec(ctx, `UPDATE videos SET likes = likes + 1 WHERE id = $1`, videoID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE profiles SET likes_count = likes_count + 1 WHERE user_id = $1`, owner); err != nil {
				return err
			}
		}

		out, err = videoByID(ctx, tx, videoID, viewerID)
		return err
	})
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}

// UnlikeVideo идемпотентно снимает лайк; счётчики не уходят ниже нуля.
func (s *Storage) UnlikeVideo(ctx context.Context, videoID, viewerID string) (*models.Video, error) {
	const op = "storage/postgres/videos/UnlikeVideo"

	var out *models.Video
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		owner, err := lockVideo(ctx, tx, videoID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM video_likes WHERE video_id = $1 AND viewer_id = $2`, videoID, viewerID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 1 {
			if _, err := tx.Exec(ctx, `UPDATE videos SET likes = GREATEST(likes - 1, 0) WHERE id = $1`, videoID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE profiles SET likes_count = GREATEST(likes_count - 1, 0) WHERE user_id = $1`, owner); err != nil {
				return err
			}
		}

		out, err = videoByID(ctx, tx, videoID, viewerID)
		return err
	})
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}

// lockVideo блокирует строку видео до конца транзакции и возвращает владельца.
// Отсутствующее видео -> pgx.ErrNoRows (mapErr переводит в storage.ErrNotFound).
func lockVideo(ctx context.Context, tx pgx.Tx, videoID string) (string, error) {
	var owner string
	err := tx.QueryRow(ctx, `SELECT user_id FROM videos WHERE id = $1 FOR UPDATE`, videoID).Scan(&owner)

	return owner, err
}
