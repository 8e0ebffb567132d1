package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage"
)

const commentColumns = `id, video_id, user_id, username, avatar_url, text, likes, created_at`

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(
		&c.ID,
		&c.VideoID,
		&c.UserID,
		&c.Username,
		&c.AvatarURL,
		&c.Text,
		&c.Likes,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}

	c.CreatedAt = c.CreatedAt.UTC()

	return &c, nil
}

// CreateComment увеличивает comments у видео и вставляет комментарий в одной транзакции.
// Отсутствующее видео -> storage.ErrInvalidReference, комментарий не создаётся.
func (s *Storage) CreateComment(ctx context.Context, in storage.NewComment) (*models.Comment, error) {
	const op = "storage/postgres/comments/CreateComment"

	var out *models.Comment
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE videos SET comments = comments + 1 WHERE id = $1`, in.VideoID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return storage.ErrInvalidReference
		}

		out, err = scanComment(tx.QueryRow(ctx, `
		INSERT INTO comments (id, video_id, user_id, username, avatar_url, text)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+commentColumns,
			uuid.NewString(), in.VideoID, in.UserID, in.Username, in.AvatarURL, in.Text))
		return err
	})
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}

// LikeComment — «сырой» инкремент likes.
func (s *Storage) LikeComment(ctx context.Context, commentID string) (*models.Comment, error) {
	const op = "storage/postgres/comments/LikeComment"

	out, err := scanComment(s.db.QueryRow(ctx,
		`UPDATE comments SET likes = likes + 1 WHERE id = $1 RETURNING `+commentColumns, commentID))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}

// LikeCommentAs — идемпотентный лайк через comment_likes.
func (s *Storage) LikeCommentAs(ctx context.Context, commentID, viewerID string) (*models.Comment, error) {
	const op = "storage/postgres/comments/LikeCommentAs"

	var out *models.Comment
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockComment(ctx, tx, commentID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
		INSERT INTO comment_likes (comment_id, viewer_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, commentID, viewerID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 1 {
			out, err = scanComment(tx.QueryRow(ctx,
				`UPDATE comments SET likes = likes + 1 WHERE id = $1 RETURNING `+commentColumns, commentID))
			return err
		}

		out, err = scanComment(tx.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, commentID))
		return err
	})
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}

// UnlikeCommentAs снимает лайк зрителя; без лайка -> storage.ErrNotFound.
func (s *Storage) UnlikeCommentAs(ctx context.Context, commentID, viewerID string) (*models.Comment, error) {
	const op = "storage/postgres/comments/UnlikeCommentAs"

	var out *models.Comment
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockComment(ctx, tx, commentID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM comment_likes WHERE comment_id = $1 AND viewer_id = $2`, commentID, viewerID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}

		out, err = scanComment(tx.QueryRow(ctx,
			`UPDATE comments SET likes = GREATEST(likes - 1, 0) WHERE id = $1 RETURNING `+commentColumns, commentID))
		return err
	})
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}

// CommentsByVideoID — комментарии видео, сначала новые.
func (s *Storage) CommentsByVideoID(ctx context.Context, videoID string) ([]models.Comment, error) {
	const op = "storage/postgres/comments/CommentsByVideoID"

	rows, err := s.db.Query(ctx, `
	SELECT `+commentColumns+` FROM comments
	WHERE video_id = $1
	ORDER BY created_at DESC, seq DESC
	`, videoID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// lockComment блокирует строку комментария до конца транзакции.
func lockComment(ctx context.Context, tx pgx.Tx, commentID string) error {
	var id string
	return tx.QueryRow(ctx, `SELECT id FROM comments WHERE id = $1 FOR UPDATE`, commentID).Scan(&id)
}
