package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
)

const userColumns = `id, username, password_hash`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		return nil, err
	}

	return &u, nil
}

// CreateUser вставляет учётную запись; занятый id/username -> storage.ErrConflict.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage/postgres/users/CreateUser"

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	q := `INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3) RETURNING ` + userColumns

	out, err := scanUser(s.db.QueryRow(ctx, q, user.ID, user.Username, user.PasswordHash))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}

func (s *Storage) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage/postgres/users/UserByID"

	out, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}

func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage/postgres/users/UserByUsername"

	out, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return out, nil
}
