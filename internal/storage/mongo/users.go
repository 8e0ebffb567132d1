package mongo

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
)

// CreateUser вставляет учётную запись; занятый id/username -> storage.ErrConflict.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage/mongo/CreateUser"

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	d := userDoc{ID: user.ID, Username: user.Username, PasswordHash: user.PasswordHash}
	if _, err := s.users.InsertOne(ctx, d); err != nil {
		return nil, mapErr(op, err)
	}

	return d.model(), nil
}

func (s *Storage) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "storage/mongo/UserByID", bson.D{{Key: "_id", Value: id}})
}

func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "storage/mongo/UserByUsername", bson.D{{Key: "username", Value: username}})
}

func (s *Storage) findUser(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var d userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, mapErr(op, err)
	}

	return d.model(), nil
}
