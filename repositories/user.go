package repositories

import (
	"context"
	"errors"

	"messenger/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IUserRepository interface {
	// ByID returns (nil, nil) when the user does not exist.
	ByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var record UserRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user := toDomainUser(record)
	return &user, nil
}
