package repositories

import (
	"context"
	"errors"

	"messenger/domain"
	"messenger/domain/attachments"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// IFileRepository consumes the upload service's lookup-by-id contract.
// Both lookups filter silently: files not owned by the user or outside the
// category are simply absent from the result, never an error.
type IFileRepository interface {
	OwnedByIDs(ctx context.Context, ids []uuid.UUID, ownerID uuid.UUID, category attachments.Category) ([]domain.File, error)
	OwnedByID(ctx context.Context, id, ownerID uuid.UUID, category attachments.Category) (*domain.File, error)
}

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) OwnedByIDs(ctx context.Context, ids []uuid.UUID, ownerID uuid.UUID, category attachments.Category) ([]domain.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []FileRecord
	err := r.db.WithContext(ctx).
		Where("id IN ? AND user_id = ?", ids, ownerID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	matching := lo.Filter(records, func(f FileRecord, _ int) bool {
		return category.Allows(f.Extension)
	})
	return lo.Map(matching, func(f FileRecord, _ int) domain.File { return toDomainFile(f) }), nil
}

func (r *FileRepository) OwnedByID(ctx context.Context, id, ownerID uuid.UUID, category attachments.Category) (*domain.File, error) {
	var record FileRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !category.Allows(record.Extension) {
		return nil, nil
	}
	file := toDomainFile(record)
	return &file, nil
}
