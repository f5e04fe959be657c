package repositories

import (
	"context"
	"errors"
	"time"

	"messenger/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IMemberRepository interface {
	SetBanned(ctx context.Context, memberID uuid.UUID, banned bool) error
	// Add creates a member row for a user joining a group chat.
	Add(ctx context.Context, chatID uuid.UUID, user domain.User) (domain.Member, error)
	Remove(ctx context.Context, memberID uuid.UUID) error
	// SetLastReadAt advances the group read watermark. The caller guarantees
	// it only ever moves forward.
	SetLastReadAt(ctx context.Context, memberID uuid.UUID, at time.Time) error
}

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) SetBanned(ctx context.Context, memberID uuid.UUID, banned bool) error {
	return r.db.WithContext(ctx).
		Model(&MemberRecord{}).
		Where("id = ?", memberID).
		Update("is_banned", banned).Error
}

func (r *MemberRepository) Add(ctx context.Context, chatID uuid.UUID, user domain.User) (domain.Member, error) {
	// A user rejoining after a kick revives their soft-removed row instead of
	// violating the (chat, user) unique index.
	var existing MemberRecord
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, user.ID).
		First(&existing).Error
	if err == nil {
		updates := map[string]any{"removed_at": nil, "is_banned": false}
		if err := r.db.WithContext(ctx).Model(&MemberRecord{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return domain.Member{}, err
		}
		return domain.Member{ID: existing.ID, ChatID: chatID, User: user, CreatedAt: existing.CreatedAt}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Member{}, err
	}

	record := MemberRecord{
		ID:        uuid.New(),
		ChatID:    chatID,
		UserID:    user.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return domain.Member{}, err
	}
	return domain.Member{
		ID:        record.ID,
		ChatID:    chatID,
		User:      user,
		CreatedAt: record.CreatedAt,
	}, nil
}

// Remove soft-marks the member so their sent messages stay attributable.
func (r *MemberRepository) Remove(ctx context.Context, memberID uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&MemberRecord{}).
		Where("id = ?", memberID).
		Update("removed_at", now).Error
}

func (r *MemberRepository) SetLastReadAt(ctx context.Context, memberID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&MemberRecord{}).
		Where("id = ?", memberID).
		Update("last_read_at", at).Error
}
