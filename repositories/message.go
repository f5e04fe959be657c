package repositories

import (
	"context"
	"errors"
	"time"

	"messenger/domain"
	"messenger/domain/attachments"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type IMessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	// ListByChat pages newest-first: skip is an offset into the chat's
	// messages ordered by descending createdAt.
	ListByChat(ctx context.Context, chatID uuid.UUID, skip int) ([]domain.Message, error)
	// ByIDInChat resolves a message only when it belongs to the chat;
	// (nil, nil) otherwise.
	ByIDInChat(ctx context.Context, chatID, messageID uuid.UUID) (*domain.Message, error)
	// UnreadTarget resolves a message eligible for a read receipt: unread and
	// not authored by the reader's member row. (nil, nil) when no such row.
	UnreadTarget(ctx context.Context, chatID, messageID, readerMemberID uuid.UUID) (*domain.Message, error)
	MarkRead(ctx context.Context, messageID uuid.UUID) error
	// MarkReadBefore is the cascade: flips every unread message of the chat
	// not authored by the reader with createdAt strictly before the cutoff.
	MarkReadBefore(ctx context.Context, chatID, readerMemberID uuid.UUID, before time.Time) error
	// CountUnread is a single COUNT aggregate per chat.
	CountUnread(ctx context.Context, chatID, viewerMemberID uuid.UUID) (int64, error)
	// CountUnreadSince counts messages newer than the member's read
	// watermark; a nil watermark counts everything from others.
	CountUnreadSince(ctx context.Context, chatID, viewerMemberID uuid.UUID, since *time.Time) (int64, error)
	LastMessage(ctx context.Context, chatID uuid.UUID) (*domain.Message, error)
	ListWithAttachments(ctx context.Context, chatID uuid.UUID, category attachments.Category, skip int) ([]domain.Message, error)
}

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message domain.Message) error {
	record, err := toMessageRecord(message)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *MessageRepository) ListByChat(ctx context.Context, chatID uuid.UUID, skip int) ([]domain.Message, error) {
	var records []MessageRecord
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Offset(skip).Limit(QueryLimit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, records)
}

func (r *MessageRepository) ByIDInChat(ctx context.Context, chatID, messageID uuid.UUID) (*domain.Message, error) {
	return r.firstMessage(ctx, r.db.WithContext(ctx).
		Where("id = ? AND chat_id = ?", messageID, chatID))
}

func (r *MessageRepository) UnreadTarget(ctx context.Context, chatID, messageID, readerMemberID uuid.UUID) (*domain.Message, error) {
	return r.firstMessage(ctx, r.db.WithContext(ctx).
		Where("id = ? AND chat_id = ? AND is_read = ? AND sender_id <> ?",
			messageID, chatID, false, readerMemberID))
}

func (r *MessageRepository) MarkRead(ctx context.Context, messageID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&MessageRecord{}).
		Where("id = ?", messageID).
		Update("is_read", true).Error
}

func (r *MessageRepository) MarkReadBefore(ctx context.Context, chatID, readerMemberID uuid.UUID, before time.Time) error {
	return r.db.WithContext(ctx).
		Model(&MessageRecord{}).
		Where("chat_id = ? AND is_read = ? AND sender_id <> ? AND created_at < ?",
			chatID, false, readerMemberID, before).
		Update("is_read", true).Error
}

func (r *MessageRepository) CountUnread(ctx context.Context, chatID, viewerMemberID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&MessageRecord{}).
		Where("chat_id = ? AND is_read = ? AND sender_id <> ?", chatID, false, viewerMemberID).
		Count(&count).Error
	return count, err
}

func (r *MessageRepository) CountUnreadSince(ctx context.Context, chatID, viewerMemberID uuid.UUID, since *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&MessageRecord{}).
		Where("chat_id = ? AND sender_id <> ?", chatID, viewerMemberID)
	if since != nil {
		query = query.Where("created_at > ?", *since)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *MessageRepository) LastMessage(ctx context.Context, chatID uuid.UUID) (*domain.Message, error) {
	return r.firstMessage(ctx, r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC"))
}

func (r *MessageRepository) ListWithAttachments(ctx context.Context, chatID uuid.UUID, category attachments.Category, skip int) ([]domain.Message, error) {
	var records []MessageRecord
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Where(attachmentColumn(category)+" IS NOT NULL").
		Order("created_at DESC").
		Offset(skip).Limit(QueryLimit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, records)
}

func attachmentColumn(category attachments.Category) string {
	switch category {
	case attachments.Images:
		return "images"
	case attachments.Audios:
		return "audio"
	default:
		return "files"
	}
}

func (r *MessageRepository) firstMessage(ctx context.Context, query *gorm.DB) (*domain.Message, error) {
	var record MessageRecord
	err := query.First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	messages, err := r.hydrate(ctx, []MessageRecord{record})
	if err != nil {
		return nil, err
	}
	return &messages[0], nil
}

// hydrate joins sender member rows and their users onto raw message records.
func (r *MessageRepository) hydrate(ctx context.Context, records []MessageRecord) ([]domain.Message, error) {
	if len(records) == 0 {
		return nil, nil
	}

	senderIDs := lo.Uniq(lo.Map(records, func(m MessageRecord, _ int) uuid.UUID { return m.SenderID }))
	var memberRows []MemberRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", senderIDs).Find(&memberRows).Error; err != nil {
		return nil, err
	}

	userIDs := lo.Map(memberRows, func(m MemberRecord, _ int) uuid.UUID { return m.UserID })
	var userRows []UserRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&userRows).Error; err != nil {
		return nil, err
	}

	usersByID := lo.KeyBy(userRows, func(u UserRecord) uuid.UUID { return u.ID })
	membersByID := make(map[uuid.UUID]domain.Member, len(memberRows))
	for _, m := range memberRows {
		membersByID[m.ID] = toDomainMember(m, usersByID[m.UserID])
	}

	messages := make([]domain.Message, 0, len(records))
	for _, record := range records {
		message, err := toDomainMessage(record, membersByID[record.SenderID])
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}
