package repositories

import (
	"context"
	"errors"
	"time"

	"messenger/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type IChatRepository interface {
	// DirectByPair looks a direct chat up by its unordered user pair.
	// Absence is not an error: (nil, nil) means no chat exists yet.
	DirectByPair(ctx context.Context, a, b uuid.UUID) (*DirectChat, error)
	// CreateDirect creates the chat and both member rows in one transaction.
	CreateDirect(ctx context.Context, a, b domain.User) (*DirectChat, error)
	DirectsFor(ctx context.Context, userID uuid.UUID) ([]DirectChat, error)

	CreateGroup(ctx context.Context, title, image string, creator domain.User) (*GroupChat, error)
	GroupByID(ctx context.Context, chatID uuid.UUID) (*GroupChat, error)
	GroupsFor(ctx context.Context, userID uuid.UUID) ([]GroupChat, error)
}

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) DirectByPair(ctx context.Context, a, b uuid.UUID) (*DirectChat, error) {
	pairKey := domain.PairKey(a, b)
	var record ChatRecord
	err := r.db.WithContext(ctx).
		Where("kind = ? AND pair_key = ?", domain.ChatDirect, pairKey).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	members, err := r.membersOf(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	return &DirectChat{Chat: toDomainChat(record), Members: members}, nil
}

func (r *ChatRepository) CreateDirect(ctx context.Context, a, b domain.User) (*DirectChat, error) {
	pairKey := domain.PairKey(a.ID, b.ID)
	now := time.Now().UTC()

	chat := ChatRecord{
		ID:        uuid.New(),
		Kind:      string(domain.ChatDirect),
		PairKey:   &pairKey,
		CreatedAt: now,
	}
	memberRows := []MemberRecord{
		{ID: uuid.New(), ChatID: chat.ID, UserID: a.ID, CreatedAt: now},
		{ID: uuid.New(), ChatID: chat.ID, UserID: b.ID, CreatedAt: now},
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&chat).Error; err != nil {
			return err
		}
		return tx.Create(&memberRows).Error
	})
	if err != nil {
		return nil, err
	}

	return &DirectChat{
		Chat: toDomainChat(chat),
		Members: []domain.Member{
			{ID: memberRows[0].ID, ChatID: chat.ID, User: a, CreatedAt: now},
			{ID: memberRows[1].ID, ChatID: chat.ID, User: b, CreatedAt: now},
		},
	}, nil
}

func (r *ChatRepository) DirectsFor(ctx context.Context, userID uuid.UUID) ([]DirectChat, error) {
	chats, err := r.chatsFor(ctx, userID, domain.ChatDirect)
	if err != nil {
		return nil, err
	}
	return lo.Map(chats, func(g GroupChat, _ int) DirectChat {
		return DirectChat{Chat: g.Chat, Members: g.Members}
	}), nil
}

func (r *ChatRepository) CreateGroup(ctx context.Context, title, image string, creator domain.User) (*GroupChat, error) {
	now := time.Now().UTC()
	chat := ChatRecord{
		ID:        uuid.New(),
		Kind:      string(domain.ChatGroup),
		CreatedAt: now,
	}
	if title != "" {
		chat.Title = &title
	}
	if image != "" {
		chat.Image = &image
	}
	member := MemberRecord{ID: uuid.New(), ChatID: chat.ID, UserID: creator.ID, CreatedAt: now}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&chat).Error; err != nil {
			return err
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	return &GroupChat{
		Chat:    toDomainChat(chat),
		Members: []domain.Member{{ID: member.ID, ChatID: chat.ID, User: creator, CreatedAt: now}},
	}, nil
}

func (r *ChatRepository) GroupByID(ctx context.Context, chatID uuid.UUID) (*GroupChat, error) {
	var record ChatRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND kind = ?", chatID, domain.ChatGroup).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	members, err := r.membersOf(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	return &GroupChat{Chat: toDomainChat(record), Members: members}, nil
}

func (r *ChatRepository) GroupsFor(ctx context.Context, userID uuid.UUID) ([]GroupChat, error) {
	return r.chatsFor(ctx, userID, domain.ChatGroup)
}

// chatsFor loads every chat of the given kind the user belongs to,
// with all member rows hydrated.
func (r *ChatRepository) chatsFor(ctx context.Context, userID uuid.UUID, kind domain.ChatKind) ([]GroupChat, error) {
	var records []ChatRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN members ON members.chat_id = chats.id AND members.user_id = ? AND members.removed_at IS NULL", userID).
		Where("chats.kind = ?", kind).
		Order("chats.created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	result := make([]GroupChat, 0, len(records))
	for _, record := range records {
		members, err := r.membersOf(ctx, record.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, GroupChat{Chat: toDomainChat(record), Members: members})
	}
	return result, nil
}

func (r *ChatRepository) membersOf(ctx context.Context, chatID uuid.UUID) ([]domain.Member, error) {
	var memberRows []MemberRecord
	if err := r.db.WithContext(ctx).
		Where("chat_id = ? AND removed_at IS NULL", chatID).
		Order("created_at ASC").
		Find(&memberRows).Error; err != nil {
		return nil, err
	}

	userIDs := lo.Map(memberRows, func(m MemberRecord, _ int) uuid.UUID { return m.UserID })
	var userRows []UserRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&userRows).Error; err != nil {
		return nil, err
	}
	usersByID := lo.KeyBy(userRows, func(u UserRecord) uuid.UUID { return u.ID })

	return lo.Map(memberRows, func(m MemberRecord, _ int) domain.Member {
		return toDomainMember(m, usersByID[m.UserID])
	}), nil
}
