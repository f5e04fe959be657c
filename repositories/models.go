// Package repositories holds the persistence contracts of the messenger and
// their implementations: gorm/postgres for production, an in-memory store for
// tests and local runs. Engines only ever see the interfaces and domain types.
package repositories

import (
	"encoding/json"
	"time"

	"messenger/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QueryLimit is the shared page size for every paginated query.
const QueryLimit = 50

type ChatRecord struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind string    `gorm:"size:16;not null"`
	// PairKey is set for direct chats only; the unique index enforces the
	// one-chat-per-unordered-pair invariant at the store.
	PairKey   *string `gorm:"size:80;uniqueIndex"`
	Title     *string `gorm:"size:256"`
	Image     *string `gorm:"size:256"`
	CreatedAt time.Time
}

func (ChatRecord) TableName() string { return "chats" }

type MemberRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_members_chat_user"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_members_chat_user;index"`
	IsBanned   bool      `gorm:"not null;default:false"`
	LastReadAt *time.Time
	// RemovedAt soft-marks members who left or were kicked from a group.
	// The row survives so their historic messages stay attributable.
	RemovedAt *time.Time
	CreatedAt time.Time
}

func (MemberRecord) TableName() string { return "members" }

type MessageRecord struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ChatID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_chat_created"`
	SenderID uuid.UUID  `gorm:"type:uuid;not null"` // member id, not user id
	ParentID *uuid.UUID `gorm:"type:uuid"`
	Text     *string    `gorm:"type:text"`
	// Attachment snapshots. Kept NULL when absent so the attachment queries
	// can filter on IS NOT NULL.
	Files     datatypes.JSON
	Images    datatypes.JSON
	Audio     datatypes.JSON
	IsRead    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index:idx_messages_chat_created"`
}

func (MessageRecord) TableName() string { return "messages" }

type FileRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"size:256;not null"`
	Size      int64     `gorm:"not null"`
	Extension string    `gorm:"size:8;not null"`
	URL       string    `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (FileRecord) TableName() string { return "files" }

type UserRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username string    `gorm:"size:24;not null;uniqueIndex"`
	Avatar   string    `gorm:"size:256"`
	LastSeen time.Time
}

func (UserRecord) TableName() string { return "users" }

// Models lists every record for AutoMigrate in cmd/server.
func Models() []any {
	return []any{&ChatRecord{}, &MemberRecord{}, &MessageRecord{}, &FileRecord{}, &UserRecord{}}
}

// DirectChat bundles a direct chat with its two member rows, users populated.
type DirectChat struct {
	Chat    domain.Chat
	Members []domain.Member
}

// Split resolves "first"/"second" relative to the viewer: first is the
// viewer's own member row, second the partner's.
func (d DirectChat) Split(viewerID uuid.UUID) (first, second domain.Member) {
	for _, m := range d.Members {
		if m.User.ID == viewerID {
			first = m
		} else {
			second = m
		}
	}
	return first, second
}

// GroupChat bundles a group chat with all current member rows.
type GroupChat struct {
	Chat    domain.Chat
	Members []domain.Member
}

// MemberOf returns the member row of the given user, if any.
func (g GroupChat) MemberOf(userID uuid.UUID) (domain.Member, bool) {
	for _, m := range g.Members {
		if m.User.ID == userID {
			return m, true
		}
	}
	return domain.Member{}, false
}

func toDomainChat(r ChatRecord) domain.Chat {
	c := domain.Chat{ID: r.ID, Kind: domain.ChatKind(r.Kind), CreatedAt: r.CreatedAt}
	if r.Title != nil {
		c.Title = *r.Title
	}
	if r.Image != nil {
		c.Image = *r.Image
	}
	return c
}

func toDomainMember(r MemberRecord, u UserRecord) domain.Member {
	return domain.Member{
		ID:         r.ID,
		ChatID:     r.ChatID,
		User:       toDomainUser(u),
		IsBanned:   r.IsBanned,
		LastReadAt: r.LastReadAt,
		CreatedAt:  r.CreatedAt,
	}
}

func toDomainUser(r UserRecord) domain.User {
	return domain.User{ID: r.ID, Username: r.Username, Avatar: r.Avatar, LastSeen: r.LastSeen}
}

func toDomainFile(r FileRecord) domain.File {
	return domain.File{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Size:      r.Size,
		Extension: r.Extension,
		URL:       r.URL,
		CreatedAt: r.CreatedAt,
	}
}

func toMessageRecord(m domain.Message) (MessageRecord, error) {
	record := MessageRecord{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.Sender.ID,
		ParentID:  m.ParentID,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
	if m.Payload.Text != "" {
		record.Text = &m.Payload.Text
	}
	var err error
	if record.Files, err = marshalFiles(m.Payload.Files); err != nil {
		return MessageRecord{}, err
	}
	if record.Images, err = marshalFiles(m.Payload.Images); err != nil {
		return MessageRecord{}, err
	}
	if m.Payload.Audio != nil {
		audio, err := json.Marshal(m.Payload.Audio)
		if err != nil {
			return MessageRecord{}, err
		}
		record.Audio = audio
	}
	return record, nil
}

func marshalFiles(files []domain.File) (datatypes.JSON, error) {
	if len(files) == 0 {
		return nil, nil
	}
	return json.Marshal(files)
}

func toDomainMessage(r MessageRecord, sender domain.Member) (domain.Message, error) {
	payload := domain.Payload{}
	if r.Text != nil {
		payload.Text = *r.Text
	}
	if r.Files != nil {
		if err := json.Unmarshal(r.Files, &payload.Files); err != nil {
			return domain.Message{}, err
		}
	}
	if r.Images != nil {
		if err := json.Unmarshal(r.Images, &payload.Images); err != nil {
			return domain.Message{}, err
		}
	}
	if r.Audio != nil {
		payload.Audio = &domain.File{}
		if err := json.Unmarshal(r.Audio, payload.Audio); err != nil {
			return domain.Message{}, err
		}
	}
	return domain.Message{
		ID:        r.ID,
		ChatID:    r.ChatID,
		Sender:    sender,
		ParentID:  r.ParentID,
		Payload:   payload,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt,
	}, nil
}
