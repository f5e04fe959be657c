package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ChatKind string

const (
	ChatDirect ChatKind = "direct"
	ChatGroup  ChatKind = "group"
)

type Chat struct {
	ID        uuid.UUID
	Kind      ChatKind
	Title     string // group only
	Image     string // group only
	CreatedAt time.Time
}

// Member is the chat-scoped participation record of one user within one chat.
// Ban status lives here, not on the user: it only means something inside
// this chat.
type Member struct {
	ID         uuid.UUID
	ChatID     uuid.UUID
	User       User
	IsBanned   bool
	LastReadAt *time.Time // group read watermark; nil for direct members
	CreatedAt  time.Time
}

type DirectChatPublic struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type GroupChatPublic struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type MemberPublic struct {
	ID       uuid.UUID  `json:"id"`
	User     UserPublic `json:"user"`
	IsBanned bool       `json:"isBanned"`
}

func (c Chat) DirectPublic() DirectChatPublic {
	return DirectChatPublic{ID: c.ID, CreatedAt: c.CreatedAt}
}

func (c Chat) GroupPublic() GroupChatPublic {
	return GroupChatPublic{ID: c.ID, Title: c.Title, Image: c.Image, CreatedAt: c.CreatedAt}
}

func (m Member) Public() MemberPublic {
	return MemberPublic{ID: m.ID, User: m.User.Public(), IsBanned: m.IsBanned}
}

// PairKey canonicalizes an unordered user pair. Direct chats are unique per
// pair; the key doubles as lock key and unique column value.
func PairKey(a, b uuid.UUID) string {
	if b.String() < a.String() {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s", a, b)
}
