// Package services hosts the two chat engines. Each engine performs its
// authorization checks against repository state, mutates persisted state
// under the per-chat lock, and emits push events for the fan-out worker.
package services

import (
	"time"

	"messenger/domain"

	"github.com/google/uuid"
)

type DirectChatSummary struct {
	Details     domain.DirectChatPublic `json:"details"`
	Partner     domain.MemberPublic     `json:"partner"`
	IsBanned    bool                    `json:"isBanned"`
	LastMessage *domain.MessagePublic   `json:"lastMessage"`
	Unread      int64                   `json:"unread"`
}

type DirectChatDetails struct {
	Details  domain.DirectChatPublic `json:"details"`
	Partner  domain.MemberPublic     `json:"partner"`
	IsBanned bool                    `json:"isBanned"`
}

type GroupChatSummary struct {
	Details         domain.GroupChatPublic `json:"details"`
	Member          domain.MemberPublic    `json:"member"`
	NumberOfMembers int                    `json:"numberOfMembers"`
	LastMessage     *domain.MessagePublic  `json:"lastMessage"`
	Unread          int64                  `json:"unread"`
}

type GroupChatDetails struct {
	Details         domain.GroupChatPublic `json:"details"`
	Member          domain.MemberPublic    `json:"member"`
	NumberOfMembers int                    `json:"numberOfMembers"`
}

// AttachmentEntry is one flattened image or audio attachment: a message
// carrying three images yields three entries sharing the message's id and
// createdAt.
type AttachmentEntry struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

type FileAttachmentEntry struct {
	ID        uuid.UUID         `json:"id"`
	File      domain.FilePublic `json:"file"`
	CreatedAt time.Time         `json:"createdAt"`
}

type SendDirectMessageCommand struct {
	SenderID  uuid.UUID
	PartnerID uuid.UUID
	Text      string
	ParentID  *uuid.UUID
	FileIDs   []uuid.UUID
	ImageIDs  []uuid.UUID
	AudioID   *uuid.UUID
}

type ReadDirectMessageResult struct {
	Message domain.MessagePublic    `json:"message"`
	Chat    domain.DirectChatPublic `json:"chat"`
}

type CreateGroupChatCommand struct {
	CreatorID uuid.UUID
	Title     string
	Image     string
	MemberIDs []uuid.UUID
}

type SendGroupMessageCommand struct {
	SenderID uuid.UUID
	ChatID   uuid.UUID
	Text     string
	ParentID *uuid.UUID
	FileIDs  []uuid.UUID
	ImageIDs []uuid.UUID
	AudioID  *uuid.UUID
}

type ReadGroupMessageResult struct {
	Message domain.MessagePublic   `json:"message"`
	Chat    domain.GroupChatPublic `json:"chat"`
}
