package event

import (
	"messenger/domain"

	"github.com/google/uuid"
)

const (
	GroupCreated      = "GROUP_CHAT:CREATED"
	GroupMessage      = "GROUP_CHAT:MESSAGE"
	GroupMemberAdded  = "GROUP_CHAT:MEMBER_ADDED"
	GroupMemberKicked = "GROUP_CHAT:MEMBER_KICKED"
	GroupMemberLeft   = "GROUP_CHAT:MEMBER_LEFT"
	GroupMessageRead  = "GROUP_CHAT:MESSAGE_READ"
)

type GroupChatCreated struct {
	To     []uuid.UUID            `json:"-"`
	Chat   domain.GroupChatPublic `json:"chat"`
	Member domain.MemberPublic    `json:"member"`
}

func (e GroupChatCreated) Name() string            { return GroupCreated }
func (e GroupChatCreated) Recipients() []uuid.UUID { return e.To }

type GroupMessageSent struct {
	To      []uuid.UUID            `json:"-"`
	Message domain.MessagePublic   `json:"message"`
	Chat    domain.GroupChatPublic `json:"chat"`
	Sender  domain.MemberPublic    `json:"sender"`
}

func (e GroupMessageSent) Name() string            { return GroupMessage }
func (e GroupMessageSent) Recipients() []uuid.UUID { return e.To }

type GroupMemberWasAdded struct {
	To     []uuid.UUID            `json:"-"`
	Chat   domain.GroupChatPublic `json:"chat"`
	Member domain.MemberPublic    `json:"member"`
}

func (e GroupMemberWasAdded) Name() string            { return GroupMemberAdded }
func (e GroupMemberWasAdded) Recipients() []uuid.UUID { return e.To }

type GroupMemberWasKicked struct {
	To     []uuid.UUID            `json:"-"`
	Chat   domain.GroupChatPublic `json:"chat"`
	Member domain.MemberPublic    `json:"member"`
}

func (e GroupMemberWasKicked) Name() string            { return GroupMemberKicked }
func (e GroupMemberWasKicked) Recipients() []uuid.UUID { return e.To }

type GroupMemberHasLeft struct {
	To     []uuid.UUID            `json:"-"`
	Chat   domain.GroupChatPublic `json:"chat"`
	Member domain.MemberPublic    `json:"member"`
}

func (e GroupMemberHasLeft) Name() string            { return GroupMemberLeft }
func (e GroupMemberHasLeft) Recipients() []uuid.UUID { return e.To }

type GroupMessageWasRead struct {
	To      []uuid.UUID            `json:"-"`
	Message domain.MessagePublic   `json:"message"`
	Chat    domain.GroupChatPublic `json:"chat"`
	Member  domain.MemberPublic    `json:"member"`
}

func (e GroupMessageWasRead) Name() string            { return GroupMessageRead }
func (e GroupMessageWasRead) Recipients() []uuid.UUID { return e.To }
