// Package event defines the outbound push vocabulary. Each event knows its
// wire name and the users whose live connections should receive it.
package event

import (
	"messenger/domain"

	"github.com/google/uuid"
)

const (
	DirectMessage     = "DIRECT_CHAT:MESSAGE"
	DirectBanned      = "DIRECT_CHAT:BANNED"
	DirectUnbanned    = "DIRECT_CHAT:UNBANNED"
	DirectMessageRead = "DIRECT_CHAT:MESSAGE_READ"
)

// DirectMessageSent notifies the partner's connections about a new message.
// The sender is not a recipient: it already holds the request response.
type DirectMessageSent struct {
	To      uuid.UUID               `json:"-"`
	Message domain.MessagePublic    `json:"message"`
	Chat    domain.DirectChatPublic `json:"chat"`
	Partner domain.MemberPublic     `json:"partner"`
}

func (e DirectMessageSent) Name() string            { return DirectMessage }
func (e DirectMessageSent) Recipients() []uuid.UUID { return []uuid.UUID{e.To} }

type DirectPartnerBanned struct {
	To      uuid.UUID               `json:"-"`
	Chat    domain.DirectChatPublic `json:"chat"`
	Partner domain.MemberPublic     `json:"partner"`
}

func (e DirectPartnerBanned) Name() string            { return DirectBanned }
func (e DirectPartnerBanned) Recipients() []uuid.UUID { return []uuid.UUID{e.To} }

type DirectPartnerUnbanned struct {
	To      uuid.UUID               `json:"-"`
	Chat    domain.DirectChatPublic `json:"chat"`
	Partner domain.MemberPublic     `json:"partner"`
}

func (e DirectPartnerUnbanned) Name() string            { return DirectUnbanned }
func (e DirectPartnerUnbanned) Recipients() []uuid.UUID { return []uuid.UUID{e.To} }

// DirectMessageWasRead carries the single target message, not the cascaded set.
type DirectMessageWasRead struct {
	To      uuid.UUID               `json:"-"`
	Message domain.MessagePublic    `json:"message"`
	Chat    domain.DirectChatPublic `json:"chat"`
	Partner domain.MemberPublic     `json:"partner"`
}

func (e DirectMessageWasRead) Name() string            { return DirectMessageRead }
func (e DirectMessageWasRead) Recipients() []uuid.UUID { return []uuid.UUID{e.To} }
