// This file defines Message and its payload variant.
// Messages are immutable once created, except for the one-way isRead flip.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type PayloadKind string

const (
	PayloadText  PayloadKind = "text"
	PayloadMedia PayloadKind = "media"
	PayloadAudio PayloadKind = "audio"
	PayloadNone  PayloadKind = "none"
)

// Payload is the tagged variant of message content. Audio is exclusive with
// everything else; NewPayload enforces that at construction, so a Payload
// holding both audio and text cannot exist.
type Payload struct {
	Text   string
	Files  []File
	Images []File
	Audio  *File
}

// NewPayload builds a payload from whatever the client supplied.
// When audio is present, text, files and images are discarded.
func NewPayload(text string, files, images []File, audio *File) Payload {
	if audio != nil {
		return Payload{Audio: audio}
	}
	return Payload{Text: text, Files: files, Images: images}
}

func (p Payload) Kind() PayloadKind {
	switch {
	case p.Audio != nil:
		return PayloadAudio
	case len(p.Files) > 0 || len(p.Images) > 0:
		return PayloadMedia
	case p.Text != "":
		return PayloadText
	default:
		return PayloadNone
	}
}

func (p Payload) Empty() bool { return p.Kind() == PayloadNone }

type Message struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	Sender    Member // chat-scoped authorship; survives bans and removals
	ParentID  *uuid.UUID
	Payload   Payload
	IsRead    bool
	CreatedAt time.Time
}

type MessagePublic struct {
	ID        uuid.UUID    `json:"id"`
	Sender    MemberPublic `json:"sender"`
	Parent    *uuid.UUID   `json:"parent,omitempty"`
	Text      *string      `json:"text"`
	Files     []FilePublic `json:"files"`
	Images    []string     `json:"images"`
	Audio     *string      `json:"audio"`
	IsRead    bool         `json:"isRead"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (m Message) Public() MessagePublic {
	pub := MessagePublic{
		ID:        m.ID,
		Sender:    m.Sender.Public(),
		Parent:    m.ParentID,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
	if m.Payload.Audio != nil {
		pub.Audio = &m.Payload.Audio.URL
		return pub
	}
	if m.Payload.Text != "" {
		pub.Text = &m.Payload.Text
	}
	pub.Files = lo.Map(m.Payload.Files, func(f File, _ int) FilePublic { return f.Public() })
	pub.Images = lo.Map(m.Payload.Images, func(f File, _ int) string { return f.URL })
	return pub
}
