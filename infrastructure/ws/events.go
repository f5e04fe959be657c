package ws

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Inbound request vocabulary, one event per engine operation.
const (
	DirectGetChats      = "DIRECT_CHAT:GET_CHATS"
	DirectGetChat       = "DIRECT_CHAT:GET_CHAT"
	DirectGetMessages   = "DIRECT_CHAT:GET_MESSAGES"
	DirectCreateMessage = "DIRECT_CHAT:CREATE_MESSAGE"
	DirectReadMessage   = "DIRECT_CHAT:READ_MESSAGE"
	DirectBanPartner    = "DIRECT_CHAT:BAN_PARTNER"
	DirectUnbanPartner  = "DIRECT_CHAT:UNBAN_PARTNER"
	DirectGetImages     = "DIRECT_CHAT:GET_IMAGES"
	DirectGetAudios     = "DIRECT_CHAT:GET_AUDIOS"
	DirectGetFiles      = "DIRECT_CHAT:GET_FILES"

	GroupCreateChat    = "GROUP_CHAT:CREATE_CHAT"
	GroupGetChats      = "GROUP_CHAT:GET_CHATS"
	GroupGetChat       = "GROUP_CHAT:GET_CHAT"
	GroupGetMembers    = "GROUP_CHAT:GET_MEMBERS"
	GroupGetMessages   = "GROUP_CHAT:GET_MESSAGES"
	GroupCreateMessage = "GROUP_CHAT:CREATE_MESSAGE"
	GroupReadMessage   = "GROUP_CHAT:READ_MESSAGE"
	GroupAddMember     = "GROUP_CHAT:ADD_MEMBER"
	GroupKickMember    = "GROUP_CHAT:KICK_MEMBER"
	GroupLeaveChat     = "GROUP_CHAT:LEAVE_CHAT"
	GroupGetImages     = "GROUP_CHAT:GET_IMAGES"
	GroupGetAudios     = "GROUP_CHAT:GET_AUDIOS"
	GroupGetFiles      = "GROUP_CHAT:GET_FILES"
)

// Envelope frames every message in both directions. Requests carry Data;
// responses carry Data or Error, never both.
type Envelope struct {
	Event string          `json:"event" validate:"required"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Response struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type PartnerRequest struct {
	PartnerID string `json:"partnerId" validate:"required,uuid"`
}

type PartnerPageRequest struct {
	PartnerID string `json:"partnerId" validate:"required,uuid"`
	Skip      int    `json:"skip" validate:"min=0"`
}

type DirectSendRequest struct {
	PartnerID string   `json:"partnerId" validate:"required,uuid"`
	Text      string   `json:"text" validate:"max=4000"`
	ParentID  *string  `json:"parentId" validate:"omitempty,uuid"`
	FileIDs   []string `json:"fileIds" validate:"max=10,dive,uuid"`
	ImageIDs  []string `json:"imageIds" validate:"max=10,dive,uuid"`
	AudioID   *string  `json:"audioId" validate:"omitempty,uuid"`
}

type DirectReadRequest struct {
	PartnerID string `json:"partnerId" validate:"required,uuid"`
	MessageID string `json:"messageId" validate:"required,uuid"`
}

type GroupCreateRequest struct {
	Title     string   `json:"title" validate:"required,max=128"`
	Image     string   `json:"image" validate:"max=256"`
	MemberIDs []string `json:"memberIds" validate:"max=100,dive,uuid"`
}

type ChatRequest struct {
	ChatID string `json:"chatId" validate:"required,uuid"`
}

type ChatPageRequest struct {
	ChatID string `json:"chatId" validate:"required,uuid"`
	Skip   int    `json:"skip" validate:"min=0"`
}

type GroupSendRequest struct {
	ChatID   string   `json:"chatId" validate:"required,uuid"`
	Text     string   `json:"text" validate:"max=4000"`
	ParentID *string  `json:"parentId" validate:"omitempty,uuid"`
	FileIDs  []string `json:"fileIds" validate:"max=10,dive,uuid"`
	ImageIDs []string `json:"imageIds" validate:"max=10,dive,uuid"`
	AudioID  *string  `json:"audioId" validate:"omitempty,uuid"`
}

type GroupReadRequest struct {
	ChatID    string `json:"chatId" validate:"required,uuid"`
	MessageID string `json:"messageId" validate:"required,uuid"`
}

type GroupMemberRequest struct {
	ChatID string `json:"chatId" validate:"required,uuid"`
	UserID string `json:"userId" validate:"required,uuid"`
}

type GroupKickRequest struct {
	ChatID   string `json:"chatId" validate:"required,uuid"`
	MemberID string `json:"memberId" validate:"required,uuid"`
}

// Conversion helpers for validated ids. MustParse is safe here: the
// validator already proved the strings are uuids.
func parseIDs(ids []string) []uuid.UUID {
	return lo.Map(ids, func(id string, _ int) uuid.UUID { return uuid.MustParse(id) })
}

func parseOptionalID(id *string) *uuid.UUID {
	if id == nil {
		return nil
	}
	parsed := uuid.MustParse(*id)
	return &parsed
}
