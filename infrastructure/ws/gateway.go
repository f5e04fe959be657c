// Package ws is the realtime front of the messenger: it upgrades
// authenticated HTTP requests, registers each connection with the fanout
// registry and routes inbound request envelopes to the chat engines.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"messenger/auth"
	"messenger/contract"
	"messenger/errors"
	"messenger/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Gateway struct {
	upgrader websocket.Upgrader
	tokens   *auth.Tokens
	registry contract.IRegistry
	directs  services.IDirectChatService
	groups   services.IGroupChatService
	validate *validator.Validate

	sinkBuffer  int
	sinkTimeout time.Duration
	log         *slog.Logger
}

func NewGateway(
	tokens *auth.Tokens,
	registry contract.IRegistry,
	directs services.IDirectChatService,
	groups services.IGroupChatService,
	sinkBuffer int,
	sinkTimeout time.Duration,
	log *slog.Logger,
) *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		tokens:      tokens,
		registry:    registry,
		directs:     directs,
		groups:      groups,
		validate:    validator.New(),
		sinkBuffer:  sinkBuffer,
		sinkTimeout: sinkTimeout,
		log:         log,
	}
}

// Handle is the gin endpoint for /ws.
func (g *Gateway) Handle(c *gin.Context) {
	userID, err := g.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return
	}

	connID := uuid.New()
	sink := NewConnectionSink(conn, g.sinkBuffer, g.sinkTimeout, g.log)
	go sink.WritePump()

	g.registry.Register(userID, connID, sink)
	defer func() {
		g.registry.Unregister(connID)
		sink.Close()
	}()

	g.log.Info("websocket connected",
		slog.String("user_id", userID.String()),
		slog.String("conn_id", connID.String()))

	g.readLoop(c.Request.Context(), userID, conn, sink)

	g.log.Info("websocket disconnected",
		slog.String("user_id", userID.String()),
		slog.String("conn_id", connID.String()))
}

// authenticate accepts the token either as a query parameter, the usual way
// for browser websocket clients, or as a bearer header.
func (g *Gateway) authenticate(c *gin.Context) (uuid.UUID, error) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	return g.tokens.Validate(token)
}

func (g *Gateway) readLoop(ctx context.Context, userID uuid.UUID, conn *websocket.Conn, sink *ConnectionSink) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Event == "" {
			g.respond(ctx, sink, "", nil, errors.ErrBadRequest)
			continue
		}
		g.dispatch(ctx, userID, sink, envelope)
	}
}

func (g *Gateway) dispatch(ctx context.Context, userID uuid.UUID, sink *ConnectionSink, envelope Envelope) {
	switch envelope.Event {
	case DirectGetChats:
		result, err := g.directs.GetChats(ctx, userID)
		g.respond(ctx, sink, envelope.Event, result, err)

	case DirectGetChat:
		request, err := decode[PartnerRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.directs.GetChat(ctx, userID, uuid.MustParse(request.PartnerID))
		g.respond(ctx, sink, envelope.Event, result, err)

	case DirectGetMessages:
		request, err := decode[PartnerPageRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.directs.GetMessages(ctx, userID, uuid.MustParse(request.PartnerID), request.Skip)
		g.respond(ctx, sink, envelope.Event, result, err)

	case DirectCreateMessage:
		request, err := decode[DirectSendRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.directs.SendMessage(ctx, services.SendDirectMessageCommand{
			SenderID:  userID,
			PartnerID: uuid.MustParse(request.PartnerID),
			Text:      request.Text,
			ParentID:  parseOptionalID(request.ParentID),
			FileIDs:   parseIDs(request.FileIDs),
			ImageIDs:  parseIDs(request.ImageIDs),
			AudioID:   parseOptionalID(request.AudioID),
		})
		g.respond(ctx, sink, envelope.Event, result, err)

	case DirectReadMessage:
		request, err := decode[DirectReadRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.directs.ReadMessage(ctx, userID,
			uuid.MustParse(request.PartnerID), uuid.MustParse(request.MessageID))
		g.respond(ctx, sink, envelope.Event, result, err)

	case DirectBanPartner:
		request, err := decode[PartnerRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.directs.BanPartner(ctx, userID, uuid.MustParse(request.PartnerID))
		g.respond(ctx, sink, envelope.Event, result, err)

	case DirectUnbanPartner:
		request, err := decode[PartnerRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.directs.UnbanPartner(ctx, userID, uuid.MustParse(request.PartnerID))
		g.respond(ctx, sink, envelope.Event, result, err)

	case DirectGetImages, DirectGetAudios, DirectGetFiles:
		g.directAttachments(ctx, userID, sink, envelope)

	case GroupCreateChat:
		request, err := decode[GroupCreateRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.groups.CreateChat(ctx, services.CreateGroupChatCommand{
			CreatorID: userID,
			Title:     request.Title,
			Image:     request.Image,
			MemberIDs: parseIDs(request.MemberIDs),
		})
		g.respond(ctx, sink, envelope.Event, result, err)

	case GroupGetChats:
		result, err := g.groups.GetChats(ctx, userID)
		g.respond(ctx, sink, envelope.Event, result, err)

	case GroupGetChat:
		request, err := decode[ChatRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.groups.GetChat(ctx, userID, uuid.MustParse(request.ChatID))
		g.respond(ctx, sink, envelope.Event, result, err)

	case GroupGetMembers:
		request, err := decode[ChatRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.groups.GetMembers(ctx, userID, uuid.MustParse(request.ChatID))
		g.respond(ctx, sink, envelope.Event, result, err)

	case GroupGetMessages:
		request, err := decode[ChatPageRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.groups.GetMessages(ctx, userID, uuid.MustParse(request.ChatID), request.Skip)
		g.respond(ctx, sink, envelope.Event, result, err)

	case GroupCreateMessage:
		request, err := decode[GroupSendRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.groups.SendMessage(ctx, services.SendGroupMessageCommand{
			SenderID: userID,
			ChatID:   uuid.MustParse(request.ChatID),
			Text:     request.Text,
			ParentID: parseOptionalID(request.ParentID),
			FileIDs:  parseIDs(request.FileIDs),
			ImageIDs: parseIDs(request.ImageIDs),
			AudioID:  parseOptionalID(request.AudioID),
		})
		g.respond(ctx, sink, envelope.Event, result, err)

	case GroupReadMessage:
		request, err := decode[GroupReadRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.groups.ReadMessage(ctx, userID,
			uuid.MustParse(request.ChatID), uuid.MustParse(request.MessageID))
		g.respond(ctx, sink, envelope.Event, result, err)

	case GroupAddMember:
		request, err := decode[GroupMemberRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.groups.AddMember(ctx, userID,
			uuid.MustParse(request.ChatID), uuid.MustParse(request.UserID))
		g.respond(ctx, sink, envelope.Event, result, err)

	case GroupKickMember:
		request, err := decode[GroupKickRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		result, err := g.groups.KickMember(ctx, userID,
			uuid.MustParse(request.ChatID), uuid.MustParse(request.MemberID))
		g.respond(ctx, sink, envelope.Event, result, err)

	case GroupLeaveChat:
		request, err := decode[ChatRequest](g, envelope.Data)
		if err != nil {
			g.respond(ctx, sink, envelope.Event, nil, err)
			return
		}
		err = g.groups.LeaveChat(ctx, userID, uuid.MustParse(request.ChatID))
		g.respond(ctx, sink, envelope.Event, gin.H{"left": err == nil}, err)

	case GroupGetImages, GroupGetAudios, GroupGetFiles:
		g.groupAttachments(ctx, userID, sink, envelope)

	default:
		g.respond(ctx, sink, envelope.Event, nil, errors.ErrBadRequest)
	}
}

func (g *Gateway) directAttachments(ctx context.Context, userID uuid.UUID, sink *ConnectionSink, envelope Envelope) {
	request, err := decode[PartnerPageRequest](g, envelope.Data)
	if err != nil {
		g.respond(ctx, sink, envelope.Event, nil, err)
		return
	}
	partnerID := uuid.MustParse(request.PartnerID)

	var result any
	switch envelope.Event {
	case DirectGetImages:
		result, err = g.directs.GetImages(ctx, userID, partnerID, request.Skip)
	case DirectGetAudios:
		result, err = g.directs.GetAudios(ctx, userID, partnerID, request.Skip)
	default:
		result, err = g.directs.GetFiles(ctx, userID, partnerID, request.Skip)
	}
	g.respond(ctx, sink, envelope.Event, result, err)
}

func (g *Gateway) groupAttachments(ctx context.Context, userID uuid.UUID, sink *ConnectionSink, envelope Envelope) {
	request, err := decode[ChatPageRequest](g, envelope.Data)
	if err != nil {
		g.respond(ctx, sink, envelope.Event, nil, err)
		return
	}
	chatID := uuid.MustParse(request.ChatID)

	var result any
	switch envelope.Event {
	case GroupGetImages:
		result, err = g.groups.GetImages(ctx, userID, chatID, request.Skip)
	case GroupGetAudios:
		result, err = g.groups.GetAudios(ctx, userID, chatID, request.Skip)
	default:
		result, err = g.groups.GetFiles(ctx, userID, chatID, request.Skip)
	}
	g.respond(ctx, sink, envelope.Event, result, err)
}

// respond mirrors the request event name back with either data or the
// client-safe error string.
func (g *Gateway) respond(ctx context.Context, sink *ConnectionSink, eventName string, result any, err error) {
	response := Response{Event: eventName}
	if err != nil {
		response.Error = errors.ClientMessage(err)
	} else {
		response.Data = result
	}
	if sendErr := sink.Send(ctx, response); sendErr != nil {
		g.log.Debug("response dropped", slog.String("event", eventName), slog.String("error", sendErr.Error()))
	}
}

// decode unmarshals and validates a request payload. Any failure collapses
// to ErrBadRequest; the engines never see malformed input.
func decode[T any](g *Gateway, data json.RawMessage) (T, error) {
	var request T
	if len(data) == 0 {
		return request, errors.ErrBadRequest
	}
	if err := json.Unmarshal(data, &request); err != nil {
		return request, errors.ErrBadRequest
	}
	if err := g.validate.Struct(request); err != nil {
		return request, errors.ErrBadRequest
	}
	return request, nil
}
