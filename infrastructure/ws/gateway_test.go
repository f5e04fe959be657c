package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"messenger/auth"
	"messenger/contract"
	"messenger/domain"
	"messenger/moderation"
	"messenger/repositories"
	"messenger/runtime"
	"messenger/runtime/workers"
	"messenger/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const testSecret = "gateway-test-secret"

type gatewayFixture struct {
	server *httptest.Server
	cancel context.CancelFunc
	alice  domain.User
	bob    domain.User
}

func newGatewayFixture(t *testing.T) gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.DiscardHandler)

	store := repositories.NewMemory()
	alice := domain.User{ID: uuid.New(), Username: "alice"}
	bob := domain.User{ID: uuid.New(), Username: "bob"}
	store.SeedUser(alice)
	store.SeedUser(bob)

	moderator, err := moderation.NewModerator([]string{"idiot"}, '*')
	require.NoError(t, err)

	registry := runtime.NewRegistry()
	pushes := make(chan contract.PushEvent, 16)
	locks := runtime.NewKeyedMutex()

	directs := services.NewDirectChatService(
		store, store, store, store, store, locks, &moderator, pushes, log)
	groups := services.NewGroupChatService(
		store, store, store, store, store, locks, &moderator, pushes, log)

	ctx, cancel := context.WithCancel(context.Background())
	fanout := workers.NewEventFanout(log, registry, pushes)
	go func() { _ = fanout.Run(ctx) }()

	tokens := auth.NewTokens(testSecret)
	gateway := NewGateway(&tokens, registry, directs, groups, 16, time.Second, log)

	router := gin.New()
	router.GET("/ws", gateway.Handle)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return gatewayFixture{server: server, cancel: cancel, alice: alice, bob: bob}
}

func (f gatewayFixture) dial(t *testing.T, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	token := issueToken(t, userID)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func issueToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := auth.CustomClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func send(t *testing.T, conn *websocket.Conn, eventName string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: eventName, Data: payload}))
}

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame received
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestGateway_RejectsInvalidToken(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=garbage"
	_, response, err := websocket.DefaultDialer.Dial(url, nil)

	req.Error(err)
	req.Equal(401, response.StatusCode)
}

func TestGateway_SendMessageRoundTrip(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	aliceConn := f.dial(t, f.alice.ID)
	bobConn := f.dial(t, f.bob.ID)

	// When alice sends a direct message over her socket
	send(t, aliceConn, DirectCreateMessage, DirectSendRequest{
		PartnerID: f.bob.ID.String(),
		Text:      "hello bob",
	})

	// Then she receives her response envelope
	response := read(t, aliceConn)
	req.Equal(DirectCreateMessage, response.Event)
	req.Empty(response.Error)
	var message domain.MessagePublic
	req.NoError(json.Unmarshal(response.Data, &message))
	req.Equal("hello bob", *message.Text)

	// And bob receives the push on his socket
	push := read(t, bobConn)
	req.Equal("DIRECT_CHAT:MESSAGE", push.Event)
	var delivered struct {
		Message domain.MessagePublic    `json:"message"`
		Chat    domain.DirectChatPublic `json:"chat"`
		Partner domain.MemberPublic     `json:"partner"`
	}
	req.NoError(json.Unmarshal(push.Data, &delivered))
	req.Equal(message.ID, delivered.Message.ID)
	req.Equal("alice", delivered.Partner.User.Username)
}

func TestGateway_ValidationFailureNeverReachesTheEngine(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	conn := f.dial(t, f.alice.ID)

	// Malformed uuid in the request payload
	send(t, conn, DirectCreateMessage, map[string]string{
		"partnerId": "not-a-uuid",
		"text":      "hi",
	})

	response := read(t, conn)
	req.Equal(DirectCreateMessage, response.Event)
	req.Equal("bad request", response.Error)
}

func TestGateway_UnknownEvent(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	conn := f.dial(t, f.alice.ID)

	send(t, conn, "DIRECT_CHAT:NOPE", map[string]string{})

	response := read(t, conn)
	req.Equal("bad request", response.Error)
}

func TestGateway_QueryOverSocket(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	aliceConn := f.dial(t, f.alice.ID)
	send(t, aliceConn, DirectCreateMessage, DirectSendRequest{
		PartnerID: f.bob.ID.String(), Text: "first",
	})
	read(t, aliceConn)

	// GET_CHATS takes no payload at all
	require.NoError(t, aliceConn.WriteJSON(Envelope{Event: DirectGetChats}))
	response := read(t, aliceConn)
	req.Equal(DirectGetChats, response.Event)

	var chats []services.DirectChatSummary
	req.NoError(json.Unmarshal(response.Data, &chats))
	req.Len(chats, 1)
	req.Equal("bob", chats[0].Partner.User.Username)
}
