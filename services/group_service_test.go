package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"messenger/contract"
	"messenger/domain"
	"messenger/errors"
	"messenger/moderation"
	"messenger/repositories"
	"messenger/runtime"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type groupFixture struct {
	service *GroupChatService
	store   *repositories.Memory
	pushes  chan contract.PushEvent
	alice   domain.User
	bob     domain.User
	carol   domain.User
}

func newGroupFixture(t *testing.T) groupFixture {
	t.Helper()
	store := repositories.NewMemory()
	moderator, err := moderation.NewModerator([]string{"idiot"}, '*')
	require.NoError(t, err)

	alice := domain.User{ID: uuid.New(), Username: "alice"}
	bob := domain.User{ID: uuid.New(), Username: "bob"}
	carol := domain.User{ID: uuid.New(), Username: "carol"}
	store.SeedUser(alice)
	store.SeedUser(bob)
	store.SeedUser(carol)

	pushes := make(chan contract.PushEvent, 16)
	service := NewGroupChatService(
		store, store, store, store, store,
		runtime.NewKeyedMutex(), &moderator, pushes,
		slog.New(slog.DiscardHandler),
	)
	return groupFixture{service: service, store: store, pushes: pushes, alice: alice, bob: bob, carol: carol}
}

// team creates a chat with all three users and returns its id.
func (f groupFixture) team(t *testing.T) uuid.UUID {
	t.Helper()
	details, err := f.service.CreateChat(context.Background(), CreateGroupChatCommand{
		CreatorID: f.alice.ID,
		Title:     "team",
		MemberIDs: []uuid.UUID{f.bob.ID, f.carol.ID},
	})
	require.NoError(t, err)
	return details.Details.ID
}

func (f groupFixture) send(t *testing.T, chatID, from uuid.UUID, text string) domain.MessagePublic {
	t.Helper()
	message, err := f.service.SendMessage(context.Background(), SendGroupMessageCommand{
		SenderID: from, ChatID: chatID, Text: text,
	})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	return *message
}

func TestGroupChatService_CreateChat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGroupFixture(t)

	// Given invitees including an unknown user and the creator themselves
	details, err := f.service.CreateChat(ctx, CreateGroupChatCommand{
		CreatorID: f.alice.ID,
		Title:     "trip",
		Image:     "https://cdn/trip.png",
		MemberIDs: []uuid.UUID{f.bob.ID, uuid.New(), f.alice.ID},
	})

	// Then only the real invitees are added
	req.NoError(err)
	req.Equal("trip", details.Details.Title)
	req.Equal(2, details.NumberOfMembers)

	members, err := f.service.GetMembers(ctx, f.bob.ID, details.Details.ID)
	req.NoError(err)
	req.Len(members, 2)
}

func TestGroupChatService_CreateChat_RequiresTitle(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)

	_, err := f.service.CreateChat(context.Background(), CreateGroupChatCommand{CreatorID: f.alice.ID})

	req.ErrorIs(err, errors.ErrBadRequest)
}

func TestGroupChatService_SendMessage_RequiresMembership(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGroupFixture(t)

	details, err := f.service.CreateChat(ctx, CreateGroupChatCommand{CreatorID: f.alice.ID, Title: "duo"})
	req.NoError(err)

	// Outsiders get the same answer as for a chat that does not exist
	_, err = f.service.SendMessage(ctx, SendGroupMessageCommand{
		SenderID: f.bob.ID, ChatID: details.Details.ID, Text: "let me in",
	})
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = f.service.GetMessages(ctx, f.bob.ID, details.Details.ID, 0)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestGroupChatService_ReadMessage_WatermarkOnlyMovesForward(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGroupFixture(t)
	chatID := f.team(t)

	older := f.send(t, chatID, f.bob.ID, "one")
	newer := f.send(t, chatID, f.bob.ID, "two")

	// Alice starts with both unread
	unread := f.unreadFor(t, f.alice.ID, chatID)
	req.EqualValues(2, unread)

	// Reading the newest clears everything
	_, err := f.service.ReadMessage(ctx, f.alice.ID, chatID, newer.ID)
	req.NoError(err)
	req.EqualValues(0, f.unreadFor(t, f.alice.ID, chatID))

	// Reading the older one afterwards must not resurrect the count
	_, err = f.service.ReadMessage(ctx, f.alice.ID, chatID, older.ID)
	req.NoError(err)
	req.EqualValues(0, f.unreadFor(t, f.alice.ID, chatID))

	// Carol never read anything and still sees two
	req.EqualValues(2, f.unreadFor(t, f.carol.ID, chatID))
}

func TestGroupChatService_ReadMessage_OwnMessageIsNotFound(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGroupFixture(t)
	chatID := f.team(t)

	mine := f.send(t, chatID, f.alice.ID, "mine")

	_, err := f.service.ReadMessage(ctx, f.alice.ID, chatID, mine.ID)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestGroupChatService_AddMember(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGroupFixture(t)

	details, err := f.service.CreateChat(ctx, CreateGroupChatCommand{
		CreatorID: f.alice.ID, Title: "duo", MemberIDs: []uuid.UUID{f.bob.ID},
	})
	req.NoError(err)
	chatID := details.Details.ID

	member, err := f.service.AddMember(ctx, f.alice.ID, chatID, f.carol.ID)
	req.NoError(err)
	req.Equal("carol", member.User.Username)

	// Re-adding an existing member is rejected
	_, err = f.service.AddMember(ctx, f.alice.ID, chatID, f.carol.ID)
	req.ErrorIs(err, errors.ErrInvalidOperation)

	// Unknown users cannot be added
	_, err = f.service.AddMember(ctx, f.alice.ID, chatID, uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestGroupChatService_KickMember_KeepsHistoryAttributable(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGroupFixture(t)
	chatID := f.team(t)

	f.send(t, chatID, f.bob.ID, "before the kick")

	members, err := f.service.GetMembers(ctx, f.alice.ID, chatID)
	req.NoError(err)
	bobMember, found := lo.Find(members, func(m domain.MemberPublic) bool { return m.User.ID == f.bob.ID })
	req.True(found)

	// When bob is kicked
	kicked, err := f.service.KickMember(ctx, f.alice.ID, chatID, bobMember.ID)
	req.NoError(err)
	req.Equal(f.bob.ID, kicked.User.ID)

	// Then he is gone from the member list and his chats
	members, err = f.service.GetMembers(ctx, f.alice.ID, chatID)
	req.NoError(err)
	req.Len(members, 2)
	bobChats, err := f.service.GetChats(ctx, f.bob.ID)
	req.NoError(err)
	req.Empty(bobChats)

	// But his message still names him as the sender
	messages, err := f.service.GetMessages(ctx, f.alice.ID, chatID, 0)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("bob", messages[0].Sender.User.Username)

	// And re-adding him revives the same member row
	readded, err := f.service.AddMember(ctx, f.alice.ID, chatID, f.bob.ID)
	req.NoError(err)
	req.Equal(bobMember.ID, readded.ID)
}

func TestGroupChatService_KickMember_SelfKickIsRejected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGroupFixture(t)
	chatID := f.team(t)

	members, err := f.service.GetMembers(ctx, f.alice.ID, chatID)
	req.NoError(err)
	mine, found := lo.Find(members, func(m domain.MemberPublic) bool { return m.User.ID == f.alice.ID })
	req.True(found)

	_, err = f.service.KickMember(ctx, f.alice.ID, chatID, mine.ID)
	req.ErrorIs(err, errors.ErrInvalidOperation)
}

func TestGroupChatService_LeaveChat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGroupFixture(t)
	chatID := f.team(t)

	req.NoError(f.service.LeaveChat(ctx, f.carol.ID, chatID))

	_, err := f.service.GetChat(ctx, f.carol.ID, chatID)
	req.ErrorIs(err, errors.ErrNotFound)

	// The chat itself survives for the remaining members
	details, err := f.service.GetChat(ctx, f.alice.ID, chatID)
	req.NoError(err)
	req.Equal(2, details.NumberOfMembers)
}

func TestGroupChatService_Pushes_AddressOtherMembers(t *testing.T) {
	req := require.New(t)
	f := newGroupFixture(t)
	chatID := f.team(t)
	drainPushes(f.pushes)

	f.send(t, chatID, f.alice.ID, "hello all")

	select {
	case evt := <-f.pushes:
		req.Equal("GROUP_CHAT:MESSAGE", evt.Name())
		req.ElementsMatch([]uuid.UUID{f.bob.ID, f.carol.ID}, evt.Recipients())
	default:
		t.Fatal("expected a push event")
	}
}

func TestGroupChatService_GetChats_Summaries(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newGroupFixture(t)
	chatID := f.team(t)

	last := f.send(t, chatID, f.bob.ID, "latest")

	chats, err := f.service.GetChats(ctx, f.alice.ID)
	req.NoError(err)
	req.Len(chats, 1)
	req.Equal(chatID, chats[0].Details.ID)
	req.Equal(3, chats[0].NumberOfMembers)
	req.NotNil(chats[0].LastMessage)
	req.Equal(last.ID, chats[0].LastMessage.ID)
	req.EqualValues(1, chats[0].Unread)
}

func (f groupFixture) unreadFor(t *testing.T, userID, chatID uuid.UUID) int64 {
	t.Helper()
	chats, err := f.service.GetChats(context.Background(), userID)
	require.NoError(t, err)
	for _, chat := range chats {
		if chat.Details.ID == chatID {
			return chat.Unread
		}
	}
	t.Fatalf("chat %s not listed for user %s", chatID, userID)
	return 0
}

func drainPushes(pushes chan contract.PushEvent) {
	for {
		select {
		case <-pushes:
		default:
			return
		}
	}
}
