package repositories

import (
	"context"
	"testing"
	"time"

	"messenger/domain"
	"messenger/domain/attachments"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedDirect(t *testing.T, store *Memory) (*DirectChat, domain.User, domain.User) {
	t.Helper()
	alice := domain.User{ID: uuid.New(), Username: "alice"}
	bob := domain.User{ID: uuid.New(), Username: "bob"}
	store.SeedUser(alice)
	store.SeedUser(bob)
	chat, err := store.CreateDirect(context.Background(), alice, bob)
	require.NoError(t, err)
	return chat, alice, bob
}

func storeMessage(t *testing.T, store *Memory, chatID uuid.UUID, sender domain.Member, payload domain.Payload, at time.Time) domain.Message {
	t.Helper()
	message := domain.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		Sender:    sender,
		Payload:   payload,
		CreatedAt: at,
	}
	require.NoError(t, store.Create(context.Background(), message))
	return message
}

func TestMemory_DirectByPair_IsOrderIndependent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemory()
	chat, alice, bob := seedDirect(t, store)

	found, err := store.DirectByPair(ctx, bob.ID, alice.ID)
	req.NoError(err)
	req.NotNil(found)
	req.Equal(chat.Chat.ID, found.Chat.ID)

	// Absence is (nil, nil), not an error
	missing, err := store.DirectByPair(ctx, alice.ID, uuid.New())
	req.NoError(err)
	req.Nil(missing)
}

func TestMemory_ListWithAttachments_FiltersByCategory(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemory()
	chat, alice, _ := seedDirect(t, store)
	sender, _ := chat.Split(alice.ID)
	now := time.Now().UTC()

	image := domain.File{ID: uuid.New(), UserID: alice.ID, Extension: "png", URL: "https://cdn/p.png"}
	audio := domain.File{ID: uuid.New(), UserID: alice.ID, Extension: "mp3", URL: "https://cdn/v.mp3"}

	storeMessage(t, store, chat.Chat.ID, sender, domain.NewPayload("plain", nil, nil, nil), now)
	withImage := storeMessage(t, store, chat.Chat.ID, sender,
		domain.NewPayload("", nil, []domain.File{image}, nil), now.Add(time.Second))
	withAudio := storeMessage(t, store, chat.Chat.ID, sender,
		domain.NewPayload("", nil, nil, &audio), now.Add(2*time.Second))

	images, err := store.ListWithAttachments(ctx, chat.Chat.ID, attachments.Images, 0)
	req.NoError(err)
	req.Len(images, 1)
	req.Equal(withImage.ID, images[0].ID)

	audios, err := store.ListWithAttachments(ctx, chat.Chat.ID, attachments.Audios, 0)
	req.NoError(err)
	req.Len(audios, 1)
	req.Equal(withAudio.ID, audios[0].ID)

	files, err := store.ListWithAttachments(ctx, chat.Chat.ID, attachments.Files, 0)
	req.NoError(err)
	req.Empty(files)
}

func TestMemory_CountUnreadSince_Watermark(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemory()
	chat, alice, _ := seedDirect(t, store)
	aliceMember, bobMember := chat.Split(alice.ID)
	now := time.Now().UTC()

	storeMessage(t, store, chat.Chat.ID, bobMember, domain.NewPayload("one", nil, nil, nil), now)
	storeMessage(t, store, chat.Chat.ID, bobMember, domain.NewPayload("two", nil, nil, nil), now.Add(time.Second))
	storeMessage(t, store, chat.Chat.ID, aliceMember, domain.NewPayload("own", nil, nil, nil), now.Add(2*time.Second))

	// A nil watermark counts every message from others
	count, err := store.CountUnreadSince(ctx, chat.Chat.ID, aliceMember.ID, nil)
	req.NoError(err)
	req.EqualValues(2, count)

	// A watermark at the first message leaves only the second
	count, err = store.CountUnreadSince(ctx, chat.Chat.ID, aliceMember.ID, &now)
	req.NoError(err)
	req.EqualValues(1, count)
}

func TestMemory_MarkReadBefore_IsStrictlyBefore(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemory()
	chat, alice, _ := seedDirect(t, store)
	aliceMember, bobMember := chat.Split(alice.ID)
	now := time.Now().UTC()

	first := storeMessage(t, store, chat.Chat.ID, bobMember, domain.NewPayload("1", nil, nil, nil), now)
	second := storeMessage(t, store, chat.Chat.ID, bobMember, domain.NewPayload("2", nil, nil, nil), now.Add(time.Second))

	req.NoError(store.MarkReadBefore(ctx, chat.Chat.ID, aliceMember.ID, second.CreatedAt))

	got, err := store.ByIDInChat(ctx, chat.Chat.ID, first.ID)
	req.NoError(err)
	req.True(got.IsRead)

	// The cutoff message itself is untouched
	got, err = store.ByIDInChat(ctx, chat.Chat.ID, second.ID)
	req.NoError(err)
	req.False(got.IsRead)
}

func TestMemory_UnreadTarget_ExcludesOwnAndRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemory()
	chat, alice, _ := seedDirect(t, store)
	aliceMember, bobMember := chat.Split(alice.ID)
	now := time.Now().UTC()

	own := storeMessage(t, store, chat.Chat.ID, aliceMember, domain.NewPayload("own", nil, nil, nil), now)
	theirs := storeMessage(t, store, chat.Chat.ID, bobMember, domain.NewPayload("theirs", nil, nil, nil), now)

	target, err := store.UnreadTarget(ctx, chat.Chat.ID, own.ID, aliceMember.ID)
	req.NoError(err)
	req.Nil(target)

	target, err = store.UnreadTarget(ctx, chat.Chat.ID, theirs.ID, aliceMember.ID)
	req.NoError(err)
	req.NotNil(target)

	req.NoError(store.MarkRead(ctx, theirs.ID))
	target, err = store.UnreadTarget(ctx, chat.Chat.ID, theirs.ID, aliceMember.ID)
	req.NoError(err)
	req.Nil(target)
}

func TestMemory_FileOwnership(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemory()
	owner := uuid.New()

	image := domain.File{ID: uuid.New(), UserID: owner, Extension: "png", URL: "https://cdn/a.png"}
	song := domain.File{ID: uuid.New(), UserID: owner, Extension: "mp3", URL: "https://cdn/b.mp3"}
	store.SeedFile(image)
	store.SeedFile(song)

	// Category and ownership filter silently
	found, err := store.OwnedByIDs(ctx, []uuid.UUID{image.ID, song.ID}, owner, attachments.Images)
	req.NoError(err)
	req.Len(found, 1)
	req.Equal(image.ID, found[0].ID)

	none, err := store.OwnedByIDs(ctx, []uuid.UUID{image.ID}, uuid.New(), attachments.Images)
	req.NoError(err)
	req.Empty(none)

	file, err := store.OwnedByID(ctx, song.ID, owner, attachments.Images)
	req.NoError(err)
	req.Nil(file)
}
