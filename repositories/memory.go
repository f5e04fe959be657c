package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"messenger/domain"
	"messenger/domain/attachments"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Memory implements every repository interface against process-local maps.
// It backs the service tests and keeps the engines runnable without a
// database. One store, one mutex: cross-entity reads stay consistent.
type Memory struct {
	mu       sync.RWMutex
	chats    map[uuid.UUID]domain.Chat
	pairKeys map[string]uuid.UUID
	members  map[uuid.UUID]memberRow
	messages []messageRow
	files    map[uuid.UUID]domain.File
	users    map[uuid.UUID]domain.User
}

type memberRow struct {
	ID         uuid.UUID
	ChatID     uuid.UUID
	UserID     uuid.UUID
	IsBanned   bool
	LastReadAt *time.Time
	RemovedAt  *time.Time
	CreatedAt  time.Time
}

type messageRow struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	SenderID  uuid.UUID
	ParentID  *uuid.UUID
	Payload   domain.Payload
	IsRead    bool
	CreatedAt time.Time
	seq       int
}

func NewMemory() *Memory {
	return &Memory{
		chats:    make(map[uuid.UUID]domain.Chat),
		pairKeys: make(map[string]uuid.UUID),
		members:  make(map[uuid.UUID]memberRow),
		files:    make(map[uuid.UUID]domain.File),
		users:    make(map[uuid.UUID]domain.User),
	}
}

func (m *Memory) SeedUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) SeedFile(f domain.File) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[f.ID] = f
}

// ChatCount reports how many chats exist.
func (m *Memory) ChatCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chats)
}

// --- IChatRepository ---

func (m *Memory) DirectByPair(_ context.Context, a, b uuid.UUID) (*DirectChat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chatID, ok := m.pairKeys[domain.PairKey(a, b)]
	if !ok {
		return nil, nil
	}
	chat := m.chats[chatID]
	return &DirectChat{Chat: chat, Members: m.membersOf(chatID)}, nil
}

func (m *Memory) CreateDirect(_ context.Context, a, b domain.User) (*DirectChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	chat := domain.Chat{ID: uuid.New(), Kind: domain.ChatDirect, CreatedAt: now}
	m.chats[chat.ID] = chat
	m.pairKeys[domain.PairKey(a.ID, b.ID)] = chat.ID
	for _, user := range []domain.User{a, b} {
		row := memberRow{ID: uuid.New(), ChatID: chat.ID, UserID: user.ID, CreatedAt: now}
		m.members[row.ID] = row
	}
	return &DirectChat{Chat: chat, Members: m.membersOf(chat.ID)}, nil
}

func (m *Memory) DirectsFor(_ context.Context, userID uuid.UUID) ([]DirectChat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []DirectChat
	for _, chat := range m.chatsOf(userID, domain.ChatDirect) {
		result = append(result, DirectChat{Chat: chat, Members: m.membersOf(chat.ID)})
	}
	return result, nil
}

func (m *Memory) CreateGroup(_ context.Context, title, image string, creator domain.User) (*GroupChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	chat := domain.Chat{ID: uuid.New(), Kind: domain.ChatGroup, Title: title, Image: image, CreatedAt: now}
	m.chats[chat.ID] = chat
	row := memberRow{ID: uuid.New(), ChatID: chat.ID, UserID: creator.ID, CreatedAt: now}
	m.members[row.ID] = row
	return &GroupChat{Chat: chat, Members: m.membersOf(chat.ID)}, nil
}

func (m *Memory) GroupByID(_ context.Context, chatID uuid.UUID) (*GroupChat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chat, ok := m.chats[chatID]
	if !ok || chat.Kind != domain.ChatGroup {
		return nil, nil
	}
	return &GroupChat{Chat: chat, Members: m.membersOf(chatID)}, nil
}

func (m *Memory) GroupsFor(_ context.Context, userID uuid.UUID) ([]GroupChat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []GroupChat
	for _, chat := range m.chatsOf(userID, domain.ChatGroup) {
		result = append(result, GroupChat{Chat: chat, Members: m.membersOf(chat.ID)})
	}
	return result, nil
}

// --- IMemberRepository ---

func (m *Memory) SetBanned(_ context.Context, memberID uuid.UUID, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.members[memberID]
	row.IsBanned = banned
	m.members[memberID] = row
	return nil
}

func (m *Memory) Add(_ context.Context, chatID uuid.UUID, user domain.User) (domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, row := range m.members {
		if row.ChatID == chatID && row.UserID == user.ID {
			row.RemovedAt = nil
			row.IsBanned = false
			m.members[id] = row
			return m.toMember(row), nil
		}
	}
	row := memberRow{ID: uuid.New(), ChatID: chatID, UserID: user.ID, CreatedAt: time.Now().UTC()}
	m.members[row.ID] = row
	return m.toMember(row), nil
}

func (m *Memory) Remove(_ context.Context, memberID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.members[memberID]
	now := time.Now().UTC()
	row.RemovedAt = &now
	m.members[memberID] = row
	return nil
}

func (m *Memory) SetLastReadAt(_ context.Context, memberID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.members[memberID]
	row.LastReadAt = &at
	m.members[memberID] = row
	return nil
}

// --- IMessageRepository ---

func (m *Memory) Create(_ context.Context, message domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, messageRow{
		ID:        message.ID,
		ChatID:    message.ChatID,
		SenderID:  message.Sender.ID,
		ParentID:  message.ParentID,
		Payload:   message.Payload,
		IsRead:    message.IsRead,
		CreatedAt: message.CreatedAt,
		seq:       len(m.messages),
	})
	return nil
}

func (m *Memory) ListByChat(_ context.Context, chatID uuid.UUID, skip int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.newestFirst(func(r messageRow) bool { return r.ChatID == chatID })
	return m.page(rows, skip), nil
}

func (m *Memory) ByIDInChat(_ context.Context, chatID, messageID uuid.UUID) (*domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.messages {
		if row.ID == messageID && row.ChatID == chatID {
			message := m.toMessage(row)
			return &message, nil
		}
	}
	return nil, nil
}

func (m *Memory) UnreadTarget(_ context.Context, chatID, messageID, readerMemberID uuid.UUID) (*domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.messages {
		if row.ID == messageID && row.ChatID == chatID && !row.IsRead && row.SenderID != readerMemberID {
			message := m.toMessage(row)
			return &message, nil
		}
	}
	return nil, nil
}

func (m *Memory) MarkRead(_ context.Context, messageID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == messageID {
			m.messages[i].IsRead = true
		}
	}
	return nil
}

func (m *Memory) MarkReadBefore(_ context.Context, chatID, readerMemberID uuid.UUID, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		row := m.messages[i]
		if row.ChatID == chatID && !row.IsRead && row.SenderID != readerMemberID && row.CreatedAt.Before(before) {
			m.messages[i].IsRead = true
		}
	}
	return nil
}

func (m *Memory) CountUnread(_ context.Context, chatID, viewerMemberID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, row := range m.messages {
		if row.ChatID == chatID && !row.IsRead && row.SenderID != viewerMemberID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) CountUnreadSince(_ context.Context, chatID, viewerMemberID uuid.UUID, since *time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, row := range m.messages {
		if row.ChatID != chatID || row.SenderID == viewerMemberID {
			continue
		}
		if since != nil && !row.CreatedAt.After(*since) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *Memory) LastMessage(_ context.Context, chatID uuid.UUID) (*domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.newestFirst(func(r messageRow) bool { return r.ChatID == chatID })
	if len(rows) == 0 {
		return nil, nil
	}
	message := m.toMessage(rows[0])
	return &message, nil
}

func (m *Memory) ListWithAttachments(_ context.Context, chatID uuid.UUID, category attachments.Category, skip int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.newestFirst(func(r messageRow) bool {
		if r.ChatID != chatID {
			return false
		}
		switch category {
		case attachments.Images:
			return len(r.Payload.Images) > 0
		case attachments.Audios:
			return r.Payload.Audio != nil
		default:
			return len(r.Payload.Files) > 0
		}
	})
	return m.page(rows, skip), nil
}

// --- IFileRepository ---

func (m *Memory) OwnedByIDs(_ context.Context, ids []uuid.UUID, ownerID uuid.UUID, category attachments.Category) ([]domain.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.File
	for _, id := range ids {
		file, ok := m.files[id]
		if ok && file.UserID == ownerID && category.Allows(file.Extension) {
			result = append(result, file)
		}
	}
	return result, nil
}

func (m *Memory) OwnedByID(_ context.Context, id, ownerID uuid.UUID, category attachments.Category) (*domain.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	file, ok := m.files[id]
	if !ok || file.UserID != ownerID || !category.Allows(file.Extension) {
		return nil, nil
	}
	return &file, nil
}

// --- IUserRepository ---

func (m *Memory) ByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// --- internals (callers hold the lock) ---

func (m *Memory) chatsOf(userID uuid.UUID, kind domain.ChatKind) []domain.Chat {
	var result []domain.Chat
	for _, row := range m.members {
		if row.UserID != userID || row.RemovedAt != nil {
			continue
		}
		chat := m.chats[row.ChatID]
		if chat.Kind == kind {
			result = append(result, chat)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

func (m *Memory) membersOf(chatID uuid.UUID) []domain.Member {
	var rows []memberRow
	for _, row := range m.members {
		if row.ChatID == chatID && row.RemovedAt == nil {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return lo.Map(rows, func(r memberRow, _ int) domain.Member { return m.toMember(r) })
}

func (m *Memory) toMember(row memberRow) domain.Member {
	return domain.Member{
		ID:         row.ID,
		ChatID:     row.ChatID,
		User:       m.users[row.UserID],
		IsBanned:   row.IsBanned,
		LastReadAt: row.LastReadAt,
		CreatedAt:  row.CreatedAt,
	}
}

func (m *Memory) toMessage(row messageRow) domain.Message {
	return domain.Message{
		ID:        row.ID,
		ChatID:    row.ChatID,
		Sender:    m.toMember(m.members[row.SenderID]),
		ParentID:  row.ParentID,
		Payload:   row.Payload,
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
	}
}

func (m *Memory) newestFirst(keep func(messageRow) bool) []messageRow {
	var rows []messageRow
	for _, row := range m.messages {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows
}

func (m *Memory) page(rows []messageRow, skip int) []domain.Message {
	if skip >= len(rows) {
		return nil
	}
	rows = rows[skip:]
	if len(rows) > QueryLimit {
		rows = rows[:QueryLimit]
	}
	return lo.Map(rows, func(r messageRow, _ int) domain.Message { return m.toMessage(r) })
}
