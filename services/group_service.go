package services

import (
	"context"
	"log/slog"
	"time"

	"messenger/contract"
	"messenger/domain"
	"messenger/domain/attachments"
	"messenger/domain/event"
	"messenger/errors"
	"messenger/moderation"
	"messenger/repositories"
	"messenger/runtime"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IGroupChatService interface {
	CreateChat(ctx context.Context, cmd CreateGroupChatCommand) (*GroupChatDetails, error)
	GetChats(ctx context.Context, userID uuid.UUID) ([]GroupChatSummary, error)
	GetChat(ctx context.Context, userID, chatID uuid.UUID) (*GroupChatDetails, error)
	GetMembers(ctx context.Context, userID, chatID uuid.UUID) ([]domain.MemberPublic, error)
	GetMessages(ctx context.Context, userID, chatID uuid.UUID, skip int) ([]domain.MessagePublic, error)
	SendMessage(ctx context.Context, cmd SendGroupMessageCommand) (*domain.MessagePublic, error)
	ReadMessage(ctx context.Context, userID, chatID, messageID uuid.UUID) (*ReadGroupMessageResult, error)
	AddMember(ctx context.Context, userID, chatID, newUserID uuid.UUID) (*domain.MemberPublic, error)
	KickMember(ctx context.Context, userID, chatID, memberID uuid.UUID) (*domain.MemberPublic, error)
	LeaveChat(ctx context.Context, userID, chatID uuid.UUID) error
	GetImages(ctx context.Context, userID, chatID uuid.UUID, skip int) ([]AttachmentEntry, error)
	GetAudios(ctx context.Context, userID, chatID uuid.UUID, skip int) ([]AttachmentEntry, error)
	GetFiles(ctx context.Context, userID, chatID uuid.UUID, skip int) ([]FileAttachmentEntry, error)
}

// GroupChatService drives multi-member conversations. Unlike direct chats,
// read state is a per-member watermark rather than a per-message flag, and
// membership changes while history stays attributable to removed members.
type GroupChatService struct {
	chats     repositories.IChatRepository
	members   repositories.IMemberRepository
	messages  repositories.IMessageRepository
	files     repositories.IFileRepository
	users     repositories.IUserRepository
	locks     *runtime.KeyedMutex
	moderator *moderation.Moderator
	pushes    chan<- contract.PushEvent
	log       *slog.Logger
}

func NewGroupChatService(
	chats repositories.IChatRepository,
	members repositories.IMemberRepository,
	messages repositories.IMessageRepository,
	files repositories.IFileRepository,
	users repositories.IUserRepository,
	locks *runtime.KeyedMutex,
	moderator *moderation.Moderator,
	pushes chan<- contract.PushEvent,
	log *slog.Logger,
) *GroupChatService {
	return &GroupChatService{
		chats:     chats,
		members:   members,
		messages:  messages,
		files:     files,
		users:     users,
		locks:     locks,
		moderator: moderator,
		pushes:    pushes,
		log:       log,
	}
}

func (s *GroupChatService) CreateChat(ctx context.Context, cmd CreateGroupChatCommand) (*GroupChatDetails, error) {
	if cmd.Title == "" {
		return nil, errors.ErrBadRequest
	}
	creator, err := s.userByID(ctx, cmd.CreatorID)
	if err != nil {
		return nil, err
	}

	chat, err := s.chats.CreateGroup(ctx, cmd.Title, cmd.Image, *creator)
	if err != nil {
		return nil, errors.Internal(err)
	}
	creatorMember := chat.Members[0]

	// Initial invitees are added best-effort: unknown ids and the creator's
	// own id are skipped silently.
	added := make([]uuid.UUID, 0, len(cmd.MemberIDs))
	for _, memberID := range lo.Uniq(cmd.MemberIDs) {
		if memberID == cmd.CreatorID {
			continue
		}
		user, err := s.users.ByID(ctx, memberID)
		if err != nil {
			return nil, errors.Internal(err)
		}
		if user == nil {
			continue
		}
		if _, err := s.members.Add(ctx, chat.Chat.ID, *user); err != nil {
			return nil, errors.Internal(err)
		}
		added = append(added, user.ID)
	}

	if len(added) > 0 {
		s.emit(event.GroupChatCreated{
			To:     added,
			Chat:   chat.Chat.GroupPublic(),
			Member: creatorMember.Public(),
		})
	}
	return &GroupChatDetails{
		Details:         chat.Chat.GroupPublic(),
		Member:          creatorMember.Public(),
		NumberOfMembers: 1 + len(added),
	}, nil
}

func (s *GroupChatService) GetChats(ctx context.Context, userID uuid.UUID) ([]GroupChatSummary, error) {
	chats, err := s.chats.GroupsFor(ctx, userID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	summaries := make([]GroupChatSummary, 0, len(chats))
	for _, chat := range chats {
		mine, ok := chat.MemberOf(userID)
		if !ok {
			continue
		}

		last, err := s.messages.LastMessage(ctx, chat.Chat.ID)
		if err != nil {
			return nil, errors.Internal(err)
		}
		unread, err := s.messages.CountUnreadSince(ctx, chat.Chat.ID, mine.ID, mine.LastReadAt)
		if err != nil {
			return nil, errors.Internal(err)
		}

		summary := GroupChatSummary{
			Details:         chat.Chat.GroupPublic(),
			Member:          mine.Public(),
			NumberOfMembers: len(chat.Members),
			Unread:          unread,
		}
		if last != nil {
			public := last.Public()
			summary.LastMessage = &public
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *GroupChatService) GetChat(ctx context.Context, userID, chatID uuid.UUID) (*GroupChatDetails, error) {
	chat, mine, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	return &GroupChatDetails{
		Details:         chat.Chat.GroupPublic(),
		Member:          mine.Public(),
		NumberOfMembers: len(chat.Members),
	}, nil
}

func (s *GroupChatService) GetMembers(ctx context.Context, userID, chatID uuid.UUID) ([]domain.MemberPublic, error) {
	chat, _, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	return lo.Map(chat.Members, func(m domain.Member, _ int) domain.MemberPublic { return m.Public() }), nil
}

func (s *GroupChatService) GetMessages(ctx context.Context, userID, chatID uuid.UUID, skip int) ([]domain.MessagePublic, error) {
	_, _, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByChat(ctx, chatID, skip)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return presentAscending(messages), nil
}

func (s *GroupChatService) SendMessage(ctx context.Context, cmd SendGroupMessageCommand) (*domain.MessagePublic, error) {
	unlock := s.locks.Lock(cmd.ChatID.String())
	defer unlock()

	chat, mine, err := s.memberChat(ctx, cmd.SenderID, cmd.ChatID)
	if err != nil {
		return nil, err
	}
	if mine.IsBanned {
		return nil, errors.ErrForbidden
	}

	payload, err := buildPayload(ctx, s.files, s.moderator, s.log, cmd.SenderID, cmd.Text, cmd.FileIDs, cmd.ImageIDs, cmd.AudioID)
	if err != nil {
		return nil, err
	}

	message := domain.Message{
		ID:        uuid.New(),
		ChatID:    chat.Chat.ID,
		Sender:    mine,
		ParentID:  resolveParent(ctx, s.messages, chat.Chat.ID, cmd.ParentID),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, errors.Internal(err)
	}

	public := message.Public()
	s.emit(event.GroupMessageSent{
		To:      s.otherMemberUserIDs(chat, cmd.SenderID),
		Message: public,
		Chat:    chat.Chat.GroupPublic(),
		Sender:  mine.Public(),
	})
	return &public, nil
}

func (s *GroupChatService) ReadMessage(ctx context.Context, userID, chatID, messageID uuid.UUID) (*ReadGroupMessageResult, error) {
	unlock := s.locks.Lock(chatID.String())
	defer unlock()

	chat, mine, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	target, err := s.messages.ByIDInChat(ctx, chatID, messageID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if target == nil || target.Sender.ID == mine.ID {
		return nil, errors.ErrNotFound
	}

	// The watermark only moves forward: reading an older message after a
	// newer one must not resurrect unread counts.
	if mine.LastReadAt == nil || target.CreatedAt.After(*mine.LastReadAt) {
		if err := s.members.SetLastReadAt(ctx, mine.ID, target.CreatedAt); err != nil {
			return nil, errors.Internal(err)
		}
	}

	public := target.Public()
	s.emit(event.GroupMessageWasRead{
		To:      s.otherMemberUserIDs(chat, userID),
		Message: public,
		Chat:    chat.Chat.GroupPublic(),
		Member:  mine.Public(),
	})
	return &ReadGroupMessageResult{Message: public, Chat: chat.Chat.GroupPublic()}, nil
}

func (s *GroupChatService) AddMember(ctx context.Context, userID, chatID, newUserID uuid.UUID) (*domain.MemberPublic, error) {
	unlock := s.locks.Lock(chatID.String())
	defer unlock()

	chat, mine, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if mine.IsBanned {
		return nil, errors.ErrForbidden
	}
	if _, exists := chat.MemberOf(newUserID); exists {
		return nil, errors.ErrInvalidOperation
	}

	user, err := s.userByID(ctx, newUserID)
	if err != nil {
		return nil, err
	}
	member, err := s.members.Add(ctx, chatID, *user)
	if err != nil {
		return nil, errors.Internal(err)
	}

	public := member.Public()
	to := append(s.otherMemberUserIDs(chat, userID), newUserID)
	s.emit(event.GroupMemberWasAdded{To: to, Chat: chat.Chat.GroupPublic(), Member: public})
	return &public, nil
}

func (s *GroupChatService) KickMember(ctx context.Context, userID, chatID, memberID uuid.UUID) (*domain.MemberPublic, error) {
	unlock := s.locks.Lock(chatID.String())
	defer unlock()

	chat, mine, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if mine.IsBanned {
		return nil, errors.ErrForbidden
	}
	if mine.ID == memberID {
		// Leaving has its own operation.
		return nil, errors.ErrInvalidOperation
	}

	target, found := lo.Find(chat.Members, func(m domain.Member) bool { return m.ID == memberID })
	if !found {
		return nil, errors.ErrNotFound
	}
	if err := s.members.Remove(ctx, target.ID); err != nil {
		return nil, errors.Internal(err)
	}

	public := target.Public()
	s.emit(event.GroupMemberWasKicked{
		To:     s.otherMemberUserIDs(chat, userID),
		Chat:   chat.Chat.GroupPublic(),
		Member: public,
	})
	return &public, nil
}

func (s *GroupChatService) LeaveChat(ctx context.Context, userID, chatID uuid.UUID) error {
	unlock := s.locks.Lock(chatID.String())
	defer unlock()

	chat, mine, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if err := s.members.Remove(ctx, mine.ID); err != nil {
		return errors.Internal(err)
	}

	// A chat whose last member leaves is kept: history remains queryable if
	// a removed member is ever re-added.
	s.emit(event.GroupMemberHasLeft{
		To:     s.otherMemberUserIDs(chat, userID),
		Chat:   chat.Chat.GroupPublic(),
		Member: mine.Public(),
	})
	return nil
}

func (s *GroupChatService) GetImages(ctx context.Context, userID, chatID uuid.UUID, skip int) ([]AttachmentEntry, error) {
	return s.mediaEntries(ctx, userID, chatID, attachments.Images, skip)
}

func (s *GroupChatService) GetAudios(ctx context.Context, userID, chatID uuid.UUID, skip int) ([]AttachmentEntry, error) {
	return s.mediaEntries(ctx, userID, chatID, attachments.Audios, skip)
}

func (s *GroupChatService) GetFiles(ctx context.Context, userID, chatID uuid.UUID, skip int) ([]FileAttachmentEntry, error) {
	_, _, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListWithAttachments(ctx, chatID, attachments.Files, skip)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return fileEntriesOf(messages), nil
}

func (s *GroupChatService) mediaEntries(ctx context.Context, userID, chatID uuid.UUID, category attachments.Category, skip int) ([]AttachmentEntry, error) {
	_, _, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListWithAttachments(ctx, chatID, category, skip)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return mediaEntriesOf(messages, category), nil
}

// memberChat resolves the chat and the caller's active member row. Both a
// missing chat and a non-member caller surface as ErrNotFound so outsiders
// cannot probe which chats exist.
func (s *GroupChatService) memberChat(ctx context.Context, userID, chatID uuid.UUID) (*repositories.GroupChat, domain.Member, error) {
	chat, err := s.chats.GroupByID(ctx, chatID)
	if err != nil {
		return nil, domain.Member{}, errors.Internal(err)
	}
	if chat == nil {
		return nil, domain.Member{}, errors.ErrNotFound
	}
	mine, ok := chat.MemberOf(userID)
	if !ok {
		return nil, domain.Member{}, errors.ErrNotFound
	}
	return chat, mine, nil
}

func (s *GroupChatService) otherMemberUserIDs(chat *repositories.GroupChat, except uuid.UUID) []uuid.UUID {
	others := lo.Filter(chat.Members, func(m domain.Member, _ int) bool { return m.User.ID != except })
	return lo.Map(others, func(m domain.Member, _ int) uuid.UUID { return m.User.ID })
}

func (s *GroupChatService) userByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.ByID(ctx, id)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if user == nil {
		return nil, errors.ErrNotFound
	}
	return user, nil
}

func (s *GroupChatService) emit(evt contract.PushEvent) {
	emitEvent(s.pushes, s.log, evt)
}
