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
)

type IDirectChatService interface {
	GetChats(ctx context.Context, userID uuid.UUID) ([]DirectChatSummary, error)
	GetChat(ctx context.Context, userID, partnerID uuid.UUID) (*DirectChatDetails, error)
	GetMessages(ctx context.Context, userID, partnerID uuid.UUID, skip int) ([]domain.MessagePublic, error)
	SendMessage(ctx context.Context, cmd SendDirectMessageCommand) (*domain.MessagePublic, error)
	ReadMessage(ctx context.Context, userID, partnerID, messageID uuid.UUID) (*ReadDirectMessageResult, error)
	BanPartner(ctx context.Context, userID, partnerID uuid.UUID) (*DirectChatDetails, error)
	UnbanPartner(ctx context.Context, userID, partnerID uuid.UUID) (*DirectChatDetails, error)
	GetImages(ctx context.Context, userID, partnerID uuid.UUID, skip int) ([]AttachmentEntry, error)
	GetAudios(ctx context.Context, userID, partnerID uuid.UUID, skip int) ([]AttachmentEntry, error)
	GetFiles(ctx context.Context, userID, partnerID uuid.UUID, skip int) ([]FileAttachmentEntry, error)
}

// DirectChatService drives one-to-one conversations. Chats are created
// lazily on the first message; every read-then-write sequence of a pair
// runs under the pair's keyed lock.
type DirectChatService struct {
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

func NewDirectChatService(
	chats repositories.IChatRepository,
	members repositories.IMemberRepository,
	messages repositories.IMessageRepository,
	files repositories.IFileRepository,
	users repositories.IUserRepository,
	locks *runtime.KeyedMutex,
	moderator *moderation.Moderator,
	pushes chan<- contract.PushEvent,
	log *slog.Logger,
) *DirectChatService {
	return &DirectChatService{
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

func (s *DirectChatService) GetChats(ctx context.Context, userID uuid.UUID) ([]DirectChatSummary, error) {
	chats, err := s.chats.DirectsFor(ctx, userID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	summaries := make([]DirectChatSummary, 0, len(chats))
	for _, chat := range chats {
		mine, partner := chat.Split(userID)

		last, err := s.messages.LastMessage(ctx, chat.Chat.ID)
		if err != nil {
			return nil, errors.Internal(err)
		}
		unread, err := s.messages.CountUnread(ctx, chat.Chat.ID, mine.ID)
		if err != nil {
			return nil, errors.Internal(err)
		}

		summary := DirectChatSummary{
			Details:  chat.Chat.DirectPublic(),
			Partner:  partner.Public(),
			IsBanned: mine.IsBanned,
			Unread:   unread,
		}
		if last != nil {
			public := last.Public()
			summary.LastMessage = &public
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *DirectChatService) GetChat(ctx context.Context, userID, partnerID uuid.UUID) (*DirectChatDetails, error) {
	chat, mine, partner, err := s.existingChat(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	return &DirectChatDetails{
		Details:  chat.Chat.DirectPublic(),
		Partner:  partner.Public(),
		IsBanned: mine.IsBanned,
	}, nil
}

func (s *DirectChatService) GetMessages(ctx context.Context, userID, partnerID uuid.UUID, skip int) ([]domain.MessagePublic, error) {
	chat, _, _, err := s.existingChat(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByChat(ctx, chat.Chat.ID, skip)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return presentAscending(messages), nil
}

func (s *DirectChatService) SendMessage(ctx context.Context, cmd SendDirectMessageCommand) (*domain.MessagePublic, error) {
	if cmd.SenderID == cmd.PartnerID {
		return nil, errors.ErrInvalidOperation
	}

	sender, err := s.userByID(ctx, cmd.SenderID)
	if err != nil {
		return nil, err
	}
	partnerUser, err := s.userByID(ctx, cmd.PartnerID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(domain.PairKey(cmd.SenderID, cmd.PartnerID))
	defer unlock()

	chat, err := s.chats.DirectByPair(ctx, cmd.SenderID, cmd.PartnerID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if chat == nil {
		chat, err = s.chats.CreateDirect(ctx, *sender, *partnerUser)
		if err != nil {
			return nil, errors.Internal(err)
		}
	}
	mine, partner := chat.Split(cmd.SenderID)
	if mine.IsBanned || partner.IsBanned {
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
	s.emit(event.DirectMessageSent{
		To:      cmd.PartnerID,
		Message: public,
		Chat:    chat.Chat.DirectPublic(),
		Partner: mine.Public(),
	})
	return &public, nil
}

func (s *DirectChatService) ReadMessage(ctx context.Context, userID, partnerID, messageID uuid.UUID) (*ReadDirectMessageResult, error) {
	unlock := s.locks.Lock(domain.PairKey(userID, partnerID))
	defer unlock()

	chat, mine, _, err := s.existingChat(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}

	target, err := s.messages.UnreadTarget(ctx, chat.Chat.ID, messageID, mine.ID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if target == nil {
		return nil, errors.ErrNotFound
	}

	// Cascade first, then the target itself, so every message at or before
	// the receipt ends up read.
	if err := s.messages.MarkReadBefore(ctx, chat.Chat.ID, mine.ID, target.CreatedAt); err != nil {
		return nil, errors.Internal(err)
	}
	if err := s.messages.MarkRead(ctx, target.ID); err != nil {
		return nil, errors.Internal(err)
	}
	target.IsRead = true

	public := target.Public()
	s.emit(event.DirectMessageWasRead{
		To:      partnerID,
		Message: public,
		Chat:    chat.Chat.DirectPublic(),
		Partner: mine.Public(),
	})
	return &ReadDirectMessageResult{Message: public, Chat: chat.Chat.DirectPublic()}, nil
}

func (s *DirectChatService) BanPartner(ctx context.Context, userID, partnerID uuid.UUID) (*DirectChatDetails, error) {
	return s.setPartnerBan(ctx, userID, partnerID, true)
}

func (s *DirectChatService) UnbanPartner(ctx context.Context, userID, partnerID uuid.UUID) (*DirectChatDetails, error) {
	return s.setPartnerBan(ctx, userID, partnerID, false)
}

func (s *DirectChatService) GetImages(ctx context.Context, userID, partnerID uuid.UUID, skip int) ([]AttachmentEntry, error) {
	return s.mediaEntries(ctx, userID, partnerID, attachments.Images, skip)
}

func (s *DirectChatService) GetAudios(ctx context.Context, userID, partnerID uuid.UUID, skip int) ([]AttachmentEntry, error) {
	return s.mediaEntries(ctx, userID, partnerID, attachments.Audios, skip)
}

func (s *DirectChatService) GetFiles(ctx context.Context, userID, partnerID uuid.UUID, skip int) ([]FileAttachmentEntry, error) {
	chat, _, _, err := s.existingChat(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListWithAttachments(ctx, chat.Chat.ID, attachments.Files, skip)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return fileEntriesOf(messages), nil
}

func (s *DirectChatService) setPartnerBan(ctx context.Context, userID, partnerID uuid.UUID, banned bool) (*DirectChatDetails, error) {
	unlock := s.locks.Lock(domain.PairKey(userID, partnerID))
	defer unlock()

	chat, mine, partner, err := s.existingChat(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	if partner.IsBanned == banned {
		return nil, errors.ErrInvalidOperation
	}
	if err := s.members.SetBanned(ctx, partner.ID, banned); err != nil {
		return nil, errors.Internal(err)
	}
	partner.IsBanned = banned

	// The push names the actor, so the banned side learns who acted.
	if banned {
		s.emit(event.DirectPartnerBanned{To: partnerID, Chat: chat.Chat.DirectPublic(), Partner: mine.Public()})
	} else {
		s.emit(event.DirectPartnerUnbanned{To: partnerID, Chat: chat.Chat.DirectPublic(), Partner: mine.Public()})
	}
	return &DirectChatDetails{
		Details:  chat.Chat.DirectPublic(),
		Partner:  partner.Public(),
		IsBanned: mine.IsBanned,
	}, nil
}

func (s *DirectChatService) mediaEntries(ctx context.Context, userID, partnerID uuid.UUID, category attachments.Category, skip int) ([]AttachmentEntry, error) {
	chat, _, _, err := s.existingChat(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListWithAttachments(ctx, chat.Chat.ID, category, skip)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return mediaEntriesOf(messages, category), nil
}

// existingChat resolves the pair's chat and both member rows. A missing
// chat or a viewer that is not part of it surfaces as ErrNotFound.
func (s *DirectChatService) existingChat(ctx context.Context, userID, partnerID uuid.UUID) (*repositories.DirectChat, domain.Member, domain.Member, error) {
	chat, err := s.chats.DirectByPair(ctx, userID, partnerID)
	if err != nil {
		return nil, domain.Member{}, domain.Member{}, errors.Internal(err)
	}
	if chat == nil {
		return nil, domain.Member{}, domain.Member{}, errors.ErrNotFound
	}
	mine, partner := chat.Split(userID)
	if mine.User.ID != userID {
		return nil, domain.Member{}, domain.Member{}, errors.ErrNotFound
	}
	return chat, mine, partner, nil
}

func (s *DirectChatService) userByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.ByID(ctx, id)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if user == nil {
		return nil, errors.ErrNotFound
	}
	return user, nil
}

func (s *DirectChatService) emit(evt contract.PushEvent) {
	emitEvent(s.pushes, s.log, evt)
}
