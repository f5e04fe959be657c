package services

import (
	"context"
	"log/slog"

	"messenger/contract"
	"messenger/domain"
	"messenger/domain/attachments"
	"messenger/errors"
	"messenger/moderation"
	"messenger/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// buildPayload resolves attachment ids through the silent ownership and
// category filters, censors the text and rejects a fully empty result.
func buildPayload(
	ctx context.Context,
	files repositories.IFileRepository,
	moderator *moderation.Moderator,
	log *slog.Logger,
	senderID uuid.UUID,
	text string,
	fileIDs, imageIDs []uuid.UUID,
	audioID *uuid.UUID,
) (domain.Payload, error) {
	var audio *domain.File
	if audioID != nil {
		found, err := files.OwnedByID(ctx, *audioID, senderID, attachments.Audios)
		if err != nil {
			return domain.Payload{}, errors.Internal(err)
		}
		audio = found
	}

	attachedFiles, err := files.OwnedByIDs(ctx, fileIDs, senderID, attachments.Files)
	if err != nil {
		return domain.Payload{}, errors.Internal(err)
	}
	images, err := files.OwnedByIDs(ctx, imageIDs, senderID, attachments.Images)
	if err != nil {
		return domain.Payload{}, errors.Internal(err)
	}

	censored, masked := moderator.Censor(text)
	if masked {
		log.Info("censored message text",
			slog.String("sender_id", senderID.String()),
			slog.String("language", moderation.DetectLanguage(text)))
	}

	payload := domain.NewPayload(censored, attachedFiles, images, audio)
	if payload.Empty() {
		return domain.Payload{}, errors.ErrBadRequest
	}
	return payload, nil
}

// resolveParent keeps the reply reference only when the parent actually
// belongs to the chat; anything else degrades to a plain message.
func resolveParent(ctx context.Context, messages repositories.IMessageRepository, chatID uuid.UUID, parentID *uuid.UUID) *uuid.UUID {
	if parentID == nil {
		return nil
	}
	parent, err := messages.ByIDInChat(ctx, chatID, *parentID)
	if err != nil || parent == nil {
		return nil
	}
	return &parent.ID
}

// emitEvent hands the event to the fan-out worker without ever blocking the
// request path. A full channel drops the push; persisted state is already
// correct and clients recover it on their next query.
func emitEvent(pushes chan<- contract.PushEvent, log *slog.Logger, evt contract.PushEvent) {
	select {
	case pushes <- evt:
	default:
		log.Warn("push channel full, dropping event", slog.String("event", evt.Name()))
	}
}

// mediaEntriesOf flattens messages into one entry per image or audio
// attachment: a message with three images becomes three entries sharing its
// id and timestamp.
func mediaEntriesOf(messages []domain.Message, category attachments.Category) []AttachmentEntry {
	entries := make([]AttachmentEntry, 0, len(messages))
	for _, message := range messages {
		if category == attachments.Audios {
			if message.Payload.Audio != nil {
				entries = append(entries, AttachmentEntry{
					ID:        message.ID,
					URL:       message.Payload.Audio.URL,
					CreatedAt: message.CreatedAt,
				})
			}
			continue
		}
		for _, image := range message.Payload.Images {
			entries = append(entries, AttachmentEntry{
				ID:        message.ID,
				URL:       image.URL,
				CreatedAt: message.CreatedAt,
			})
		}
	}
	return entries
}

func fileEntriesOf(messages []domain.Message) []FileAttachmentEntry {
	entries := make([]FileAttachmentEntry, 0, len(messages))
	for _, message := range messages {
		for _, file := range message.Payload.Files {
			entries = append(entries, FileAttachmentEntry{
				ID:        message.ID,
				File:      file.Public(),
				CreatedAt: message.CreatedAt,
			})
		}
	}
	return entries
}

// presentAscending flips a newest-first page into presentation order.
func presentAscending(messages []domain.Message) []domain.MessagePublic {
	public := lo.Map(messages, func(m domain.Message, _ int) domain.MessagePublic { return m.Public() })
	lo.Reverse(public)
	return public
}
