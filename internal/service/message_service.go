package service

import (
	"context"
	"strings"
	"time"

	"prepchat/internal/bus"
	"prepchat/internal/entity"
	"prepchat/internal/idem"
	"prepchat/internal/metrics"
	"prepchat/internal/nlog"
	"prepchat/internal/repository"
	"prepchat/internal/storage"
	apperrors "prepchat/pkg/errors"

	"github.com/google/uuid"
)

// How long a claimed idempotency key stays bound to its message.
const idemKeyTTL = 15 * time.Minute

type SendInput struct {
	ChannelID      string
	SenderID       string
	Content        string
	AttachmentRef  string
	IdempotencyKey string
}

// MessageService is the mutation gateway. Every committed mutation publishes
// exactly one event to the owning channel's topic, always after the store
// commit — both the HTTP path and the websocket plain-text path go through
// here, so attachment sends broadcast like any other send.
type MessageService interface {
	Send(ctx context.Context, in SendInput) (*entity.Message, error)
	Edit(ctx context.Context, messageID, requesterUUID, content string) (*entity.Message, error)
	Delete(ctx context.Context, messageID, requesterUUID string) error
	ListByChannel(ctx context.Context, channelID string, limit int) ([]*entity.Message, error)
}

type messageGateway struct {
	messageRepository repository.MessageRepository
	channelRepository repository.ChannelRepository
	userRepository    repository.UserRepository
	publisher         bus.Publisher
	attachments       storage.AttachmentStore
	idemStore         idem.Store
	metrics           *metrics.Set
	logger            nlog.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	channelRepo repository.ChannelRepository,
	userRepo repository.UserRepository,
	publisher bus.Publisher,
	attachments storage.AttachmentStore,
	idemStore idem.Store,
	m *metrics.Set,
	logger nlog.Logger,
) MessageService {
	return &messageGateway{
		messageRepository: messageRepo,
		channelRepository: channelRepo,
		userRepository:    userRepo,
		publisher:         publisher,
		attachments:       attachments,
		idemStore:         idemStore,
		metrics:           m,
		logger:            logger,
	}
}

func (g *messageGateway) Logf(format string, v ...any) {
	g.logger.Logf(format, v...)
}

func (g *messageGateway) Send(ctx context.Context, in SendInput) (*entity.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && in.AttachmentRef == "" {
		return nil, apperrors.ErrNoContentNoAttachment
	}

	if _, err := g.channelRepository.GetByID(in.ChannelID); err != nil {
		return nil, err
	}

	claimedKey := ""
	if in.IdempotencyKey != "" && g.idemStore != nil {
		if replay, err := g.replayForKey(ctx, in.IdempotencyKey); replay != nil || err != nil {
			return replay, err
		}
		claimedKey = in.IdempotencyKey
	}

	message := &entity.Message{
		ID:        uuid.New().String(),
		ChannelID: in.ChannelID,
		SenderID:  in.SenderID,
		CreatedAt: time.Now().UTC(),
	}
	if content != "" {
		message.Content = &content
	}
	if in.AttachmentRef != "" {
		ref := in.AttachmentRef
		message.AttachmentRef = &ref
	}

	// Non-resolving here is tolerated: the sender just authenticated, and the
	// listing contract returns an absent sender rather than failing.
	sender, err := g.userRepository.Resolve(in.SenderID)
	if err != nil {
		g.releaseKey(ctx, claimedKey)
		return nil, err
	}
	message.Sender = sender

	if err := g.messageRepository.Create(message); err != nil {
		// Nothing committed: the key must not lock out the retry this
		// failure invites.
		g.releaseKey(ctx, claimedKey)
		return nil, err
	}

	if in.IdempotencyKey != "" && g.idemStore != nil {
		if err := g.idemStore.Bind(ctx, in.IdempotencyKey, message.ID, idemKeyTTL); err != nil {
			g.Logf("Binding idempotency key failed for message %s: %v", message.ID, err)
		}
	}

	g.metrics.MessagesSent.Inc()
	if err := g.publisher.MessageCreated(message); err != nil {
		g.Logf("Broadcast dropped for created message %s: %v", message.ID, err)
	}
	return message, nil
}

func (g *messageGateway) releaseKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := g.idemStore.Release(ctx, key); err != nil {
		g.Logf("Releasing idempotency key failed: %v", err)
	}
}

// replayForKey claims the idempotency key; on a repeat claim it answers with
// the message the first send committed instead of committing a duplicate.
func (g *messageGateway) replayForKey(ctx context.Context, key string) (*entity.Message, error) {
	fresh, err := g.idemStore.Begin(ctx, key, idemKeyTTL)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	if fresh {
		return nil, nil
	}
	messageID, err := g.idemStore.Lookup(ctx, key)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	if messageID == "" {
		// First send claimed the key but has not committed yet.
		return nil, apperrors.Unavailable("a send with this idempotency key is still in flight")
	}
	g.Logf("Replaying send for idempotency key, message %s", messageID)
	return g.messageRepository.GetByID(messageID)
}

func (g *messageGateway) Edit(ctx context.Context, messageID, requesterUUID, content string) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ErrEmptyContent
	}

	now := time.Now().UTC()
	message, err := g.messageRepository.EditOwned(messageID, requesterUUID, content, now)
	if err != nil {
		return nil, err
	}

	g.metrics.MessagesEdited.Inc()
	err = g.publisher.MessageEdited(message.ChannelID, bus.EditedPayload{
		MessageID: message.ID,
		Content:   content,
		Edited:    true,
		EditedAt:  now,
	})
	if err != nil {
		g.Logf("Broadcast dropped for edited message %s: %v", message.ID, err)
	}
	return message, nil
}

func (g *messageGateway) Delete(ctx context.Context, messageID, requesterUUID string) error {
	message, err := g.messageRepository.DeleteOwned(messageID, requesterUUID)
	if err != nil {
		return err
	}

	// The record is gone regardless of what happens to the binary.
	if message.AttachmentRef != nil {
		if ok := g.attachments.Delete(ctx, *message.AttachmentRef); !ok {
			g.Logf("Attachment %s for deleted message %s left behind", *message.AttachmentRef, message.ID)
		}
	}

	g.metrics.MessagesDeleted.Inc()
	err = g.publisher.MessageDeleted(bus.DeletedPayload{
		MessageID: message.ID,
		ChannelID: message.ChannelID,
	})
	if err != nil {
		g.Logf("Broadcast dropped for deleted message %s: %v", message.ID, err)
	}
	return nil
}

func (g *messageGateway) ListByChannel(ctx context.Context, channelID string, limit int) ([]*entity.Message, error) {
	return g.messageRepository.ListByChannel(channelID, limit)
}
