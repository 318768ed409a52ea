// Package client implements the consumer-side contract for a channel: how a
// view bootstraps history, subscribes to live deltas, and folds the two
// together without duplicating messages.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Message mirrors the wire shape served by the history endpoint and carried
// in message.created events.
type Message struct {
	ID            string     `json:"id"`
	ChannelID     string     `json:"channelId"`
	SenderID      string     `json:"senderId"`
	Content       *string    `json:"content"`
	AttachmentRef *string    `json:"attachmentRef,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	Edited        bool       `json:"edited"`
	EditedAt      *time.Time `json:"editedAt"`
	Sender        *Sender    `json:"sender"`
}

type Sender struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

const (
	eventCreated = "message.created"
	eventEdited  = "message.edited"
	eventDeleted = "message.deleted"
)

type editedPayload struct {
	MessageID string    `json:"messageId"`
	Content   string    `json:"content"`
	Edited    bool      `json:"edited"`
	EditedAt  time.Time `json:"editedAt"`
}

type deletedPayload struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
}

// HistoryFetcher serves the durable ordered log, typically over HTTP.
type HistoryFetcher interface {
	ListMessages(ctx context.Context, channelID string) ([]Message, error)
}

// Subscription and Subscriber mirror the server bus contract from the
// consuming side.
type Subscription interface {
	Unsubscribe() error
}

type Subscriber interface {
	Subscribe(channelID string, handler func(Event)) (Subscription, error)
}

// Session is the reconciled view of one channel. Join and history fetch are
// not atomic, so events arriving during the fetch window are buffered and
// folded in afterwards: creates dedup by message id, edits apply if newer,
// deletes apply if present.
type Session struct {
	channelID string
	fetcher   HistoryFetcher

	lock     sync.Mutex
	sub      Subscription
	fetching bool
	buffered []Event
	order    []string
	byID     map[string]Message
}

func NewSession(channelID string, fetcher HistoryFetcher) *Session {
	return &Session{
		channelID: channelID,
		fetcher:   fetcher,
		byID:      make(map[string]Message),
	}
}

// Open subscribes first, then fetches history, then replays whatever arrived
// in between. Subscribing before fetching is what guarantees no delta is
// missed; the replay is what keeps the overlap from rendering twice.
func (s *Session) Open(ctx context.Context, subscriber Subscriber) error {
	s.lock.Lock()
	s.fetching = true
	s.lock.Unlock()

	sub, err := subscriber.Subscribe(s.channelID, s.onEvent)
	if err != nil {
		return err
	}

	history, err := s.fetcher.ListMessages(ctx, s.channelID)
	if err != nil {
		sub.Unsubscribe()
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.sub = sub
	for _, message := range history {
		s.upsertLocked(message)
	}
	for _, event := range s.buffered {
		s.applyLocked(event)
	}
	s.buffered = nil
	s.fetching = false
	return nil
}

// Close unsubscribes from the channel topic; the session stops receiving
// deltas and its snapshot freezes.
func (s *Session) Close() error {
	s.lock.Lock()
	sub := s.sub
	s.sub = nil
	s.lock.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}

// Snapshot returns the current reconciled log in creation order.
func (s *Session) Snapshot() []Message {
	s.lock.Lock()
	defer s.lock.Unlock()

	out := make([]Message, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Session) onEvent(event Event) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.fetching {
		s.buffered = append(s.buffered, event)
		return
	}
	s.applyLocked(event)
}

func (s *Session) applyLocked(event Event) {
	switch event.Type {
	case eventCreated:
		var message Message
		if json.Unmarshal(event.Payload, &message) != nil {
			return
		}
		s.upsertLocked(message)

	case eventEdited:
		var payload editedPayload
		if json.Unmarshal(event.Payload, &payload) != nil {
			return
		}
		existing, ok := s.byID[payload.MessageID]
		if !ok {
			return
		}
		// Apply only if newer than what is already rendered.
		if existing.EditedAt != nil && !payload.EditedAt.After(*existing.EditedAt) {
			return
		}
		content := payload.Content
		existing.Content = &content
		existing.Edited = true
		editedAt := payload.EditedAt
		existing.EditedAt = &editedAt
		s.byID[payload.MessageID] = existing

	case eventDeleted:
		var payload deletedPayload
		if json.Unmarshal(event.Payload, &payload) != nil {
			return
		}
		if _, ok := s.byID[payload.MessageID]; !ok {
			return
		}
		delete(s.byID, payload.MessageID)
		for i, id := range s.order {
			if id == payload.MessageID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// upsertLocked dedups by message id: a create echoed for a message already in
// the history (or already applied) is a no-op.
func (s *Session) upsertLocked(message Message) {
	if _, ok := s.byID[message.ID]; ok {
		return
	}
	s.byID[message.ID] = message
	s.order = append(s.order, message.ID)
}
