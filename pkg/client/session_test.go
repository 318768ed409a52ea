package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

type fakeSubscription struct {
	unsubscribed bool
}

func (s *fakeSubscription) Unsubscribe() error {
	s.unsubscribed = true
	return nil
}

type fakeSubscriber struct {
	handler func(Event)
	sub     *fakeSubscription
}

func (s *fakeSubscriber) Subscribe(channelID string, handler func(Event)) (Subscription, error) {
	s.handler = handler
	s.sub = &fakeSubscription{}
	return s.sub, nil
}

func (s *fakeSubscriber) emit(t *testing.T, eventType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Could not marshal payload: %v", err)
	}
	s.handler(Event{Type: eventType, Payload: raw})
}

// fetchFunc lets a test inject events mid-fetch, emulating the non-atomic
// join/history window.
type fetchFunc func(ctx context.Context, channelID string) ([]Message, error)

func (f fetchFunc) ListMessages(ctx context.Context, channelID string) ([]Message, error) {
	return f(ctx, channelID)
}

func text(s string) *string { return &s }

func msg(id, content string, at time.Time) Message {
	return Message{ID: id, ChannelID: "chan-1", SenderID: "alice", Content: text(content), CreatedAt: at}
}

func TestOpenRendersHistory(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	subscriber := &fakeSubscriber{}
	session := NewSession("chan-1", fetchFunc(func(ctx context.Context, channelID string) ([]Message, error) {
		return []Message{msg("m1", "one", base), msg("m2", "two", base.Add(time.Second))}, nil
	}))

	err := session.Open(context.Background(), subscriber)
	assert.Equal(t, err, nil)

	snapshot := session.Snapshot()
	assert.Equal(t, len(snapshot), 2)
	assert.Equal(t, snapshot[0].ID, "m1")
	assert.Equal(t, snapshot[1].ID, "m2")
}

func TestFetchWindowCreateNotRenderedTwice(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	subscriber := &fakeSubscriber{}

	var session *Session
	session = NewSession("chan-1", fetchFunc(func(ctx context.Context, channelID string) ([]Message, error) {
		// The create for the brand-new message lands while the fetch is in
		// flight, and the history that resolves already includes it.
		subscriber.emit(t, eventCreated, msg("new", "fresh", base.Add(time.Second)))
		return []Message{msg("m1", "old", base), msg("new", "fresh", base.Add(time.Second))}, nil
	}))

	err := session.Open(context.Background(), subscriber)
	assert.Equal(t, err, nil)

	snapshot := session.Snapshot()
	assert.Equal(t, len(snapshot), 2)

	seen := map[string]int{}
	for _, m := range snapshot {
		seen[m.ID]++
	}
	assert.Equal(t, seen["new"], 1)
}

func TestLiveCreateEchoIsDeduplicated(t *testing.T) {
	base := time.Now().UTC()
	subscriber := &fakeSubscriber{}
	session := NewSession("chan-1", fetchFunc(func(ctx context.Context, channelID string) ([]Message, error) {
		return nil, nil
	}))

	err := session.Open(context.Background(), subscriber)
	assert.Equal(t, err, nil)

	// The sender's own broadcast echo arrives on top of the one already
	// applied through the live stream.
	subscriber.emit(t, eventCreated, msg("m1", "hello", base))
	subscriber.emit(t, eventCreated, msg("m1", "hello", base))

	assert.Equal(t, len(session.Snapshot()), 1)
}

func TestEditAppliesIfNewer(t *testing.T) {
	base := time.Now().UTC()
	subscriber := &fakeSubscriber{}
	session := NewSession("chan-1", fetchFunc(func(ctx context.Context, channelID string) ([]Message, error) {
		return []Message{msg("m1", "original", base)}, nil
	}))

	err := session.Open(context.Background(), subscriber)
	assert.Equal(t, err, nil)

	subscriber.emit(t, eventEdited, editedPayload{
		MessageID: "m1", Content: "second", Edited: true, EditedAt: base.Add(2 * time.Minute),
	})
	// A stale edit delivered late must not clobber the newer one.
	subscriber.emit(t, eventEdited, editedPayload{
		MessageID: "m1", Content: "first", Edited: true, EditedAt: base.Add(time.Minute),
	})

	snapshot := session.Snapshot()
	assert.Equal(t, *snapshot[0].Content, "second")
	assert.Equal(t, snapshot[0].Edited, true)
}

func TestEditForUnknownMessageIsIgnored(t *testing.T) {
	subscriber := &fakeSubscriber{}
	session := NewSession("chan-1", fetchFunc(func(ctx context.Context, channelID string) ([]Message, error) {
		return nil, nil
	}))

	err := session.Open(context.Background(), subscriber)
	assert.Equal(t, err, nil)

	subscriber.emit(t, eventEdited, editedPayload{MessageID: "ghost", Content: "x", EditedAt: time.Now()})
	assert.Equal(t, len(session.Snapshot()), 0)
}

func TestDeleteAppliesIfPresent(t *testing.T) {
	base := time.Now().UTC()
	subscriber := &fakeSubscriber{}
	session := NewSession("chan-1", fetchFunc(func(ctx context.Context, channelID string) ([]Message, error) {
		return []Message{msg("m1", "one", base), msg("m2", "two", base.Add(time.Second))}, nil
	}))

	err := session.Open(context.Background(), subscriber)
	assert.Equal(t, err, nil)

	subscriber.emit(t, eventDeleted, deletedPayload{MessageID: "m1", ChannelID: "chan-1"})
	subscriber.emit(t, eventDeleted, deletedPayload{MessageID: "ghost", ChannelID: "chan-1"})

	snapshot := session.Snapshot()
	assert.Equal(t, len(snapshot), 1)
	assert.Equal(t, snapshot[0].ID, "m2")
}

func TestCloseUnsubscribes(t *testing.T) {
	subscriber := &fakeSubscriber{}
	session := NewSession("chan-1", fetchFunc(func(ctx context.Context, channelID string) ([]Message, error) {
		return nil, nil
	}))

	err := session.Open(context.Background(), subscriber)
	assert.Equal(t, err, nil)

	assert.Equal(t, session.Close(), nil)
	assert.Equal(t, subscriber.sub.unsubscribed, true)

	// Closing twice is harmless.
	assert.Equal(t, session.Close(), nil)
}

func TestFailedFetchUnsubscribes(t *testing.T) {
	subscriber := &fakeSubscriber{}
	session := NewSession("chan-1", fetchFunc(func(ctx context.Context, channelID string) ([]Message, error) {
		return nil, context.DeadlineExceeded
	}))

	err := session.Open(context.Background(), subscriber)
	assert.NotEqual(t, err, nil)
	assert.Equal(t, subscriber.sub.unsubscribed, true)
}
