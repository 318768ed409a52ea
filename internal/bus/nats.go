package bus

import (
	"encoding/json"
	"fmt"

	"prepchat/internal/entity"
	"prepchat/internal/metrics"
	"prepchat/internal/nlog"

	"github.com/nats-io/nats.go"
)

// Publisher is the mutation gateway's side of the bus. Publishes are
// fire-and-forget: they happen only after the store commit, and a failed
// publish is logged, never retried and never rolled back.
type Publisher interface {
	MessageCreated(message *entity.Message) error
	MessageEdited(channelID string, payload EditedPayload) error
	MessageDeleted(payload DeletedPayload) error
}

// Subscription is a live membership in one channel topic.
type Subscription interface {
	Unsubscribe() error
}

// Subscriber attaches a handler to a channel topic. Delivery is at-most-once
// per publish and ordered per subscription; there is no backlog or replay —
// durable history is served separately by the message store.
type Subscriber interface {
	Subscribe(channelID string, handler func(Event)) (Subscription, error)
}

const subjectPrefix = "chat.channel"

func subjectFor(channelID string) string {
	return fmt.Sprintf("%s.%s", subjectPrefix, channelID)
}

// NatsBus implements both halves of the bus over core NATS. Core (not
// JetStream) delivery matches the contract exactly: current subscribers only,
// no durable stream behind the topic.
type NatsBus struct {
	nc      *nats.Conn
	logger  nlog.Logger
	metrics *metrics.Set
}

func NewNatsBus(nc *nats.Conn, logger nlog.Logger, m *metrics.Set) *NatsBus {
	return &NatsBus{nc: nc, logger: logger, metrics: m}
}

func (b *NatsBus) MessageCreated(message *entity.Message) error {
	event, err := newEvent(EventMessageCreated, message)
	if err != nil {
		return err
	}
	return b.publish(message.ChannelID, event)
}

func (b *NatsBus) MessageEdited(channelID string, payload EditedPayload) error {
	event, err := newEvent(EventMessageEdited, payload)
	if err != nil {
		return err
	}
	return b.publish(channelID, event)
}

func (b *NatsBus) MessageDeleted(payload DeletedPayload) error {
	event, err := newEvent(EventMessageDeleted, payload)
	if err != nil {
		return err
	}
	return b.publish(payload.ChannelID, event)
}

func (b *NatsBus) publish(channelID string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.nc.Publish(subjectFor(channelID), data); err != nil {
		b.metrics.PublishFailures.Inc()
		return err
	}
	b.metrics.EventsPublished.Inc()
	return nil
}

func (b *NatsBus) Subscribe(channelID string, handler func(Event)) (Subscription, error) {
	sub, err := b.nc.Subscribe(subjectFor(channelID), func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.logger.Logf("Dropping undecodable event on %s: %v", msg.Subject, err)
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, err
	}
	b.metrics.ActiveSubscriptions.Inc()
	return &natsSubscription{sub: sub, metrics: b.metrics}, nil
}

type natsSubscription struct {
	sub     *nats.Subscription
	metrics *metrics.Set
}

func (s *natsSubscription) Unsubscribe() error {
	if !s.sub.IsValid() {
		return nil
	}
	s.metrics.ActiveSubscriptions.Dec()
	return s.sub.Unsubscribe()
}
