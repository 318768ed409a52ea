package bus

import (
	"encoding/json"
	"time"

	"prepchat/internal/entity"
)

type EventType string

const (
	EventMessageCreated EventType = "message.created"
	EventMessageEdited  EventType = "message.edited"
	EventMessageDeleted EventType = "message.deleted"
)

// Event is the wire envelope fanned out to every subscriber of a channel
// topic. Payload shape depends on Type.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// CreatedPayload is the full message, sender profile resolved, exactly as a
// history fetch would return it.
type CreatedPayload = entity.Message

type EditedPayload struct {
	MessageID string    `json:"messageId"`
	Content   string    `json:"content"`
	Edited    bool      `json:"edited"`
	EditedAt  time.Time `json:"editedAt"`
}

type DeletedPayload struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
}

func newEvent(t EventType, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Type: t, Payload: raw}, nil
}
