package entity

import "time"

// Message is a single entry in a channel's append-only log. Seq is the
// insertion-order tiebreak for identical CreatedAt values; ID is the opaque
// identifier clients see.
type Message struct {
	Seq           uint64     `gorm:"primaryKey;autoIncrement" json:"-"`
	ID            string     `gorm:"uniqueIndex;not null" json:"id"`
	ChannelID     string     `gorm:"index;not null" json:"channelId"`
	SenderID      string     `gorm:"index" json:"senderId"`
	Content       *string    `json:"content"`
	AttachmentRef *string    `json:"attachmentRef,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;index" json:"createdAt"`
	Edited        bool       `gorm:"not null;default:false" json:"edited"`
	EditedAt      *time.Time `json:"editedAt"`

	// Sender is the resolved public profile. Nil when the account behind
	// SenderID no longer exists (orphaned message).
	Sender *User `gorm:"foreignKey:SenderID;references:UUID" json:"sender"`
}

// Orphaned reports whether ownership of the message can no longer be
// verified. Ownership-gated operations must fail closed on orphans.
func (m *Message) Orphaned() bool {
	return m.Sender == nil
}
