package entity

import "time"

// User carries the public profile fields resolved onto messages. Account
// lifecycle (signup, credentials, removal) is owned by the auth system; this
// core only reads.
type User struct {
	UUID      string    `gorm:"primaryKey" json:"uuid"`
	Username  string    `gorm:"not null;index" json:"username"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
