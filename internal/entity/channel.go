package entity

import "time"

// Channel groups an ordered message log under a subject key. At most one
// channel exists per subject key; the unique index makes concurrent first-time
// creation safe.
type Channel struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	SubjectKey  string    `gorm:"uniqueIndex;not null" json:"subjectKey"`
	DisplayName string    `gorm:"not null" json:"displayName"`
	Description string    `json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}
