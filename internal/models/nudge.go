package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Nudge records one reminder sent between members. The unique index carries
// the per-day dedup rule: the same sender cannot nudge the same recipient
// about the same goal in the same group twice on one sender-local day.
// Group-level nudges store uuid.Nil in GoalID so the index still applies
// (a SQL NULL would never collide with itself).
type Nudge struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SenderID    uuid.UUID `json:"senderId" gorm:"type:uuid;not null;uniqueIndex:idx_nudge_dedup"`
	RecipientID uuid.UUID `json:"recipientId" gorm:"type:uuid;not null;uniqueIndex:idx_nudge_dedup"`
	GroupID     uuid.UUID `json:"groupId" gorm:"type:uuid;not null;uniqueIndex:idx_nudge_dedup"`
	GoalID      uuid.UUID `json:"goalId" gorm:"type:uuid;not null;uniqueIndex:idx_nudge_dedup"`
	// LocalDate is the sender's calendar date — the cap is a sender-side
	// anti-spam control, so the sender's day boundary governs.
	LocalDate time.Time `json:"localDate" gorm:"not null;uniqueIndex:idx_nudge_dedup"`
	CreatedAt time.Time `json:"createdAt"`
}

func (n *Nudge) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NudgeQuota is the per-sender-per-day counter row backing the daily send
// cap. The increment is a single conditional UPDATE so two concurrent sends
// cannot both slip under the cap.
type NudgeQuota struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_nudge_quota"`
	LocalDate time.Time `gorm:"not null;uniqueIndex:idx_nudge_quota"`
	SentCount int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *NudgeQuota) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// Nudge DTOs
type SendNudgeRequest struct {
	RecipientID uuid.UUID  `json:"recipientId" validate:"required"`
	GroupID     uuid.UUID  `json:"groupId" validate:"required"`
	GoalID      *uuid.UUID `json:"goalId"`
	Date        string     `json:"date"`     // sender-local date, YYYY-MM-DD; empty = today
	Timezone    string     `json:"timezone"` // IANA name; used when Date is empty
}
