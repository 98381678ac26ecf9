package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressEntry is the ledger row for one goal/user/period. The composite
// unique index is the engine's central invariant: at most one entry per
// (goal, user, period), enforced at the storage layer so racing creates from
// two devices cannot both land. Numeric and duration goals keep their running
// period total in Value; binary and journal entries always carry 1.
//
// Entries are hard-deleted (no gorm.DeletedAt): undo and edit both remove the
// row outright, and a soft-delete tombstone would collide with the unique
// index on recreate.
type ProgressEntry struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	GoalID      uuid.UUID `json:"goalId" gorm:"type:uuid;not null;uniqueIndex:idx_goal_user_period"`
	UserID      uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_goal_user_period"`
	PeriodStart time.Time `json:"periodStart" gorm:"not null;uniqueIndex:idx_goal_user_period"`
	Value       float64   `json:"value" gorm:"not null"`
	Note        *string   `json:"note"`
	LogTitle    *string   `json:"logTitle"` // journal goals only
	PhotoURL    *string   `json:"photoUrl"` // attached after creation
	LoggedAt    time.Time `json:"loggedAt" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (e *ProgressEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now()
	}
	return nil
}

// Progress DTOs
type LogProgressRequest struct {
	Value    float64 `json:"value"`
	Note     *string `json:"note"`
	LogTitle *string `json:"logTitle"`
	Date     string  `json:"date"`     // user-local calendar date, YYYY-MM-DD; empty = today
	Timezone string  `json:"timezone"` // IANA name; used when Date is empty
}

type ReplaceProgressRequest struct {
	Value    float64 `json:"value"`
	Note     *string `json:"note"`
	LogTitle *string `json:"logTitle"`
}

type LogProgressResponse struct {
	EntryID     uuid.UUID `json:"entryId"`
	PeriodStart time.Time `json:"periodStart"`
	Completed   bool      `json:"completed"`
	Accumulated float64   `json:"accumulated"` // raw period total, uncapped
	Percent     *int      `json:"percent"`     // clamped display percent, nil for binary/journal
	// UndoWindowSeconds tells the client how long its undo offer should stay
	// live after a fresh log. Zero on edit responses.
	UndoWindowSeconds int `json:"undoWindowSeconds,omitempty"`
}
