package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Goal struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID uuid.UUID `json:"groupId" gorm:"type:uuid;index;not null"`
	Title   string    `json:"title" gorm:"not null"`
	// Cadence and metric type are fixed at creation; retargeting a goal's
	// recurrence would orphan existing period keys.
	Cadence     string   `json:"cadence" gorm:"not null"`    // daily, weekly, monthly, yearly
	MetricType  string   `json:"metricType" gorm:"not null"` // binary, numeric, duration, journal
	TargetValue *float64 `json:"targetValue"`                // required for numeric/duration
	Unit        *string  `json:"unit"`                       // e.g. "pages", "minutes"
	// ActiveDays is a Sunday=0 bitmask for daily goals; 0 = every day.
	// Rest days are presentation only and never shift period identity.
	ActiveDays int            `json:"activeDays" gorm:"default:0"`
	CreatedBy  uuid.UUID      `json:"createdBy" gorm:"type:uuid;not null"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Goal DTOs
type CreateGoalRequest struct {
	Title       string   `json:"title" validate:"required"`
	Cadence     string   `json:"cadence" validate:"required"`
	MetricType  string   `json:"metricType" validate:"required"`
	TargetValue *float64 `json:"targetValue"`
	Unit        *string  `json:"unit"`
	ActiveDays  int      `json:"activeDays"`
}

type UpdateGoalRequest struct {
	Title       *string  `json:"title"`
	TargetValue *float64 `json:"targetValue"`
	Unit        *string  `json:"unit"`
	ActiveDays  *int     `json:"activeDays"`
}
