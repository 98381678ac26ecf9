package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Group struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID `json:"ownerId" gorm:"type:uuid;index;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Description *string   `json:"description"`
	// ReadOnly is set when the group's plan lapses; members can still view
	// but every write path rejects. Consumed as an input signal only.
	ReadOnly   bool           `json:"readOnly" gorm:"default:false"`
	MaxMembers int            `json:"maxMembers" gorm:"default:12"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	Goals      []Goal         `json:"goals,omitempty" gorm:"foreignKey:GroupID"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Group DTOs
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type GroupSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ReadOnly    bool      `json:"readOnly"`
	GoalCount   int       `json:"goalCount"`
	MemberCount int       `json:"memberCount"`
}
