package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/middleware"
	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/period"
	"github.com/arnold/pursue-api/internal/pulse"
)

// groupStatuses computes each member's logged state for a group on the given
// date. A member counts as logged when they have an entry in the current
// period of ANY of the group's goals; LastLogAt is the newest such entry.
func groupStatuses(groupID uuid.UUID, localDate time.Time) (pulse.GroupStatuses, error) {
	out := pulse.GroupStatuses{GroupID: groupID}

	var goals []models.Goal
	if err := database.DB.Where("group_id = ?", groupID).Find(&goals).Error; err != nil {
		return out, err
	}
	var members []models.GroupMember
	if err := database.DB.Where("group_id = ?", groupID).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return out, err
	}

	led := ledger()
	for _, m := range members {
		status := pulse.MemberStatus{
			UserID:      m.UserID,
			DisplayName: m.User.PublicName(),
		}
		for _, goal := range goals {
			entry, err := led.FindCurrent(goal.ID, m.UserID, period.Cadence(goal.Cadence), localDate)
			if err != nil || entry == nil {
				continue
			}
			status.Logged = true
			if status.LastLogAt == nil || entry.LoggedAt.After(*status.LastLogAt) {
				at := entry.LoggedAt
				status.LastLogAt = &at
			}
		}
		out.Members = append(out.Members, status)
	}
	return out, nil
}

// GetGroupStatus returns the per-member logged view for one group.
func GetGroupStatus(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	if !isGroupMember(groupID, userID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	localDate, err := resolveLocalDate(c.Query("date"), c.Query("timezone"), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Date must be YYYY-MM-DD",
		})
	}

	statuses, err := groupStatuses(groupID, localDate)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute member status",
		})
	}

	return c.JSON(fiber.Map{
		"groupId": groupID,
		"members": statuses.Members,
	})
}

// GetPulse merges the caller's groups into one cross-group view: every person
// they share a group with, OR-combined logged status, and the group a nudge
// to that person should route to.
func GetPulse(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	localDate, err := resolveLocalDate(c.Query("date"), c.Query("timezone"), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Date must be YYYY-MM-DD",
		})
	}

	var groups []models.Group
	if err := database.DB.
		Distinct("groups.*").
		Joins("LEFT JOIN group_members ON group_members.group_id = groups.id AND group_members.deleted_at IS NULL").
		Where("groups.owner_id = ? OR group_members.user_id = ?", userID, userID).
		Order("groups.created_at ASC").
		Find(&groups).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch groups",
		})
	}

	perGroup := make([]pulse.GroupStatuses, 0, len(groups))
	for _, g := range groups {
		statuses, err := groupStatuses(g.ID, localDate)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to compute member status",
			})
		}
		perGroup = append(perGroup, statuses)
	}

	merged := pulse.Merge(perGroup)

	// The caller appears in their own groups; filter them out of the view.
	people := make([]pulse.Merged, 0, len(merged))
	for _, m := range merged {
		if m.UserID != userID {
			people = append(people, m)
		}
	}

	return c.JSON(fiber.Map{"people": people})
}
