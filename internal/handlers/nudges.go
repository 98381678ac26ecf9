package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/arnold/pursue-api/internal/config"
	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/middleware"
	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/nudge"
)

// SendNudge sends a reminder to another member. Blocked nudges are routine
// outcomes, not failures: the guard's rejections come back as 200 with
// sent: false and an errorCode the client can render.
func SendNudge(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.SendNudgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.RecipientID == uuid.Nil || req.GroupID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Recipient and group are required",
		})
	}

	if !isGroupMember(req.GroupID, userID) || !isGroupMember(req.GroupID, req.RecipientID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	group, errResp := groupWritable(c, req.GroupID)
	if group == nil {
		return errResp
	}

	if req.GoalID != nil {
		var goal models.Goal
		if err := database.DB.Where("id = ? AND group_id = ?", *req.GoalID, req.GroupID).First(&goal).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Goal not found in this group",
			})
		}
	}

	localDate, err := resolveLocalDate(req.Date, req.Timezone, userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Date must be YYYY-MM-DD",
		})
	}

	guard := nudge.NewGuard(database.DB, config.Load().NudgeDailyCap)
	record, err := guard.Send(userID, req.RecipientID, req.GroupID, req.GoalID, localDate)
	if err != nil {
		switch {
		case errors.Is(err, nudge.ErrSelfNudge):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "You cannot nudge yourself",
			})
		case errors.Is(err, nudge.ErrRecipientComplete):
			return c.JSON(fiber.Map{
				"sent":      false,
				"errorCode": "RecipientComplete",
				"error":     "They already finished this one",
			})
		case errors.Is(err, nudge.ErrAlreadyNudgedToday):
			return c.JSON(fiber.Map{
				"sent":      false,
				"errorCode": "AlreadyNudgedToday",
				"error":     "You already nudged them about this today",
			})
		case errors.Is(err, nudge.ErrDailySendLimit):
			return c.JSON(fiber.Map{
				"sent":      false,
				"errorCode": "DailySendLimit",
				"error":     "You have hit your daily nudge limit",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send nudge",
		})
	}

	var sender models.User
	database.DB.First(&sender, userID)

	NotifyNudge(req.RecipientID, userID, group.ID, sender.PublicName(), group.Name)
	LogActivity(group.ID, userID, models.ActionNudgeSent, &req.RecipientID, map[string]interface{}{
		"recipientId": req.RecipientID.String(),
	})
	Rooms.Broadcast(group.ID, userID, WSEvent{
		Type:    EventNudgeSent,
		GroupID: group.ID,
		UserID:  userID,
		Data:    fiber.Map{"recipientId": req.RecipientID},
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"sent":  true,
		"nudge": record,
	})
}
