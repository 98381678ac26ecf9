package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/middleware"
	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/services"
)

// GetNotifications returns the caller's notification feed, newest first,
// with the unread count for the badge.
func GetNotifications(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	offset := (page - 1) * limit

	var notifications []models.Notification
	database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications)

	var total int64
	database.DB.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total)

	var unread int64
	database.DB.Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false).Count(&unread)

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"total":         total,
		"unread":        unread,
		"page":          page,
		"limit":         limit,
	})
}

func MarkNotificationRead(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid notification ID",
		})
	}

	result := database.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notifID, userID).
		Update("read", true)

	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Notification not found",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

func MarkAllRead(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)

	return c.JSON(fiber.Map{"success": true})
}

// RegisterDeviceToken saves the device's FCM token so nudges reach it.
func RegisterDeviceToken(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token is required",
		})
	}

	database.DB.Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", req.Token)

	return c.JSON(fiber.Map{"success": true})
}

// CreateNotification persists an in-app notification and mirrors it to push.
// Push delivery is fire-and-forget; a dropped push never blocks the handler
// that raised the notification.
func CreateNotification(userID uuid.UUID, notifType, title, body string, metadata map[string]interface{}) {
	notif := models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
	}

	var pushData map[string]string
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			s := string(data)
			notif.Metadata = &s
		}
		// Push payloads are flat string maps; flatten the metadata so the
		// client can navigate to the right group/goal on tap.
		pushData = make(map[string]string)
		for k, v := range metadata {
			pushData[k] = fmt.Sprintf("%v", v)
		}
		pushData["type"] = notifType
	}

	database.DB.Create(&notif)

	if services.Push != nil {
		go services.Push.SendToUser(userID, title, body, pushData)
	}
}

// NotifyNudge raises the recipient-side notification for a sent nudge. The
// copy stays encouraging — a nudge is a cheer, not a demand.
func NotifyNudge(recipientID, senderID, groupID uuid.UUID, senderName, groupName string) {
	CreateNotification(recipientID, "nudge", "Nudge from "+senderName,
		senderName+" is cheering you on in "+groupName, map[string]interface{}{
			"groupId":  groupID.String(),
			"senderId": senderID.String(),
		})
}

// notifyGroupMembers fans a notification out to everyone in the group except
// the member who triggered it.
func notifyGroupMembers(groupID, excludeUserID uuid.UUID, notifType, title, body string, metadata map[string]interface{}) {
	var members []models.GroupMember
	database.DB.Where("group_id = ? AND user_id != ?", groupID, excludeUserID).Find(&members)

	for _, m := range members {
		CreateNotification(m.UserID, notifType, title, body, metadata)
	}
}
