package handlers

import (
	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/middleware"
	"github.com/arnold/pursue-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func GetGroups(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	// Groups the user owns plus groups joined as a member.
	var groups []models.Group
	if err := database.DB.
		Distinct("groups.*").
		Joins("LEFT JOIN group_members ON group_members.group_id = groups.id AND group_members.deleted_at IS NULL").
		Where("groups.owner_id = ? OR group_members.user_id = ?", userID, userID).
		Preload("Goals").
		Order("groups.created_at DESC").
		Find(&groups).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch groups",
		})
	}

	summaries := make([]models.GroupSummary, len(groups))
	for i, group := range groups {
		var memberCount int64
		database.DB.Model(&models.GroupMember{}).Where("group_id = ?", group.ID).Count(&memberCount)
		summaries[i] = models.GroupSummary{
			ID:          group.ID,
			Name:        group.Name,
			Description: group.Description,
			ReadOnly:    group.ReadOnly,
			GoalCount:   len(group.Goals),
			MemberCount: int(memberCount),
		}
	}

	return c.JSON(summaries)
}

func CreateGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name is required",
		})
	}

	group := models.Group{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := database.DB.Create(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create group",
		})
	}

	// The owner is also a member, as admin.
	member := models.GroupMember{
		GroupID: group.ID,
		UserID:  userID,
		Role:    "admin",
	}
	database.DB.Create(&member)

	return c.Status(fiber.StatusCreated).JSON(group)
}

func GetGroup(c *fiber.Ctx) error {
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

	var group models.Group
	if err := database.DB.Preload("Goals").First(&group, groupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	return c.JSON(group)
}

func UpdateGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	var group models.Group
	if err := database.DB.Where("id = ? AND owner_id = ?", groupID, userID).First(&group).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found or you are not the owner",
		})
	}

	var req models.UpdateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = req.Description
	}

	if err := database.DB.Save(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update group",
		})
	}

	return c.JSON(group)
}

func DeleteGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	result := database.DB.Where("id = ? AND owner_id = ?", groupID, userID).Delete(&models.Group{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found or you are not the owner",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// isGroupMember checks if a user is a member of a group (owner or member)
func isGroupMember(groupID, userID uuid.UUID) bool {
	var group models.Group
	if err := database.DB.Where("id = ? AND owner_id = ?", groupID, userID).First(&group).Error; err == nil {
		return true
	}
	var member models.GroupMember
	return database.DB.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error == nil
}

// isGroupAdmin checks for the admin role (the owner always qualifies).
func isGroupAdmin(groupID, userID uuid.UUID) bool {
	var group models.Group
	if err := database.DB.Where("id = ? AND owner_id = ?", groupID, userID).First(&group).Error; err == nil {
		return true
	}
	var member models.GroupMember
	return database.DB.Where("group_id = ? AND user_id = ? AND role = ?", groupID, userID, "admin").First(&member).Error == nil
}

// groupWritable loads a group and rejects writes when its plan has lapsed.
func groupWritable(c *fiber.Ctx, groupID uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}
	if group.ReadOnly {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "This group is read-only",
		})
	}
	return &group, nil
}
