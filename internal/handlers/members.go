package handlers

import (
	"time"

	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/middleware"
	"github.com/arnold/pursue-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func CreateInvite(c *fiber.Ctx) error {
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

	group, errResp := groupWritable(c, groupID)
	if group == nil {
		return errResp
	}

	var req models.CreateInviteRequest
	if err := c.BodyParser(&req); err != nil {
		// Empty body is fine; defaults apply.
		req = models.CreateInviteRequest{}
	}

	invite := models.GroupInvite{
		GroupID:   groupID,
		InviterID: userID,
		MaxUses:   req.MaxUses,
	}
	if req.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(req.ExpiresIn) * time.Hour)
		invite.ExpiresAt = &exp
	}

	if err := database.DB.Create(&invite).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create invite",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(invite)
}

func JoinGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	code := c.Params("code")

	var invite models.GroupInvite
	if err := database.DB.Where("invite_code = ?", code).First(&invite).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invite not found",
		})
	}
	if !invite.IsValid() {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "Invite has expired",
		})
	}

	group, errResp := groupWritable(c, invite.GroupID)
	if group == nil {
		return errResp
	}

	if isGroupMember(group.ID, userID) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "You are already a member of this group",
		})
	}

	var memberCount int64
	database.DB.Model(&models.GroupMember{}).Where("group_id = ?", group.ID).Count(&memberCount)
	if group.MaxMembers > 0 && int(memberCount) >= group.MaxMembers {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "This group is full",
		})
	}

	member := models.GroupMember{
		GroupID: group.ID,
		UserID:  userID,
		Role:    "member",
	}
	if err := database.DB.Create(&member).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to join group",
		})
	}

	database.DB.Model(&invite).Update("used_count", invite.UsedCount+1)

	var user models.User
	database.DB.First(&user, userID)
	LogActivity(group.ID, userID, models.ActionMemberJoined, nil, map[string]interface{}{
		"memberName": user.PublicName(),
	})
	notifyGroupMembers(group.ID, userID, "member_joined", "New member",
		user.PublicName()+" joined "+group.Name, map[string]interface{}{
			"groupId": group.ID.String(),
		})
	Rooms.Broadcast(group.ID, userID, WSEvent{
		Type:    EventMemberJoined,
		GroupID: group.ID,
		UserID:  userID,
	})

	return c.Status(fiber.StatusCreated).JSON(group)
}

func GetMembers(c *fiber.Ctx) error {
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

	var members []models.GroupMember
	database.DB.Where("group_id = ?", groupID).
		Preload("User").
		Order("joined_at ASC").
		Find(&members)

	infos := make([]models.MemberInfo, len(members))
	for i, m := range members {
		infos[i] = models.MemberInfo{
			ID:          m.UserID,
			Name:        m.User.Name,
			DisplayName: m.User.PublicName(),
			AvatarURL:   m.User.AvatarURL,
			Role:        m.Role,
		}
	}

	return c.JSON(infos)
}

// RemoveMember kicks a member out of a group. Admin only; the owner cannot
// be removed.
func RemoveMember(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}
	targetID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	if !isGroupAdmin(groupID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only group admins can remove members",
		})
	}

	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}
	if targetID == group.OwnerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "The group owner cannot be removed",
		})
	}

	result := database.DB.Where("group_id = ? AND user_id = ?", groupID, targetID).
		Delete(&models.GroupMember{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	LogActivity(groupID, targetID, models.ActionMemberLeft, nil, nil)
	Rooms.Broadcast(groupID, targetID, WSEvent{
		Type:    EventMemberLeft,
		GroupID: groupID,
		UserID:  targetID,
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func LeaveGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}
	if userID == group.OwnerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "The owner cannot leave; delete the group instead",
		})
	}

	result := database.DB.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "You are not a member of this group",
		})
	}

	LogActivity(groupID, userID, models.ActionMemberLeft, nil, nil)
	Rooms.Broadcast(groupID, userID, WSEvent{
		Type:    EventMemberLeft,
		GroupID: groupID,
		UserID:  userID,
	})

	return c.SendStatus(fiber.StatusNoContent)
}
