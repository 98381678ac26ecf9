package handlers

import (
	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/middleware"
	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/period"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// activeDaysValid checks the Sunday=0 bitmask covers only days 0-6.
func activeDaysValid(mask int) bool {
	return mask >= 0 && mask < 1<<7
}

func CreateGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	if !isGroupAdmin(groupID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only group admins can create goals",
		})
	}

	group, errResp := groupWritable(c, groupID)
	if group == nil {
		return errResp
	}

	var req models.CreateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	// Cadence and metric are validated here, once; the period resolver
	// treats anything that slips past as a documented fallback.
	cadence, err := period.ParseCadence(req.Cadence)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     "Cadence must be daily, weekly, monthly, or yearly",
			"errorCode": "InvalidCadence",
		})
	}
	metric, err := period.ParseMetric(req.MetricType)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Metric type must be binary, numeric, duration, or journal",
		})
	}

	if metric == period.Numeric || metric == period.Duration {
		if req.TargetValue == nil || *req.TargetValue <= 0 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":     "Numeric and duration goals require a positive target value",
				"errorCode": "MissingTarget",
			})
		}
	}

	// Active days only make sense for daily goals.
	if req.ActiveDays != 0 && cadence != period.Daily {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Active days apply to daily goals only",
		})
	}
	if !activeDaysValid(req.ActiveDays) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid active days mask",
		})
	}

	goal := models.Goal{
		GroupID:     groupID,
		Title:       req.Title,
		Cadence:     string(cadence),
		MetricType:  string(metric),
		TargetValue: req.TargetValue,
		Unit:        req.Unit,
		ActiveDays:  req.ActiveDays,
		CreatedBy:   userID,
	}
	if err := database.DB.Create(&goal).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create goal",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(goal)
}

// UpdateGoal edits a goal's title, target, unit, or active days. Cadence and
// metric type stay fixed — changing recurrence would orphan period keys.
func UpdateGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	var goal models.Goal
	if err := database.DB.First(&goal, goalID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
	}

	if !isGroupAdmin(goal.GroupID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only group admins can edit goals",
		})
	}

	group, errResp := groupWritable(c, goal.GroupID)
	if group == nil {
		return errResp
	}

	var req models.UpdateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title != nil && *req.Title != "" {
		goal.Title = *req.Title
	}
	if req.TargetValue != nil {
		metric := period.Metric(goal.MetricType)
		if (metric == period.Numeric || metric == period.Duration) && *req.TargetValue <= 0 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":     "Target value must be positive",
				"errorCode": "MissingTarget",
			})
		}
		goal.TargetValue = req.TargetValue
	}
	if req.Unit != nil {
		goal.Unit = req.Unit
	}
	if req.ActiveDays != nil {
		if goal.Cadence != string(period.Daily) && *req.ActiveDays != 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Active days apply to daily goals only",
			})
		}
		if !activeDaysValid(*req.ActiveDays) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid active days mask",
			})
		}
		goal.ActiveDays = *req.ActiveDays
	}

	if err := database.DB.Save(&goal).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update goal",
		})
	}

	return c.JSON(goal)
}

func DeleteGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	var goal models.Goal
	if err := database.DB.First(&goal, goalID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
	}

	if !isGroupAdmin(goal.GroupID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only group admins can delete goals",
		})
	}

	if err := database.DB.Delete(&goal).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete goal",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
