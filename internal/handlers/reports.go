package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/middleware"
	"github.com/arnold/pursue-api/internal/report"
)

// GetGroupReport re-derives completion summaries for every (member, goal)
// pair over a date range. Defaults to the trailing 30 days.
func GetGroupReport(c *fiber.Ctx) error {
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

	// Default to the trailing 30 days, anchored on the caller's local today.
	end, err := resolveLocalDate("", c.Query("timezone"), userID)
	if err != nil {
		end = time.Now().UTC()
	}
	start := end.AddDate(0, 0, -30)
	if s := c.Query("start"); s != "" {
		start, err = time.Parse("2006-01-02", s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "start must be YYYY-MM-DD",
			})
		}
	}
	if e := c.Query("end"); e != "" {
		end, err = time.Parse("2006-01-02", e)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "end must be YYYY-MM-DD",
			})
		}
	}
	if end.Before(start) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "end must not precede start",
		})
	}

	rows, err := report.NewAggregator(database.DB).GroupReport(groupID, start, end)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build report",
		})
	}

	return c.JSON(fiber.Map{
		"groupId": groupID,
		"start":   start.Format("2006-01-02"),
		"end":     end.Format("2006-01-02"),
		"rows":    rows,
	})
}
