package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/arnold/pursue-api/internal/config"
	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/middleware"
	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/period"
	"github.com/arnold/pursue-api/internal/progress"
)

func ledger() *progress.Ledger {
	return progress.NewLedger(database.DB)
}

// resolveLocalDate picks the calendar date an action belongs to: an explicit
// YYYY-MM-DD from the client wins; otherwise today in the given timezone,
// falling back to the user's stored timezone, then UTC. Period math is done
// on the date alone, so DST shifts never move an entry between periods.
func resolveLocalDate(dateStr, tzName string, userID uuid.UUID) (time.Time, error) {
	if dateStr != "" {
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return time.Time{}, err
		}
		return period.Day(d), nil
	}

	if tzName == "" {
		var user models.User
		if err := database.DB.First(&user, userID).Error; err == nil {
			tzName = user.Timezone
		}
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
	}
	return period.Day(time.Now().In(loc)), nil
}

// loadGoalForMember fetches a goal and checks the caller belongs to its
// group. Returns nil after writing the error response.
func loadGoalForMember(c *fiber.Ctx, goalID, userID uuid.UUID) *models.Goal {
	var goal models.Goal
	if err := database.DB.First(&goal, goalID).Error; err != nil {
		c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
		return nil
	}
	if !isGroupMember(goal.GroupID, userID) {
		c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
		return nil
	}
	return &goal
}

// LogProgress records progress against a goal for the current period. Binary
// and journal goals take one entry per period; numeric and duration goals
// accumulate, so a second log in the same period folds its value into the
// existing entry's running total.
func LogProgress(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	goal := loadGoalForMember(c, goalID, userID)
	if goal == nil {
		return nil
	}

	group, errResp := groupWritable(c, goal.GroupID)
	if group == nil {
		return errResp
	}

	var req models.LogProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	metric := period.Metric(goal.MetricType)
	value := req.Value
	switch metric {
	case period.Binary, period.Journal:
		// The entry's existence is the signal; the value is normalized.
		value = 1
	case period.Numeric, period.Duration:
		if value <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Value must be positive",
			})
		}
	}
	if metric == period.Journal && (req.Note == nil || *req.Note == "") && (req.LogTitle == nil || *req.LogTitle == "") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Journal entries need a title or a note",
		})
	}

	localDate, err := resolveLocalDate(req.Date, req.Timezone, userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Date must be YYYY-MM-DD",
		})
	}

	cadence := period.Cadence(goal.Cadence)
	led := ledger()

	entry, err := led.FindCurrent(goalID, userID, cadence, localDate)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to log progress",
		})
	}

	if entry == nil {
		entry, err = led.Create(goalID, userID, cadence, localDate, value, req.Note, req.LogTitle)
		if errors.Is(err, progress.ErrDuplicatePeriodEntry) {
			// Lost a race with another device; re-read and fall through to
			// the accumulate path below.
			entry, err = led.FindCurrent(goalID, userID, cadence, localDate)
			if err == nil && entry != nil {
				entry, err = accumulate(led, metric, entry, value, req.Note, req.LogTitle)
			}
		}
		if err != nil {
			return logProgressError(c, err)
		}
	} else {
		entry, err = accumulate(led, metric, entry, value, req.Note, req.LogTitle)
		if err != nil {
			return logProgressError(c, err)
		}
	}

	completed, percent, err := period.Evaluate(metric, entry.Value, goal.TargetValue)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     err.Error(),
			"errorCode": "MissingTarget",
		})
	}

	LogActivity(group.ID, userID, models.ActionProgressLogged, &goalID, map[string]interface{}{
		"goalTitle": goal.Title,
	})
	if completed {
		LogActivity(group.ID, userID, models.ActionGoalCompleted, &goalID, map[string]interface{}{
			"goalTitle": goal.Title,
		})
	}
	Rooms.Broadcast(group.ID, userID, WSEvent{
		Type:    EventProgressLogged,
		GroupID: group.ID,
		UserID:  userID,
		Data:    fiber.Map{"goalId": goalID, "completed": completed},
	})

	return c.Status(fiber.StatusCreated).JSON(models.LogProgressResponse{
		EntryID:           entry.ID,
		PeriodStart:       entry.PeriodStart,
		Completed:         completed,
		Accumulated:       entry.Value,
		Percent:           percent,
		UndoWindowSeconds: config.Load().UndoWindowSeconds,
	})
}

// accumulate folds a new log into an existing period entry. Numeric and
// duration values add up; binary and journal reject — the period is already
// logged and the client should offer an edit instead.
func accumulate(led *progress.Ledger, metric period.Metric, existing *models.ProgressEntry, value float64, note, logTitle *string) (*models.ProgressEntry, error) {
	switch metric {
	case period.Numeric, period.Duration:
		if note == nil {
			note = existing.Note
		}
		return led.Replace(existing.ID, existing.Value+value, note, existing.LogTitle)
	}
	return nil, progress.ErrDuplicatePeriodEntry
}

func logProgressError(c *fiber.Ctx, err error) error {
	if errors.Is(err, progress.ErrDuplicatePeriodEntry) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     "You already logged this period",
			"errorCode": "DuplicatePeriodEntry",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to log progress",
	})
}

// ReplaceProgress overwrites an entry's value and text wholesale. This is the
// edit path: the stored entry is swapped for a fresh one in the same period.
func ReplaceProgress(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	entryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid entry ID",
		})
	}

	led := ledger()
	entry, err := led.Get(entryID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Progress entry not found",
		})
	}
	if entry.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You can only edit your own progress",
		})
	}

	var goal models.Goal
	if err := database.DB.First(&goal, entry.GoalID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
	}
	group, errResp := groupWritable(c, goal.GroupID)
	if group == nil {
		return errResp
	}

	var req models.ReplaceProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	metric := period.Metric(goal.MetricType)
	value := req.Value
	switch metric {
	case period.Binary, period.Journal:
		value = 1
	case period.Numeric, period.Duration:
		if value <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Value must be positive",
			})
		}
	}

	replacement, err := led.Replace(entryID, value, req.Note, req.LogTitle)
	if err != nil {
		if errors.Is(err, progress.ErrEntryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Progress entry not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update progress",
		})
	}

	completed, percent, _ := period.Evaluate(metric, replacement.Value, goal.TargetValue)

	Rooms.Broadcast(group.ID, userID, WSEvent{
		Type:    EventProgressLogged,
		GroupID: group.ID,
		UserID:  userID,
		Data:    fiber.Map{"goalId": goal.ID, "completed": completed},
	})

	return c.JSON(models.LogProgressResponse{
		EntryID:     replacement.ID,
		PeriodStart: replacement.PeriodStart,
		Completed:   completed,
		Accumulated: replacement.Value,
		Percent:     percent,
	})
}

// DeleteProgress removes an entry, freeing its period for a fresh log.
func DeleteProgress(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	entryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid entry ID",
		})
	}

	led := ledger()
	entry, err := led.Get(entryID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Progress entry not found",
		})
	}
	if entry.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You can only remove your own progress",
		})
	}

	var goal models.Goal
	if err := database.DB.First(&goal, entry.GoalID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
	}

	if err := led.Delete(entryID); err != nil {
		if errors.Is(err, progress.ErrEntryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Progress entry not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove progress",
		})
	}

	Rooms.Broadcast(goal.GroupID, userID, WSEvent{
		Type:    EventProgressRemoved,
		GroupID: goal.GroupID,
		UserID:  userID,
		Data:    fiber.Map{"goalId": goal.ID},
	})

	return c.SendStatus(fiber.StatusNoContent)
}

// GetCurrentEntry returns the caller's entry for the period containing the
// given date, with its evaluation, or entry: null when nothing is logged.
func GetCurrentEntry(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	goal := loadGoalForMember(c, goalID, userID)
	if goal == nil {
		return nil
	}

	localDate, err := resolveLocalDate(c.Query("date"), c.Query("timezone"), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Date must be YYYY-MM-DD",
		})
	}

	cadence := period.Cadence(goal.Cadence)
	entry, err := ledger().FindCurrent(goalID, userID, cadence, localDate)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch progress",
		})
	}

	periodStart := period.Resolve(cadence, localDate)
	if entry == nil {
		return c.JSON(fiber.Map{
			"entry":       nil,
			"periodStart": periodStart,
			"completed":   false,
			"activeToday": period.ActiveOn(goal.ActiveDays, localDate),
		})
	}

	completed, percent, _ := period.Evaluate(period.Metric(goal.MetricType), entry.Value, goal.TargetValue)
	return c.JSON(fiber.Map{
		"entry":       entry,
		"periodStart": periodStart,
		"completed":   completed,
		"percent":     percent,
		"activeToday": period.ActiveOn(goal.ActiveDays, localDate),
	})
}

// AttachProgressPhoto links an uploaded image to an entry after the fact.
func AttachProgressPhoto(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	entryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid entry ID",
		})
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Photo URL is required",
		})
	}

	led := ledger()
	entry, err := led.Get(entryID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Progress entry not found",
		})
	}
	if entry.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You can only attach photos to your own progress",
		})
	}

	if err := led.AttachPhoto(entryID, req.URL); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to attach photo",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}
