// Package report re-derives completion counts and percentages over an
// arbitrary date range, for summaries and spreadsheet export. The export
// collaborator only renders the rows produced here.
package report

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/period"
	"github.com/arnold/pursue-api/internal/progress"
)

// Row is one (user, goal) summary over the requested range.
type Row struct {
	UserID         uuid.UUID `json:"userId"`
	GoalID         uuid.UUID `json:"goalId"`
	CompletedCount int       `json:"completedCount"`
	TotalPossible  int       `json:"totalPossible"`
	Percentage     float64   `json:"percentage"` // one decimal place
}

type Aggregator struct {
	db     *gorm.DB
	ledger *progress.Ledger
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db, ledger: progress.NewLedger(db)}
}

// PeriodKeys enumerates every period key a cadence produces over
// [start, end]. Partial boundary periods count once each — totals come from
// key enumeration, never elapsed-day division, so a range that clips the
// first or last week still counts that week as one period.
func PeriodKeys(c period.Cadence, start, end time.Time) []time.Time {
	start, end = period.Day(start), period.Day(end)
	if end.Before(start) {
		return nil
	}

	var keys []time.Time
	for key := period.Resolve(c, start); !key.After(end); key = period.Next(c, key) {
		keys = append(keys, key)
	}
	return keys
}

// GroupReport produces one row per (member, goal) for every goal in the
// group, over [start, end].
func (a *Aggregator) GroupReport(groupID uuid.UUID, start, end time.Time) ([]Row, error) {
	var goals []models.Goal
	if err := a.db.Where("group_id = ?", groupID).Order("created_at ASC").Find(&goals).Error; err != nil {
		return nil, err
	}

	var members []models.GroupMember
	if err := a.db.Where("group_id = ?", groupID).Order("joined_at ASC").Find(&members).Error; err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(goals)*len(members))
	for _, m := range members {
		for _, goal := range goals {
			row, err := a.userGoalRow(m.UserID, goal, start, end)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (a *Aggregator) userGoalRow(userID uuid.UUID, goal models.Goal, start, end time.Time) (Row, error) {
	cadence := period.Cadence(goal.Cadence)
	keys := PeriodKeys(cadence, start, end)

	// The first key can precede the range start (a weekly period clipped at
	// the boundary); fetch from the earliest key so its entry is included.
	from := period.Day(start)
	if len(keys) > 0 {
		from = keys[0]
	}
	entries, err := a.ledger.EntriesInRange(goal.ID, userID, from, end)
	if err != nil {
		return Row{}, err
	}

	completed := 0
	for _, key := range keys {
		entry, ok := entries[key.Format(progress.PeriodKeyFormat)]
		if !ok {
			continue
		}
		done, _, err := period.Evaluate(period.Metric(goal.MetricType), entry.Value, goal.TargetValue)
		if err != nil {
			// Configuration error on the goal; count nothing rather than
			// guess, the admin path surfaces it.
			continue
		}
		if done {
			completed++
		}
	}

	row := Row{
		UserID:         userID,
		GoalID:         goal.ID,
		CompletedCount: completed,
		TotalPossible:  len(keys),
	}
	if row.TotalPossible > 0 {
		row.Percentage = math.Round(float64(completed)/float64(row.TotalPossible)*1000) / 10
	}
	return row, nil
}
