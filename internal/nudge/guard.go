package nudge

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/period"
	"github.com/arnold/pursue-api/internal/progress"
)

// Rejections are typed outcomes, not failures — a blocked nudge is routine
// and handlers report it with a 200 + errorCode rather than an error status.
var (
	ErrSelfNudge          = errors.New("cannot nudge yourself")
	ErrRecipientComplete  = errors.New("recipient has already completed this goal for the period")
	ErrAlreadyNudgedToday = errors.New("already nudged this member today")
	ErrDailySendLimit     = errors.New("daily nudge limit reached")
)

// Guard gates nudge sends: no self-nudges, no pointless nudges at members
// who already completed, one nudge per (sender, recipient, group, goal) per
// sender-local day, and a per-sender daily cap across all recipients.
type Guard struct {
	db       *gorm.DB
	ledger   *progress.Ledger
	dailyCap int
}

func NewGuard(db *gorm.DB, dailyCap int) *Guard {
	return &Guard{db: db, ledger: progress.NewLedger(db), dailyCap: dailyCap}
}

// Send runs the eligibility checks in order and, if all pass, records the
// nudge. The dedup and cap checks ride on storage constraints (unique index,
// conditional counter increment) so two concurrent sends cannot both pass.
// localDate is the sender's calendar date: the cap is a sender-side
// anti-spam control, so the sender's day boundary governs, not the
// recipient's.
func (g *Guard) Send(senderID, recipientID, groupID uuid.UUID, goalID *uuid.UUID, localDate time.Time) (*models.Nudge, error) {
	if senderID == recipientID {
		return nil, ErrSelfNudge
	}

	complete, err := g.recipientComplete(recipientID, groupID, goalID, localDate)
	if err != nil {
		return nil, err
	}
	if complete {
		return nil, ErrRecipientComplete
	}

	// Group-level nudges store uuid.Nil so the dedup index applies.
	dedupGoalID := uuid.Nil
	if goalID != nil {
		dedupGoalID = *goalID
	}

	record := models.Nudge{
		SenderID:    senderID,
		RecipientID: recipientID,
		GroupID:     groupID,
		GoalID:      dedupGoalID,
		LocalDate:   period.Day(localDate),
	}

	err = g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyNudgedToday
			}
			return err
		}
		return g.consumeQuota(tx, senderID, record.LocalDate)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// consumeQuota increments the sender's daily counter, failing if the cap is
// already spent. The guard is a single conditional UPDATE on a unique
// counter row — never a check-then-act in application code.
func (g *Guard) consumeQuota(tx *gorm.DB, senderID uuid.UUID, localDate time.Time) error {
	quota := models.NudgeQuota{SenderID: senderID, LocalDate: localDate}
	if err := tx.Where(models.NudgeQuota{SenderID: senderID, LocalDate: localDate}).
		FirstOrCreate(&quota).Error; err != nil {
		// A concurrent send may have created the row first; the UPDATE below
		// still applies either way.
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}

	result := tx.Model(&models.NudgeQuota{}).
		Where("sender_id = ? AND local_date = ? AND sent_count < ?", senderID, localDate, g.dailyCap).
		Update("sent_count", gorm.Expr("sent_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDailySendLimit
	}
	return nil
}

// recipientComplete reports whether the nudge would be pointless. For a
// goal-level nudge: the recipient already completed that goal's current
// period. For a group-level nudge: every goal in the group is complete.
func (g *Guard) recipientComplete(recipientID, groupID uuid.UUID, goalID *uuid.UUID, localDate time.Time) (bool, error) {
	var goals []models.Goal
	query := g.db.Where("group_id = ?", groupID)
	if goalID != nil {
		query = query.Where("id = ?", *goalID)
	}
	if err := query.Find(&goals).Error; err != nil {
		return false, err
	}
	if len(goals) == 0 {
		return false, nil
	}

	for _, goal := range goals {
		done, err := g.goalComplete(goal, recipientID, localDate)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}
	return true, nil
}

func (g *Guard) goalComplete(goal models.Goal, userID uuid.UUID, localDate time.Time) (bool, error) {
	entry, err := g.ledger.FindCurrent(goal.ID, userID, period.Cadence(goal.Cadence), localDate)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	done, _, err := period.Evaluate(period.Metric(goal.MetricType), entry.Value, goal.TargetValue)
	if err != nil {
		// Misconfigured target is an admin problem; a nudge about such a
		// goal is still allowed rather than blocked on the config error.
		return false, nil
	}
	return done, nil
}
