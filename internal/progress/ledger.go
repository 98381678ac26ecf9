package progress

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/period"
)

var (
	// ErrDuplicatePeriodEntry means an entry already exists for the resolved
	// period. Expected under racing creates; callers retry as an edit.
	ErrDuplicatePeriodEntry = errors.New("an entry already exists for this period")
	ErrEntryNotFound        = errors.New("progress entry not found")
)

// Ledger owns progress-entry storage semantics: at most one entry per
// (goal, user, period), with edit implemented as delete-then-recreate so
// LoggedAt always reflects the most recent action.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// FindCurrent returns the unique entry for the period containing localDate,
// or nil if the user hasn't logged this period. Callers use it before both
// log and edit to decide which branch to take.
func (l *Ledger) FindCurrent(goalID, userID uuid.UUID, cadence period.Cadence, localDate time.Time) (*models.ProgressEntry, error) {
	key := period.Resolve(cadence, localDate)

	var entry models.ProgressEntry
	err := l.db.Where("goal_id = ? AND user_id = ? AND period_start = ?", goalID, userID, key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts a new entry for the period containing localDate. The unique
// index is the real guard: a concurrent create for the same period surfaces
// as ErrDuplicatePeriodEntry even when the caller checked FindCurrent first.
func (l *Ledger) Create(goalID, userID uuid.UUID, cadence period.Cadence, localDate time.Time, value float64, note, logTitle *string) (*models.ProgressEntry, error) {
	entry := models.ProgressEntry{
		GoalID:      goalID,
		UserID:      userID,
		PeriodStart: period.Resolve(cadence, localDate),
		Value:       value,
		Note:        note,
		LogTitle:    logTitle,
		LoggedAt:    time.Now(),
	}

	if err := l.db.Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicatePeriodEntry
		}
		return nil, err
	}
	return &entry, nil
}

// Replace swaps an entry for a new one in the same period: delete old, create
// new with a fresh id and LoggedAt. Consumers watching creation events see a
// consistent picture, and recency ordering falls out for free.
func (l *Ledger) Replace(entryID uuid.UUID, value float64, note, logTitle *string) (*models.ProgressEntry, error) {
	var replacement models.ProgressEntry

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var old models.ProgressEntry
		if err := tx.First(&old, entryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}

		if err := tx.Delete(&models.ProgressEntry{}, old.ID).Error; err != nil {
			return err
		}

		replacement = models.ProgressEntry{
			GoalID:      old.GoalID,
			UserID:      old.UserID,
			PeriodStart: old.PeriodStart,
			Value:       value,
			Note:        note,
			LogTitle:    logTitle,
			PhotoURL:    old.PhotoURL,
			LoggedAt:    time.Now(),
		}
		return tx.Create(&replacement).Error
	})
	if err != nil {
		return nil, err
	}
	return &replacement, nil
}

// Delete hard-removes an entry. Used for undo and explicit "remove progress".
func (l *Ledger) Delete(entryID uuid.UUID) error {
	result := l.db.Delete(&models.ProgressEntry{}, entryID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Get loads an entry by id.
func (l *Ledger) Get(entryID uuid.UUID) (*models.ProgressEntry, error) {
	var entry models.ProgressEntry
	if err := l.db.First(&entry, entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// AttachPhoto sets the photo URL on an existing entry. Fire-and-forget
// relative to the entry itself — a failed attach never rolls back progress.
func (l *Ledger) AttachPhoto(entryID uuid.UUID, photoURL string) error {
	result := l.db.Model(&models.ProgressEntry{}).Where("id = ?", entryID).Update("photo_url", photoURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// PeriodKeyFormat is how period keys are rendered for map lookups; a
// time.Time is not a reliable map key across a database round trip.
const PeriodKeyFormat = "2006-01-02"

// EntriesInRange returns a user's entries for one goal with period keys
// inside [from, to], keyed by the period start date string. Used by the
// report aggregator.
func (l *Ledger) EntriesInRange(goalID, userID uuid.UUID, from, to time.Time) (map[string]models.ProgressEntry, error) {
	var entries []models.ProgressEntry
	err := l.db.
		Where("goal_id = ? AND user_id = ? AND period_start >= ? AND period_start <= ?",
			goalID, userID, period.Day(from), period.Day(to)).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]models.ProgressEntry, len(entries))
	for _, e := range entries {
		byKey[e.PeriodStart.UTC().Format(PeriodKeyFormat)] = e
	}
	return byKey, nil
}
