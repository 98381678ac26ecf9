package progress

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/period"
)

var testDBSeq int

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared&_busy_timeout=5000", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.ProgressEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateAndFindCurrent(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	goalID, userID := uuid.New(), uuid.New()
	day := date(2025, 1, 8) // Wednesday

	entry, err := ledger.Create(goalID, userID, period.Weekly, day, 3, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !entry.PeriodStart.Equal(date(2025, 1, 6)) {
		t.Errorf("PeriodStart = %v, want the ISO Monday 2025-01-06", entry.PeriodStart)
	}

	// Any day in the same ISO week finds the same entry.
	found, err := ledger.FindCurrent(goalID, userID, period.Weekly, date(2025, 1, 12))
	if err != nil {
		t.Fatalf("FindCurrent: %v", err)
	}
	if found == nil || found.ID != entry.ID {
		t.Errorf("FindCurrent = %v, want entry %s", found, entry.ID)
	}

	// The following week is a fresh period.
	found, err = ledger.FindCurrent(goalID, userID, period.Weekly, date(2025, 1, 13))
	if err != nil {
		t.Fatalf("FindCurrent: %v", err)
	}
	if found != nil {
		t.Errorf("next week should have no entry, got %v", found)
	}
}

func TestCreateDuplicatePeriod(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	goalID, userID := uuid.New(), uuid.New()

	if _, err := ledger.Create(goalID, userID, period.Daily, date(2025, 3, 1), 1, nil, nil); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := ledger.Create(goalID, userID, period.Daily, date(2025, 3, 1), 1, nil, nil)
	if !errors.Is(err, ErrDuplicatePeriodEntry) {
		t.Errorf("second Create err = %v, want ErrDuplicatePeriodEntry", err)
	}

	// A different user on the same day is fine.
	if _, err := ledger.Create(goalID, uuid.New(), period.Daily, date(2025, 3, 1), 1, nil, nil); err != nil {
		t.Errorf("different user Create: %v", err)
	}
}

func TestConcurrentCreatesOneSurvives(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	goalID, userID := uuid.New(), uuid.New()
	day := date(2025, 5, 20)

	const writers = 2
	errs := make([]error, writers)
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Create(goalID, userID, period.Daily, day, 1, nil, nil)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicatePeriodEntry):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Errorf("got %d successes, %d duplicates; want exactly 1 of each", ok, dup)
	}
}

func TestReplaceIsDeleteThenCreate(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	goalID, userID := uuid.New(), uuid.New()

	old, err := ledger.Create(goalID, userID, period.Daily, date(2025, 2, 10), 20, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	note := "evening run"
	replacement, err := ledger.Replace(old.ID, 45, &note, nil)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if replacement.ID == old.ID {
		t.Error("replacement must get a fresh id")
	}
	if !replacement.PeriodStart.Equal(old.PeriodStart) {
		t.Errorf("replacement period = %v, want %v", replacement.PeriodStart, old.PeriodStart)
	}
	if replacement.Value != 45 {
		t.Errorf("Value = %v, want 45", replacement.Value)
	}

	// Old id is gone, exactly one entry remains for the period.
	if _, err := ledger.Get(old.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("old entry should be gone, got %v", err)
	}
	current, err := ledger.FindCurrent(goalID, userID, period.Daily, date(2025, 2, 10))
	if err != nil {
		t.Fatalf("FindCurrent: %v", err)
	}
	if current == nil || current.ID != replacement.ID {
		t.Errorf("current = %v, want replacement %s", current, replacement.ID)
	}
}

func TestReplaceKeepsPhoto(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	goalID, userID := uuid.New(), uuid.New()

	old, _ := ledger.Create(goalID, userID, period.Daily, date(2025, 2, 10), 1, nil, nil)
	if err := ledger.AttachPhoto(old.ID, "/uploads/abc.jpg"); err != nil {
		t.Fatalf("AttachPhoto: %v", err)
	}

	replacement, err := ledger.Replace(old.ID, 1, nil, nil)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if replacement.PhotoURL == nil || *replacement.PhotoURL != "/uploads/abc.jpg" {
		t.Errorf("photo should survive an edit, got %v", replacement.PhotoURL)
	}
}

func TestDelete(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	goalID, userID := uuid.New(), uuid.New()

	entry, _ := ledger.Create(goalID, userID, period.Daily, date(2025, 4, 1), 1, nil, nil)
	if err := ledger.Delete(entry.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// The period is free again: a fresh create succeeds.
	if _, err := ledger.Create(goalID, userID, period.Daily, date(2025, 4, 1), 1, nil, nil); err != nil {
		t.Errorf("create after delete: %v", err)
	}

	if err := ledger.Delete(uuid.New()); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("deleting unknown id: err = %v, want ErrEntryNotFound", err)
	}
}

func TestReplaceUnknownEntry(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	if _, err := ledger.Replace(uuid.New(), 1, nil, nil); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("err = %v, want ErrEntryNotFound", err)
	}
}

func TestEntriesInRange(t *testing.T) {
	ledger := NewLedger(openTestDB(t))
	goalID, userID := uuid.New(), uuid.New()

	for _, d := range []int{1, 2, 4, 7} {
		if _, err := ledger.Create(goalID, userID, period.Daily, date(2025, 1, d), 1, nil, nil); err != nil {
			t.Fatalf("Create day %d: %v", d, err)
		}
	}
	// Outside the range.
	ledger.Create(goalID, userID, period.Daily, date(2025, 1, 9), 1, nil, nil)

	byKey, err := ledger.EntriesInRange(goalID, userID, date(2025, 1, 1), date(2025, 1, 7))
	if err != nil {
		t.Fatalf("EntriesInRange: %v", err)
	}
	if len(byKey) != 4 {
		t.Errorf("got %d entries, want 4", len(byKey))
	}
	if _, ok := byKey["2025-01-04"]; !ok {
		t.Error("missing entry for 2025-01-04")
	}
}
