package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arnold/pursue-api/internal/models"
	"github.com/arnold/pursue-api/internal/period"
	"github.com/arnold/pursue-api/internal/progress"
)

var testDBSeq int

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:report_test_%d?mode=memory&cache=shared&_busy_timeout=5000", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Goal{}, &models.GroupMember{}, &models.ProgressEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodKeysDaily(t *testing.T) {
	keys := PeriodKeys(period.Daily, date(2025, 1, 1), date(2025, 1, 7))
	if len(keys) != 7 {
		t.Fatalf("got %d keys, want 7", len(keys))
	}
	if !keys[0].Equal(date(2025, 1, 1)) || !keys[6].Equal(date(2025, 1, 7)) {
		t.Errorf("keys span %v..%v, want Jan 1..7", keys[0], keys[6])
	}
}

func TestPeriodKeysWeeklyPartialBoundaries(t *testing.T) {
	// Jan 1 2025 is a Wednesday; Jan 15 is a Wednesday two weeks on. The
	// range clips the first and last weeks but each still counts once.
	keys := PeriodKeys(period.Weekly, date(2025, 1, 1), date(2025, 1, 15))
	want := []time.Time{date(2024, 12, 30), date(2025, 1, 6), date(2025, 1, 13)}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i, w := range want {
		if !keys[i].Equal(w) {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], w)
		}
	}
}

func TestPeriodKeysMonthlyAndYearly(t *testing.T) {
	keys := PeriodKeys(period.Monthly, date(2025, 1, 15), date(2025, 3, 2))
	if len(keys) != 3 {
		t.Errorf("monthly: got %d keys, want 3", len(keys))
	}

	keys = PeriodKeys(period.Yearly, date(2024, 6, 1), date(2025, 2, 1))
	if len(keys) != 2 {
		t.Errorf("yearly: got %d keys, want 2", len(keys))
	}
}

func TestPeriodKeysInvertedRange(t *testing.T) {
	if keys := PeriodKeys(period.Daily, date(2025, 1, 7), date(2025, 1, 1)); keys != nil {
		t.Errorf("inverted range should yield nil, got %v", keys)
	}
}

func seedMemberAndGoal(t *testing.T, db *gorm.DB, groupID uuid.UUID, metric, cadence string, target *float64) (uuid.UUID, models.Goal) {
	t.Helper()
	userID := uuid.New()
	if err := db.Create(&models.GroupMember{GroupID: groupID, UserID: userID, Role: "member"}).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	goal := models.Goal{
		GroupID:     groupID,
		Title:       "Stretch",
		Cadence:     cadence,
		MetricType:  metric,
		TargetValue: target,
		CreatedBy:   userID,
	}
	if err := db.Create(&goal).Error; err != nil {
		t.Fatalf("seed goal: %v", err)
	}
	return userID, goal
}

func TestGroupReportDaily(t *testing.T) {
	db := openTestDB(t)
	groupID := uuid.New()
	userID, goal := seedMemberAndGoal(t, db, groupID, "binary", "daily", nil)

	ledger := progress.NewLedger(db)
	for _, d := range []int{1, 2, 4, 7} {
		if _, err := ledger.Create(goal.ID, userID, period.Daily, date(2025, 1, d), 1, nil, nil); err != nil {
			t.Fatalf("seed entry: %v", err)
		}
	}

	rows, err := NewAggregator(db).GroupReport(groupID, date(2025, 1, 1), date(2025, 1, 7))
	if err != nil {
		t.Fatalf("GroupReport: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	r := rows[0]
	if r.CompletedCount != 4 || r.TotalPossible != 7 {
		t.Errorf("completed/total = %d/%d, want 4/7", r.CompletedCount, r.TotalPossible)
	}
	if r.Percentage != 57.1 {
		t.Errorf("percentage = %v, want 57.1", r.Percentage)
	}
}

func TestGroupReportWeeklyFullCompletion(t *testing.T) {
	db := openTestDB(t)
	groupID := uuid.New()
	userID, goal := seedMemberAndGoal(t, db, groupID, "binary", "weekly", nil)

	// One entry in each of three ISO weeks spanned by the range.
	ledger := progress.NewLedger(db)
	for _, d := range []time.Time{date(2025, 1, 2), date(2025, 1, 8), date(2025, 1, 14)} {
		if _, err := ledger.Create(goal.ID, userID, period.Weekly, d, 1, nil, nil); err != nil {
			t.Fatalf("seed entry: %v", err)
		}
	}

	rows, err := NewAggregator(db).GroupReport(groupID, date(2025, 1, 1), date(2025, 1, 15))
	if err != nil {
		t.Fatalf("GroupReport: %v", err)
	}
	r := rows[0]
	if r.CompletedCount != 3 || r.TotalPossible != 3 {
		t.Errorf("completed/total = %d/%d, want 3/3", r.CompletedCount, r.TotalPossible)
	}
	if r.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", r.Percentage)
	}
}

func TestGroupReportNumericTarget(t *testing.T) {
	db := openTestDB(t)
	groupID := uuid.New()
	target := 30.0
	userID, goal := seedMemberAndGoal(t, db, groupID, "numeric", "daily", &target)

	ledger := progress.NewLedger(db)
	// Day 1 reaches the target, day 2 falls short.
	ledger.Create(goal.ID, userID, period.Daily, date(2025, 1, 1), 35, nil, nil)
	ledger.Create(goal.ID, userID, period.Daily, date(2025, 1, 2), 10, nil, nil)

	rows, err := NewAggregator(db).GroupReport(groupID, date(2025, 1, 1), date(2025, 1, 2))
	if err != nil {
		t.Fatalf("GroupReport: %v", err)
	}
	r := rows[0]
	if r.CompletedCount != 1 || r.TotalPossible != 2 {
		t.Errorf("completed/total = %d/%d, want 1/2", r.CompletedCount, r.TotalPossible)
	}
	if r.Percentage != 50 {
		t.Errorf("percentage = %v, want 50", r.Percentage)
	}
}

func TestGroupReportMultipleMembers(t *testing.T) {
	db := openTestDB(t)
	groupID := uuid.New()
	u1, goal := seedMemberAndGoal(t, db, groupID, "binary", "daily", nil)
	u2 := uuid.New()
	db.Create(&models.GroupMember{GroupID: groupID, UserID: u2, Role: "member"})

	ledger := progress.NewLedger(db)
	ledger.Create(goal.ID, u1, period.Daily, date(2025, 1, 1), 1, nil, nil)

	rows, err := NewAggregator(db).GroupReport(groupID, date(2025, 1, 1), date(2025, 1, 2))
	if err != nil {
		t.Fatalf("GroupReport: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want one per member", len(rows))
	}
}
