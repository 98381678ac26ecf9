package pulse

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func ts(h int) *time.Time {
	t := time.Date(2025, 1, 6, h, 0, 0, 0, time.UTC)
	return &t
}

func TestMergeORCombinesLogged(t *testing.T) {
	user := uuid.New()
	groupA, groupB := uuid.New(), uuid.New()

	merged := Merge([]GroupStatuses{
		{GroupID: groupA, Members: []MemberStatus{{UserID: user, DisplayName: "Maya", Logged: true, LastLogAt: ts(9)}}},
		{GroupID: groupB, Members: []MemberStatus{{UserID: user, DisplayName: "Maya", Logged: false}}},
	})

	if len(merged) != 1 {
		t.Fatalf("got %d users, want 1", len(merged))
	}
	m := merged[0]
	if !m.Logged {
		t.Error("logged in A should make the merged flag true")
	}
	// Nudge routes to the group where nothing was logged yet.
	if m.NudgeGroupID != groupB {
		t.Errorf("NudgeGroupID = %s, want group B %s", m.NudgeGroupID, groupB)
	}
}

func TestMergeNudgeTargetPrefersFirstUnlogged(t *testing.T) {
	user := uuid.New()
	groupA, groupB, groupC := uuid.New(), uuid.New(), uuid.New()

	merged := Merge([]GroupStatuses{
		{GroupID: groupA, Members: []MemberStatus{{UserID: user, Logged: true}}},
		{GroupID: groupB, Members: []MemberStatus{{UserID: user, Logged: false}}},
		{GroupID: groupC, Members: []MemberStatus{{UserID: user, Logged: false}}},
	})

	if merged[0].NudgeGroupID != groupB {
		t.Errorf("NudgeGroupID = %s, want first unlogged group B", merged[0].NudgeGroupID)
	}
}

func TestMergeAllLoggedFallsBackToLastGroup(t *testing.T) {
	user := uuid.New()
	groupA, groupB := uuid.New(), uuid.New()

	merged := Merge([]GroupStatuses{
		{GroupID: groupA, Members: []MemberStatus{{UserID: user, Logged: true}}},
		{GroupID: groupB, Members: []MemberStatus{{UserID: user, Logged: true}}},
	})

	if merged[0].NudgeGroupID != groupB {
		t.Errorf("NudgeGroupID = %s, want last group seen %s", merged[0].NudgeGroupID, groupB)
	}
	if !merged[0].Logged {
		t.Error("merged Logged should be true")
	}
}

func TestMergeMaxCombinesLastLog(t *testing.T) {
	user := uuid.New()

	merged := Merge([]GroupStatuses{
		{GroupID: uuid.New(), Members: []MemberStatus{{UserID: user, Logged: true, LastLogAt: ts(8)}}},
		{GroupID: uuid.New(), Members: []MemberStatus{{UserID: user, Logged: true, LastLogAt: ts(14)}}},
		{GroupID: uuid.New(), Members: []MemberStatus{{UserID: user, Logged: true, LastLogAt: ts(11)}}},
	})

	if merged[0].LastLogAt == nil || !merged[0].LastLogAt.Equal(*ts(14)) {
		t.Errorf("LastLogAt = %v, want 14:00", merged[0].LastLogAt)
	}
}

func TestMergePreservesFirstSeenOrder(t *testing.T) {
	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()

	merged := Merge([]GroupStatuses{
		{GroupID: uuid.New(), Members: []MemberStatus{{UserID: u1}, {UserID: u2}}},
		{GroupID: uuid.New(), Members: []MemberStatus{{UserID: u3}, {UserID: u1}}},
	})

	if len(merged) != 3 {
		t.Fatalf("got %d users, want 3", len(merged))
	}
	want := []uuid.UUID{u1, u2, u3}
	for i, w := range want {
		if merged[i].UserID != w {
			t.Errorf("merged[%d] = %s, want %s", i, merged[i].UserID, w)
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil); len(got) != 0 {
		t.Errorf("Merge(nil) = %v, want empty", got)
	}
}
