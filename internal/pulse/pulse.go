// Package pulse merges per-group member logged-status into one cross-group
// view per user. The output is advisory presentation data, recomputed on
// every refresh and never written back to any ledger.
package pulse

import (
	"time"

	"github.com/google/uuid"
)

// MemberStatus is one member's logged state within a single group.
type MemberStatus struct {
	UserID      uuid.UUID  `json:"userId"`
	DisplayName string     `json:"displayName"`
	Logged      bool       `json:"logged"`
	LastLogAt   *time.Time `json:"lastLogAt"`
}

// GroupStatuses pairs a group with its members' statuses for this period.
type GroupStatuses struct {
	GroupID uuid.UUID
	Members []MemberStatus
}

// Merged is one user's status OR-combined across all shared groups, plus the
// group a nudge should route to.
type Merged struct {
	UserID      uuid.UUID  `json:"userId"`
	DisplayName string     `json:"displayName"`
	Logged      bool       `json:"logged"`
	LastLogAt   *time.Time `json:"lastLogAt"`
	// NudgeGroupID is the first group where this user had not yet logged, so
	// a nudge lands in a context where the action is meaningful. If the user
	// logged everywhere it falls back to the last group seen (the caller
	// disables nudging in that case — nothing is outstanding).
	NudgeGroupID uuid.UUID `json:"nudgeGroupId"`
}

// Merge combines per-group statuses per user: Logged is OR-combined,
// LastLogAt is max-combined. Output order is first-seen order, so the view
// stays stable across refreshes given the same input order.
func Merge(groups []GroupStatuses) []Merged {
	byUser := make(map[uuid.UUID]*Merged)
	var order []uuid.UUID
	// Tracks users who already have an unlogged group pinned as nudge target.
	pinned := make(map[uuid.UUID]bool)

	for _, g := range groups {
		for _, m := range g.Members {
			entry, seen := byUser[m.UserID]
			if !seen {
				entry = &Merged{
					UserID:       m.UserID,
					DisplayName:  m.DisplayName,
					NudgeGroupID: g.GroupID,
				}
				byUser[m.UserID] = entry
				order = append(order, m.UserID)
			}

			entry.Logged = entry.Logged || m.Logged
			if m.LastLogAt != nil && (entry.LastLogAt == nil || m.LastLogAt.After(*entry.LastLogAt)) {
				entry.LastLogAt = m.LastLogAt
			}

			if !m.Logged && !pinned[m.UserID] {
				entry.NudgeGroupID = g.GroupID
				pinned[m.UserID] = true
			} else if m.Logged && !pinned[m.UserID] {
				// Everything logged so far: keep sliding to the last group seen.
				entry.NudgeGroupID = g.GroupID
			}
		}
	}

	out := make([]Merged, 0, len(order))
	for _, id := range order {
		out = append(out, *byUser[id])
	}
	return out
}
