package application

import (
	"sort"
	"time"
)

// PollState is the state owned by one poll loop and threaded through PollOnce.
//
// Tracked maps a notification thread id to its pull request number for every
// review request already surfaced and not yet seen closed. Acknowledged holds
// thread ids already marked read that are still present in the notification
// list, so a replayed batch does not mark them again.
type PollState struct {
	Tracked      map[string]int
	Acknowledged map[string]struct{}
	BaseDelay    time.Duration
	RetryCount   int
	LastCleanup  time.Time
}

// NewPollState returns an empty state whose cleanup clock starts at now.
func NewPollState(now time.Time, baseDelay time.Duration) PollState {
	return PollState{
		Tracked:      make(map[string]int),
		Acknowledged: make(map[string]struct{}),
		BaseDelay:    baseDelay,
		LastCleanup:  now,
	}
}

// TrackedReview is one entry of the tracked mapping.
type TrackedReview struct {
	ThreadID string `json:"thread_id"`
	Number   int    `json:"number"`
}

// TrackedReviews returns the tracked mapping ordered by thread id.
func (s PollState) TrackedReviews() []TrackedReview {
	out := make([]TrackedReview, 0, len(s.Tracked))
	for id, number := range s.Tracked {
		out = append(out, TrackedReview{ThreadID: id, Number: number})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThreadID < out[j].ThreadID })
	return out
}

// clone deep-copies the maps so PollOnce never mutates the caller's value.
func (s PollState) clone() PollState {
	c := s
	c.Tracked = make(map[string]int, len(s.Tracked))
	for k, v := range s.Tracked {
		c.Tracked[k] = v
	}
	c.Acknowledged = make(map[string]struct{}, len(s.Acknowledged))
	for k := range s.Acknowledged {
		c.Acknowledged[k] = struct{}{}
	}
	return c
}

// pruneAcknowledged drops acknowledged ids that are no longer listed.
func (s *PollState) pruneAcknowledged(listed map[string]struct{}) {
	for id := range s.Acknowledged {
		if _, ok := listed[id]; !ok {
			delete(s.Acknowledged, id)
		}
	}
}
