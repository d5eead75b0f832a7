package supervisor

import (
	"fmt"
	"log/slog"

	"platter/internal/services"
)

// Kinds lists every operation kind the daemon supervises, in display order.
func Kinds() []string {
	return []string{KindSync, KindScrub, KindCheck, KindConfigure}
}

// Set owns one tracker per operation kind.
type Set struct {
	trackers map[string]*Tracker
	order    []string
}

// NewSet builds the full tracker set, applying the same options to every
// tracker.
func NewSet(logger *slog.Logger, opts ...Option) *Set {
	s := &Set{trackers: make(map[string]*Tracker, 4), order: Kinds()}
	for _, kind := range s.order {
		s.trackers[kind] = NewTracker(kind, logger, opts...)
	}
	return s
}

// Tracker returns the tracker for kind, or nil for an unknown kind.
func (s *Set) Tracker(kind string) *Tracker {
	return s.trackers[kind]
}

// Sync returns the parity sync tracker.
func (s *Set) Sync() *Tracker { return s.trackers[KindSync] }

// Scrub returns the scrub tracker.
func (s *Set) Scrub() *Tracker { return s.trackers[KindScrub] }

// Check returns the parity check tracker.
func (s *Set) Check() *Tracker { return s.trackers[KindCheck] }

// Configure returns the array configure tracker.
func (s *Set) Configure() *Tracker { return s.trackers[KindConfigure] }

// Cancel cancels the running operation of the given kind.
func (s *Set) Cancel(kind string) error {
	tracker := s.Tracker(kind)
	if tracker == nil {
		return services.Wrap(services.ErrValidation, "supervisor", "cancel", fmt.Sprintf("unknown operation kind %q", kind), nil)
	}
	return tracker.Cancel()
}

// Statuses returns a snapshot of every tracker in display order.
func (s *Set) Statuses() []Status {
	out := make([]Status, 0, len(s.order))
	for _, kind := range s.order {
		out = append(out, s.trackers[kind].Snapshot())
	}
	return out
}
