package game

import "sort"

// EventKind identifies a scheduled one-shot event
type EventKind uint8

const (
	// EventGoBannerClear hides the start banner
	EventGoBannerClear EventKind = iota + 1
	// EventShowResults ends the race with the standings recorded so far
	EventShowResults
)

func (k EventKind) String() string {
	switch k {
	case EventGoBannerClear:
		return "go_banner_clear"
	case EventShowResults:
		return "show_results"
	default:
		return "unknown"
	}
}

// Event fires once the race's elapsed time reaches FireAt
type Event struct {
	Kind    EventKind
	FireAt  float64
	Payload string
}

// EventQueue holds pending events ordered by fire time. Owned by one Machine.
type EventQueue struct {
	events []Event
}

// Schedule adds an event
func (q *EventQueue) Schedule(e Event) {
	q.events = append(q.events, e)
	sort.SliceStable(q.events, func(i, j int) bool {
		return q.events[i].FireAt < q.events[j].FireAt
	})
}

// Due removes and returns every event with FireAt <= now, earliest first
func (q *EventQueue) Due(now float64) []Event {
	n := 0
	for n < len(q.events) && q.events[n].FireAt <= now {
		n++
	}
	if n == 0 {
		return nil
	}
	due := make([]Event, n)
	copy(due, q.events[:n])
	q.events = q.events[n:]
	return due
}

// Pending reports whether an event of the given kind is waiting
func (q *EventQueue) Pending(kind EventKind) bool {
	for _, e := range q.events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Cancel drops every pending event of the given kind
func (q *EventQueue) Cancel(kind EventKind) {
	kept := q.events[:0]
	for _, e := range q.events {
		if e.Kind != kind {
			kept = append(kept, e)
		}
	}
	q.events = kept
}

// Clear drops every pending event
func (q *EventQueue) Clear() {
	q.events = nil
}

// Len returns the number of pending events
func (q *EventQueue) Len() int {
	return len(q.events)
}
