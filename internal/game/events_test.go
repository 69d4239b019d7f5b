package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventQueue_DueInFireOrder(t *testing.T) {
	var q EventQueue
	q.Schedule(Event{Kind: EventShowResults, FireAt: 5})
	q.Schedule(Event{Kind: EventGoBannerClear, FireAt: 4})

	assert.Nil(t, q.Due(3.9))
	assert.Equal(t, 2, q.Len())

	due := q.Due(5)
	assert.Len(t, due, 2)
	assert.Equal(t, EventGoBannerClear, due[0].Kind)
	assert.Equal(t, EventShowResults, due[1].Kind)
	assert.Equal(t, 0, q.Len())

	// delivered once
	assert.Nil(t, q.Due(10))
}

func TestEventQueue_CancelAndClear(t *testing.T) {
	var q EventQueue
	q.Schedule(Event{Kind: EventGoBannerClear, FireAt: 1})
	q.Schedule(Event{Kind: EventShowResults, FireAt: 2, Payload: "player-yellow"})

	assert.True(t, q.Pending(EventShowResults))
	q.Cancel(EventShowResults)
	assert.False(t, q.Pending(EventShowResults))
	assert.True(t, q.Pending(EventGoBannerClear))

	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.Due(100))
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "go_banner_clear", EventGoBannerClear.String())
	assert.Equal(t, "show_results", EventShowResults.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
