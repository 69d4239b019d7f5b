package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/race/minirace/internal/session"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the session counters. A nil *Metrics records nothing.
type Metrics struct {
	racesStarted   metric.Int64Counter
	racesCompleted metric.Int64Counter
	collisions     metric.Int64Counter
	inputsDropped  metric.Int64Counter
}

// NewMetrics registers the counters on the global OTel meter provider
// (no-op if not configured)
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(meter())
}

// NewMetricsWithMeter registers the counters on m
func NewMetricsWithMeter(m metric.Meter) (*Metrics, error) {
	var (
		mt  Metrics
		err error
	)

	mt.racesStarted, err = m.Int64Counter(
		"race.started",
		metric.WithDescription("Races that left the countdown"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating races started counter: %w", err)
	}

	mt.racesCompleted, err = m.Int64Counter(
		"race.completed",
		metric.WithDescription("Races that reached a result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating races completed counter: %w", err)
	}

	mt.collisions, err = m.Int64Counter(
		"race.collisions",
		metric.WithDescription("Vehicle contacts resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collisions counter: %w", err)
	}

	mt.inputsDropped, err = m.Int64Counter(
		"session.inputs.dropped",
		metric.WithDescription("Client inputs ignored by the rate guard or a full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating inputs dropped counter: %w", err)
	}

	return &mt, nil
}

func (m *Metrics) raceStarted(level int) {
	if m == nil {
		return
	}
	m.racesStarted.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Int("level", level)))
}

func (m *Metrics) raceCompleted(level int, victory bool) {
	if m == nil {
		return
	}
	m.racesCompleted.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Int("level", level), attribute.Bool("victory", victory)))
}

func (m *Metrics) collided(level, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.collisions.Add(context.Background(), int64(n),
		metric.WithAttributes(attribute.Int("level", level)))
}

func (m *Metrics) inputDropped(reason string) {
	if m == nil {
		return
	}
	m.inputsDropped.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}
