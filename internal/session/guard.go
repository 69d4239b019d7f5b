package session

import (
	"sync"

	"github.com/race/minirace/config"
)

// ValidationResult represents the result of input validation
type ValidationResult int

const (
	ValidationValid ValidationResult = iota
	ValidationIgnoreInput
	ValidationKick
)

func (r ValidationResult) String() string {
	switch r {
	case ValidationValid:
		return "valid"
	case ValidationIgnoreInput:
		return "ignore"
	case ValidationKick:
		return "kick"
	default:
		return "unknown"
	}
}

// Guard rate limits client input. Inputs are counted per physics tick; a
// client that floods for too many consecutive ticks is kicked.
type Guard struct {
	mu sync.Mutex

	maxPerTick    int
	maxFloodTicks int

	inputsThisTick int
	floodedTicks   int
	dropped        int
}

// NewGuard creates a guard with the default limits
func NewGuard() *Guard {
	return &Guard{
		maxPerTick:    config.MaxInputsPerTick,
		maxFloodTicks: config.MaxFloodTicks,
	}
}

// ValidateInputRate counts one input and reports whether it should be applied
func (g *Guard) ValidateInputRate() ValidationResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inputsThisTick++
	if g.inputsThisTick > g.maxPerTick {
		g.dropped++
		return ValidationIgnoreInput
	}
	return ValidationValid
}

// EndTick closes the current tick's input window
func (g *Guard) EndTick() ValidationResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	flooded := g.inputsThisTick > g.maxPerTick
	g.inputsThisTick = 0

	if !flooded {
		g.floodedTicks = 0
		return ValidationValid
	}

	g.floodedTicks++
	if g.floodedTicks > g.maxFloodTicks {
		return ValidationKick
	}
	return ValidationValid
}

// Dropped returns the number of inputs ignored so far
func (g *Guard) Dropped() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dropped
}
