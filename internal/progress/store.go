// Package progress persists the highest level each player has unlocked.
package progress

import (
	"errors"

	"github.com/race/minirace/config"
)

// FirstLevel is reported for players the store has never seen
const FirstLevel = 1

var (
	ErrInvalidLevel  = errors.New("invalid level")
	ErrEmptyPlayerID = errors.New("empty player id")
)

// Store reads and writes player progress. Implementations are safe for
// concurrent use.
type Store interface {
	GetLevel(playerID string) (int, error)
	SetLevel(playerID string, level int) error
	Close() error
}

// validate rejects writes the game can never produce
func validate(playerID string, level int) error {
	if playerID == "" {
		return ErrEmptyPlayerID
	}
	if level < FirstLevel || level > config.LevelCount {
		return ErrInvalidLevel
	}
	return nil
}
