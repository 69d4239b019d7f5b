package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/race/minirace/internal/game"
	"github.com/race/minirace/internal/network"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	c.msgs = append(c.msgs, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) RemoteAddr() string {
	return "127.0.0.1:5000"
}

// ofType returns every message sent with the given type byte
func (c *fakeConn) ofType(t uint8) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out [][]byte
	for _, m := range c.msgs {
		if len(m) > 0 && m[0] == t {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// calmRand never triggers drift and spawns AI at the top of the speed range
type calmRand struct{}

func (calmRand) Float64() float64 { return 0.99 }

type failingStore struct{}

func (failingStore) GetLevel(string) (int, error) { return 0, errors.New("db down") }
func (failingStore) SetLevel(string, int) error   { return errors.New("db down") }

// saveFailingStore loads progress but cannot write it
type saveFailingStore struct{}

func (saveFailingStore) GetLevel(string) (int, error) { return 1, nil }
func (saveFailingStore) SetLevel(string, int) error   { return errors.New("disk full") }

func newTestSession(t *testing.T, level int, store game.ProgressStore) (*Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	s, err := New("s1", "p1", level, conn, store, WithRand(calmRand{}))
	require.NoError(t, err)
	return s, conn
}

// runCountdown steps at the maximum delta until the race is live
func runCountdown(t *testing.T, s *Session) {
	t.Helper()
	for i := 0; i < 40 && s.Phase() == game.PhaseCountdown; i++ {
		s.step(0.1)
	}
	require.Equal(t, game.PhaseRunning, s.Phase())
}

func press(s *Session, key uint8) {
	s.HandleInput(&network.InputMessage{MsgType: network.MsgTypeInput, Key: key, Pressed: true})
}
