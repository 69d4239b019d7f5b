package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/race/minirace/config"
	"github.com/race/minirace/internal/lobby"
	"github.com/race/minirace/internal/network"
	"github.com/race/minirace/internal/session"
)

const (
	maxPlayerIDLength = 64
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = 30 * time.Second
	maxMessageSize    = 512
	sendBufferSize    = 256
)

// GameServer is the main server instance that manages all connections and sessions.
// It handles WebSocket upgrades and routes messages to appropriate handlers.
type GameServer struct {
	config   config.ServerConfig
	game     config.GameConfig
	lobby    *lobby.Lobby
	protocol *network.Protocol
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu          sync.Mutex
	connections map[*ClientConnection]bool
}

// ClientConnection represents a single connected client.
// Each client has its own goroutines for reading and writing messages.
type ClientConnection struct {
	ws       *websocket.Conn
	server   *GameServer
	sendChan chan []byte
	done     chan struct{}
	once     sync.Once
	log      zerolog.Logger

	mu      sync.Mutex
	session *session.Session // nil until joined
}

// statsResponse is the /stats body
type statsResponse struct {
	lobby.Stats
	Connections int `json:"connections"`
}

// NewGameServer creates and initializes a new game server instance.
func NewGameServer(cfg config.ServerConfig, gameCfg config.GameConfig, l *lobby.Lobby, log zerolog.Logger) *GameServer {
	return &GameServer{
		config:   cfg,
		game:     gameCfg,
		lobby:    l,
		protocol: network.NewProtocol(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.EnableCORS
			},
		},
		log:         log,
		connections: make(map[*ClientConnection]bool),
	}
}

// Handler returns the HTTP routes
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// handleHealth responds to health check requests.
func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleStats returns current server statistics as JSON.
func (s *GameServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := statsResponse{Stats: s.lobby.Stats()}

	s.mu.Lock()
	stats.Connections = len(s.connections)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode stats")
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket and manages client lifecycle.
func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	conn := &ClientConnection{
		ws:       ws,
		server:   s,
		sendChan: make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		log:      s.log.With().Str("remote", ws.RemoteAddr().String()).Logger(),
	}

	s.mu.Lock()
	s.connections[conn] = true
	s.mu.Unlock()

	conn.log.Info().Msg("New connection")

	go conn.writePump()
	go conn.readPump()
}

// Send queues data to be sent to the client.
// Non-blocking: drops message if buffer is full.
func (c *ClientConnection) Send(data []byte) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}

	select {
	case c.sendChan <- data:
		return nil
	case <-c.done:
		return errors.New("connection closed")
	default:
		// Buffer full - the client gets the next state update
		return nil
	}
}

// Close shuts down the connection.
// Safe to call multiple times.
func (c *ClientConnection) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// RemoteAddr returns the client's address for logging.
func (c *ClientConnection) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// writePump sends queued messages and periodic pings.
func (c *ClientConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.cleanup()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.sendChan:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client messages and dispatches them.
func (c *ClientConnection) readPump() {
	defer c.cleanup()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("Read error")
			}
			return
		}

		c.handleMessage(message)
	}
}

// handleMessage dispatches on the message type byte.
func (c *ClientConnection) handleMessage(data []byte) {
	if len(data) == 0 {
		return
	}

	switch data[0] {
	case network.MsgTypeJoin:
		c.handleJoin(data)

	case network.MsgTypeInput:
		c.handleInput(data)

	case network.MsgTypeReset:
		c.handleReset(data)

	case network.MsgTypePing:
		c.handlePing(data)

	case network.MsgTypeLeave:
		c.handleLeave()

	default:
		c.sendError(network.ErrorCodeInvalidMessage, "Unknown message type")
	}
}

// handleJoin creates a session for the client.
func (c *ClientConnection) handleJoin(data []byte) {
	if c.getSession() != nil {
		c.sendError(network.ErrorCodeInvalidMessage, "Already joined")
		return
	}

	msg, err := c.server.protocol.DecodeJoin(data)
	if err != nil {
		c.log.Debug().Err(err).Msg("Invalid join message")
		c.sendError(network.ErrorCodeInvalidMessage, "Invalid join")
		return
	}

	playerID := strings.TrimSpace(msg.PlayerID)
	if playerID == "" {
		playerID = c.RemoteAddr()
	}
	if len(playerID) > maxPlayerIDLength {
		playerID = playerID[:maxPlayerIDLength]
	}

	s, err := c.server.lobby.Create(playerID, int(msg.Level), c)
	switch {
	case errors.Is(err, lobby.ErrServerFull):
		c.sendError(network.ErrorCodeServerFull, "Server full")
		return
	case errors.Is(err, session.ErrLevelLocked):
		c.sendError(network.ErrorCodeLevelLocked, err.Error())
		return
	case err != nil:
		c.log.Error().Err(err).Str("player", playerID).Msg("Failed to create session")
		c.sendError(network.ErrorCodeServerError, "Could not start race")
		return
	}

	c.setSession(s)
	c.log.Info().Str("player", playerID).Str("session", s.ID).Int("race_level", s.Level()).Msg("Player joined")
}

// handleInput forwards a key event to the session.
func (c *ClientConnection) handleInput(data []byte) {
	s := c.getSession()
	if s == nil {
		return
	}

	msg, err := c.server.protocol.DecodeInput(data)
	if err != nil {
		return
	}

	s.HandleInput(msg)
}

// handleReset restarts the race, optionally on another level.
func (c *ClientConnection) handleReset(data []byte) {
	s := c.getSession()
	if s == nil {
		c.sendError(network.ErrorCodeNotJoined, "Not in a race")
		return
	}

	msg, err := c.server.protocol.DecodeReset(data)
	if err != nil {
		return
	}

	if err := s.Restart(int(msg.Level)); err != nil {
		c.sendError(network.ErrorCodeServerError, err.Error())
	}
}

// handlePing answers with the same timestamp so clients can measure latency.
func (c *ClientConnection) handlePing(data []byte) {
	msg, err := c.server.protocol.DecodePing(data)
	if err != nil {
		return
	}
	_ = c.Send(c.server.protocol.EncodePong(msg.Timestamp))
}

// handleLeave ends the client's session, which closes the connection.
func (c *ClientConnection) handleLeave() {
	if s := c.getSession(); s != nil {
		c.server.lobby.Remove(s.ID)
	}
}

func (c *ClientConnection) getSession() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *ClientConnection) setSession(s *session.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *ClientConnection) sendError(code uint8, message string) {
	_ = c.Send(c.server.protocol.EncodeError(code, message))
}

// cleanup removes the connection from tracking and retires its session.
func (c *ClientConnection) cleanup() {
	c.server.mu.Lock()
	_, tracked := c.server.connections[c]
	delete(c.server.connections, c)
	c.server.mu.Unlock()

	if !tracked {
		return
	}

	if s := c.getSession(); s != nil {
		c.server.lobby.Remove(s.ID)
	}

	_ = c.Close()
	c.log.Info().Msg("Connection closed")
}
