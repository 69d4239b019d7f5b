package network

// Message types
const (
	// Client -> Server
	MsgTypeInput uint8 = 0x01
	MsgTypeJoin  uint8 = 0x02
	MsgTypeLeave uint8 = 0x03
	MsgTypePing  uint8 = 0x04
	MsgTypeReset uint8 = 0x05

	// Server -> Client
	MsgTypeState       uint8 = 0x10
	MsgTypeSessionInfo uint8 = 0x11
	MsgTypeOutcome     uint8 = 0x12
	MsgTypePong        uint8 = 0x15
	MsgTypeError       uint8 = 0xFF
)

// Key codes carried by input messages
const (
	KeyUp    uint8 = 0
	KeyDown  uint8 = 1
	KeyLeft  uint8 = 2
	KeyRight uint8 = 3
)

// Race phases carried by state messages
const (
	PhaseCountdown uint8 = 0
	PhaseRunning   uint8 = 1
	PhaseFinished  uint8 = 2
)

// Vehicle roles
const (
	RolePlayer uint8 = 0
	RoleAI     uint8 = 1
)

// State flags
const (
	FlagShowReady uint8 = 1 << 0
	FlagShowGo    uint8 = 1 << 1
)

// Vehicle flags
const (
	FlagFinished uint8 = 1 << 0
)

// Outcome flags
const (
	FlagVictory        uint8 = 1 << 0
	FlagSaved          uint8 = 1 << 1
	FlagPlayerFinished uint8 = 1 << 2
)

// NoSlot marks an absent vehicle reference
const NoSlot uint8 = 0xFF

// InputMessage from client (4 bytes)
type InputMessage struct {
	MsgType  uint8
	Sequence uint8
	Key      uint8
	Pressed  bool
}

// JoinMessage from client
type JoinMessage struct {
	MsgType  uint8
	Level    uint8 // 0 resumes at the player's saved level
	PlayerID string
}

// ResetMessage from client
type ResetMessage struct {
	MsgType uint8
	Level   uint8 // 0 replays the current level
}

// PingMessage from client (9 bytes)
type PingMessage struct {
	MsgType   uint8
	Timestamp uint64
}

// StateMessage to client
type StateMessage struct {
	MsgType    uint8
	Tick       uint16
	Phase      uint8
	Level      uint8
	Countdown  uint8 // Digit on screen, 0 when hidden
	Flags      uint8
	RaceTimeMs uint32
	Collisions uint16
	Vehicles   []VehicleStateData
}

// VehicleStateData in a state message (14 bytes per vehicle)
type VehicleStateData struct {
	Slot         uint8
	Role         uint8
	X            int16 // Scaled by 10
	Y            int16 // Scaled by 10
	Heading      int16 // Degrees scaled by 10
	Flags        uint8
	Rank         uint8
	FinishTimeMs uint32
}

// SessionInfoMessage to client, sent on join and after every level change
type SessionInfoMessage struct {
	MsgType   uint8
	SessionID string
	Level     uint8
	Unlocked  uint8
	Vehicles  []VehicleInfo
}

// VehicleInfo maps a state slot onto a label
type VehicleInfo struct {
	Slot  uint8
	Role  uint8
	Label string
}

// OutcomeMessage to client, sent once per race
type OutcomeMessage struct {
	MsgType      uint8
	Level        uint8
	NextLevel    uint8
	Flags        uint8
	PlayerRank   uint8
	PlayerTimeMs uint32
	WinnerSlot   uint8
	Standings    []StandingData
	Message      string
}

// StandingData is one finisher, in finish order
type StandingData struct {
	Slot   uint8
	TimeMs uint32
}

// PongMessage to client
type PongMessage struct {
	MsgType   uint8
	Timestamp uint64
}

// ErrorMessage to client
type ErrorMessage struct {
	MsgType uint8
	Code    uint8
	Message string
}

// Error codes
const (
	ErrorCodeInvalidMessage uint8 = 1
	ErrorCodeServerFull     uint8 = 2
	ErrorCodeKicked         uint8 = 3
	ErrorCodeServerError    uint8 = 4
	ErrorCodeNotJoined      uint8 = 5
	ErrorCodeLevelLocked    uint8 = 6
)
