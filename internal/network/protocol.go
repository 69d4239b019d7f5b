// Package network implements the binary websocket protocol spoken between the
// race server and its clients. All integers are little-endian.
package network

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrBufferTooSmall = errors.New("buffer too small")
)

const (
	stateHeaderSize  = 14
	vehicleStateSize = 14
	standingSize     = 5
	maxString        = 255
)

// Protocol handles binary encoding/decoding
type Protocol struct{}

// NewProtocol creates a new protocol handler
func NewProtocol() *Protocol {
	return &Protocol{}
}

// EncodeInput encodes a key press or release (4 bytes)
func (p *Protocol) EncodeInput(seq, key uint8, pressed bool) []byte {
	buf := []byte{MsgTypeInput, seq, key, 0}
	if pressed {
		buf[3] = 1
	}
	return buf
}

// DecodeInput decodes a client input message (4 bytes)
func (p *Protocol) DecodeInput(data []byte) (*InputMessage, error) {
	if len(data) < 4 {
		return nil, ErrBufferTooSmall
	}

	if data[0] != MsgTypeInput || data[2] > KeyRight {
		return nil, ErrInvalidMessage
	}

	return &InputMessage{
		MsgType:  data[0],
		Sequence: data[1],
		Key:      data[2],
		Pressed:  data[3] != 0,
	}, nil
}

// EncodeJoin encodes a join request
func (p *Protocol) EncodeJoin(playerID string, level uint8) []byte {
	id := truncate(playerID)

	buf := make([]byte, 3+len(id))
	buf[0] = MsgTypeJoin
	buf[1] = level
	buf[2] = uint8(len(id))
	copy(buf[3:], id)
	return buf
}

// DecodeJoin decodes a join message
func (p *Protocol) DecodeJoin(data []byte) (*JoinMessage, error) {
	if len(data) < 3 {
		return nil, ErrBufferTooSmall
	}

	if data[0] != MsgTypeJoin {
		return nil, ErrInvalidMessage
	}

	idLen := int(data[2])
	if len(data) < 3+idLen {
		return nil, ErrBufferTooSmall
	}

	return &JoinMessage{
		MsgType:  data[0],
		Level:    data[1],
		PlayerID: string(data[3 : 3+idLen]),
	}, nil
}

// EncodePing encodes a latency probe
func (p *Protocol) EncodePing(timestamp uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = MsgTypePing
	binary.LittleEndian.PutUint64(buf[1:9], timestamp)
	return buf
}

// DecodePing decodes a ping message (9 bytes)
func (p *Protocol) DecodePing(data []byte) (*PingMessage, error) {
	if len(data) < 9 {
		return nil, ErrBufferTooSmall
	}
	if data[0] != MsgTypePing {
		return nil, ErrInvalidMessage
	}
	return &PingMessage{
		MsgType:   data[0],
		Timestamp: binary.LittleEndian.Uint64(data[1:9]),
	}, nil
}

// EncodeReset encodes a request to restart the race, on level or on the
// current level when level is 0
func (p *Protocol) EncodeReset(level uint8) []byte {
	return []byte{MsgTypeReset, level}
}

// DecodeReset decodes a reset message. A bare type byte restarts the current level.
func (p *Protocol) DecodeReset(data []byte) (*ResetMessage, error) {
	if len(data) < 1 {
		return nil, ErrBufferTooSmall
	}
	if data[0] != MsgTypeReset {
		return nil, ErrInvalidMessage
	}
	msg := &ResetMessage{MsgType: data[0]}
	if len(data) > 1 {
		msg.Level = data[1]
	}
	return msg, nil
}

// EncodeLeave encodes a request to end the session
func (p *Protocol) EncodeLeave() []byte {
	return []byte{MsgTypeLeave}
}

// EncodeState encodes a state message
func (p *Protocol) EncodeState(msg *StateMessage) []byte {
	count := len(msg.Vehicles)
	if count > maxString {
		count = maxString
	}

	buf := make([]byte, stateHeaderSize+count*vehicleStateSize)
	buf[0] = MsgTypeState
	binary.LittleEndian.PutUint16(buf[1:3], msg.Tick)
	buf[3] = msg.Phase
	buf[4] = msg.Level
	buf[5] = msg.Countdown
	buf[6] = msg.Flags
	binary.LittleEndian.PutUint32(buf[7:11], msg.RaceTimeMs)
	binary.LittleEndian.PutUint16(buf[11:13], msg.Collisions)
	buf[13] = uint8(count)

	offset := stateHeaderSize
	for i := 0; i < count; i++ {
		p.encodeVehicleState(buf[offset:], msg.Vehicles[i])
		offset += vehicleStateSize
	}

	return buf
}

// encodeVehicleState encodes a single vehicle (14 bytes)
func (p *Protocol) encodeVehicleState(buf []byte, v VehicleStateData) {
	buf[0] = v.Slot
	buf[1] = v.Role
	binary.LittleEndian.PutUint16(buf[2:4], uint16(v.X))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(v.Y))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(v.Heading))
	buf[8] = v.Flags
	buf[9] = v.Rank
	binary.LittleEndian.PutUint32(buf[10:14], v.FinishTimeMs)
}

// DecodeState decodes a state message
func (p *Protocol) DecodeState(data []byte) (*StateMessage, error) {
	if len(data) < stateHeaderSize {
		return nil, ErrBufferTooSmall
	}
	if data[0] != MsgTypeState {
		return nil, ErrInvalidMessage
	}

	count := int(data[13])
	if len(data) < stateHeaderSize+count*vehicleStateSize {
		return nil, ErrBufferTooSmall
	}

	msg := &StateMessage{
		MsgType:    data[0],
		Tick:       binary.LittleEndian.Uint16(data[1:3]),
		Phase:      data[3],
		Level:      data[4],
		Countdown:  data[5],
		Flags:      data[6],
		RaceTimeMs: binary.LittleEndian.Uint32(data[7:11]),
		Collisions: binary.LittleEndian.Uint16(data[11:13]),
		Vehicles:   make([]VehicleStateData, count),
	}

	offset := stateHeaderSize
	for i := 0; i < count; i++ {
		b := data[offset : offset+vehicleStateSize]
		msg.Vehicles[i] = VehicleStateData{
			Slot:         b[0],
			Role:         b[1],
			X:            int16(binary.LittleEndian.Uint16(b[2:4])),
			Y:            int16(binary.LittleEndian.Uint16(b[4:6])),
			Heading:      int16(binary.LittleEndian.Uint16(b[6:8])),
			Flags:        b[8],
			Rank:         b[9],
			FinishTimeMs: binary.LittleEndian.Uint32(b[10:14]),
		}
		offset += vehicleStateSize
	}

	return msg, nil
}

// EncodeSessionInfo encodes session info message
func (p *Protocol) EncodeSessionInfo(msg *SessionInfoMessage) []byte {
	id := truncate(msg.SessionID)
	count := min(len(msg.Vehicles), maxString)

	size := 5 + len(id)
	for i := 0; i < count; i++ {
		size += 3 + len(truncate(msg.Vehicles[i].Label))
	}

	buf := make([]byte, size)
	buf[0] = MsgTypeSessionInfo
	buf[1] = uint8(len(id))
	copy(buf[2:], id)
	offset := 2 + len(id)
	buf[offset] = msg.Level
	buf[offset+1] = msg.Unlocked
	buf[offset+2] = uint8(count)
	offset += 3

	for i := 0; i < count; i++ {
		v := msg.Vehicles[i]
		label := truncate(v.Label)
		buf[offset] = v.Slot
		buf[offset+1] = v.Role
		buf[offset+2] = uint8(len(label))
		copy(buf[offset+3:], label)
		offset += 3 + len(label)
	}

	return buf
}

// DecodeSessionInfo decodes a session info message
func (p *Protocol) DecodeSessionInfo(data []byte) (*SessionInfoMessage, error) {
	if len(data) < 2 {
		return nil, ErrBufferTooSmall
	}
	if data[0] != MsgTypeSessionInfo {
		return nil, ErrInvalidMessage
	}

	idLen := int(data[1])
	offset := 2 + idLen
	if len(data) < offset+3 {
		return nil, ErrBufferTooSmall
	}

	msg := &SessionInfoMessage{
		MsgType:   data[0],
		SessionID: string(data[2:offset]),
		Level:     data[offset],
		Unlocked:  data[offset+1],
	}
	count := int(data[offset+2])
	offset += 3

	msg.Vehicles = make([]VehicleInfo, 0, count)
	for i := 0; i < count; i++ {
		if len(data) < offset+3 {
			return nil, ErrBufferTooSmall
		}
		labelLen := int(data[offset+2])
		if len(data) < offset+3+labelLen {
			return nil, ErrBufferTooSmall
		}
		msg.Vehicles = append(msg.Vehicles, VehicleInfo{
			Slot:  data[offset],
			Role:  data[offset+1],
			Label: string(data[offset+3 : offset+3+labelLen]),
		})
		offset += 3 + labelLen
	}

	return msg, nil
}

// EncodeOutcome encodes a race outcome message
func (p *Protocol) EncodeOutcome(msg *OutcomeMessage) []byte {
	count := min(len(msg.Standings), maxString)
	text := truncate(msg.Message)

	buf := make([]byte, 11+count*standingSize+1+len(text))
	buf[0] = MsgTypeOutcome
	buf[1] = msg.Level
	buf[2] = msg.NextLevel
	buf[3] = msg.Flags
	buf[4] = msg.PlayerRank
	binary.LittleEndian.PutUint32(buf[5:9], msg.PlayerTimeMs)
	buf[9] = msg.WinnerSlot
	buf[10] = uint8(count)

	offset := 11
	for i := 0; i < count; i++ {
		buf[offset] = msg.Standings[i].Slot
		binary.LittleEndian.PutUint32(buf[offset+1:offset+5], msg.Standings[i].TimeMs)
		offset += standingSize
	}

	buf[offset] = uint8(len(text))
	copy(buf[offset+1:], text)

	return buf
}

// DecodeOutcome decodes a race outcome message
func (p *Protocol) DecodeOutcome(data []byte) (*OutcomeMessage, error) {
	if len(data) < 11 {
		return nil, ErrBufferTooSmall
	}
	if data[0] != MsgTypeOutcome {
		return nil, ErrInvalidMessage
	}

	count := int(data[10])
	offset := 11 + count*standingSize
	if len(data) < offset+1 {
		return nil, ErrBufferTooSmall
	}
	textLen := int(data[offset])
	if len(data) < offset+1+textLen {
		return nil, ErrBufferTooSmall
	}

	msg := &OutcomeMessage{
		MsgType:      data[0],
		Level:        data[1],
		NextLevel:    data[2],
		Flags:        data[3],
		PlayerRank:   data[4],
		PlayerTimeMs: binary.LittleEndian.Uint32(data[5:9]),
		WinnerSlot:   data[9],
		Standings:    make([]StandingData, count),
		Message:      string(data[offset+1 : offset+1+textLen]),
	}
	for i := 0; i < count; i++ {
		b := data[11+i*standingSize:]
		msg.Standings[i] = StandingData{Slot: b[0], TimeMs: binary.LittleEndian.Uint32(b[1:5])}
	}

	return msg, nil
}

// EncodePong encodes a pong message
func (p *Protocol) EncodePong(timestamp uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = MsgTypePong
	binary.LittleEndian.PutUint64(buf[1:9], timestamp)
	return buf
}

// EncodeError encodes an error message
func (p *Protocol) EncodeError(code uint8, message string) []byte {
	msgBytes := truncate(message)

	buf := make([]byte, 3+len(msgBytes))
	buf[0] = MsgTypeError
	buf[1] = code
	buf[2] = uint8(len(msgBytes))
	copy(buf[3:], msgBytes)

	return buf
}

// DecodeError decodes an error message
func (p *Protocol) DecodeError(data []byte) (*ErrorMessage, error) {
	if len(data) < 3 {
		return nil, ErrBufferTooSmall
	}
	if data[0] != MsgTypeError {
		return nil, ErrInvalidMessage
	}
	n := int(data[2])
	if len(data) < 3+n {
		return nil, ErrBufferTooSmall
	}
	return &ErrorMessage{MsgType: data[0], Code: data[1], Message: string(data[3 : 3+n])}, nil
}

// ScaleCoord converts a world coordinate or angle to tenths, saturating at the int16 range
func ScaleCoord(v float64) int16 {
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v*10))))
}

// UnscaleCoord reverses ScaleCoord
func UnscaleCoord(v int16) float64 {
	return float64(v) / 10
}

// Millis converts seconds to whole milliseconds, clamping negatives to zero
func Millis(seconds float64) uint32 {
	if seconds <= 0 {
		return 0
	}
	return uint32(math.Round(seconds * 1000))
}

func truncate(s string) []byte {
	b := []byte(s)
	if len(b) > maxString {
		b = b[:maxString]
	}
	return b
}
