package session

import (
	"github.com/race/minirace/internal/game"
	"github.com/race/minirace/internal/network"
)

func phaseCode(p game.Phase) uint8 {
	switch p {
	case game.PhaseRunning:
		return network.PhaseRunning
	case game.PhaseFinished:
		return network.PhaseFinished
	default:
		return network.PhaseCountdown
	}
}

func roleCode(r game.Role) uint8 {
	if r == game.RolePlayer {
		return network.RolePlayer
	}
	return network.RoleAI
}

func keyFromCode(k uint8) (game.Key, bool) {
	switch k {
	case network.KeyUp:
		return game.KeyUp, true
	case network.KeyDown:
		return game.KeyDown, true
	case network.KeyLeft:
		return game.KeyLeft, true
	case network.KeyRight:
		return game.KeyRight, true
	default:
		return 0, false
	}
}

func countdownDigit(text string) uint8 {
	if len(text) == 1 && text[0] >= '0' && text[0] <= '9' {
		return text[0] - '0'
	}
	return 0
}

// stateMessage converts a snapshot to its wire form. Vehicle slots are roster indices.
func stateMessage(tick uint16, snap game.Snapshot) *network.StateMessage {
	msg := &network.StateMessage{
		Tick:       tick,
		Phase:      phaseCode(snap.Phase),
		Level:      uint8(snap.Level),
		Countdown:  countdownDigit(snap.CountdownText),
		RaceTimeMs: network.Millis(snap.RaceTime),
		Collisions: uint16(min(snap.Collisions, 0xFFFF)),
		Vehicles:   make([]network.VehicleStateData, len(snap.Vehicles)),
	}
	if snap.ShowReady {
		msg.Flags |= network.FlagShowReady
	}
	if snap.ShowGo {
		msg.Flags |= network.FlagShowGo
	}

	for i, v := range snap.Vehicles {
		data := network.VehicleStateData{
			Slot:    uint8(i),
			Role:    roleCode(v.Role),
			X:       network.ScaleCoord(v.X),
			Y:       network.ScaleCoord(v.Y),
			Heading: network.ScaleCoord(v.Heading),
			Rank:    uint8(v.FinishRank),
		}
		if v.Finished {
			data.Flags |= network.FlagFinished
			data.FinishTimeMs = network.Millis(v.FinishTime)
		}
		msg.Vehicles[i] = data
	}
	return msg
}

// sessionInfoMessage describes the roster of the current level
func sessionInfoMessage(id string, level, unlocked int, vehicles []*game.Vehicle) *network.SessionInfoMessage {
	msg := &network.SessionInfoMessage{
		SessionID: id,
		Level:     uint8(level),
		Unlocked:  uint8(unlocked),
		Vehicles:  make([]network.VehicleInfo, len(vehicles)),
	}
	for i, v := range vehicles {
		msg.Vehicles[i] = network.VehicleInfo{Slot: uint8(i), Role: roleCode(v.Role), Label: v.Label}
	}
	return msg
}

// outcomeMessage converts a race result; slots are looked up in vehicles
func outcomeMessage(o *game.Outcome, vehicles []*game.Vehicle) *network.OutcomeMessage {
	slots := make(map[string]uint8, len(vehicles))
	for i, v := range vehicles {
		slots[v.ID] = uint8(i)
	}

	msg := &network.OutcomeMessage{
		Level:        uint8(o.Level),
		NextLevel:    uint8(o.NextLevel),
		PlayerRank:   uint8(o.PlayerRank),
		PlayerTimeMs: network.Millis(o.PlayerTime),
		WinnerSlot:   network.NoSlot,
		Standings:    make([]network.StandingData, len(o.Standings)),
		Message:      o.Message,
	}
	if o.Victory {
		msg.Flags |= network.FlagVictory
	}
	if o.Saved {
		msg.Flags |= network.FlagSaved
	}
	if o.PlayerFinished {
		msg.Flags |= network.FlagPlayerFinished
	}
	if slot, ok := slots[o.WinnerID]; ok {
		msg.WinnerSlot = slot
	}
	for i, st := range o.Standings {
		msg.Standings[i] = network.StandingData{Slot: slots[st.ID], TimeMs: network.Millis(st.Time)}
	}
	return msg
}
