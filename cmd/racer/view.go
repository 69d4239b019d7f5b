package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/race/minirace/internal/game"
)

const hudRows = 2

var vehicleColors = map[string]tcell.Color{
	"yellow": tcell.ColorYellow,
	"red":    tcell.ColorRed,
	"blue":   tcell.ColorBlue,
}

var (
	roadStyle   = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray)
	grassStyle  = tcell.StyleDefault.Background(tcell.ColorDarkGreen)
	finishStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	hudStyle    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	bannerStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow).Bold(true)
)

// viewport maps world coordinates (y-up) onto terminal cells below the HUD
type viewport struct {
	world         game.Vec
	width, height int
}

func (v viewport) cell(p game.Vec) (int, int) {
	rows := v.height - hudRows
	if rows < 1 || v.width < 1 {
		return -1, -1
	}
	x := int(p.X * float64(v.width) / v.world.X)
	y := hudRows + int((v.world.Y-p.Y)*float64(rows)/v.world.Y)
	return x, y
}

func (v viewport) inside(x, y int) bool {
	return x >= 0 && x < v.width && y >= hudRows && y < v.height
}

// drawFrame renders one snapshot of the race
func drawFrame(s tcell.Screen, level game.Level, bounds game.RoadBounds, snap game.Snapshot, unlocked int) {
	s.Clear()
	w, h := s.Size()
	vp := viewport{world: level.World, width: w, height: h}

	drawTrack(s, vp, level, bounds)

	for _, v := range snap.Vehicles {
		x, y := vp.cell(game.Vec{X: v.X, Y: v.Y})
		if !vp.inside(x, y) {
			continue
		}
		color, ok := vehicleColors[v.Label]
		if !ok {
			color = tcell.ColorWhite
		}
		ch := '▮'
		if v.Role == game.RolePlayer {
			ch = '█'
		}
		s.SetContent(x, y, ch, nil, tcell.StyleDefault.Foreground(color).Background(tcell.ColorDarkSlateGray))
	}

	drawText(s, 0, 0, hudStyle, fmt.Sprintf("Level %d/%d %s  time %.2fs  hits %d",
		snap.Level, unlocked, level.Name, snap.RaceTime, snap.Collisions))
	drawText(s, 0, 1, hudStyle, "arrows steer  space release  r restart  n next level  q quit")

	var banner string
	switch {
	case snap.ShowReady:
		banner = " Get ready! " + snap.CountdownText + " "
	case snap.ShowGo:
		banner = " GO! "
	}
	if banner != "" {
		drawText(s, (w-len(banner))/2, h/2, bannerStyle, banner)
	}

	for i, line := range snap.Leaderboard {
		drawText(s, max(0, w-len(line)-1), hudRows+i, hudStyle, line)
	}

	if snap.Outcome != nil {
		msg := " " + snap.Outcome.Message + " "
		drawText(s, max(0, (w-len(msg))/2), h/2+1, bannerStyle, msg)
	}

	s.Show()
}

// drawTrack paints the road corridor and the finish line
func drawTrack(s tcell.Screen, vp viewport, level game.Level, bounds game.RoadBounds) {
	for y := hudRows; y < vp.height; y++ {
		for x := 0; x < vp.width; x++ {
			s.SetContent(x, y, ' ', nil, grassStyle)
		}
	}

	corner := func(lat, along float64) (int, int) {
		if level.Axis == game.AxisVertical {
			return vp.cell(game.Vec{X: lat, Y: along})
		}
		return vp.cell(game.Vec{X: along, Y: lat})
	}

	x0, y0 := corner(bounds.Min, 0)
	x1, y1 := corner(bounds.Max, max(level.World.X, level.World.Y))
	for y := min(y0, y1); y <= max(y0, y1); y++ {
		for x := min(x0, x1); x <= max(x0, x1); x++ {
			if vp.inside(x, y) {
				s.SetContent(x, y, ' ', nil, roadStyle)
			}
		}
	}

	fx0, fy0 := corner(level.Finish.Min, level.Finish.Threshold)
	fx1, fy1 := corner(level.Finish.Max, level.Finish.Threshold)
	for y := min(fy0, fy1); y <= max(fy0, fy1); y++ {
		for x := min(fx0, fx1); x <= max(fx0, fx1); x++ {
			if vp.inside(x, y) {
				s.SetContent(x, y, '▚', nil, finishStyle)
			}
		}
	}
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}
