// Command racer plays the race locally in a terminal.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/race/minirace/config"
	"github.com/race/minirace/internal/game"
	"github.com/race/minirace/internal/logging"
	"github.com/race/minirace/internal/progress"
)

const frameInterval = 16 * time.Millisecond // ~60 FPS

var (
	configDir = flag.String("config", ".", "Directory holding "+config.FileName)
	playerID  = flag.String("player", "local", "Player id used for saved progress")
	levelFlag = flag.Int("level", 0, "Level to start on (0 resumes saved progress)")
	logPath   = flag.String("log", "racer.log", "Log file")
)

// App is the terminal front end of one local race
type App struct {
	screen  tcell.Screen
	machine *game.Machine
	store   progress.Store
	log     zerolog.Logger

	unlocked int
	saved    bool
}

// NewApp prepares a race on level, resuming saved progress when level is 0
func NewApp(screen tcell.Screen, store progress.Store, player string, level int, log zerolog.Logger) (*App, error) {
	unlocked, err := store.GetLevel(player)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	unlocked = max(1, min(unlocked, config.LevelCount))

	if level == 0 || level > unlocked {
		level = unlocked
	}

	return &App{
		screen:   screen,
		machine:  game.NewMachine(game.LevelByNumber(level), player, store, game.WithLogger(log)),
		store:    store,
		log:      log,
		unlocked: unlocked,
	}, nil
}

// handleEvent applies one terminal event. Returns false when the user quits.
func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			a.machine.HandleInput(game.Input{Key: game.KeyUp, Pressed: true})
		case tcell.KeyDown:
			a.machine.HandleInput(game.Input{Key: game.KeyDown, Pressed: true})
		case tcell.KeyLeft:
			a.machine.HandleInput(game.Input{Key: game.KeyLeft, Pressed: true})
		case tcell.KeyRight:
			a.machine.HandleInput(game.Input{Key: game.KeyRight, Pressed: true})
		case tcell.KeyRune:
			return a.handleRune(ev.Rune())
		}

	case *tcell.EventResize:
		a.screen.Sync()
	}

	return true
}

func (a *App) handleRune(r rune) bool {
	switch r {
	case 'q':
		return false
	case ' ':
		// Terminals report presses only; space lets go of every key
		for _, k := range []game.Key{game.KeyUp, game.KeyLeft} {
			a.machine.HandleInput(game.Input{Key: k, Pressed: false})
		}
	case 'r':
		a.machine.Reset()
		a.saved = false
	case 'n':
		next := a.machine.Level().Number + 1
		if next <= a.unlocked {
			a.machine.SetLevel(game.LevelByNumber(next))
			a.saved = false
		}
	}
	return true
}

// tick advances the race and picks up newly unlocked levels
func (a *App) tick(dt float64) {
	a.machine.Tick(dt)

	if o := a.machine.Outcome(); o != nil && !a.saved {
		a.saved = true
		if o.Saved {
			a.unlocked = max(a.unlocked, o.NextLevel)
		}
		if o.SaveErr != nil {
			a.log.Error().Err(o.SaveErr).Msg("Progress not saved")
		}
	}
}

func (a *App) draw() {
	drawFrame(a.screen, a.machine.Level(), a.machine.Bounds(), a.machine.Snapshot(), a.unlocked)
}

func (a *App) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	last := time.Now()
	for {
		select {
		case ev := <-eventChan:
			if !a.handleEvent(ev) {
				return
			}

		case now := <-ticker.C:
			dt := min(now.Sub(last).Seconds(), config.MaxDeltaSeconds)
			last = now
			a.tick(dt)
			a.draw()
		}
	}
}

func main() {
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := logging.New(config.GetServerConfig().LogLevel, logFile)

	store, err := progress.Open(config.GetProgressConfig(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open progress store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	app, err := NewApp(screen, store, *playerID, *levelFlag, log)
	if err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	app.run()
}
