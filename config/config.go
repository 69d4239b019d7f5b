package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Race constants - tuned per frame, one simulation step per rendered frame
const (
	// Screen / world
	ScreenWidth  = 960
	ScreenHeight = 800

	// Race lifecycle (simulated seconds)
	CountdownSeconds    = 3.0
	GoBannerSeconds     = 1.0
	ResultsDelaySeconds = 2.0
	LevelCount          = 2

	// Player
	BaseSpeed    = 5.0 // Units per tick while a direction key is held
	PlayerLength = 60.0
	PlayerWidth  = 30.0

	// AI
	AILength        = 24.0
	AIWidth         = 12.0
	MinAISpawnSpeed = 2.0
	MaxAISpeed      = 4.0
	MinAISpeed      = 1.0 // Floor for wall friction and backwards nudges

	// Road bounds
	BoundsPadding   = 0.05
	WallSnap        = 5.0
	WallFriction    = 0.95
	DefaultMinBound = 200.0
	DefaultMaxBound = 760.0

	// Finish
	FinishSnap = 10.0

	// Bumper collision (level 1)
	PushRearEnd      = 20.0
	PushFrontHit     = 15.0
	PushSideBySide   = 10.0
	LateralPushShare = 0.5
	TravelPushShare  = 0.25

	TrailingPlayerDamping = 0.3
	TrailingAIDamping     = 0.4
	LeadingBoost          = 1.5
	LeadingPlayerKick     = 3.0
	FrontHitPlayerDamping = 0.5
	FrontHitAIDamping     = 0.6
	FrontHitNudge         = 1.0
	SidePlayerDamping     = 0.7
	SideAIDamping         = 0.8

	// Radial collision (level 2)
	CollisionRadius    = 25.0
	RadialPush         = 15.0
	RadialIntentShare  = 0.5
	RadialNudgeShare   = 0.3
	RadialSpeedDamping = 0.7

	// Network
	PhysicsTickRate      = 60 // Hz
	NetworkBroadcastRate = 20 // Hz
	MaxDeltaSeconds      = 0.1
	MaxInputsPerTick     = 8
	MaxFloodTicks        = 30 // Consecutive flooded ticks before a kick
	InputQueueSize       = 64
	MaxSessionsPerServer = 50
	SessionIdleTimeout   = 5 * time.Minute
)

// Default config file name looked up in the config directory
const FileName = "racer.cfg.json"

// ServerConfig holds the websocket server settings
type ServerConfig struct {
	Host       string `json:"host" mapstructure:"host"`
	Port       int    `json:"port" mapstructure:"port"`
	EnableCORS bool   `json:"enableCors" mapstructure:"enableCors"`
	LogLevel   string `json:"logLevel" mapstructure:"logLevel"`
}

// SQLiteConfig holds SQLite progress store settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds Postgres progress store settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN builds the connection string understood by the gorm postgres driver
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// ProgressConfig selects and configures the player progress store
type ProgressConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// GameConfig holds session loop settings
type GameConfig struct {
	TickRate      int           `json:"tickRate" mapstructure:"tickRate"`
	BroadcastRate int           `json:"broadcastRate" mapstructure:"broadcastRate"`
	MaxSessions   int           `json:"maxSessions" mapstructure:"maxSessions"`
	IdleTimeout   time.Duration `json:"idleTimeout" mapstructure:"idleTimeout"`
}

// SetDefaults registers default values for every known key
func SetDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.enableCors", true)
	viper.SetDefault("log.level", "info")

	viper.SetDefault("progress.type", "memory")
	viper.SetDefault("progress.sqlite.path", "./racer_progress.db")
	viper.SetDefault("progress.postgres.host", "localhost")
	viper.SetDefault("progress.postgres.port", "5432")
	viper.SetDefault("progress.postgres.username", "postgres")
	viper.SetDefault("progress.postgres.password", "postgres")
	viper.SetDefault("progress.postgres.database", "racer")

	viper.SetDefault("game.tickRate", PhysicsTickRate)
	viper.SetDefault("game.broadcastRate", NetworkBroadcastRate)
	viper.SetDefault("game.maxSessions", MaxSessionsPerServer)
	viper.SetDefault("game.idleTimeout", SessionIdleTimeout.String())
}

// Load reads configuration from the JSON file in configDir and sets default values.
// A missing file is not an error; RACER_* environment variables override both.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix("racer")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetServerConfig returns the server section
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Host:       viper.GetString("server.host"),
		Port:       viper.GetInt("server.port"),
		EnableCORS: viper.GetBool("server.enableCors"),
		LogLevel:   viper.GetString("log.level"),
	}
}

// GetProgressConfig returns the progress store section
func GetProgressConfig() ProgressConfig {
	return ProgressConfig{
		Type: strings.ToLower(viper.GetString("progress.type")),
		SQLite: SQLiteConfig{
			Path: viper.GetString("progress.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("progress.postgres.host"),
			Port:     viper.GetString("progress.postgres.port"),
			Username: viper.GetString("progress.postgres.username"),
			Password: viper.GetString("progress.postgres.password"),
			Database: viper.GetString("progress.postgres.database"),
		},
	}
}

// GetGameConfig returns the session loop section
func GetGameConfig() GameConfig {
	cfg := GameConfig{
		TickRate:      viper.GetInt("game.tickRate"),
		BroadcastRate: viper.GetInt("game.broadcastRate"),
		MaxSessions:   viper.GetInt("game.maxSessions"),
		IdleTimeout:   viper.GetDuration("game.idleTimeout"),
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = PhysicsTickRate
	}
	if cfg.BroadcastRate <= 0 {
		cfg.BroadcastRate = NetworkBroadcastRate
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = MaxSessionsPerServer
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = SessionIdleTimeout
	}
	return cfg
}
