package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerProgress is the persisted row, one per player
type PlayerProgress struct {
	PlayerID  string `gorm:"primaryKey;size:64"`
	Level     int    `gorm:"not null;default:1"`
	UpdatedAt time.Time
}

// TableName overrides the pluralised default
func (PlayerProgress) TableName() string {
	return "player_progress"
}

// GormStore implements Store on any gorm dialect
type GormStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewGormStore migrates the progress table and wraps db
func NewGormStore(db *gorm.DB, log zerolog.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&PlayerProgress{}); err != nil {
		return nil, fmt.Errorf("failed to migrate progress table: %w", err)
	}
	return &GormStore{db: db, log: log}, nil
}

// GetLevel returns the stored level, or FirstLevel for unknown players
func (s *GormStore) GetLevel(playerID string) (int, error) {
	var row PlayerProgress
	err := s.db.Where("player_id = ?", playerID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FirstLevel, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read progress for %s: %w", playerID, err)
	}
	return row.Level, nil
}

// SetLevel upserts the player's row
func (s *GormStore) SetLevel(playerID string, level int) error {
	if err := validate(playerID, level); err != nil {
		return err
	}

	row := PlayerProgress{PlayerID: playerID, Level: level, UpdatedAt: time.Now().UTC()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"level", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save progress for %s: %w", playerID, err)
	}

	s.log.Debug().Str("player", playerID).Int("race_level", level).Msg("Saved progress")
	return nil
}

// Close closes the underlying connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
