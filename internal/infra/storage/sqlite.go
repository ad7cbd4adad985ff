package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trade_go/internal/domain"
)

// Storage journals execution progress and stop placements to a local
// SQLite file. It is the crash-recovery companion to the backend API:
// if the process dies mid-run, the journal shows how far each target got.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the journal database at path.
func NewStorage(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Checkpoint{}, &domain.StopSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// SaveCheckpoint upserts the progress row for one (program, target) pair.
func (s *Storage) SaveCheckpoint(cp *domain.Checkpoint) error {
	cp.UpdatedAt = time.Now()
	return s.db.Save(cp).Error
}

// GetCheckpoint returns the journaled progress, or nil when none exists.
func (s *Storage) GetCheckpoint(program string, targetID int64) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	err := s.db.First(&cp, "program = ? AND target_id = ?", program, targetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// DeleteCheckpoint removes the progress row once the backend confirmed it.
func (s *Storage) DeleteCheckpoint(program string, targetID int64) error {
	return s.db.Where("program = ? AND target_id = ?", program, targetID).
		Delete(&domain.Checkpoint{}).Error
}

// SaveStopSnapshot records one submitted stop order.
func (s *Storage) SaveStopSnapshot(snap *domain.StopSnapshot) error {
	snap.PlacedAt = time.Now()
	return s.db.Create(snap).Error
}

// ListStopSnapshots returns all recorded stops, newest first.
func (s *Storage) ListStopSnapshots() ([]domain.StopSnapshot, error) {
	var snaps []domain.StopSnapshot
	err := s.db.Order("placed_at desc").Find(&snaps).Error
	return snaps, err
}

// PurgeStopSnapshots clears the stop journal, normally after CancelAll.
func (s *Storage) PurgeStopSnapshots() error {
	return s.db.Where("1 = 1").Delete(&domain.StopSnapshot{}).Error
}
