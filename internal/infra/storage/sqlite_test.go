package storage

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"trade_go/internal/domain"
)

func setupTestDB(t *testing.T) *Storage {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.AutoMigrate(&domain.Checkpoint{}, &domain.StopSnapshot{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	return &Storage{db: db}
}

func TestSaveAndGetCheckpoint(t *testing.T) {
	s := setupTestDB(t)

	cp := &domain.Checkpoint{
		Program:  "sellbuy",
		TargetID: 7,
		Ticker:   "SBER",
		Executed: 150,
		AvgPrice: "250.75",
	}
	if err := s.SaveCheckpoint(cp); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	fetched, err := s.GetCheckpoint("sellbuy", 7)
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("fetched checkpoint is nil")
	}
	if fetched.Executed != 150 || fetched.AvgPrice != "250.75" {
		t.Errorf("fetched %+v", fetched)
	}
	if fetched.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestCheckpointUpsert(t *testing.T) {
	s := setupTestDB(t)
	cp := &domain.Checkpoint{Program: "spreads", TargetID: 3, Executed: 10, AvgPrice: "1"}
	s.SaveCheckpoint(cp)

	cp.Executed = 25
	cp.AvgPrice = "1.5"
	if err := s.SaveCheckpoint(cp); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	fetched, _ := s.GetCheckpoint("spreads", 3)
	if fetched.Executed != 25 || fetched.AvgPrice != "1.5" {
		t.Errorf("expected updated row, got %+v", fetched)
	}
}

func TestGetCheckpointMissing(t *testing.T) {
	s := setupTestDB(t)
	fetched, err := s.GetCheckpoint("sellbuy", 999)
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if fetched != nil {
		t.Errorf("expected nil for missing row, got %+v", fetched)
	}
}

func TestDeleteCheckpoint(t *testing.T) {
	s := setupTestDB(t)
	s.SaveCheckpoint(&domain.Checkpoint{Program: "sellbuy", TargetID: 1, Executed: 5})

	if err := s.DeleteCheckpoint("sellbuy", 1); err != nil {
		t.Fatalf("DeleteCheckpoint failed: %v", err)
	}
	fetched, _ := s.GetCheckpoint("sellbuy", 1)
	if fetched != nil {
		t.Error("expected checkpoint to be deleted")
	}
}

func TestStopSnapshots(t *testing.T) {
	s := setupTestDB(t)

	for _, snap := range []*domain.StopSnapshot{
		{Ticker: "SBER", Figi: "F1", Price: "85", Amount: 3500, Sell: true},
		{Ticker: "SBER", Figi: "F1", Price: "80", Amount: 3750, Sell: true},
	} {
		if err := s.SaveStopSnapshot(snap); err != nil {
			t.Fatalf("SaveStopSnapshot failed: %v", err)
		}
	}

	snaps, err := s.ListStopSnapshots()
	if err != nil {
		t.Fatalf("ListStopSnapshots failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots", len(snaps))
	}

	if err := s.PurgeStopSnapshots(); err != nil {
		t.Fatalf("PurgeStopSnapshots failed: %v", err)
	}
	snaps, _ = s.ListStopSnapshots()
	if len(snaps) != 0 {
		t.Errorf("expected empty journal, got %d rows", len(snaps))
	}
}
