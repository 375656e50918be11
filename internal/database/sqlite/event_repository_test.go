package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/pma-simulator/internal/database/models"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Mirrors the events migration
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			type TEXT NOT NULL,
			data TEXT,
			timestamp DATETIME NOT NULL
		)
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}

	return db
}

func makeEvents(deviceID string, n int, start time.Time) []*models.EventRecord {
	records := make([]*models.EventRecord, 0, n)
	for i := 0; i < n; i++ {
		data, _ := json.Marshal(map[string]interface{}{"seq": i})
		records = append(records, &models.EventRecord{
			ID:        fmt.Sprintf("%s-ev-%03d", deviceID, i),
			DeviceID:  deviceID,
			Type:      "state_change",
			Data:      data,
			Timestamp: start.Add(time.Duration(i) * time.Second),
		})
	}
	return records
}

func TestEventRepository_InsertBatchAndRecent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewEventRepository(db, logrus.New())
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.InsertBatch(ctx, makeEvents("dev-1", 5, start)); err != nil {
		t.Fatalf("Failed to insert events: %v", err)
	}

	records, err := repo.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Failed to load recent events: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(records))
	}
	if records[0].ID != "dev-1-ev-004" {
		t.Errorf("Expected newest event first, got %s", records[0].ID)
	}
	if records[2].ID != "dev-1-ev-002" {
		t.Errorf("Expected events in descending order, got %s", records[2].ID)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(records[0].Data, &data); err != nil {
		t.Fatalf("Failed to decode event data: %v", err)
	}
	if data["seq"] != 4.0 {
		t.Errorf("Expected seq 4 in event data, got %v", data["seq"])
	}
}

func TestEventRepository_InsertBatchEmpty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewEventRepository(db, logrus.New())

	if err := repo.InsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("Empty batch should be a no-op, got %v", err)
	}
}

func TestEventRepository_DuplicateIDsIgnored(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewEventRepository(db, logrus.New())
	ctx := context.Background()
	batch := makeEvents("dev-1", 5, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	if err := repo.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("Failed to insert events: %v", err)
	}
	// A retried flush must not duplicate rows
	if err := repo.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("Failed to re-insert events: %v", err)
	}

	count, err := repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 events after duplicate insert, got %d", count)
	}
}

func TestEventRepository_RecentByDevice(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewEventRepository(db, logrus.New())
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.InsertBatch(ctx, makeEvents("dev-1", 4, start)); err != nil {
		t.Fatalf("Failed to insert events: %v", err)
	}
	if err := repo.InsertBatch(ctx, makeEvents("dev-2", 2, start.Add(time.Hour))); err != nil {
		t.Fatalf("Failed to insert events: %v", err)
	}

	records, err := repo.RecentByDevice(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("Failed to load device events: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected 4 events for dev-1, got %d", len(records))
	}
	for _, record := range records {
		if record.DeviceID != "dev-1" {
			t.Errorf("Expected only dev-1 events, got %s", record.DeviceID)
		}
	}
}

func TestEventRepository_Prune(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewEventRepository(db, logrus.New())
	ctx := context.Background()

	if err := repo.InsertBatch(ctx, makeEvents("dev-1", 10, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Failed to insert events: %v", err)
	}

	removed, err := repo.Prune(ctx, 4)
	if err != nil {
		t.Fatalf("Failed to prune events: %v", err)
	}
	if removed != 6 {
		t.Errorf("Expected 6 pruned events, got %d", removed)
	}

	records, err := repo.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("Failed to load recent events: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected 4 events after prune, got %d", len(records))
	}
	// The newest rows survive
	if records[0].ID != "dev-1-ev-009" {
		t.Errorf("Expected newest event kept, got %s", records[0].ID)
	}
	if records[3].ID != "dev-1-ev-006" {
		t.Errorf("Expected oldest survivor ev-006, got %s", records[3].ID)
	}
}

func TestEventRepository_RecentDefaultLimit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewEventRepository(db, logrus.New())
	ctx := context.Background()

	if err := repo.InsertBatch(ctx, makeEvents("dev-1", 5, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Failed to insert events: %v", err)
	}

	records, err := repo.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to load recent events: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("Expected the default limit to return all 5 events, got %d", len(records))
	}
}
