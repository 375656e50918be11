package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/pma-simulator/internal/database/models"
)

// EventRepository persists device events to the SQLite event store.
type EventRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewEventRepository(db *sqlx.DB, log *logrus.Logger) *EventRepository {
	return &EventRepository{
		db:  db,
		log: log,
	}
}

// InsertBatch writes a slice of events in a single transaction.
func (r *EventRepository) InsertBatch(ctx context.Context, records []*models.EventRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin event insert transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT OR IGNORE INTO events (id, device_id, type, data, timestamp)
			  VALUES (?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx, record.ID, record.DeviceID, record.Type,
			[]byte(record.Data), record.Timestamp); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event batch: %w", err)
	}

	r.log.WithFields(logrus.Fields{"events": len(records)}).Debug("Persisted event batch")
	return nil
}

// Recent returns the newest events, most recent first.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]*models.EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, device_id, type, data, timestamp FROM events
			  ORDER BY timestamp DESC, id LIMIT ?`

	var records []*models.EventRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		r.log.WithError(err).Error("Failed to load recent events")
		return nil, fmt.Errorf("failed to load recent events: %w", err)
	}
	return records, nil
}

// RecentByDevice returns the newest events for one device.
func (r *EventRepository) RecentByDevice(ctx context.Context, deviceID string, limit int) ([]*models.EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, device_id, type, data, timestamp FROM events
			  WHERE device_id = ? ORDER BY timestamp DESC, id LIMIT ?`

	var records []*models.EventRecord
	if err := r.db.SelectContext(ctx, &records, query, deviceID, limit); err != nil {
		r.log.WithError(err).Error("Failed to load device events")
		return nil, fmt.Errorf("failed to load events for device %s: %w", deviceID, err)
	}
	return records, nil
}

// Prune deletes everything but the newest keep events and reports how
// many rows were removed.
func (r *EventRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	query := `DELETE FROM events WHERE id NOT IN (
				SELECT id FROM events ORDER BY timestamp DESC, id LIMIT ?
			  )`

	result, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned events: %w", err)
	}
	if removed > 0 {
		r.log.WithFields(logrus.Fields{"removed": removed, "kept": keep}).Debug("Pruned event store")
	}
	return removed, nil
}

// CountAll returns the total number of stored events.
func (r *EventRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM events`); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
