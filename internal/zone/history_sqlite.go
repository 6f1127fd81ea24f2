package zone

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteHistoryRepository implements HistoryRepository backed by SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

var _ HistoryRepository = (*SQLiteHistoryRepository)(nil)

// NewSQLiteHistoryRepository creates a repository using the given database
// handle. The zone_state_history table must already exist (see migrations).
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// RecordStateChange inserts a state snapshot for the zone.
func (r *SQLiteHistoryRepository) RecordStateChange(ctx context.Context, zoneID int, state State, source string) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal zone state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO zone_state_history (zone_id, state, source, created_at)
		 VALUES (?, ?, ?, ?)`,
		zoneID, string(stateJSON), source, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record state change: %w", err)
	}
	return nil
}

// GetHistory returns recent state changes for the zone, newest first.
// A limit of 0 or less uses the default; limits above the maximum are
// clamped.
func (r *SQLiteHistoryRepository) GetHistory(ctx context.Context, zoneID int, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, zone_id, state, source, created_at
		 FROM zone_state_history
		 WHERE zone_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		zoneID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query zone state history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry     HistoryEntry
			stateJSON string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.ZoneID, &stateJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal zone state: %w", err)
		}
		entry.CreatedAt = parseHistoryTimestamp(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes entries older than the given duration.
func (r *SQLiteHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM zone_state_history WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune zone state history: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return removed, nil
}

// parseHistoryTimestamp parses an RFC3339 timestamp, falling back to the
// SQLite datetime format for rows written by older versions.
func parseHistoryTimestamp(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
