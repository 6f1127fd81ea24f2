package zone

import (
	"context"
	"time"

	"github.com/nuvoserial/nuvo-core/internal/eventbus"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/config"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
)

// History source values.
const (
	// HistorySourceDriver marks entries recorded from amplifier status
	// messages (the only source of confirmed state changes).
	HistorySourceDriver = "driver"
)

// HistoryEntry is a single zone state change record.
//
// Each entry stores a full snapshot of the zone state at the time the
// change was confirmed by the amplifier. Group membership is deliberately
// not persisted: groups are ephemeral and do not survive a restart.
type HistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// ZoneID is the amplifier zone number.
	ZoneID int `json:"zone_id"`

	// State is the JSON snapshot of the zone state.
	State State `json:"state"`

	// Source identifies how the change was recorded.
	Source string `json:"source"`

	// CreatedAt is the timestamp of the state change (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores and retrieves zone state change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// RecordStateChange records a zone state change.
	RecordStateChange(ctx context.Context, zoneID int, state State, source string) error

	// GetHistory returns recent state changes for the zone, newest first.
	// The limit may be clamped by the implementation.
	GetHistory(ctx context.Context, zoneID int, limit int) ([]HistoryEntry, error)

	// PruneHistory deletes entries older than the given duration and
	// returns the number of rows removed.
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}

// HistoryRecorder subscribes to zone state events and persists confirmed
// changes, giving a local audit trail independent of the time-series
// database. It also runs the periodic prune job.
type HistoryRecorder struct {
	repo   HistoryRepository
	logger *logging.Logger
	cfg    config.HistoryConfig
	cancel func()
	stop   chan struct{}
}

// NewHistoryRecorder creates a recorder. Call Start to begin recording.
func NewHistoryRecorder(repo HistoryRepository, cfg config.HistoryConfig, logger *logging.Logger) *HistoryRecorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &HistoryRecorder{
		repo:   repo,
		logger: logger.With("component", "history"),
		cfg:    cfg,
		stop:   make(chan struct{}),
	}
}

// Start subscribes to state events and launches the prune loop.
func (r *HistoryRecorder) Start(bus *eventbus.Bus) {
	r.cancel = bus.Subscribe(EventStateChanged, func(evt eventbus.Event) {
		state, ok := evt.Data.(StateEvent)
		if !ok {
			return
		}
		// Status echoes with no material change (and pure group
		// membership updates) are not history.
		if !state.Change.Any() {
			return
		}
		if err := r.repo.RecordStateChange(context.Background(), state.ZoneID, state.State, HistorySourceDriver); err != nil {
			r.logger.Warn("failed to record state change", "zone", state.ZoneID, "error", err)
		}
	})

	if r.cfg.RetentionDays > 0 {
		go r.pruneLoop()
	}
}

// Close stops recording and the prune loop.
func (r *HistoryRecorder) Close() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	close(r.stop)
}

func (r *HistoryRecorder) pruneLoop() {
	interval := time.Duration(r.cfg.PruneInterval) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(r.cfg.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := r.repo.PruneHistory(context.Background(), retention)
			if err != nil {
				r.logger.Warn("history prune failed", "error", err)
				continue
			}
			if removed > 0 {
				r.logger.Info("pruned zone state history", "removed", removed)
			}
		case <-r.stop:
			return
		}
	}
}
