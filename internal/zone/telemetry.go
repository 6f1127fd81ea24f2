package zone

import (
	"github.com/nuvoserial/nuvo-core/internal/eventbus"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
)

// MetricsWriter receives confirmed zone state transitions for time-series
// storage. Satisfied by *influxdb.Client. Implementations must be
// non-blocking; the writer is called from bus handler goroutines.
type MetricsWriter interface {
	// WriteZonePower records a power transition.
	WriteZonePower(zoneID int, entityID string, on bool)

	// WriteZoneVolume records a confirmed normalized volume level.
	WriteZoneVolume(zoneID int, entityID string, level float64)
}

// TelemetryRecorder forwards confirmed state changes to a MetricsWriter.
// Only attributes the amplifier actually reported as changed are written;
// restated status with no change flags produces no points.
type TelemetryRecorder struct {
	writer MetricsWriter
	logger *logging.Logger
	stop   func()
}

// NewTelemetryRecorder creates a recorder writing to the given writer.
func NewTelemetryRecorder(writer MetricsWriter, logger *logging.Logger) *TelemetryRecorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &TelemetryRecorder{
		writer: writer,
		logger: logger.With("component", "telemetry"),
	}
}

// Start subscribes to zone state events on the bus.
func (r *TelemetryRecorder) Start(bus *eventbus.Bus) {
	r.stop = bus.Subscribe(EventStateChanged, r.handleStateEvent)
	r.logger.Info("zone telemetry started")
}

// Close drops the bus subscription.
func (r *TelemetryRecorder) Close() {
	if r.stop != nil {
		r.stop()
	}
}

func (r *TelemetryRecorder) handleStateEvent(evt eventbus.Event) {
	se, ok := evt.Data.(StateEvent)
	if !ok {
		return
	}

	if se.Change.Power {
		r.writer.WriteZonePower(se.ZoneID, se.EntityID, se.State.Power == PowerOn)
	}
	if se.Change.Volume && se.State.Volume != nil {
		r.writer.WriteZoneVolume(se.ZoneID, se.EntityID, *se.State.Volume)
	}
}
