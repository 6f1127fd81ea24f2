package zone

import (
	"sync"
	"testing"
)

// fakeMetricsWriter collects written points in memory.
type fakeMetricsWriter struct {
	mu     sync.Mutex
	powers []bool
	levels []float64
}

func (f *fakeMetricsWriter) WriteZonePower(zoneID int, entityID string, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.powers = append(f.powers, on)
}

func (f *fakeMetricsWriter) WriteZoneVolume(zoneID int, entityID string, level float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = append(f.levels, level)
}

func (f *fakeMetricsWriter) counts() (powers, levels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.powers), len(f.levels)
}

func TestTelemetryRecorder(t *testing.T) {
	env := newTestEnv(t)

	writer := &fakeMetricsWriter{}
	recorder := NewTelemetryRecorder(writer, nil)
	recorder.Start(env.bus)
	t.Cleanup(recorder.Close)

	// Volume change on a powered-on zone writes one volume point.
	env.pushStatus(zoneStatus(1, true, 1, 30, false))
	waitFor(t, func() bool {
		_, levels := writer.counts()
		return levels == 1
	}, "one volume point")

	// Power-off writes a power point; the cleared attributes write nothing.
	env.pushStatus(zoneStatus(1, false, 0, 0, false))
	waitFor(t, func() bool {
		powers, _ := writer.counts()
		return powers == 1
	}, "one power point")

	writer.mu.Lock()
	if len(writer.powers) != 1 || writer.powers[0] {
		t.Errorf("powers = %v, want [false]", writer.powers)
	}
	if len(writer.levels) != 1 {
		t.Errorf("levels = %v, want one entry", writer.levels)
	}
	writer.mu.Unlock()

	// Restated status with no change flags produces no points.
	env.pushStatus(zoneStatus(1, false, 0, 0, false))
	env.drain()
	powers, levels := writer.counts()
	if powers != 1 || levels != 1 {
		t.Errorf("points after restated status = %d power, %d volume; want 1, 1", powers, levels)
	}
}
