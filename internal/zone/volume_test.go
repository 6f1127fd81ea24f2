package zone

import "testing"

// TestNormalizedVolume verifies the inverted device scale maps to 0..1.
func TestNormalizedVolume(t *testing.T) {
	tests := []struct {
		volume int
		want   float64
	}{
		{0, 1.0},
		{79, 0.0},
		{40, 1.0 - 40.0/79.0},
	}

	for _, tt := range tests {
		if got := NormalizedVolume(tt.volume); got != tt.want {
			t.Errorf("NormalizedVolume(%d) = %v, want %v", tt.volume, got, tt.want)
		}
	}
}

// TestDeviceVolume verifies rounding and clamping of normalized levels.
func TestDeviceVolume(t *testing.T) {
	tests := []struct {
		level float64
		want  int
	}{
		{0.0, 79},
		{1.0, 0},
		{0.5, 40}, // 39.5 rounds half to even
		{-0.5, 79},
		{1.5, 0},
	}

	for _, tt := range tests {
		if got := DeviceVolume(tt.level); got != tt.want {
			t.Errorf("DeviceVolume(%v) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

// TestVolumeRoundTrip verifies every device volume survives conversion to
// a normalized level and back.
func TestVolumeRoundTrip(t *testing.T) {
	for v := 0; v <= 79; v++ {
		if got := DeviceVolume(NormalizedVolume(v)); got != v {
			t.Errorf("round trip %d -> %v -> %d", v, NormalizedVolume(v), got)
		}
	}
}
