package zone

import (
	"math"

	"github.com/nuvoserial/nuvo-core/internal/nuvo"
)

// NormalizedVolume converts an amplifier volume (dB of attenuation, 0
// loudest to 79 quietest) to a normalized 0..1 level.
func NormalizedVolume(volume int) float64 {
	return 1 - float64(volume)/float64(nuvo.VolumeMin)
}

// DeviceVolume converts a normalized 0..1 level to the amplifier's
// attenuation scale. Rounding is half-to-even to match the firmware's own
// arithmetic, so a level that round-trips through NormalizedVolume maps
// back to the same device volume.
func DeviceVolume(level float64) int {
	volume := int(math.RoundToEven(float64(nuvo.VolumeMin) - level*float64(nuvo.VolumeMin)))
	if volume < nuvo.VolumeMax {
		volume = nuvo.VolumeMax
	}
	if volume > nuvo.VolumeMin {
		volume = nuvo.VolumeMin
	}
	return volume
}
