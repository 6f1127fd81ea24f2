package zone

import "errors"

// Sentinel errors for zone operations.
var (
	// ErrUnknownZone indicates a zone id with no configured zone.
	ErrUnknownZone = errors.New("zone: unknown zone")

	// ErrUnknownSource indicates a source name not present in the
	// system-wide source table.
	ErrUnknownSource = errors.New("zone: unknown source")

	// ErrInvalidVolume indicates a normalized volume outside 0..1.
	ErrInvalidVolume = errors.New("zone: volume level must be between 0 and 1")

	// ErrNoSnapshot indicates Restore was called before Snapshot.
	ErrNoSnapshot = errors.New("zone: no snapshot to restore")
)
