package nuvo

import (
	"context"
	"time"
)

// SubscriberFunc receives one pushed driver message. The concrete type of
// msg matches the MessageType the subscriber registered for (ZoneStatus for
// TypeZoneStatus, and so on).
type SubscriberFunc func(msg any)

// Driver is the command surface of the nuvo-serial driver service.
//
// Every command is a request/response exchange: the method blocks until the
// driver acknowledges with the resulting status message or the context is
// done. The same status message is also pushed to subscribers, which is how
// most state propagation happens; the synchronous return value matters when
// a caller needs the result before the push arrives.
//
// Implementations must be safe for concurrent use.
type Driver interface {
	// Zone commands. Each returns the echoed ZoneStatus.
	SetPower(ctx context.Context, zone int, power bool) (ZoneStatus, error)
	SetMute(ctx context.Context, zone int, mute bool) (ZoneStatus, error)
	SetVolume(ctx context.Context, zone int, volume int) (ZoneStatus, error)
	SetSource(ctx context.Context, zone int, source int) (ZoneStatus, error)
	VolumeUp(ctx context.Context, zone int) (ZoneStatus, error)
	VolumeDown(ctx context.Context, zone int) (ZoneStatus, error)

	// RestoreZone re-applies a previously captured zone status in a single
	// command (power, source, volume, mute).
	RestoreZone(ctx context.Context, status ZoneStatus) (ZoneStatus, error)

	// Tone and balance.
	SetBass(ctx context.Context, zone int, bass int) (ZoneEQStatus, error)
	SetTreble(ctx context.Context, zone int, treble int) (ZoneEQStatus, error)
	SetBalance(ctx context.Context, zone int, position string, value int) (ZoneEQStatus, error)
	SetLoudnessComp(ctx context.Context, zone int, enabled bool) (ZoneEQStatus, error)

	// Zone volume configuration.
	ZoneVolumeMax(ctx context.Context, zone int, volume int) (ZoneVolumeConfiguration, error)
	ZoneVolumeInitial(ctx context.Context, zone int, volume int) (ZoneVolumeConfiguration, error)
	ZoneVolumePage(ctx context.Context, zone int, volume int) (ZoneVolumeConfiguration, error)
	ZoneVolumeParty(ctx context.Context, zone int, volume int) (ZoneVolumeConfiguration, error)
	ZoneVolumeReset(ctx context.Context, zone int, enabled bool) (ZoneVolumeConfiguration, error)

	// Source configuration.
	SetSourceGain(ctx context.Context, source int, gain int) (SourceConfiguration, error)
	SetSourceNuvonet(ctx context.Context, source int, nuvonet bool) (SourceConfiguration, error)

	// SetPartyHost makes the zone the party host (or releases it).
	SetPartyHost(ctx context.Context, zone int, enabled bool) error

	// Keypad transport buttons.
	ZoneButtonPlayPause(ctx context.Context, zone int) error
	ZoneButtonPrev(ctx context.Context, zone int) error
	ZoneButtonNext(ctx context.Context, zone int) error

	// System commands. AllOff returns ErrCommandRejected (wrapped in a
	// *CommandError) when the amplifier refuses, e.g. while paging.
	AllOff(ctx context.Context) error
	SetPage(ctx context.Context, page bool) error
	MuteAllZones(ctx context.Context, mute bool) error
	ConfigureTime(ctx context.Context, t time.Time) error
	GetVersion(ctx context.Context) (Version, error)

	// Status queries. Results also reach subscribers as pushed messages.
	QueryZoneStatus(ctx context.Context, zone int) (ZoneStatus, error)
	QueryZoneConfiguration(ctx context.Context, zone int) (ZoneConfiguration, error)
	QueryZoneEQ(ctx context.Context, zone int) (ZoneEQStatus, error)
	QueryZoneVolumeConfiguration(ctx context.Context, zone int) (ZoneVolumeConfiguration, error)
	QuerySourceConfiguration(ctx context.Context, source int) (SourceConfiguration, error)

	// Subscribe registers fn for pushed messages of the given type and
	// returns a cancel function. Subscribers are invoked in registration
	// order on the client's read goroutine.
	Subscribe(msgType MessageType, fn SubscriberFunc) func()

	// Disconnect closes the driver connection. Further calls fail with
	// ErrClosed.
	Disconnect() error
}
