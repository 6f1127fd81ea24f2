package zone

import (
	"context"
	"fmt"
	"sync"

	"github.com/nuvoserial/nuvo-core/internal/eventbus"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
	"github.com/nuvoserial/nuvo-core/internal/nuvo"
)

// Zone is one amplifier zone.
//
// State changes flow exclusively from driver ZoneStatus messages: commands
// issue a single driver call and wait for the echoed status to update
// state. The exception is the group join path, which applies the
// synchronously returned status so source and volume are known before the
// join invitations go out.
//
// Thread Safety: all methods are safe for concurrent use.
type Zone struct {
	id       int
	name     string
	entityID string
	driver   nuvo.Driver
	bus      *eventbus.Bus
	logger   *logging.Logger

	sources    *SourceTable
	volumeStep float64

	mu        sync.Mutex
	state     State
	permitted []string // permitted source names, system order
	snapshot  *nuvo.ZoneStatus
	group     *speakerGroup
}

// newZone builds a zone. Zones are created by the Manager.
func newZone(id int, name string, driver nuvo.Driver, bus *eventbus.Bus, sources *SourceTable, volumeStep float64, logger *logging.Logger) *Zone {
	z := &Zone{
		id:         id,
		name:       name,
		entityID:   EntityID(name),
		driver:     driver,
		bus:        bus,
		logger:     logger.With("zone", id),
		sources:    sources,
		volumeStep: volumeStep,
		state:      State{Power: PowerUnknown},
	}
	z.group = newSpeakerGroup(z)
	return z
}

// ID returns the amplifier zone number.
func (z *Zone) ID() int { return z.id }

// Name returns the configured display name.
func (z *Zone) Name() string { return z.name }

// EntityID returns the zone's entity id, e.g. "zone.kitchen".
func (z *Zone) EntityID() string { return z.entityID }

// VolumeStep returns the configured normalized volume step, exposed to
// clients as slider metadata.
func (z *Zone) VolumeStep() float64 { return z.volumeStep }

// State returns a copy of the zone's current state.
func (z *Zone) State() State {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.clone()
}

// SourceList returns the zone's permitted source names in system order.
func (z *Zone) SourceList() []string {
	z.mu.Lock()
	defer z.mu.Unlock()
	out := make([]string, len(z.permitted))
	copy(out, z.permitted)
	return out
}

// Group returns the zone's current group membership.
func (z *Zone) Group() GroupInfo {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.group.infoLocked()
}

// TurnOn powers the zone on. State updates when the amplifier echoes the
// resulting ZoneStatus.
func (z *Zone) TurnOn(ctx context.Context) error {
	_, err := z.driver.SetPower(ctx, z.id, true)
	return err
}

// TurnOff powers the zone off.
func (z *Zone) TurnOff(ctx context.Context) error {
	_, err := z.driver.SetPower(ctx, z.id, false)
	return err
}

// SetMute mutes or unmutes the zone.
func (z *Zone) SetMute(ctx context.Context, mute bool) error {
	_, err := z.driver.SetMute(ctx, z.id, mute)
	return err
}

// SetVolumeLevel sets the zone volume from a normalized 0..1 level.
func (z *Zone) SetVolumeLevel(ctx context.Context, level float64) error {
	if level < 0 || level > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, level)
	}
	_, err := z.driver.SetVolume(ctx, z.id, DeviceVolume(level))
	return err
}

// VolumeUp nudges the volume one amplifier step louder.
func (z *Zone) VolumeUp(ctx context.Context) error {
	_, err := z.driver.VolumeUp(ctx, z.id)
	return err
}

// VolumeDown nudges the volume one amplifier step quieter.
func (z *Zone) VolumeDown(ctx context.Context) error {
	_, err := z.driver.VolumeDown(ctx, z.id)
	return err
}

// SelectSource selects a source by display name.
func (z *Zone) SelectSource(ctx context.Context, source string) error {
	id, ok := z.sources.ID(source)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	_, err := z.driver.SetSource(ctx, z.id, id)
	return err
}

// Snapshot captures the zone's full amplifier status for a later Restore.
func (z *Zone) Snapshot(ctx context.Context) error {
	status, err := z.driver.QueryZoneStatus(ctx, z.id)
	if err != nil {
		return err
	}
	z.mu.Lock()
	z.snapshot = &status
	z.mu.Unlock()
	return nil
}

// Restore re-applies the captured snapshot in a single driver command.
func (z *Zone) Restore(ctx context.Context) error {
	z.mu.Lock()
	snapshot := z.snapshot
	z.mu.Unlock()
	if snapshot == nil {
		return ErrNoSnapshot
	}
	_, err := z.driver.RestoreZone(ctx, *snapshot)
	return err
}

// PartyOn makes this zone the party host.
func (z *Zone) PartyOn(ctx context.Context) error {
	return z.driver.SetPartyHost(ctx, z.id, true)
}

// PartyOff releases this zone from being the party host.
func (z *Zone) PartyOff(ctx context.Context) error {
	return z.driver.SetPartyHost(ctx, z.id, false)
}

// SimulatePlayPause emits a play/pause keypad press for this zone.
func (z *Zone) SimulatePlayPause(ctx context.Context) error {
	return z.driver.ZoneButtonPlayPause(ctx, z.id)
}

// SimulatePrev emits a previous-track keypad press for this zone.
func (z *Zone) SimulatePrev(ctx context.Context) error {
	return z.driver.ZoneButtonPrev(ctx, z.id)
}

// SimulateNext emits a next-track keypad press for this zone.
func (z *Zone) SimulateNext(ctx context.Context) error {
	return z.driver.ZoneButtonNext(ctx, z.id)
}

// Join makes this zone the controller of a speaker group containing the
// given member entity ids.
func (z *Zone) Join(ctx context.Context, members []string) error {
	return z.group.join(ctx, members)
}

// Unjoin removes this zone from its speaker group and powers it off.
func (z *Zone) Unjoin(ctx context.Context) error {
	return z.group.unjoin(ctx)
}

// muted reports the zone's mute state, treating unknown as unmuted.
func (z *Zone) muted() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.Mute != nil && *z.state.Mute
}

// handleZoneStatus applies a driver ZoneStatus message and propagates the
// resulting changes to the bus and the group coordinator.
func (z *Zone) handleZoneStatus(status nuvo.ZoneStatus) {
	z.applyStatus(status)
}

// applyStatus processes a status message, publishes the state event and
// lets the group coordinator react to the changes.
func (z *Zone) applyStatus(status nuvo.ZoneStatus) StateChange {
	z.mu.Lock()
	change := z.processStatusLocked(status)
	z.mu.Unlock()

	z.publishState(change)
	if change.Any() {
		z.group.propagateStateChanges(change)
	}
	return change
}

// processStatusLocked updates state from a ZoneStatus message.
//
// Order matters: a power-off clears everything and short-circuits, and a
// mute clears the volume before it is examined. Attributes moving from
// unknown to a first value are populated without raising a change flag.
func (z *Zone) processStatusLocked(status nuvo.ZoneStatus) StateChange {
	var change StateChange

	received := PowerOff
	if status.Power {
		received = PowerOn
	}
	switch {
	case z.state.Power == PowerUnknown:
		z.state.Power = received
	case z.state.Power != received:
		change.Power = true
		z.state.Power = received
	}

	if z.state.Power == PowerOff {
		z.state.Mute = nil
		z.state.Volume = nil
		z.state.Source = nil
		return change
	}

	// Source: an id missing from the system table maps to unknown.
	var source *string
	if name, ok := z.sources.Name(status.Source); ok {
		source = &name
	}
	switch {
	case z.state.Source == nil:
		z.state.Source = source
	case source == nil || *z.state.Source != *source:
		change.Source = true
		z.state.Source = source
	}

	switch {
	case z.state.Mute == nil:
		mute := status.Mute
		z.state.Mute = &mute
	case *z.state.Mute != status.Mute:
		change.Mute = true
		mute := status.Mute
		z.state.Mute = &mute
	}

	if *z.state.Mute {
		z.state.Volume = nil
		return change
	}

	level := NormalizedVolume(status.Volume)
	switch {
	case z.state.Volume == nil:
		z.state.Volume = &level
	case *z.state.Volume != level:
		change.Volume = true
		z.state.Volume = &level
	}

	return change
}

// handleZoneConfiguration updates the zone's permitted source list from a
// driver ZoneConfiguration message.
func (z *Zone) handleZoneConfiguration(cfg nuvo.ZoneConfiguration) {
	permitted := z.sources.Filter(cfg.Sources)

	z.mu.Lock()
	z.permitted = permitted
	z.mu.Unlock()

	z.logger.Debug("permitted sources updated", "sources", permitted)
	z.publishState(StateChange{})
}

// keypadButtons maps amplifier button codes to published event names.
var keypadButtons = map[string]string{
	nuvo.ButtonPlayPause: "play_pause",
	nuvo.ButtonPrev:      "prev",
	nuvo.ButtonNext:      "next",
}

// handleZoneButton republishes a keypad transport press as a bus event.
// The press is informational for external automations; nothing in the
// daemon consumes it.
func (z *Zone) handleZoneButton(msg nuvo.ZoneButton) {
	button, ok := keypadButtons[msg.Button]
	if !ok {
		z.logger.Debug("ignoring unknown keypad button", "button", msg.Button)
		return
	}

	z.bus.Publish(eventbus.Event{
		Type:   EventKeypadButton,
		Sender: z.entityID,
		Data: KeypadEvent{
			ZoneID:   z.id,
			EntityID: z.entityID,
			Button:   button,
		},
	})
}

// publishState emits the zone's current state on the bus.
func (z *Zone) publishState(change StateChange) {
	z.mu.Lock()
	evt := StateEvent{
		ZoneID:   z.id,
		EntityID: z.entityID,
		State:    z.state.clone(),
		Change:   change,
		Group:    z.group.infoLocked(),
	}
	z.mu.Unlock()

	z.bus.Publish(eventbus.Event{
		Type:   EventStateChanged,
		Sender: z.entityID,
		Data:   evt,
	})
}
