package controls

import (
	"context"
	"fmt"
	"sync"

	"github.com/nuvoserial/nuvo-core/internal/eventbus"
)

// EntityType identifies what a control is bound to.
type EntityType string

// Control bindings.
const (
	EntityZone   EntityType = "zone"
	EntitySource EntityType = "source"
	EntitySystem EntityType = "system"
)

// Control names, matching the amplifier attribute each one mirrors.
const (
	ControlBass          = "bass"
	ControlTreble        = "treble"
	ControlBalance       = "balance"
	ControlLoudCmp       = "loudcmp"
	ControlVolumeMax     = "max_vol"
	ControlVolumeInitial = "ini_vol"
	ControlVolumePage    = "page_vol"
	ControlVolumeParty   = "party_vol"
	ControlVolumeReset   = "vol_rst"
	ControlSourceGain    = "gain"
	ControlNuvonet       = "nuvonet_source"
	ControlPage          = "page"
	ControlMuteAll       = "mute"
	ControlAllOff        = "all_off"
)

// key uniquely identifies a control within the manager.
type key struct {
	entity EntityType
	id     int
	name   string
}

// Number is a numeric control mirroring one amplifier attribute.
//
// Attenuation-style controls (the zone volume configuration levels) are
// displayed negated, as negative dB: the amplifier's 0..79 attenuation
// range surfaces as 0..-79, so sliders read the usual way with 0 loudest.
//
// Thread Safety: all methods are safe for concurrent use.
type Number struct {
	entity EntityType
	id     int
	name   string
	min    float64
	max    float64
	step   float64
	unit   string

	publish func(k key, value any)
	set     func(ctx context.Context, value float64) error

	mu        sync.Mutex
	value     float64
	available bool
}

// Entity returns what the control is bound to.
func (n *Number) Entity() EntityType { return n.entity }

// ID returns the bound zone or source id.
func (n *Number) ID() int { return n.id }

// Name returns the control name.
func (n *Number) Name() string { return n.name }

// Range returns the control's minimum, maximum and step.
func (n *Number) Range() (min, max, step float64) { return n.min, n.max, n.step }

// Unit returns the display unit, empty when unitless.
func (n *Number) Unit() string { return n.unit }

// Value returns the cached value and whether a report has arrived yet.
func (n *Number) Value() (float64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value, n.available
}

// Set issues the driver command for a new value. The cached value is not
// touched; it updates when the amplifier reports the attribute back.
func (n *Number) Set(ctx context.Context, value float64) error {
	if value < n.min || value > n.max {
		return fmt.Errorf("%w: %s %v not in [%v, %v]", ErrOutOfRange, n.name, value, n.min, n.max)
	}
	return n.set(ctx, value)
}

// update applies a reported value and marks the control available.
func (n *Number) update(value float64) {
	n.mu.Lock()
	n.value = value
	n.available = true
	n.mu.Unlock()

	n.publish(key{n.entity, n.id, n.name}, value)
}

// Switch is a boolean control mirroring one amplifier attribute.
//
// Thread Safety: all methods are safe for concurrent use.
type Switch struct {
	entity EntityType
	id     int
	name   string

	publish func(k key, value any)
	set     func(ctx context.Context, on bool) error

	mu        sync.Mutex
	on        bool
	available bool
}

// Entity returns what the control is bound to.
func (s *Switch) Entity() EntityType { return s.entity }

// ID returns the bound zone or source id, 0 for system switches.
func (s *Switch) ID() int { return s.id }

// Name returns the control name.
func (s *Switch) Name() string { return s.name }

// On returns the cached state and whether a report has arrived yet.
func (s *Switch) On() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on, s.available
}

// TurnOn issues the driver command to switch on.
func (s *Switch) TurnOn(ctx context.Context) error { return s.set(ctx, true) }

// TurnOff issues the driver command to switch off.
func (s *Switch) TurnOff(ctx context.Context) error { return s.set(ctx, false) }

// Toggle flips the cached state.
func (s *Switch) Toggle(ctx context.Context) error {
	on, _ := s.On()
	return s.set(ctx, !on)
}

// update applies a reported state and marks the switch available.
func (s *Switch) update(on bool) {
	s.mu.Lock()
	s.on = on
	s.available = true
	s.mu.Unlock()

	s.publish(key{s.entity, s.id, s.name}, on)
}

// Button is a stateless control that triggers one amplifier command.
type Button struct {
	name  string
	press func(ctx context.Context) error
}

// Name returns the control name.
func (b *Button) Name() string { return b.name }

// Press triggers the command.
func (b *Button) Press(ctx context.Context) error { return b.press(ctx) }

// Snapshot is a control's externally visible state, as served by the API
// and the MQTT bridge.
type Snapshot struct {
	Entity    EntityType `json:"entity"`
	ID        int        `json:"id,omitempty"`
	Control   string     `json:"control"`
	Kind      string     `json:"kind"`
	Available bool       `json:"available"`
	Value     *float64   `json:"value,omitempty"`
	On        *bool      `json:"on,omitempty"`
	Min       *float64   `json:"min,omitempty"`
	Max       *float64   `json:"max,omitempty"`
	Step      *float64   `json:"step,omitempty"`
	Unit      string     `json:"unit,omitempty"`
}

// snapshot builds the external view of a number control.
func (n *Number) snapshot() Snapshot {
	value, available := n.Value()
	min, max, step := n.min, n.max, n.step
	snap := Snapshot{
		Entity:    n.entity,
		ID:        n.id,
		Control:   n.name,
		Kind:      "number",
		Available: available,
		Min:       &min,
		Max:       &max,
		Step:      &step,
		Unit:      n.unit,
	}
	if available {
		snap.Value = &value
	}
	return snap
}

// snapshot builds the external view of a switch control.
func (s *Switch) snapshot() Snapshot {
	on, available := s.On()
	snap := Snapshot{
		Entity:    s.entity,
		ID:        s.id,
		Control:   s.name,
		Kind:      "switch",
		Available: available,
	}
	if available {
		snap.On = &on
	}
	return snap
}

// publishEvent emits a control change on the bus.
func publishEvent(bus *eventbus.Bus, k key, value any) {
	bus.Publish(eventbus.Event{
		Type: EventControlChanged,
		Data: ControlEvent{
			Entity:  k.entity,
			ID:      k.id,
			Control: k.name,
			Value:   value,
		},
	})
}
