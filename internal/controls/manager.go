package controls

import (
	"context"
	"errors"
	"fmt"

	"github.com/nuvoserial/nuvo-core/internal/eventbus"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/config"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
	"github.com/nuvoserial/nuvo-core/internal/nuvo"
)

// Manager owns every control and routes driver reports to them.
type Manager struct {
	driver nuvo.Driver
	bus    *eventbus.Bus
	logger *logging.Logger

	zones   []int
	sources []int

	numbers  map[key]*Number
	switches map[key]*Switch
	order    []key
	allOff   *Button

	pageSwitch *Switch
	muteSwitch *Switch

	cancels []func()
}

// NewManager builds the control set for the configured zones and sources.
func NewManager(cfg *config.Config, driver nuvo.Driver, bus *eventbus.Bus, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}

	m := &Manager{
		driver:   driver,
		bus:      bus,
		logger:   logger.With("component", "controls"),
		numbers:  make(map[key]*Number),
		switches: make(map[key]*Switch),
	}

	for _, zc := range cfg.Zones {
		zone := zc.ID
		m.zones = append(m.zones, zone)

		m.addNumber(EntityZone, zone, ControlBass, float64(nuvo.EQMin), float64(nuvo.EQMax), 2, "dB",
			func(ctx context.Context, v float64) error {
				_, err := driver.SetBass(ctx, zone, int(v))
				return err
			})
		m.addNumber(EntityZone, zone, ControlTreble, float64(nuvo.EQMin), float64(nuvo.EQMax), 2, "dB",
			func(ctx context.Context, v float64) error {
				_, err := driver.SetTreble(ctx, zone, int(v))
				return err
			})
		m.addNumber(EntityZone, zone, ControlBalance, -float64(nuvo.BalanceMax), float64(nuvo.BalanceMax), 2, "",
			func(ctx context.Context, v float64) error {
				position, magnitude := splitBalance(v)
				_, err := driver.SetBalance(ctx, zone, position, magnitude)
				return err
			})
		m.addSwitch(EntityZone, zone, ControlLoudCmp,
			func(ctx context.Context, on bool) error {
				_, err := driver.SetLoudnessComp(ctx, zone, on)
				return err
			})

		m.addVolumeNumber(zone, ControlVolumeMax, driver.ZoneVolumeMax)
		m.addVolumeNumber(zone, ControlVolumeInitial, driver.ZoneVolumeInitial)
		m.addVolumeNumber(zone, ControlVolumePage, driver.ZoneVolumePage)
		m.addVolumeNumber(zone, ControlVolumeParty, driver.ZoneVolumeParty)
		m.addSwitch(EntityZone, zone, ControlVolumeReset,
			func(ctx context.Context, on bool) error {
				_, err := driver.ZoneVolumeReset(ctx, zone, on)
				return err
			})
	}

	for _, sc := range cfg.Sources {
		source := sc.ID
		m.sources = append(m.sources, source)

		m.addNumber(EntitySource, source, ControlSourceGain, float64(nuvo.GainMin), float64(nuvo.GainMax), 1, "dB",
			func(ctx context.Context, v float64) error {
				_, err := driver.SetSourceGain(ctx, source, int(v))
				return err
			})
		m.addSwitch(EntitySource, source, ControlNuvonet,
			func(ctx context.Context, on bool) error {
				_, err := driver.SetSourceNuvonet(ctx, source, on)
				return err
			})
	}

	m.pageSwitch = m.addSwitch(EntitySystem, 0, ControlPage,
		func(ctx context.Context, on bool) error {
			return driver.SetPage(ctx, on)
		})
	m.muteSwitch = m.addSwitch(EntitySystem, 0, ControlMuteAll,
		func(ctx context.Context, on bool) error {
			return driver.MuteAllZones(ctx, on)
		})

	m.allOff = &Button{
		name: ControlAllOff,
		press: func(ctx context.Context) error {
			if err := driver.AllOff(ctx); err != nil {
				if errors.Is(err, nuvo.ErrCommandRejected) {
					return fmt.Errorf("controls: amplifier refused all off, is paging mode active: %w", err)
				}
				return err
			}
			return nil
		},
	}

	return m
}

// addNumber registers a number control.
func (m *Manager) addNumber(entity EntityType, id int, name string, min, max, step float64, unit string, set func(context.Context, float64) error) *Number {
	n := &Number{
		entity:  entity,
		id:      id,
		name:    name,
		min:     min,
		max:     max,
		step:    step,
		unit:    unit,
		set:     set,
		publish: m.publishChange,
	}
	k := key{entity, id, name}
	m.numbers[k] = n
	m.order = append(m.order, k)
	return n
}

// addVolumeNumber registers one of the attenuation-style volume levels,
// displayed negated as dB with 0 loudest.
func (m *Manager) addVolumeNumber(zone int, name string, set func(context.Context, int, int) (nuvo.ZoneVolumeConfiguration, error)) {
	m.addNumber(EntityZone, zone, name, -float64(nuvo.VolumeMin), 0, 1, "dB",
		func(ctx context.Context, v float64) error {
			_, err := set(ctx, zone, int(-v))
			return err
		})
}

// addSwitch registers a switch control.
func (m *Manager) addSwitch(entity EntityType, id int, name string, set func(context.Context, bool) error) *Switch {
	s := &Switch{
		entity:  entity,
		id:      id,
		name:    name,
		set:     set,
		publish: m.publishChange,
	}
	k := key{entity, id, name}
	m.switches[k] = s
	m.order = append(m.order, k)
	return s
}

func (m *Manager) publishChange(k key, value any) {
	publishEvent(m.bus, k, value)
}

// Start subscribes to the driver report types and requests an initial
// value for every control. The paging and mute-all switches cannot be
// queried, so their state is asserted off instead.
func (m *Manager) Start(ctx context.Context) error {
	m.cancels = append(m.cancels,
		m.driver.Subscribe(nuvo.TypeZoneEQStatus, func(msg any) {
			eq, ok := msg.(nuvo.ZoneEQStatus)
			if !ok {
				m.logger.Debug("ignoring malformed zone EQ report")
				return
			}
			m.applyZoneEQ(eq)
		}),
		m.driver.Subscribe(nuvo.TypeZoneVolumeConfiguration, func(msg any) {
			vc, ok := msg.(nuvo.ZoneVolumeConfiguration)
			if !ok {
				m.logger.Debug("ignoring malformed zone volume configuration report")
				return
			}
			m.applyZoneVolume(vc)
		}),
		m.driver.Subscribe(nuvo.TypeSourceConfiguration, func(msg any) {
			sc, ok := msg.(nuvo.SourceConfiguration)
			if !ok {
				m.logger.Debug("ignoring malformed source configuration report")
				return
			}
			m.applySourceConfiguration(sc)
		}),
		m.driver.Subscribe(nuvo.TypePaging, func(msg any) {
			paging, ok := msg.(nuvo.Paging)
			if !ok {
				m.logger.Debug("ignoring malformed paging report")
				return
			}
			m.pageSwitch.update(paging.Page)
		}),
		m.driver.Subscribe(nuvo.TypeMute, func(msg any) {
			mute, ok := msg.(nuvo.Mute)
			if !ok {
				m.logger.Debug("ignoring malformed system mute report")
				return
			}
			m.muteSwitch.update(mute.Mute)
		}),
	)

	for _, zone := range m.zones {
		eq, err := m.driver.QueryZoneEQ(ctx, zone)
		if err != nil {
			return fmt.Errorf("controls: initial EQ for zone %d: %w", zone, err)
		}
		m.applyZoneEQ(eq)

		vc, err := m.driver.QueryZoneVolumeConfiguration(ctx, zone)
		if err != nil {
			return fmt.Errorf("controls: initial volume configuration for zone %d: %w", zone, err)
		}
		m.applyZoneVolume(vc)
	}

	for _, source := range m.sources {
		sc, err := m.driver.QuerySourceConfiguration(ctx, source)
		if err != nil {
			return fmt.Errorf("controls: initial configuration for source %d: %w", source, err)
		}
		m.applySourceConfiguration(sc)
	}

	// The amplifier has no query for the paging or system mute state.
	if err := m.pageSwitch.TurnOff(ctx); err != nil {
		return fmt.Errorf("controls: asserting page off: %w", err)
	}
	if err := m.muteSwitch.TurnOff(ctx); err != nil {
		return fmt.Errorf("controls: asserting system mute off: %w", err)
	}

	m.logger.Info("controls started", "count", len(m.order)+1)
	return nil
}

// Close detaches all driver subscriptions.
func (m *Manager) Close() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = nil
}

// applyZoneEQ routes an EQ report to the zone's EQ controls.
func (m *Manager) applyZoneEQ(eq nuvo.ZoneEQStatus) {
	if n, ok := m.numbers[key{EntityZone, eq.Zone, ControlBass}]; ok {
		n.update(float64(eq.Bass))
	}
	if n, ok := m.numbers[key{EntityZone, eq.Zone, ControlTreble}]; ok {
		n.update(float64(eq.Treble))
	}
	if n, ok := m.numbers[key{EntityZone, eq.Zone, ControlBalance}]; ok {
		n.update(signedBalance(eq.BalancePosition, eq.Balance))
	}
	if s, ok := m.switches[key{EntityZone, eq.Zone, ControlLoudCmp}]; ok {
		s.update(eq.LoudnessComp)
	}
}

// applyZoneVolume routes a volume configuration report to the zone's
// volume controls, negating the attenuation levels for display.
func (m *Manager) applyZoneVolume(vc nuvo.ZoneVolumeConfiguration) {
	levels := map[string]int{
		ControlVolumeMax:     vc.MaxVolume,
		ControlVolumeInitial: vc.IniVolume,
		ControlVolumePage:    vc.PageVolume,
		ControlVolumeParty:   vc.PartyVolume,
	}
	for name, level := range levels {
		if n, ok := m.numbers[key{EntityZone, vc.Zone, name}]; ok {
			n.update(-float64(level))
		}
	}
	if s, ok := m.switches[key{EntityZone, vc.Zone, ControlVolumeReset}]; ok {
		s.update(vc.VolumeReset)
	}
}

// applySourceConfiguration routes a source report to its controls.
func (m *Manager) applySourceConfiguration(sc nuvo.SourceConfiguration) {
	if n, ok := m.numbers[key{EntitySource, sc.Source, ControlSourceGain}]; ok {
		n.update(float64(sc.Gain))
	}
	if s, ok := m.switches[key{EntitySource, sc.Source, ControlNuvonet}]; ok {
		s.update(sc.NuvonetSource)
	}
}

// Number returns the number control for the given binding.
func (m *Manager) Number(entity EntityType, id int, name string) (*Number, error) {
	n, ok := m.numbers[key{entity, id, name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %d %s", ErrUnknownControl, entity, id, name)
	}
	return n, nil
}

// Switch returns the switch control for the given binding.
func (m *Manager) Switch(entity EntityType, id int, name string) (*Switch, error) {
	s, ok := m.switches[key{entity, id, name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %d %s", ErrUnknownControl, entity, id, name)
	}
	return s, nil
}

// AllOff returns the all-off button.
func (m *Manager) AllOff() *Button { return m.allOff }

// Snapshots returns every control's external state in registration order.
func (m *Manager) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(m.order))
	for _, k := range m.order {
		if n, ok := m.numbers[k]; ok {
			out = append(out, n.snapshot())
			continue
		}
		if s, ok := m.switches[k]; ok {
			out = append(out, s.snapshot())
		}
	}
	return out
}

// ForZone returns the zone's control snapshots in registration order.
func (m *Manager) ForZone(zone int) []Snapshot {
	return m.filter(EntityZone, zone)
}

// ForSource returns the source's control snapshots in registration order.
func (m *Manager) ForSource(source int) []Snapshot {
	return m.filter(EntitySource, source)
}

// System returns the system switch snapshots.
func (m *Manager) System() []Snapshot {
	return m.filter(EntitySystem, 0)
}

func (m *Manager) filter(entity EntityType, id int) []Snapshot {
	var out []Snapshot
	for _, k := range m.order {
		if k.entity != entity || k.id != id {
			continue
		}
		if n, ok := m.numbers[k]; ok {
			out = append(out, n.snapshot())
			continue
		}
		if s, ok := m.switches[k]; ok {
			out = append(out, s.snapshot())
		}
	}
	return out
}

// splitBalance turns a signed balance value into the amplifier's
// (position, magnitude) form: negative is left, positive right, zero
// centre.
func splitBalance(value float64) (string, int) {
	switch {
	case value < 0:
		return nuvo.BalanceLeft, int(-value)
	case value > 0:
		return nuvo.BalanceRight, int(value)
	default:
		return nuvo.BalanceCentre, 0
	}
}

// signedBalance folds the amplifier's (position, magnitude) form into a
// single signed value for one bidirectional slider.
func signedBalance(position string, magnitude int) float64 {
	if position == nuvo.BalanceLeft {
		return -float64(magnitude)
	}
	return float64(magnitude)
}
