package zone

import (
	"context"
	"fmt"

	"github.com/nuvoserial/nuvo-core/internal/eventbus"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/config"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
	"github.com/nuvoserial/nuvo-core/internal/nuvo"
)

// Manager owns the configured zones and routes driver messages to them.
type Manager struct {
	driver  nuvo.Driver
	bus     *eventbus.Bus
	logger  *logging.Logger
	sources *SourceTable

	zones    map[int]*Zone
	byEntity map[string]*Zone
	order    []int
	cancels  []func()
}

// NewManager builds zones from configuration.
//
// Parameters:
//   - cfg: Amplifier, zone and source configuration
//   - driver: Connected driver
//   - bus: In-process event bus
//   - logger: Structured logger
//
// Returns:
//   - *Manager: Manager with all configured zones
//   - error: If two zones resolve to the same entity id
func NewManager(cfg *config.Config, driver nuvo.Driver, bus *eventbus.Bus, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("component", "zone")

	m := &Manager{
		driver:   driver,
		bus:      bus,
		logger:   logger,
		sources:  NewSourceTable(cfg.Sources),
		zones:    make(map[int]*Zone, len(cfg.Zones)),
		byEntity: make(map[string]*Zone, len(cfg.Zones)),
	}

	for _, zc := range cfg.Zones {
		z := newZone(zc.ID, zc.Name, driver, bus, m.sources, cfg.Amplifier.VolumeStep, logger)
		if existing, ok := m.byEntity[z.EntityID()]; ok {
			return nil, fmt.Errorf("zone: zones %d and %d both map to entity id %q", existing.ID(), z.ID(), z.EntityID())
		}
		m.zones[zc.ID] = z
		m.byEntity[z.EntityID()] = z
		m.order = append(m.order, zc.ID)
	}

	return m, nil
}

// Start subscribes to driver pushes and attaches group event handlers,
// then requests an initial status and configuration for every zone so
// state is populated without waiting for amplifier traffic.
func (m *Manager) Start(ctx context.Context) error {
	m.cancels = append(m.cancels,
		m.driver.Subscribe(nuvo.TypeZoneStatus, func(msg any) {
			status, ok := msg.(nuvo.ZoneStatus)
			if !ok {
				return
			}
			if z, found := m.zones[status.Zone]; found {
				z.handleZoneStatus(status)
			}
		}),
		m.driver.Subscribe(nuvo.TypeZoneConfiguration, func(msg any) {
			cfg, ok := msg.(nuvo.ZoneConfiguration)
			if !ok {
				return
			}
			if z, found := m.zones[cfg.Zone]; found {
				z.handleZoneConfiguration(cfg)
			}
		}),
		m.driver.Subscribe(nuvo.TypeZoneButton, func(msg any) {
			button, ok := msg.(nuvo.ZoneButton)
			if !ok {
				return
			}
			if z, found := m.zones[button.Zone]; found {
				z.handleZoneButton(button)
			}
		}),
	)

	for _, z := range m.Zones() {
		m.cancels = append(m.cancels, z.group.attach(m.bus)...)
	}

	for _, z := range m.Zones() {
		cfg, err := m.driver.QueryZoneConfiguration(ctx, z.ID())
		if err != nil {
			return fmt.Errorf("zone: initial configuration for zone %d: %w", z.ID(), err)
		}
		z.handleZoneConfiguration(cfg)

		status, err := m.driver.QueryZoneStatus(ctx, z.ID())
		if err != nil {
			return fmt.Errorf("zone: initial status for zone %d: %w", z.ID(), err)
		}
		z.handleZoneStatus(status)
	}

	m.logger.Info("zones started", "count", len(m.zones))
	return nil
}

// Close detaches all driver and bus subscriptions.
func (m *Manager) Close() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = nil
}

// Zone returns the zone with the given amplifier id.
func (m *Manager) Zone(id int) (*Zone, error) {
	z, ok := m.zones[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownZone, id)
	}
	return z, nil
}

// ZoneByEntityID returns the zone with the given entity id.
func (m *Manager) ZoneByEntityID(entityID string) (*Zone, error) {
	z, ok := m.byEntity[entityID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZone, entityID)
	}
	return z, nil
}

// Zones returns all zones in configuration order.
func (m *Manager) Zones() []*Zone {
	out := make([]*Zone, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.zones[id])
	}
	return out
}

// Sources returns the system-wide source table.
func (m *Manager) Sources() *SourceTable {
	return m.sources
}
