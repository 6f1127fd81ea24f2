package zone

import (
	"strings"

	"github.com/nuvoserial/nuvo-core/internal/infrastructure/config"
)

// PowerState is a zone's power status. A zone is Unknown until its first
// ZoneStatus message arrives.
type PowerState string

// Power states.
const (
	PowerUnknown PowerState = "unknown"
	PowerOn      PowerState = "on"
	PowerOff     PowerState = "off"
)

// State is the externally visible state of a zone.
//
// Mute, Volume and Source are nil while unknown. Volume is additionally nil
// whenever the zone is muted or off, and Source is nil when the amplifier
// reports a source id absent from the system source table.
type State struct {
	Power  PowerState `json:"power"`
	Mute   *bool      `json:"mute"`
	Volume *float64   `json:"volume"`
	Source *string    `json:"source"`
}

// clone returns a deep copy so callers can hold the state without racing
// zone updates.
func (s State) clone() State {
	out := State{Power: s.Power}
	if s.Mute != nil {
		m := *s.Mute
		out.Mute = &m
	}
	if s.Volume != nil {
		v := *s.Volume
		out.Volume = &v
	}
	if s.Source != nil {
		src := *s.Source
		out.Source = &src
	}
	return out
}

// StateChange records which attributes a ZoneStatus message changed.
type StateChange struct {
	Power  bool `json:"power"`
	Mute   bool `json:"mute"`
	Volume bool `json:"volume"`
	Source bool `json:"source"`
}

// Any reports whether any attribute changed.
func (c StateChange) Any() bool {
	return c.Power || c.Mute || c.Volume || c.Source
}

// SourceTable is the system-wide table of enabled sources, mapping
// amplifier source ids to display names in configured order.
type SourceTable struct {
	order []int
	names map[int]string
	ids   map[string]int
}

// NewSourceTable builds a source table from configuration.
func NewSourceTable(sources []config.SourceConfig) *SourceTable {
	t := &SourceTable{
		names: make(map[int]string, len(sources)),
		ids:   make(map[string]int, len(sources)),
	}
	for _, s := range sources {
		name := s.Name
		if name == "" {
			continue
		}
		t.order = append(t.order, s.ID)
		t.names[s.ID] = name
		t.ids[name] = s.ID
	}
	return t
}

// Name resolves a source id to its display name.
func (t *SourceTable) Name(id int) (string, bool) {
	name, ok := t.names[id]
	return name, ok
}

// ID resolves a display name to its source id.
func (t *SourceTable) ID(name string) (int, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// Names returns all source names in system order.
func (t *SourceTable) Names() []string {
	out := make([]string, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.names[id])
	}
	return out
}

// Filter returns the names of the given source ids that are present in the
// table, in system order. Unknown ids are dropped.
func (t *SourceTable) Filter(ids []int) []string {
	permitted := make(map[int]bool, len(ids))
	for _, id := range ids {
		permitted[id] = true
	}
	var out []string
	for _, id := range t.order {
		if permitted[id] {
			out = append(out, t.names[id])
		}
	}
	return out
}

// EntityID derives a stable entity id for a zone name, e.g. "zone.kitchen".
// Entity ids identify zones in group events and on the MQTT/HTTP surfaces.
func EntityID(name string) string {
	var b strings.Builder
	b.WriteString("zone.")
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
