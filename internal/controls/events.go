package controls

// EventControlChanged carries a ControlEvent whenever a control's cached
// value moves on an amplifier report.
const EventControlChanged = "control.state_changed"

// ControlEvent is the payload of EventControlChanged. Value holds a
// float64 for number controls and a bool for switches.
type ControlEvent struct {
	Entity  EntityType `json:"entity"`
	ID      int        `json:"id,omitempty"`
	Control string     `json:"control"`
	Value   any        `json:"value"`
}
