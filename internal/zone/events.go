package zone

// Event types published on the in-process bus.
const (
	// EventStateChanged carries a StateEvent after every processed
	// ZoneStatus message and whenever a zone's group membership changes.
	EventStateChanged = "zone.state_changed"

	// EventKeypadButton carries a KeypadEvent for transport key presses on
	// physical zone keypads. Never consumed by the daemon itself.
	EventKeypadButton = "zone.keypad_button"

	// EventGroupJoin is the join invitation a new controller sends to each
	// zone it is pulling into its group.
	EventGroupJoin = "group.join"

	// EventGroupMemberJoined announces a zone joined the group, so other
	// members can update their member lists.
	EventGroupMemberJoined = "group.member_joined"

	// EventGroupMemberLeft announces a zone left the group. Members detect
	// group disbandment by the leaver being the controller.
	EventGroupMemberLeft = "group.member_left"

	// Controller state mirroring events, consumed by group members only.
	EventGroupControllerMuteChanged   = "group.controller_mute_changed"
	EventGroupControllerVolumeChanged = "group.controller_volume_changed"
	EventGroupControllerSourceChanged = "group.controller_source_changed"
)

// StateEvent is the payload of EventStateChanged.
type StateEvent struct {
	ZoneID   int         `json:"zone_id"`
	EntityID string      `json:"entity_id"`
	State    State       `json:"state"`
	Change   StateChange `json:"change"`
	Group    GroupInfo   `json:"group"`
}

// KeypadEvent is the payload of EventKeypadButton.
type KeypadEvent struct {
	ZoneID   int    `json:"zone_id"`
	EntityID string `json:"entity_id"`
	Button   string `json:"button"`
}

// JoinEvent is the payload of EventGroupJoin. Source and Volume carry the
// controller's state at invitation time so the joiner can sync immediately.
type JoinEvent struct {
	TargetEntity string   `json:"target_entity"`
	Group        string   `json:"group"`
	Members      []string `json:"group_members"`
	Controller   string   `json:"group_controller"`
	Source       *string  `json:"source"`
	Volume       *float64 `json:"volume"`
}

// MemberJoinedEvent is the payload of EventGroupMemberJoined.
type MemberJoinedEvent struct {
	Group  string `json:"group"`
	Joiner string `json:"group_joiner"`
}

// MemberLeftEvent is the payload of EventGroupMemberLeft.
type MemberLeftEvent struct {
	Group  string `json:"group"`
	Leaver string `json:"group_leaver"`
}

// ControllerMuteEvent is the payload of EventGroupControllerMuteChanged.
type ControllerMuteEvent struct {
	Group string `json:"group"`
	Mute  bool   `json:"mute"`
}

// ControllerVolumeEvent is the payload of EventGroupControllerVolumeChanged.
type ControllerVolumeEvent struct {
	Group  string  `json:"group"`
	Volume float64 `json:"volume"`
}

// ControllerSourceEvent is the payload of EventGroupControllerSourceChanged.
type ControllerSourceEvent struct {
	Group  string `json:"group"`
	Source string `json:"source"`
}
