package bridge

import (
	"time"

	"github.com/nuvoserial/nuvo-core/internal/zone"
)

// MQTT payload types for the nuvo/... topic surface.

// CommandMessage is received on nuvo/command/zone/{id} and
// nuvo/command/system.
//
// Zone commands: on, off, mute, unmute, set_volume, volume_up, volume_down,
// select_source, join, unjoin, snapshot, restore, party_on, party_off.
// System commands: all_off, page_on, page_off, mute_all_on, mute_all_off.
type CommandMessage struct {
	// ID optionally correlates the command with its acknowledgment.
	ID string `json:"id,omitempty"`

	// Command is the command name.
	Command string `json:"command"`

	// Params contains command-specific values.
	// Examples:
	//   {"volume": 0.5} for set_volume
	//   {"source": "Radio"} for select_source
	//   {"members": ["zone.lounge", "zone.study"]} for join
	Params map[string]any `json:"params,omitempty"`
}

// AckStatus is the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was dispatched to the amplifier.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// Error codes for failed commands.
const (
	ErrCodeUnknownCommand   = "UNKNOWN_COMMAND"
	ErrCodeInvalidParams    = "INVALID_PARAMETERS"
	ErrCodeUnknownZone      = "UNKNOWN_ZONE"
	ErrCodeCommandRejected  = "COMMAND_REJECTED"
	ErrCodeExecutionFailure = "EXECUTION_FAILED"
)

// AckMessage is published on nuvo/ack/zone/{id} and nuvo/ack/system after
// every processed command.
type AckMessage struct {
	// CommandID is the ID from the original command, if it carried one.
	CommandID string `json:"command_id,omitempty"`

	// Command is the command name being acknowledged.
	Command string `json:"command"`

	// Status is "accepted" or "failed".
	Status AckStatus `json:"status"`

	// Timestamp is when the acknowledgment was sent (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Error contains details if Status is "failed".
	Error *AckError `json:"error,omitempty"`
}

// AckError carries error details for a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ZoneStateMessage is published retained on nuvo/state/zone/{id} after
// every confirmed state change.
type ZoneStateMessage struct {
	ZoneID    int            `json:"zone_id"`
	EntityID  string         `json:"entity_id"`
	State     zone.State     `json:"state"`
	Group     zone.GroupInfo `json:"group"`
	Timestamp time.Time      `json:"timestamp"`
}

// ControlStateMessage is published retained on the per-control state topics.
// Value is a float64 for numbers and a bool for switches.
type ControlStateMessage struct {
	Control   string    `json:"control"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// KeypadEventMessage is published (not retained) on
// nuvo/event/zone/{id}/keypad when a physical keypad transport key is
// pressed.
type KeypadEventMessage struct {
	ZoneID    int       `json:"zone_id"`
	EntityID  string    `json:"entity_id"`
	Button    string    `json:"button"`
	Timestamp time.Time `json:"timestamp"`
}

func newAck(cmd CommandMessage, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Command:   cmd.Command,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

func newAckError(cmd CommandMessage, code, message string) AckMessage {
	ack := newAck(cmd, AckFailed)
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}
