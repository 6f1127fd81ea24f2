package mqtt

import "fmt"

// Topic prefixes for the Nuvo MQTT surface.
//
// State topics are retained so new subscribers see the current state
// immediately; command and event topics are not.
const (
	// TopicPrefix is the base for all nuvo-core topics.
	TopicPrefix = "nuvo"

	// TopicPrefixState is the base for retained state topics.
	TopicPrefixState = "nuvo/state"

	// TopicPrefixCommand is the base for inbound command topics.
	TopicPrefixCommand = "nuvo/command"

	// TopicPrefixEvent is the base for event topics.
	TopicPrefixEvent = "nuvo/event"

	// TopicPrefixAck is the base for command acknowledgment topics.
	TopicPrefixAck = "nuvo/ack"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "nuvo/system"
)

// Topics provides builders for the Nuvo MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.ZoneState(4)
//	// Returns: "nuvo/state/zone/4"
type Topics struct{}

// ZoneState returns the retained state topic for a zone.
//
// Example: nuvo/state/zone/4
func (Topics) ZoneState(zone int) string {
	return fmt.Sprintf("%s/zone/%d", TopicPrefixState, zone)
}

// ZoneControlState returns the retained state topic for one zone control.
//
// Example: nuvo/state/zone/4/bass
func (Topics) ZoneControlState(zone int, control string) string {
	return fmt.Sprintf("%s/zone/%d/%s", TopicPrefixState, zone, control)
}

// SourceControlState returns the retained state topic for one source control.
//
// Example: nuvo/state/source/2/gain
func (Topics) SourceControlState(source int, control string) string {
	return fmt.Sprintf("%s/source/%d/%s", TopicPrefixState, source, control)
}

// SystemControlState returns the retained state topic for a system control.
//
// Example: nuvo/state/system/page
func (Topics) SystemControlState(control string) string {
	return fmt.Sprintf("%s/system/%s", TopicPrefixState, control)
}

// ZoneCommand returns the command topic for a zone.
//
// Example: nuvo/command/zone/4
func (Topics) ZoneCommand(zone int) string {
	return fmt.Sprintf("%s/zone/%d", TopicPrefixCommand, zone)
}

// SystemCommand returns the command topic for system-wide operations.
//
// Example: nuvo/command/system
func (Topics) SystemCommand() string {
	return fmt.Sprintf("%s/system", TopicPrefixCommand)
}

// ZoneAck returns the acknowledgment topic for a zone's commands.
//
// Example: nuvo/ack/zone/4
func (Topics) ZoneAck(zone int) string {
	return fmt.Sprintf("%s/zone/%d", TopicPrefixAck, zone)
}

// SystemAck returns the acknowledgment topic for system-wide commands.
//
// Example: nuvo/ack/system
func (Topics) SystemAck() string {
	return fmt.Sprintf("%s/system", TopicPrefixAck)
}

// ZoneKeypadEvent returns the event topic for a zone's keypad presses.
//
// Example: nuvo/event/zone/4/keypad
func (Topics) ZoneKeypadEvent(zone int) string {
	return fmt.Sprintf("%s/zone/%d/keypad", TopicPrefixEvent, zone)
}

// SystemStatus returns the daemon status topic, also used for the LWT.
//
// Example: nuvo/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllZoneCommands returns a pattern matching every zone command topic.
//
// Pattern: nuvo/command/zone/+
func (Topics) AllZoneCommands() string {
	return fmt.Sprintf("%s/zone/+", TopicPrefixCommand)
}

// AllTopics returns a pattern matching all nuvo-core topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: nuvo/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
