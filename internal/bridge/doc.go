// Package bridge exposes the amplifier over MQTT.
//
// The bridge is a thin translation layer between the in-process event bus
// and an MQTT broker:
//
//   - Zone state events are published retained to nuvo/state/zone/{id} so
//     new subscribers see the current state immediately.
//   - Control state changes are published retained to
//     nuvo/state/zone/{id}/{control}, nuvo/state/source/{id}/{control} and
//     nuvo/state/system/{control}.
//   - Keypad presses are republished (not retained) to
//     nuvo/event/zone/{id}/keypad.
//   - Commands arrive on nuvo/command/zone/{id} and nuvo/command/system as
//     JSON {command, params} and are dispatched to the zone and controls
//     managers. Every command is acknowledged on the matching nuvo/ack/...
//     topic.
//
// The bridge holds no state of its own beyond subscription bookkeeping; the
// zone manager remains the single source of truth.
package bridge
