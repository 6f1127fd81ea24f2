package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nuvoserial/nuvo-core/internal/controls"
	"github.com/nuvoserial/nuvo-core/internal/eventbus"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/mqtt"
	"github.com/nuvoserial/nuvo-core/internal/nuvo"
	"github.com/nuvoserial/nuvo-core/internal/zone"
)

// Bridge operation constants.
const (
	// commandQoS is the QoS used for command subscriptions and acks.
	commandQoS = 1

	// commandTimeout bounds a single command's execution.
	commandTimeout = 5 * time.Second
)

// MQTTClient is the broker surface the bridge needs. It is satisfied by
// *mqtt.Client and allows mocking in tests.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Bridge translates between the in-process event bus and MQTT.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt     MQTTClient
	zones    *zone.Manager
	controls *controls.Manager
	bus      *eventbus.Bus
	topics   mqtt.Topics
	logger   *logging.Logger

	unsubscribes []func()

	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// Options holds the collaborators for creating a bridge.
type Options struct {
	// MQTT is the broker client. Required.
	MQTT MQTTClient

	// Zones is the zone manager commands are dispatched to. Required.
	Zones *zone.Manager

	// Controls is the controls manager for system commands and control
	// state publishing. Required.
	Controls *controls.Manager

	// Bus is the in-process event bus. Required.
	Bus *eventbus.Bus

	// Logger is an optional structured logger.
	Logger *logging.Logger
}

// New creates a bridge. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("bridge: MQTT client is required")
	}
	if opts.Zones == nil {
		return nil, fmt.Errorf("bridge: zone manager is required")
	}
	if opts.Controls == nil {
		return nil, fmt.Errorf("bridge: controls manager is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("bridge: event bus is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		mqtt:      opts.MQTT,
		zones:     opts.Zones,
		controls:  opts.Controls,
		bus:       opts.Bus,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: cancel,
	}, nil
}

// Start subscribes to the bus and the command topics, then publishes the
// current state of every zone so retained topics are populated even before
// the first change.
func (b *Bridge) Start() error {
	b.unsubscribes = append(b.unsubscribes,
		b.bus.Subscribe(zone.EventStateChanged, b.handleStateEvent),
		b.bus.Subscribe(zone.EventKeypadButton, b.handleKeypadEvent),
		b.bus.Subscribe(controls.EventControlChanged, b.handleControlEvent),
	)

	if err := b.mqtt.Subscribe(b.topics.AllZoneCommands(), commandQoS, b.handleZoneCommand); err != nil {
		return fmt.Errorf("bridge: subscribe to zone commands: %w", err)
	}
	if err := b.mqtt.Subscribe(b.topics.SystemCommand(), commandQoS, b.handleSystemCommand); err != nil {
		return fmt.Errorf("bridge: subscribe to system commands: %w", err)
	}

	for _, z := range b.zones.Zones() {
		b.publishZoneState(z.ID(), z.EntityID(), z.State(), z.Group())
	}

	b.logger.Info("mqtt bridge started", "zones", len(b.zones.Zones()))
	return nil
}

// Close stops command dispatch and drops the bus subscriptions. It does not
// close the MQTT client; the caller owns it.
func (b *Bridge) Close() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		for _, unsub := range b.unsubscribes {
			unsub()
		}
		b.logger.Info("mqtt bridge stopped")
	})
}

// handleStateEvent publishes a retained zone state snapshot.
func (b *Bridge) handleStateEvent(evt eventbus.Event) {
	se, ok := evt.Data.(zone.StateEvent)
	if !ok {
		return
	}
	b.publishZoneState(se.ZoneID, se.EntityID, se.State, se.Group)
}

func (b *Bridge) publishZoneState(zoneID int, entityID string, state zone.State, group zone.GroupInfo) {
	msg := ZoneStateMessage{
		ZoneID:    zoneID,
		EntityID:  entityID,
		State:     state,
		Group:     group,
		Timestamp: time.Now().UTC(),
	}
	b.publishJSON(b.topics.ZoneState(zoneID), msg, true)
}

// handleKeypadEvent republishes a keypad press. Not retained: a button
// press is a moment, not a state.
func (b *Bridge) handleKeypadEvent(evt eventbus.Event) {
	ke, ok := evt.Data.(zone.KeypadEvent)
	if !ok {
		return
	}
	msg := KeypadEventMessage{
		ZoneID:    ke.ZoneID,
		EntityID:  ke.EntityID,
		Button:    ke.Button,
		Timestamp: time.Now().UTC(),
	}
	b.publishJSON(b.topics.ZoneKeypadEvent(ke.ZoneID), msg, false)
}

// handleControlEvent publishes a retained per-control state topic.
func (b *Bridge) handleControlEvent(evt eventbus.Event) {
	ce, ok := evt.Data.(controls.ControlEvent)
	if !ok {
		return
	}

	var topic string
	switch ce.Entity {
	case controls.EntityZone:
		topic = b.topics.ZoneControlState(ce.ID, ce.Control)
	case controls.EntitySource:
		topic = b.topics.SourceControlState(ce.ID, ce.Control)
	case controls.EntitySystem:
		topic = b.topics.SystemControlState(ce.Control)
	default:
		return
	}

	msg := ControlStateMessage{
		Control:   ce.Control,
		Value:     ce.Value,
		Timestamp: time.Now().UTC(),
	}
	b.publishJSON(topic, msg, true)
}

// handleZoneCommand dispatches a command from nuvo/command/zone/{id}.
func (b *Bridge) handleZoneCommand(topic string, payload []byte) error {
	zoneID, err := zoneIDFromTopic(topic)
	if err != nil {
		b.logger.Warn("command on malformed topic", "topic", topic, "error", err)
		return err
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("malformed zone command payload", "topic", topic, "error", err)
		return fmt.Errorf("bridge: parse command: %w", err)
	}

	ackTopic := b.topics.ZoneAck(zoneID)

	z, err := b.zones.Zone(zoneID)
	if err != nil {
		b.publishAck(ackTopic, newAckError(cmd, ErrCodeUnknownZone, err.Error()))
		return fmt.Errorf("%w: %d", ErrUnknownZone, zoneID)
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := b.executeZoneCommand(ctx, z, cmd); err != nil {
		b.logger.Warn("zone command failed",
			"zone", zoneID, "command", cmd.Command, "error", err)
		b.publishAck(ackTopic, newAckError(cmd, ackCode(err), err.Error()))
		return err
	}

	b.publishAck(ackTopic, newAck(cmd, AckAccepted))
	return nil
}

// executeZoneCommand maps a command name onto the zone operation.
func (b *Bridge) executeZoneCommand(ctx context.Context, z *zone.Zone, cmd CommandMessage) error {
	switch cmd.Command {
	case "on":
		return z.TurnOn(ctx)
	case "off":
		return z.TurnOff(ctx)
	case "mute":
		return z.SetMute(ctx, true)
	case "unmute":
		return z.SetMute(ctx, false)
	case "set_volume":
		level, err := floatParam(cmd.Params, "volume")
		if err != nil {
			return err
		}
		return z.SetVolumeLevel(ctx, level)
	case "volume_up":
		return z.VolumeUp(ctx)
	case "volume_down":
		return z.VolumeDown(ctx)
	case "select_source":
		source, err := stringParam(cmd.Params, "source")
		if err != nil {
			return err
		}
		return z.SelectSource(ctx, source)
	case "join":
		members, err := stringSliceParam(cmd.Params, "members")
		if err != nil {
			return err
		}
		return z.Join(ctx, members)
	case "unjoin":
		return z.Unjoin(ctx)
	case "snapshot":
		return z.Snapshot(ctx)
	case "restore":
		return z.Restore(ctx)
	case "party_on":
		return z.PartyOn(ctx)
	case "party_off":
		return z.PartyOff(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}

// handleSystemCommand dispatches a command from nuvo/command/system.
func (b *Bridge) handleSystemCommand(topic string, payload []byte) error {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("malformed system command payload", "topic", topic, "error", err)
		return fmt.Errorf("bridge: parse command: %w", err)
	}

	ackTopic := b.topics.SystemAck()

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := b.executeSystemCommand(ctx, cmd); err != nil {
		b.logger.Warn("system command failed", "command", cmd.Command, "error", err)
		b.publishAck(ackTopic, newAckError(cmd, ackCode(err), err.Error()))
		return err
	}

	b.publishAck(ackTopic, newAck(cmd, AckAccepted))
	return nil
}

func (b *Bridge) executeSystemCommand(ctx context.Context, cmd CommandMessage) error {
	switch cmd.Command {
	case "all_off":
		return b.controls.AllOff().Press(ctx)
	case "page_on", "page_off":
		sw, err := b.controls.Switch(controls.EntitySystem, 0, controls.ControlPage)
		if err != nil {
			return err
		}
		if cmd.Command == "page_on" {
			return sw.TurnOn(ctx)
		}
		return sw.TurnOff(ctx)
	case "mute_all_on", "mute_all_off":
		sw, err := b.controls.Switch(controls.EntitySystem, 0, controls.ControlMuteAll)
		if err != nil {
			return err
		}
		if cmd.Command == "mute_all_on" {
			return sw.TurnOn(ctx)
		}
		return sw.TurnOff(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}

func (b *Bridge) publishAck(topic string, ack AckMessage) {
	b.publishJSON(topic, ack, false)
}

func (b *Bridge) publishJSON(topic string, payload any, retained bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("marshal mqtt payload", "topic", topic, "error", err)
		return
	}
	if err := b.mqtt.Publish(topic, data, commandQoS, retained); err != nil {
		b.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
	}
}

// ackCode maps an execution error onto an acknowledgment error code.
func ackCode(err error) string {
	switch {
	case errors.Is(err, nuvo.ErrCommandRejected):
		return ErrCodeCommandRejected
	case errors.Is(err, ErrUnknownCommand):
		return ErrCodeUnknownCommand
	case errors.Is(err, ErrMissingParameter):
		return ErrCodeInvalidParams
	default:
		return ErrCodeExecutionFailure
	}
}

// zoneIDFromTopic extracts the zone id from nuvo/command/zone/{id}.
func zoneIDFromTopic(topic string) (int, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[2] != "zone" {
		return 0, fmt.Errorf("bridge: not a zone command topic: %s", topic)
	}
	id, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, fmt.Errorf("bridge: zone id in topic %s: %w", topic, err)
	}
	return id, nil
}

// floatParam returns a numeric parameter. JSON numbers decode as float64.
func floatParam(params map[string]any, name string) (float64, error) {
	raw, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	value, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrMissingParameter, name)
	}
	return value, nil
}

func stringParam(params map[string]any, name string) (string, error) {
	raw, ok := params[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrMissingParameter, name)
	}
	return value, nil
}

func stringSliceParam(params map[string]any, name string) ([]string, error) {
	raw, ok := params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list of strings", ErrMissingParameter, name)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a list of strings", ErrMissingParameter, name)
		}
		out = append(out, s)
	}
	return out, nil
}
