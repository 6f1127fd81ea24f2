package nuvo

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nuvoserial/nuvo-core/internal/infrastructure/config"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
)

// request is one line sent to the driver service.
type request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// envelope is one line received from the driver service. Responses carry
// ID plus Result or Error; unsolicited pushes carry Event plus Data.
type envelope struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
	Event  MessageType     `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// wireError is the driver's error payload. Code "error_response" means the
// amplifier itself rejected the command.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// maxLineSize bounds a single driver message. Status messages are small;
// anything larger indicates a corrupt stream.
const maxLineSize = 64 * 1024

type subscription struct {
	id int
	fn SubscriberFunc
}

// Client talks to the nuvo-serial driver service over a single TCP
// connection using line-delimited JSON. It implements Driver.
//
// Thread Safety: all methods are safe for concurrent use. Requests from
// multiple goroutines interleave on the wire and are correlated back by id.
type Client struct {
	logger  *logging.Logger
	timeout time.Duration

	conn    net.Conn
	writeMu sync.Mutex
	enc     *json.Encoder

	mu      sync.Mutex
	pending map[string]chan envelope
	subs    map[MessageType][]subscription
	nextSub int
	closed  bool
}

// Compile-time interface check.
var _ Driver = (*Client)(nil)

// Connect dials the driver service and starts the read loop.
//
// Parameters:
//   - ctx: Context for the dial only
//   - cfg: Driver service address and request timeout
//   - logger: Structured logger
//
// Returns:
//   - *Client: Connected client
//   - error: If the driver service cannot be reached
func Connect(ctx context.Context, cfg config.DriverConfig, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Default()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("nuvo: connecting to driver service at %s: %w", addr, err)
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := &Client{
		logger:  logger.With("component", "nuvo"),
		timeout: timeout,
		conn:    conn,
		enc:     json.NewEncoder(conn),
		pending: make(map[string]chan envelope),
		subs:    make(map[MessageType][]subscription),
	}

	go c.readLoop()

	c.logger.Info("connected to driver service", "address", addr)
	return c, nil
}

// readLoop consumes driver lines until the connection drops. Responses are
// routed to their waiting caller; events are dispatched to subscribers.
func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 4096), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			c.logger.Warn("discarding malformed driver message", "error", err)
			continue
		}

		if env.Event != "" {
			c.dispatchEvent(env.Event, env.Data)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		if ok {
			delete(c.pending, env.ID)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("response for unknown request id", "id", env.ID)
			continue
		}
		ch <- env
	}

	if err := scanner.Err(); err != nil {
		c.logger.Error("driver connection lost", "error", err)
	} else {
		c.logger.Info("driver connection closed")
	}
	c.failPending()
}

// failPending unblocks all in-flight calls after the connection drops.
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- envelope{Error: &wireError{Code: "disconnected", Message: "driver connection lost"}}
	}
}

// dispatchEvent decodes an unsolicited message and hands it to subscribers
// in registration order.
func (c *Client) dispatchEvent(msgType MessageType, data json.RawMessage) {
	msg, err := decodeMessage(msgType, data)
	if err != nil {
		c.logger.Warn("discarding undecodable driver event", "type", msgType, "error", err)
		return
	}

	c.mu.Lock()
	subs := make([]subscription, len(c.subs[msgType]))
	copy(subs, c.subs[msgType])
	c.mu.Unlock()

	for _, sub := range subs {
		sub.fn(msg)
	}
}

// decodeMessage unmarshals an event payload into its concrete message type.
func decodeMessage(msgType MessageType, data json.RawMessage) (any, error) {
	switch msgType {
	case TypeZoneStatus:
		var m ZoneStatus
		return m, json.Unmarshal(data, &m)
	case TypeZoneConfiguration:
		var m ZoneConfiguration
		return m, json.Unmarshal(data, &m)
	case TypeZoneEQStatus:
		var m ZoneEQStatus
		return m, json.Unmarshal(data, &m)
	case TypeZoneVolumeConfiguration:
		var m ZoneVolumeConfiguration
		return m, json.Unmarshal(data, &m)
	case TypeSourceConfiguration:
		var m SourceConfiguration
		return m, json.Unmarshal(data, &m)
	case TypeZoneButton:
		var m ZoneButton
		return m, json.Unmarshal(data, &m)
	case TypePaging:
		var m Paging
		return m, json.Unmarshal(data, &m)
	case TypeMute:
		var m Mute
		return m, json.Unmarshal(data, &m)
	case TypeVersion:
		var m Version
		return m, json.Unmarshal(data, &m)
	case TypeErrorResponse:
		var m ErrorResponse
		return m, json.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("unknown message type %q", msgType)
	}
}

// call performs one request/response exchange. When out is non-nil the
// response result is unmarshalled into it.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	id := uuid.NewString()
	ch := make(chan envelope, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.enc.Encode(request{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("nuvo: sending %s: %w", method, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case env := <-ch:
		if env.Error != nil {
			switch env.Error.Code {
			case "error_response":
				return &CommandError{Message: env.Error.Message}
			case "disconnected":
				return fmt.Errorf("nuvo: %s: %w", method, ErrNotConnected)
			default:
				return fmt.Errorf("nuvo: %s failed: %s", method, env.Error.Message)
			}
		}
		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return fmt.Errorf("nuvo: decoding %s result: %w", method, err)
			}
		}
		return nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("nuvo: %s: %w", method, ErrTimeout)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("nuvo: %s: %w", method, ctx.Err())
	}
}

// zoneParams is the common parameter shape for zone commands.
type zoneParams struct {
	Zone    int    `json:"zone"`
	Power   *bool  `json:"power,omitempty"`
	Mute    *bool  `json:"mute,omitempty"`
	Volume  *int   `json:"volume,omitempty"`
	Source  *int   `json:"source,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
	Value   *int   `json:"value,omitempty"`
	Pos     string `json:"position,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

// SetPower turns a zone on or off.
func (c *Client) SetPower(ctx context.Context, zone int, power bool) (ZoneStatus, error) {
	var status ZoneStatus
	err := c.call(ctx, "zone.set_power", zoneParams{Zone: zone, Power: boolPtr(power)}, &status)
	return status, err
}

// SetMute mutes or unmutes a zone.
func (c *Client) SetMute(ctx context.Context, zone int, mute bool) (ZoneStatus, error) {
	var status ZoneStatus
	err := c.call(ctx, "zone.set_mute", zoneParams{Zone: zone, Mute: boolPtr(mute)}, &status)
	return status, err
}

// SetVolume sets a zone's volume on the amplifier's attenuation scale.
func (c *Client) SetVolume(ctx context.Context, zone int, volume int) (ZoneStatus, error) {
	var status ZoneStatus
	err := c.call(ctx, "zone.set_volume", zoneParams{Zone: zone, Volume: intPtr(volume)}, &status)
	return status, err
}

// SetSource selects a zone's source input.
func (c *Client) SetSource(ctx context.Context, zone int, source int) (ZoneStatus, error) {
	var status ZoneStatus
	err := c.call(ctx, "zone.set_source", zoneParams{Zone: zone, Source: intPtr(source)}, &status)
	return status, err
}

// VolumeUp nudges a zone's volume one step louder.
func (c *Client) VolumeUp(ctx context.Context, zone int) (ZoneStatus, error) {
	var status ZoneStatus
	err := c.call(ctx, "zone.volume_up", zoneParams{Zone: zone}, &status)
	return status, err
}

// VolumeDown nudges a zone's volume one step quieter.
func (c *Client) VolumeDown(ctx context.Context, zone int) (ZoneStatus, error) {
	var status ZoneStatus
	err := c.call(ctx, "zone.volume_down", zoneParams{Zone: zone}, &status)
	return status, err
}

// RestoreZone re-applies a captured zone status in one command.
func (c *Client) RestoreZone(ctx context.Context, status ZoneStatus) (ZoneStatus, error) {
	var result ZoneStatus
	err := c.call(ctx, "zone.restore", status, &result)
	return result, err
}

// SetBass sets a zone's bass level.
func (c *Client) SetBass(ctx context.Context, zone int, bass int) (ZoneEQStatus, error) {
	var eq ZoneEQStatus
	err := c.call(ctx, "zone.set_bass", zoneParams{Zone: zone, Value: intPtr(bass)}, &eq)
	return eq, err
}

// SetTreble sets a zone's treble level.
func (c *Client) SetTreble(ctx context.Context, zone int, treble int) (ZoneEQStatus, error) {
	var eq ZoneEQStatus
	err := c.call(ctx, "zone.set_treble", zoneParams{Zone: zone, Value: intPtr(treble)}, &eq)
	return eq, err
}

// SetBalance sets a zone's balance as position (L/C/R) plus magnitude.
func (c *Client) SetBalance(ctx context.Context, zone int, position string, value int) (ZoneEQStatus, error) {
	var eq ZoneEQStatus
	err := c.call(ctx, "zone.set_balance", zoneParams{Zone: zone, Pos: position, Value: intPtr(value)}, &eq)
	return eq, err
}

// SetLoudnessComp enables or disables loudness compensation for a zone.
func (c *Client) SetLoudnessComp(ctx context.Context, zone int, enabled bool) (ZoneEQStatus, error) {
	var eq ZoneEQStatus
	err := c.call(ctx, "zone.set_loudness_comp", zoneParams{Zone: zone, Enabled: boolPtr(enabled)}, &eq)
	return eq, err
}

// ZoneVolumeMax sets a zone's maximum volume limit.
func (c *Client) ZoneVolumeMax(ctx context.Context, zone int, volume int) (ZoneVolumeConfiguration, error) {
	var cfg ZoneVolumeConfiguration
	err := c.call(ctx, "zone.volume_max", zoneParams{Zone: zone, Volume: intPtr(volume)}, &cfg)
	return cfg, err
}

// ZoneVolumeInitial sets the volume a zone powers on with.
func (c *Client) ZoneVolumeInitial(ctx context.Context, zone int, volume int) (ZoneVolumeConfiguration, error) {
	var cfg ZoneVolumeConfiguration
	err := c.call(ctx, "zone.volume_initial", zoneParams{Zone: zone, Volume: intPtr(volume)}, &cfg)
	return cfg, err
}

// ZoneVolumePage sets the volume used while paging.
func (c *Client) ZoneVolumePage(ctx context.Context, zone int, volume int) (ZoneVolumeConfiguration, error) {
	var cfg ZoneVolumeConfiguration
	err := c.call(ctx, "zone.volume_page", zoneParams{Zone: zone, Volume: intPtr(volume)}, &cfg)
	return cfg, err
}

// ZoneVolumeParty sets the volume used when joining a party.
func (c *Client) ZoneVolumeParty(ctx context.Context, zone int, volume int) (ZoneVolumeConfiguration, error) {
	var cfg ZoneVolumeConfiguration
	err := c.call(ctx, "zone.volume_party", zoneParams{Zone: zone, Volume: intPtr(volume)}, &cfg)
	return cfg, err
}

// ZoneVolumeReset enables or disables reset-to-initial-volume on power on.
func (c *Client) ZoneVolumeReset(ctx context.Context, zone int, enabled bool) (ZoneVolumeConfiguration, error) {
	var cfg ZoneVolumeConfiguration
	err := c.call(ctx, "zone.volume_reset", zoneParams{Zone: zone, Enabled: boolPtr(enabled)}, &cfg)
	return cfg, err
}

// SetSourceGain sets a source input's gain.
func (c *Client) SetSourceGain(ctx context.Context, source int, gain int) (SourceConfiguration, error) {
	var cfg SourceConfiguration
	err := c.call(ctx, "source.set_gain", map[string]int{"source": source, "gain": gain}, &cfg)
	return cfg, err
}

// SetSourceNuvonet marks a source input as a NuVoNet source.
func (c *Client) SetSourceNuvonet(ctx context.Context, source int, nuvonet bool) (SourceConfiguration, error) {
	var cfg SourceConfiguration
	err := c.call(ctx, "source.set_nuvonet", map[string]any{"source": source, "nuvonet": nuvonet}, &cfg)
	return cfg, err
}

// SetPartyHost makes the zone the party host (or releases it).
func (c *Client) SetPartyHost(ctx context.Context, zone int, enabled bool) error {
	return c.call(ctx, "zone.set_party_host", zoneParams{Zone: zone, Enabled: boolPtr(enabled)}, nil)
}

// ZoneButtonPlayPause emits a play/pause keypad press for the zone.
func (c *Client) ZoneButtonPlayPause(ctx context.Context, zone int) error {
	return c.call(ctx, "zone.button_play_pause", zoneParams{Zone: zone}, nil)
}

// ZoneButtonPrev emits a previous-track keypad press for the zone.
func (c *Client) ZoneButtonPrev(ctx context.Context, zone int) error {
	return c.call(ctx, "zone.button_prev", zoneParams{Zone: zone}, nil)
}

// ZoneButtonNext emits a next-track keypad press for the zone.
func (c *Client) ZoneButtonNext(ctx context.Context, zone int) error {
	return c.call(ctx, "zone.button_next", zoneParams{Zone: zone}, nil)
}

// AllOff powers off every zone. The amplifier refuses while paging is
// active; that refusal surfaces as a *CommandError.
func (c *Client) AllOff(ctx context.Context) error {
	return c.call(ctx, "system.all_off", nil, nil)
}

// SetPage starts or stops system-wide paging.
func (c *Client) SetPage(ctx context.Context, page bool) error {
	return c.call(ctx, "system.page", map[string]bool{"page": page}, nil)
}

// MuteAllZones mutes or unmutes every zone.
func (c *Client) MuteAllZones(ctx context.Context, mute bool) error {
	return c.call(ctx, "system.mute_all", map[string]bool{"mute": mute}, nil)
}

// ConfigureTime sets the amplifier's internal clock.
func (c *Client) ConfigureTime(ctx context.Context, t time.Time) error {
	return c.call(ctx, "system.configure_time", map[string]string{"time": t.Format(time.RFC3339)}, nil)
}

// GetVersion reports the amplifier model and firmware.
func (c *Client) GetVersion(ctx context.Context) (Version, error) {
	var v Version
	err := c.call(ctx, "system.version", nil, &v)
	return v, err
}

// QueryZoneStatus requests a fresh status report for the zone.
func (c *Client) QueryZoneStatus(ctx context.Context, zone int) (ZoneStatus, error) {
	var status ZoneStatus
	err := c.call(ctx, "zone.status", zoneParams{Zone: zone}, &status)
	return status, err
}

// QueryZoneConfiguration requests a zone's amplifier-side configuration.
func (c *Client) QueryZoneConfiguration(ctx context.Context, zone int) (ZoneConfiguration, error) {
	var cfg ZoneConfiguration
	err := c.call(ctx, "zone.configuration", zoneParams{Zone: zone}, &cfg)
	return cfg, err
}

// QueryZoneEQ requests a zone's tone settings.
func (c *Client) QueryZoneEQ(ctx context.Context, zone int) (ZoneEQStatus, error) {
	var eq ZoneEQStatus
	err := c.call(ctx, "zone.eq_status", zoneParams{Zone: zone}, &eq)
	return eq, err
}

// QueryZoneVolumeConfiguration requests a zone's volume limits.
func (c *Client) QueryZoneVolumeConfiguration(ctx context.Context, zone int) (ZoneVolumeConfiguration, error) {
	var cfg ZoneVolumeConfiguration
	err := c.call(ctx, "zone.volume_configuration", zoneParams{Zone: zone}, &cfg)
	return cfg, err
}

// QuerySourceConfiguration requests a source input's configuration.
func (c *Client) QuerySourceConfiguration(ctx context.Context, source int) (SourceConfiguration, error) {
	var cfg SourceConfiguration
	err := c.call(ctx, "source.configuration", map[string]int{"source": source}, &cfg)
	return cfg, err
}

// Subscribe registers fn for pushed messages of the given type.
func (c *Client) Subscribe(msgType MessageType, fn SubscriberFunc) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[msgType] = append(c.subs[msgType], subscription{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		list := c.subs[msgType]
		for i, sub := range list {
			if sub.id == id {
				c.subs[msgType] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Disconnect closes the connection to the driver service.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("nuvo: closing driver connection: %w", err)
	}
	return nil
}
