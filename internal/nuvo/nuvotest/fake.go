// Package nuvotest provides a fake Driver implementation for tests.
//
// The fake keeps per-zone state in memory, records every command it
// receives, and can push unsolicited messages to subscribers to simulate
// amplifier status reports. With AutoEcho enabled, zone commands push their
// echoed ZoneStatus the way the real amplifier does, which lets
// state-propagation paths run end to end without a driver service.
package nuvotest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nuvoserial/nuvo-core/internal/nuvo"
)

type subscription struct {
	id int
	fn nuvo.SubscriberFunc
}

// Fake is an in-memory nuvo.Driver.
//
// The zero value is not usable; create with New.
type Fake struct {
	// AutoEcho pushes the echoed ZoneStatus to subscribers after every
	// zone command, mimicking the amplifier's status reports.
	AutoEcho bool

	// Err, when set, fails every command with this error.
	Err error

	// AllOffErr, when set, fails only AllOff. Used to simulate the
	// amplifier refusing All Off while paging.
	AllOffErr error

	mu      sync.Mutex
	zones   map[int]nuvo.ZoneStatus
	eq      map[int]nuvo.ZoneEQStatus
	volCfg  map[int]nuvo.ZoneVolumeConfiguration
	sources map[int]nuvo.SourceConfiguration
	subs    map[nuvo.MessageType][]subscription
	nextSub int
	calls   []string
	closed  bool
}

var _ nuvo.Driver = (*Fake)(nil)

// New creates an empty fake driver.
func New() *Fake {
	return &Fake{
		zones:   make(map[int]nuvo.ZoneStatus),
		eq:      make(map[int]nuvo.ZoneEQStatus),
		volCfg:  make(map[int]nuvo.ZoneVolumeConfiguration),
		sources: make(map[int]nuvo.SourceConfiguration),
		subs:    make(map[nuvo.MessageType][]subscription),
	}
}

// SeedZone sets a zone's current status without recording a call or
// pushing a message.
func (f *Fake) SeedZone(status nuvo.ZoneStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zones[status.Zone] = status
}

// SeedSource sets a source configuration.
func (f *Fake) SeedSource(cfg nuvo.SourceConfiguration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[cfg.Source] = cfg
}

// Zone returns a zone's current status as held by the fake.
func (f *Fake) Zone(zone int) nuvo.ZoneStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.zones[zone]
}

// Calls returns the recorded command log.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Push delivers an unsolicited message to subscribers, simulating an
// amplifier status report.
func (f *Fake) Push(msgType nuvo.MessageType, msg any) {
	f.mu.Lock()
	subs := make([]subscription, len(f.subs[msgType]))
	copy(subs, f.subs[msgType])
	f.mu.Unlock()

	for _, sub := range subs {
		sub.fn(msg)
	}
}

func (f *Fake) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// zoneCommand applies mutate to the zone's state under lock, records the
// call, and echoes the result when AutoEcho is set.
func (f *Fake) zoneCommand(zone int, call string, mutate func(*nuvo.ZoneStatus)) (nuvo.ZoneStatus, error) {
	f.mu.Lock()
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return nuvo.ZoneStatus{}, err
	}
	status := f.zones[zone]
	status.Zone = zone
	mutate(&status)
	f.zones[zone] = status
	f.record("%s", call)
	echo := f.AutoEcho
	f.mu.Unlock()

	if echo {
		f.Push(nuvo.TypeZoneStatus, status)
	}
	return status, nil
}

func (f *Fake) SetPower(_ context.Context, zone int, power bool) (nuvo.ZoneStatus, error) {
	return f.zoneCommand(zone, fmt.Sprintf("SetPower(%d,%t)", zone, power), func(s *nuvo.ZoneStatus) {
		s.Power = power
		if !power {
			s.Mute = false
			s.Volume = 0
			s.Source = 0
		}
	})
}

func (f *Fake) SetMute(_ context.Context, zone int, mute bool) (nuvo.ZoneStatus, error) {
	return f.zoneCommand(zone, fmt.Sprintf("SetMute(%d,%t)", zone, mute), func(s *nuvo.ZoneStatus) {
		s.Mute = mute
		if mute {
			s.Volume = 0
		}
	})
}

func (f *Fake) SetVolume(_ context.Context, zone int, volume int) (nuvo.ZoneStatus, error) {
	return f.zoneCommand(zone, fmt.Sprintf("SetVolume(%d,%d)", zone, volume), func(s *nuvo.ZoneStatus) {
		s.Volume = volume
		s.Mute = false
	})
}

func (f *Fake) SetSource(_ context.Context, zone int, source int) (nuvo.ZoneStatus, error) {
	return f.zoneCommand(zone, fmt.Sprintf("SetSource(%d,%d)", zone, source), func(s *nuvo.ZoneStatus) {
		s.Source = source
	})
}

func (f *Fake) VolumeUp(_ context.Context, zone int) (nuvo.ZoneStatus, error) {
	return f.zoneCommand(zone, fmt.Sprintf("VolumeUp(%d)", zone), func(s *nuvo.ZoneStatus) {
		if s.Volume > nuvo.VolumeMax {
			s.Volume--
		}
	})
}

func (f *Fake) VolumeDown(_ context.Context, zone int) (nuvo.ZoneStatus, error) {
	return f.zoneCommand(zone, fmt.Sprintf("VolumeDown(%d)", zone), func(s *nuvo.ZoneStatus) {
		if s.Volume < nuvo.VolumeMin {
			s.Volume++
		}
	})
}

func (f *Fake) RestoreZone(_ context.Context, status nuvo.ZoneStatus) (nuvo.ZoneStatus, error) {
	return f.zoneCommand(status.Zone, fmt.Sprintf("RestoreZone(%d)", status.Zone), func(s *nuvo.ZoneStatus) {
		*s = status
	})
}

// eqCommand mirrors zoneCommand for EQ state.
func (f *Fake) eqCommand(zone int, call string, mutate func(*nuvo.ZoneEQStatus)) (nuvo.ZoneEQStatus, error) {
	f.mu.Lock()
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return nuvo.ZoneEQStatus{}, err
	}
	eq := f.eq[zone]
	eq.Zone = zone
	mutate(&eq)
	f.eq[zone] = eq
	f.record("%s", call)
	echo := f.AutoEcho
	f.mu.Unlock()

	if echo {
		f.Push(nuvo.TypeZoneEQStatus, eq)
	}
	return eq, nil
}

func (f *Fake) SetBass(_ context.Context, zone int, bass int) (nuvo.ZoneEQStatus, error) {
	return f.eqCommand(zone, fmt.Sprintf("SetBass(%d,%d)", zone, bass), func(e *nuvo.ZoneEQStatus) {
		e.Bass = bass
	})
}

func (f *Fake) SetTreble(_ context.Context, zone int, treble int) (nuvo.ZoneEQStatus, error) {
	return f.eqCommand(zone, fmt.Sprintf("SetTreble(%d,%d)", zone, treble), func(e *nuvo.ZoneEQStatus) {
		e.Treble = treble
	})
}

func (f *Fake) SetBalance(_ context.Context, zone int, position string, value int) (nuvo.ZoneEQStatus, error) {
	return f.eqCommand(zone, fmt.Sprintf("SetBalance(%d,%s,%d)", zone, position, value), func(e *nuvo.ZoneEQStatus) {
		e.BalancePosition = position
		e.Balance = value
	})
}

func (f *Fake) SetLoudnessComp(_ context.Context, zone int, enabled bool) (nuvo.ZoneEQStatus, error) {
	return f.eqCommand(zone, fmt.Sprintf("SetLoudnessComp(%d,%t)", zone, enabled), func(e *nuvo.ZoneEQStatus) {
		e.LoudnessComp = enabled
	})
}

// volCommand mirrors zoneCommand for volume configuration state.
func (f *Fake) volCommand(zone int, call string, mutate func(*nuvo.ZoneVolumeConfiguration)) (nuvo.ZoneVolumeConfiguration, error) {
	f.mu.Lock()
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return nuvo.ZoneVolumeConfiguration{}, err
	}
	cfg := f.volCfg[zone]
	cfg.Zone = zone
	mutate(&cfg)
	f.volCfg[zone] = cfg
	f.record("%s", call)
	echo := f.AutoEcho
	f.mu.Unlock()

	if echo {
		f.Push(nuvo.TypeZoneVolumeConfiguration, cfg)
	}
	return cfg, nil
}

func (f *Fake) ZoneVolumeMax(_ context.Context, zone int, volume int) (nuvo.ZoneVolumeConfiguration, error) {
	return f.volCommand(zone, fmt.Sprintf("ZoneVolumeMax(%d,%d)", zone, volume), func(c *nuvo.ZoneVolumeConfiguration) {
		c.MaxVolume = volume
	})
}

func (f *Fake) ZoneVolumeInitial(_ context.Context, zone int, volume int) (nuvo.ZoneVolumeConfiguration, error) {
	return f.volCommand(zone, fmt.Sprintf("ZoneVolumeInitial(%d,%d)", zone, volume), func(c *nuvo.ZoneVolumeConfiguration) {
		c.IniVolume = volume
	})
}

func (f *Fake) ZoneVolumePage(_ context.Context, zone int, volume int) (nuvo.ZoneVolumeConfiguration, error) {
	return f.volCommand(zone, fmt.Sprintf("ZoneVolumePage(%d,%d)", zone, volume), func(c *nuvo.ZoneVolumeConfiguration) {
		c.PageVolume = volume
	})
}

func (f *Fake) ZoneVolumeParty(_ context.Context, zone int, volume int) (nuvo.ZoneVolumeConfiguration, error) {
	return f.volCommand(zone, fmt.Sprintf("ZoneVolumeParty(%d,%d)", zone, volume), func(c *nuvo.ZoneVolumeConfiguration) {
		c.PartyVolume = volume
	})
}

func (f *Fake) ZoneVolumeReset(_ context.Context, zone int, enabled bool) (nuvo.ZoneVolumeConfiguration, error) {
	return f.volCommand(zone, fmt.Sprintf("ZoneVolumeReset(%d,%t)", zone, enabled), func(c *nuvo.ZoneVolumeConfiguration) {
		c.VolumeReset = enabled
	})
}

// sourceCommand mirrors zoneCommand for source configuration state.
func (f *Fake) sourceCommand(source int, call string, mutate func(*nuvo.SourceConfiguration)) (nuvo.SourceConfiguration, error) {
	f.mu.Lock()
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return nuvo.SourceConfiguration{}, err
	}
	cfg := f.sources[source]
	cfg.Source = source
	mutate(&cfg)
	f.sources[source] = cfg
	f.record("%s", call)
	echo := f.AutoEcho
	f.mu.Unlock()

	if echo {
		f.Push(nuvo.TypeSourceConfiguration, cfg)
	}
	return cfg, nil
}

func (f *Fake) SetSourceGain(_ context.Context, source int, gain int) (nuvo.SourceConfiguration, error) {
	return f.sourceCommand(source, fmt.Sprintf("SetSourceGain(%d,%d)", source, gain), func(c *nuvo.SourceConfiguration) {
		c.Gain = gain
	})
}

func (f *Fake) SetSourceNuvonet(_ context.Context, source int, nuvonet bool) (nuvo.SourceConfiguration, error) {
	return f.sourceCommand(source, fmt.Sprintf("SetSourceNuvonet(%d,%t)", source, nuvonet), func(c *nuvo.SourceConfiguration) {
		c.NuvonetSource = nuvonet
	})
}

func (f *Fake) SetPartyHost(_ context.Context, zone int, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.record("SetPartyHost(%d,%t)", zone, enabled)
	return nil
}

func (f *Fake) buttonCommand(zone int, call, button string) error {
	f.mu.Lock()
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return err
	}
	source := f.zones[zone].Source
	f.record("%s", call)
	echo := f.AutoEcho
	f.mu.Unlock()

	if echo {
		f.Push(nuvo.TypeZoneButton, nuvo.ZoneButton{Zone: zone, Source: source, Button: button})
	}
	return nil
}

func (f *Fake) ZoneButtonPlayPause(_ context.Context, zone int) error {
	return f.buttonCommand(zone, fmt.Sprintf("ZoneButtonPlayPause(%d)", zone), nuvo.ButtonPlayPause)
}

func (f *Fake) ZoneButtonPrev(_ context.Context, zone int) error {
	return f.buttonCommand(zone, fmt.Sprintf("ZoneButtonPrev(%d)", zone), nuvo.ButtonPrev)
}

func (f *Fake) ZoneButtonNext(_ context.Context, zone int) error {
	return f.buttonCommand(zone, fmt.Sprintf("ZoneButtonNext(%d)", zone), nuvo.ButtonNext)
}

func (f *Fake) AllOff(_ context.Context) error {
	f.mu.Lock()
	if f.AllOffErr != nil {
		err := f.AllOffErr
		f.mu.Unlock()
		return err
	}
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return err
	}
	for zone, status := range f.zones {
		status.Power = false
		status.Mute = false
		status.Volume = 0
		status.Source = 0
		f.zones[zone] = status
	}
	f.record("AllOff()")
	echo := f.AutoEcho
	statuses := make([]nuvo.ZoneStatus, 0, len(f.zones))
	for _, status := range f.zones {
		statuses = append(statuses, status)
	}
	f.mu.Unlock()

	if echo {
		for _, status := range statuses {
			f.Push(nuvo.TypeZoneStatus, status)
		}
	}
	return nil
}

func (f *Fake) SetPage(_ context.Context, page bool) error {
	f.mu.Lock()
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return err
	}
	f.record("SetPage(%t)", page)
	echo := f.AutoEcho
	f.mu.Unlock()

	if echo {
		f.Push(nuvo.TypePaging, nuvo.Paging{Page: page})
	}
	return nil
}

func (f *Fake) MuteAllZones(_ context.Context, mute bool) error {
	f.mu.Lock()
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return err
	}
	f.record("MuteAllZones(%t)", mute)
	echo := f.AutoEcho
	f.mu.Unlock()

	if echo {
		f.Push(nuvo.TypeMute, nuvo.Mute{Mute: mute})
	}
	return nil
}

func (f *Fake) ConfigureTime(_ context.Context, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.record("ConfigureTime(%s)", t.Format(time.RFC3339))
	return nil
}

func (f *Fake) GetVersion(_ context.Context) (nuvo.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nuvo.Version{}, f.Err
	}
	f.record("GetVersion()")
	return nuvo.Version{Model: "Grand Concerto", FirmwareVersion: "2.66"}, nil
}

func (f *Fake) QueryZoneStatus(_ context.Context, zone int) (nuvo.ZoneStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nuvo.ZoneStatus{}, f.Err
	}
	f.record("QueryZoneStatus(%d)", zone)
	status := f.zones[zone]
	status.Zone = zone
	return status, nil
}

func (f *Fake) QueryZoneConfiguration(_ context.Context, zone int) (nuvo.ZoneConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nuvo.ZoneConfiguration{}, f.Err
	}
	f.record("QueryZoneConfiguration(%d)", zone)
	sources := make([]int, 0, len(f.sources))
	for id := range f.sources {
		sources = append(sources, id)
	}
	return nuvo.ZoneConfiguration{Zone: zone, Enabled: true, Sources: sources}, nil
}

func (f *Fake) QueryZoneEQ(_ context.Context, zone int) (nuvo.ZoneEQStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nuvo.ZoneEQStatus{}, f.Err
	}
	f.record("QueryZoneEQ(%d)", zone)
	eq := f.eq[zone]
	eq.Zone = zone
	return eq, nil
}

func (f *Fake) QueryZoneVolumeConfiguration(_ context.Context, zone int) (nuvo.ZoneVolumeConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nuvo.ZoneVolumeConfiguration{}, f.Err
	}
	f.record("QueryZoneVolumeConfiguration(%d)", zone)
	cfg := f.volCfg[zone]
	cfg.Zone = zone
	return cfg, nil
}

func (f *Fake) QuerySourceConfiguration(_ context.Context, source int) (nuvo.SourceConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nuvo.SourceConfiguration{}, f.Err
	}
	f.record("QuerySourceConfiguration(%d)", source)
	cfg := f.sources[source]
	cfg.Source = source
	return cfg, nil
}

func (f *Fake) Subscribe(msgType nuvo.MessageType, fn nuvo.SubscriberFunc) func() {
	f.mu.Lock()
	f.nextSub++
	id := f.nextSub
	f.subs[msgType] = append(f.subs[msgType], subscription{id: id, fn: fn})
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.subs[msgType]
		for i, sub := range list {
			if sub.id == id {
				f.subs[msgType] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (f *Fake) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
