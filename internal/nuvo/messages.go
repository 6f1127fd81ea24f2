package nuvo

// MessageType identifies one of the amplifier's status message classes.
// Subscribers register per message type.
type MessageType string

// Message types pushed by the driver service.
const (
	TypeZoneStatus              MessageType = "zone_status"
	TypeZoneConfiguration       MessageType = "zone_configuration"
	TypeZoneEQStatus            MessageType = "zone_eq_status"
	TypeZoneVolumeConfiguration MessageType = "zone_volume_configuration"
	TypeSourceConfiguration     MessageType = "source_configuration"
	TypeZoneButton              MessageType = "zone_button"
	TypePaging                  MessageType = "paging"
	TypeMute                    MessageType = "mute"
	TypeVersion                 MessageType = "version"
	TypeErrorResponse           MessageType = "error_response"
)

// Amplifier volume range. Values are dB of attenuation: 0 is loudest,
// 79 is quietest.
const (
	VolumeMax = 0
	VolumeMin = 79
)

// Tone control range for bass and treble, in dB, step 2.
const (
	EQMin = -18
	EQMax = 18
)

// Balance magnitude range. 0 is centre, 18 is fully offset.
const BalanceMax = 18

// Source gain range, in dB.
const (
	GainMin = 0
	GainMax = 14
)

// Balance positions reported by the amplifier.
const (
	BalanceLeft   = "L"
	BalanceCentre = "C"
	BalanceRight  = "R"
)

// Keypad buttons reported in ZoneButton messages.
const (
	ButtonPlayPause = "PLAYPAUSE"
	ButtonPrev      = "PREV"
	ButtonNext      = "NEXT"
)

// ZoneStatus is the amplifier's status report for one zone. It is returned
// by zone commands and pushed whenever a zone changes state, including
// changes made from physical keypads.
//
// Volume is only meaningful when the zone is powered on and not muted; the
// amplifier omits it otherwise.
type ZoneStatus struct {
	Zone   int  `json:"zone"`
	Power  bool `json:"power"`
	Source int  `json:"source,omitempty"`
	Volume int  `json:"volume,omitempty"`
	Mute   bool `json:"mute,omitempty"`
}

// ZoneConfiguration describes a zone's amplifier-side configuration:
// whether it is enabled, its name as stored on the amplifier, and which
// source inputs it is permitted to select.
type ZoneConfiguration struct {
	Zone    int    `json:"zone"`
	Enabled bool   `json:"enabled"`
	Name    string `json:"name,omitempty"`
	Sources []int  `json:"sources,omitempty"`
}

// ZoneEQStatus carries a zone's tone settings. Balance is reported as a
// position (L/C/R) plus an unsigned magnitude.
type ZoneEQStatus struct {
	Zone            int    `json:"zone"`
	Bass            int    `json:"bass"`
	Treble          int    `json:"treble"`
	LoudnessComp    bool   `json:"loudcmp"`
	BalancePosition string `json:"balance_position"`
	Balance         int    `json:"balance"`
}

// ZoneVolumeConfiguration carries a zone's volume limits and defaults.
// All volume fields use the amplifier's attenuation scale.
type ZoneVolumeConfiguration struct {
	Zone        int  `json:"zone"`
	MaxVolume   int  `json:"max_vol"`
	IniVolume   int  `json:"ini_vol"`
	PageVolume  int  `json:"page_vol"`
	PartyVolume int  `json:"party_vol"`
	VolumeReset bool `json:"vol_rst"`
}

// SourceConfiguration describes one source input.
type SourceConfiguration struct {
	Source        int    `json:"source"`
	Enabled       bool   `json:"enabled"`
	Name          string `json:"name,omitempty"`
	ShortName     string `json:"short_name,omitempty"`
	Gain          int    `json:"gain"`
	NuvonetSource bool   `json:"nuvonet_source"`
}

// ZoneButton reports a transport key press on a zone keypad. The press is
// informational only; the amplifier takes no action itself.
type ZoneButton struct {
	Zone   int    `json:"zone"`
	Source int    `json:"source"`
	Button string `json:"button"`
}

// Paging reports the system-wide paging state.
type Paging struct {
	Page bool `json:"page"`
}

// Mute reports the system-wide mute-all state.
type Mute struct {
	Mute bool `json:"mute"`
}

// Version identifies the amplifier hardware and firmware.
type Version struct {
	Model           string `json:"model"`
	ProductNumber   string `json:"product_number"`
	FirmwareVersion string `json:"firmware_version"`
	HardwareVersion string `json:"hardware_version"`
}

// ErrorResponse is the amplifier's explicit rejection of a command, for
// example All Off while paging is active.
type ErrorResponse struct {
	Message string `json:"message"`
}
