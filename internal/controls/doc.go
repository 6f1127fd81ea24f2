// Package controls exposes the amplifier's configuration attributes as
// number, switch and button controls.
//
// Zone controls cover EQ (bass, treble, balance, loudness compensation)
// and the volume configuration levels (max, initial, page and party
// volume plus the volume reset flag). Source controls cover input gain
// and the Nuvonet flag. System-wide controls are the paging and
// mute-all switches and the all-off button.
//
// Every control mirrors exactly one amplifier attribute: a set issues a
// single driver command and the cached value only moves when the
// amplifier reports the attribute back. A control is unavailable until
// its first report arrives.
package controls
