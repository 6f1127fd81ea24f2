package zone

import (
	"testing"

	"github.com/nuvoserial/nuvo-core/internal/infrastructure/config"
)

// TestEntityID verifies name slugging.
func TestEntityID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Kitchen", "zone.kitchen"},
		{"Living Room", "zone.living_room"},
		{"Bob's Den", "zone.bob_s_den"},
		{"  Patio  ", "zone.patio"},
		{"Zone 12", "zone.zone_12"},
		{"Åse's Study", "zone.se_s_study"},
	}

	for _, tt := range tests {
		if got := EntityID(tt.name); got != tt.want {
			t.Errorf("EntityID(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func testSourceTable() *SourceTable {
	return NewSourceTable([]config.SourceConfig{
		{ID: 1, Name: "Radio"},
		{ID: 2, Name: "Streamer"},
		{ID: 3, Name: "Turntable"},
	})
}

// TestSourceTableLookup verifies id and name resolution both ways.
func TestSourceTableLookup(t *testing.T) {
	table := testSourceTable()

	name, ok := table.Name(2)
	if !ok || name != "Streamer" {
		t.Errorf("Name(2) = %q, %t, want Streamer, true", name, ok)
	}
	if _, ok := table.Name(9); ok {
		t.Error("Name(9) ok = true, want false")
	}

	id, ok := table.ID("Turntable")
	if !ok || id != 3 {
		t.Errorf("ID(Turntable) = %d, %t, want 3, true", id, ok)
	}
	if _, ok := table.ID("Cassette"); ok {
		t.Error("ID(Cassette) ok = true, want false")
	}
}

// TestSourceTableFilter verifies system ordering and unknown-id dropping.
func TestSourceTableFilter(t *testing.T) {
	table := testSourceTable()

	got := table.Filter([]int{3, 9, 1})
	if len(got) != 2 || got[0] != "Radio" || got[1] != "Turntable" {
		t.Errorf("Filter([3 9 1]) = %v, want [Radio Turntable]", got)
	}

	if got := table.Filter(nil); len(got) != 0 {
		t.Errorf("Filter(nil) = %v, want empty", got)
	}
}

// TestStateClone verifies clones do not alias the original's pointers.
func TestStateClone(t *testing.T) {
	mute := false
	volume := 0.5
	source := "Radio"
	orig := State{Power: PowerOn, Mute: &mute, Volume: &volume, Source: &source}

	cl := orig.clone()
	*cl.Mute = true
	*cl.Volume = 1.0
	*cl.Source = "Streamer"

	if mute || volume != 0.5 || source != "Radio" {
		t.Error("mutating the clone changed the original state")
	}
}
