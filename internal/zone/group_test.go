package zone

import (
	"context"
	"testing"

	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
	"github.com/nuvoserial/nuvo-core/internal/nuvo"
	"github.com/nuvoserial/nuvo-core/internal/nuvo/nuvotest"
)

// grouped reports whether the zone is in a group with the given status.
func grouped(z *Zone, status GroupStatus) bool {
	info := z.Group()
	return info.Status == status && info.ID != ""
}

// sameGroup reports whether all zones agree on one group id.
func sameGroup(zones ...*Zone) bool {
	id := zones[0].Group().ID
	if id == "" {
		return false
	}
	for _, z := range zones[1:] {
		if z.Group().ID != id {
			return false
		}
	}
	return true
}

// hasMembers reports whether the zone's member list is exactly want,
// ignoring order.
func hasMembers(z *Zone, want ...string) bool {
	members := z.Group().Members
	if len(members) != len(want) {
		return false
	}
	have := make(map[string]bool, len(members))
	for _, m := range members {
		have[m] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// TestJoinFormsGroup verifies a three-zone group converges: one
// controller, two members, identical group ids and member lists.
func TestJoinFormsGroup(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge, study := env.zone(1), env.zone(2), env.zone(3)

	if err := kitchen.Join(context.Background(), []string{"zone.lounge", "zone.study"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	waitFor(t, func() bool {
		return grouped(kitchen, GroupController) &&
			grouped(lounge, GroupMember) &&
			grouped(study, GroupMember) &&
			sameGroup(kitchen, lounge, study)
	}, "group to converge")

	for _, z := range []*Zone{kitchen, lounge, study} {
		info := z.Group()
		if info.Controller != "zone.kitchen" {
			t.Errorf("%s controller = %q, want zone.kitchen", z.EntityID(), info.Controller)
		}
		if !hasMembers(z, "zone.kitchen", "zone.lounge", "zone.study") {
			t.Errorf("%s members = %v, want all three zones", z.EntityID(), info.Members)
		}
	}

	// The controller leads its own member list.
	if members := kitchen.Group().Members; members[0] != "zone.kitchen" {
		t.Errorf("controller member list = %v, want controller first", members)
	}
}

// TestJoinSelfFilter verifies including the controller in the requested
// member list does not duplicate it.
func TestJoinSelfFilter(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge := env.zone(1), env.zone(2)

	if err := kitchen.Join(context.Background(), []string{"zone.kitchen", "zone.lounge"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	waitFor(t, func() bool {
		return grouped(lounge, GroupMember)
	}, "lounge to join")

	if !hasMembers(kitchen, "zone.kitchen", "zone.lounge") {
		t.Errorf("members = %v, want kitchen and lounge once each", kitchen.Group().Members)
	}
}

// TestJoinMergesIntoExistingGroup verifies a controller joining again
// keeps its group id and invites only the additions.
func TestJoinMergesIntoExistingGroup(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge, study := env.zone(1), env.zone(2), env.zone(3)
	ctx := context.Background()

	if err := kitchen.Join(ctx, []string{"zone.lounge"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(lounge, GroupMember)
	}, "lounge to join")
	firstGroup := kitchen.Group().ID

	if err := kitchen.Join(ctx, []string{"zone.study"}); err != nil {
		t.Fatalf("second Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(study, GroupMember) && sameGroup(kitchen, lounge, study)
	}, "study to join the same group")

	if kitchen.Group().ID != firstGroup {
		t.Errorf("group id changed from %q to %q on merge", firstGroup, kitchen.Group().ID)
	}
	for _, z := range []*Zone{kitchen, lounge, study} {
		if !hasMembers(z, "zone.kitchen", "zone.lounge", "zone.study") {
			t.Errorf("%s members = %v, want all three zones", z.EntityID(), z.Group().Members)
		}
	}
}

// TestJoinPowersOnMembers verifies powered-off invitees switch on when
// pulled into a group.
func TestJoinPowersOnMembers(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge := env.zone(1), env.zone(2)

	env.pushStatus(zoneStatus(2, false, 0, 0, false))
	waitFor(t, func() bool {
		return lounge.State().Power == PowerOff
	}, "lounge to power off")

	if err := kitchen.Join(context.Background(), []string{"zone.lounge"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	waitFor(t, func() bool {
		return grouped(lounge, GroupMember) && lounge.State().Power == PowerOn
	}, "lounge to power on and join")
}

// TestJoinSyncsVolumeAndSource verifies invitees adopt the controller's
// source and volume.
func TestJoinSyncsVolumeAndSource(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge := env.zone(1), env.zone(2)
	ctx := context.Background()

	// Controller on Streamer at a volume distinct from the seed.
	env.pushStatus(zoneStatus(1, true, 2, 20, false))
	waitFor(t, func() bool {
		state := kitchen.State()
		return state.Source != nil && *state.Source == "Streamer"
	}, "kitchen to switch source")

	if err := kitchen.Join(ctx, []string{"zone.lounge"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	waitFor(t, func() bool {
		state := lounge.State()
		return grouped(lounge, GroupMember) &&
			state.Source != nil && *state.Source == "Streamer" &&
			state.Volume != nil && *state.Volume == NormalizedVolume(20)
	}, "lounge to adopt controller source and volume")
}

// TestControllerVolumeMirrored verifies members follow the controller's
// confirmed volume changes.
func TestControllerVolumeMirrored(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge, study := env.zone(1), env.zone(2), env.zone(3)

	if err := kitchen.Join(context.Background(), []string{"zone.lounge", "zone.study"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(lounge, GroupMember) && grouped(study, GroupMember)
	}, "group to converge")

	env.pushStatus(zoneStatus(1, true, 1, 10, false))

	want := NormalizedVolume(10)
	waitFor(t, func() bool {
		ls, ss := lounge.State(), study.State()
		return ls.Volume != nil && *ls.Volume == want &&
			ss.Volume != nil && *ss.Volume == want
	}, "members to mirror controller volume")
}

// TestControllerMuteMirrored verifies members follow the controller's
// mute and that a member's own change does not propagate.
func TestControllerMuteMirrored(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge := env.zone(1), env.zone(2)

	if err := kitchen.Join(context.Background(), []string{"zone.lounge"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(lounge, GroupMember)
	}, "group to converge")

	env.pushStatus(zoneStatus(1, true, 1, 0, true))
	waitFor(t, func() bool {
		state := lounge.State()
		return state.Mute != nil && *state.Mute
	}, "member to mirror controller mute")

	// A member unmuting on its own stays local.
	env.pushStatus(zoneStatus(2, true, 1, 40, false))
	waitFor(t, func() bool {
		state := lounge.State()
		return state.Mute != nil && !*state.Mute
	}, "member to unmute")
	env.drain()

	if state := kitchen.State(); state.Mute == nil || !*state.Mute {
		t.Error("controller unmuted after member change, want controller still muted")
	}
}

// TestControllerSourceMirroredWhenPermitted verifies source mirroring
// honours each member's permitted source list.
func TestControllerSourceMirroredWhenPermitted(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge, study := env.zone(1), env.zone(2), env.zone(3)

	// Study may not play the Turntable.
	env.fake.Push(nuvo.TypeZoneConfiguration, nuvo.ZoneConfiguration{
		Zone:    3,
		Enabled: true,
		Sources: []int{1, 2},
	})
	waitFor(t, func() bool {
		return len(study.SourceList()) == 2
	}, "study source list to update")

	if err := kitchen.Join(context.Background(), []string{"zone.lounge", "zone.study"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(lounge, GroupMember) && grouped(study, GroupMember)
	}, "group to converge")

	env.pushStatus(zoneStatus(1, true, 3, 40, false))

	waitFor(t, func() bool {
		state := lounge.State()
		return state.Source != nil && *state.Source == "Turntable"
	}, "lounge to mirror controller source")
	env.drain()

	if state := study.State(); state.Source == nil || *state.Source != "Radio" {
		t.Errorf("study source = %v, want Radio (Turntable not permitted)", state.Source)
	}
}

// TestUnjoinMemberShrinksGroup verifies a member leaving a three-zone
// group powers off and the remaining zones prune their lists.
func TestUnjoinMemberShrinksGroup(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge, study := env.zone(1), env.zone(2), env.zone(3)
	ctx := context.Background()

	if err := kitchen.Join(ctx, []string{"zone.lounge", "zone.study"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(lounge, GroupMember) && grouped(study, GroupMember)
	}, "group to converge")

	if err := study.Unjoin(ctx); err != nil {
		t.Fatalf("Unjoin() error = %v", err)
	}

	waitFor(t, func() bool {
		return study.Group().Status == GroupNonMember &&
			study.State().Power == PowerOff &&
			hasMembers(kitchen, "zone.kitchen", "zone.lounge") &&
			hasMembers(lounge, "zone.kitchen", "zone.lounge")
	}, "group to shrink to two zones")

	if !grouped(kitchen, GroupController) || !grouped(lounge, GroupMember) {
		t.Error("remaining zones lost their group membership")
	}
}

// TestControllerUnjoinDisbands verifies the controller leaving disbands
// the whole group and powers everyone off.
func TestControllerUnjoinDisbands(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge, study := env.zone(1), env.zone(2), env.zone(3)
	ctx := context.Background()

	if err := kitchen.Join(ctx, []string{"zone.lounge", "zone.study"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(lounge, GroupMember) && grouped(study, GroupMember)
	}, "group to converge")

	if err := kitchen.Unjoin(ctx); err != nil {
		t.Fatalf("Unjoin() error = %v", err)
	}

	waitFor(t, func() bool {
		return kitchen.Group().Status == GroupNonMember &&
			lounge.Group().Status == GroupNonMember &&
			study.Group().Status == GroupNonMember &&
			kitchen.State().Power == PowerOff &&
			lounge.State().Power == PowerOff &&
			study.State().Power == PowerOff
	}, "group to disband and power off")
}

// TestAutoDisbandLastMember verifies a two-zone group dissolves entirely
// when the member leaves: the controller is alone, clears its group and
// powers off.
func TestAutoDisbandLastMember(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge := env.zone(1), env.zone(2)
	ctx := context.Background()

	if err := kitchen.Join(ctx, []string{"zone.lounge"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(lounge, GroupMember)
	}, "group to converge")

	if err := lounge.Unjoin(ctx); err != nil {
		t.Fatalf("Unjoin() error = %v", err)
	}

	waitFor(t, func() bool {
		return kitchen.Group().Status == GroupNonMember &&
			kitchen.State().Power == PowerOff
	}, "controller to auto-disband and power off")
}

// TestPowerOffLeavesGroup verifies a member that is switched off at the
// keypad drops out of the group.
func TestPowerOffLeavesGroup(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge, study := env.zone(1), env.zone(2), env.zone(3)

	if err := kitchen.Join(context.Background(), []string{"zone.lounge", "zone.study"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(lounge, GroupMember) && grouped(study, GroupMember)
	}, "group to converge")

	env.pushStatus(zoneStatus(3, false, 0, 0, false))

	waitFor(t, func() bool {
		return study.Group().Status == GroupNonMember &&
			hasMembers(kitchen, "zone.kitchen", "zone.lounge") &&
			hasMembers(lounge, "zone.kitchen", "zone.lounge")
	}, "powered-off member to leave the group")
}

// TestMemberMovesToNewGroup verifies a zone invited away from one group
// leaves it first, auto-disbanding the old group when it empties.
func TestMemberMovesToNewGroup(t *testing.T) {
	env := newTestEnv(t)
	kitchen, lounge, study := env.zone(1), env.zone(2), env.zone(3)
	ctx := context.Background()

	if err := kitchen.Join(ctx, []string{"zone.study"}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitFor(t, func() bool {
		return grouped(study, GroupMember)
	}, "first group to converge")

	if err := lounge.Join(ctx, []string{"zone.study"}); err != nil {
		t.Fatalf("second Join() error = %v", err)
	}

	waitFor(t, func() bool {
		return grouped(lounge, GroupController) &&
			grouped(study, GroupMember) &&
			sameGroup(lounge, study) &&
			kitchen.Group().Status == GroupNonMember &&
			kitchen.State().Power == PowerOff
	}, "study to move groups and the old group to dissolve")

	if !hasMembers(lounge, "zone.lounge", "zone.study") {
		t.Errorf("new group members = %v, want lounge and study", lounge.Group().Members)
	}
}

// TestGuard covers the membership filter for list-sync events.
func TestGuard(t *testing.T) {
	z := newZoneForGuardTest()
	g := z.group

	tests := []struct {
		name       string
		status     GroupStatus
		id         string
		sender     string
		group      string
		memberOnly bool
		want       bool
	}{
		{"nonmember ignores", GroupNonMember, "", "zone.other", "g1", false, false},
		{"member passes", GroupMember, "g1", "zone.other", "g1", false, true},
		{"controller passes", GroupController, "g1", "zone.other", "g1", false, true},
		{"controller fails member-only", GroupController, "g1", "zone.other", "g1", true, false},
		{"member passes member-only", GroupMember, "g1", "zone.other", "g1", true, true},
		{"different group ignored", GroupMember, "g1", "zone.other", "g2", false, false},
		{"own event ignored", GroupMember, "g1", "zone.kitchen", "g1", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.status = tt.status
			g.id = tt.id
			if got := g.guardLocked(tt.sender, tt.group, tt.memberOnly); got != tt.want {
				t.Errorf("guardLocked(%q, %q, %t) = %t, want %t", tt.sender, tt.group, tt.memberOnly, got, tt.want)
			}
		})
	}
}

func newZoneForGuardTest() *Zone {
	return newZone(1, "Kitchen", nuvotest.New(), nil, NewSourceTable(nil), 0.02, logging.Default())
}
