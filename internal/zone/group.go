package zone

import (
	"context"

	"github.com/google/uuid"

	"github.com/nuvoserial/nuvo-core/internal/eventbus"
)

// GroupStatus is a zone's speaker group membership status.
type GroupStatus string

// Group membership states.
const (
	GroupNonMember  GroupStatus = "nonmember"
	GroupMember     GroupStatus = "member"
	GroupController GroupStatus = "controller"
)

// GroupInfo is a zone's current group membership as exposed to clients.
type GroupInfo struct {
	Status     GroupStatus `json:"status"`
	ID         string      `json:"id,omitempty"`
	Controller string      `json:"controller,omitempty"`
	Members    []string    `json:"members,omitempty"`
}

// speakerGroup coordinates one zone's participation in a speaker group.
//
// One zone acts as the group controller: changes to its power, mute,
// volume and source are mirrored by the member zones. There is no central
// registry; every zone keeps its own view of the group and the views
// converge through member-joined/member-left broadcasts. The controller is
// always the first entry in the member list.
//
// Groups are ephemeral and implemented entirely in the daemon; the
// amplifier's own zone-grouping feature is not used.
//
// All fields are guarded by the owning zone's mutex. Handlers run on bus
// mailbox goroutines and never hold the mutex across driver calls or bus
// publishes.
type speakerGroup struct {
	zone *Zone

	status     GroupStatus
	id         string
	controller string
	members    []string
}

func newSpeakerGroup(z *Zone) *speakerGroup {
	return &speakerGroup{
		zone:   z,
		status: GroupNonMember,
	}
}

// infoLocked snapshots membership. Caller holds zone.mu.
func (g *speakerGroup) infoLocked() GroupInfo {
	info := GroupInfo{
		Status:     g.status,
		ID:         g.id,
		Controller: g.controller,
	}
	if len(g.members) > 0 {
		info.Members = append([]string(nil), g.members...)
	}
	return info
}

// clearLocked forgets all group details. Caller holds zone.mu.
func (g *speakerGroup) clearLocked() {
	g.status = GroupNonMember
	g.id = ""
	g.controller = ""
	g.members = nil
}

// attach subscribes the group's event handlers on the bus and returns the
// cancel functions.
func (g *speakerGroup) attach(bus *eventbus.Bus) []func() {
	return []func(){
		bus.Subscribe(EventGroupJoin, g.handleJoin),
		bus.Subscribe(EventGroupMemberJoined, g.handleMemberJoined),
		bus.Subscribe(EventGroupMemberLeft, g.handleMemberLeft),
		bus.Subscribe(EventGroupControllerMuteChanged, g.handleControllerMute),
		bus.Subscribe(EventGroupControllerVolumeChanged, g.handleControllerVolume),
		bus.Subscribe(EventGroupControllerSourceChanged, g.handleControllerSource),
	}
}

// join makes the owning zone the controller of a group containing the
// requested members. The zone may currently be a non-member, a member of
// another group (which it leaves), or already a controller (the requested
// members merge into its existing group and only the additions are
// invited).
func (g *speakerGroup) join(ctx context.Context, groupMembers []string) error {
	z := g.zone
	newGroup := uuid.NewString()

	// Callers may include this zone in the member list; it is implicit.
	members := make([]string, 0, len(groupMembers))
	for _, m := range groupMembers {
		if m != z.entityID {
			members = append(members, m)
		}
	}

	// The join invitations carry this zone's source and volume, so if the
	// zone is off it is powered on now and the returned status applied
	// immediately rather than waiting for the echoed push.
	z.mu.Lock()
	off := z.state.Power == PowerOff || z.state.Power == PowerUnknown
	z.mu.Unlock()
	if off {
		status, err := z.driver.SetPower(ctx, z.id, true)
		if err != nil {
			return err
		}
		z.applyStatus(status)
	}

	z.mu.Lock()
	var zonesToAdd []string
	var memberList []string
	leftGroup := ""

	switch g.status {
	case GroupController:
		// Already controlling a group: merge the new members in and
		// invite only the additions.
		newGroup = g.id
		existing := make(map[string]bool, len(g.members))
		for _, m := range g.members {
			existing[m] = true
		}
		for _, m := range members {
			if !existing[m] {
				zonesToAdd = append(zonesToAdd, m)
			}
		}
		memberList = []string{z.entityID}
		for _, m := range g.members {
			if m != z.entityID {
				memberList = append(memberList, m)
			}
		}
		memberList = append(memberList, zonesToAdd...)

	case GroupMember:
		// Leaving the current group to control a new one.
		leftGroup = g.id
		zonesToAdd = members
		memberList = append([]string{z.entityID}, members...)

	default:
		zonesToAdd = members
		memberList = append([]string{z.entityID}, members...)
	}

	g.status = GroupController
	g.id = newGroup
	g.controller = z.entityID
	g.members = memberList

	var source *string
	if z.state.Source != nil {
		s := *z.state.Source
		source = &s
	}
	var volume *float64
	if z.state.Volume != nil {
		v := *z.state.Volume
		volume = &v
	}
	invited := append([]string(nil), memberList...)
	z.mu.Unlock()

	z.logger.Debug("becoming group controller",
		"group", newGroup,
		"members", invited,
		"inviting", zonesToAdd,
	)

	if leftGroup != "" {
		g.publishMemberLeft(leftGroup, z.entityID)
	}

	for _, target := range zonesToAdd {
		z.bus.Publish(eventbus.Event{
			Type:   EventGroupJoin,
			Sender: z.entityID,
			Data: JoinEvent{
				TargetEntity: target,
				Group:        newGroup,
				Members:      append([]string(nil), invited...),
				Controller:   z.entityID,
				Source:       source,
				Volume:       volume,
			},
		})
	}

	z.publishState(StateChange{})
	return nil
}

// unjoin removes the zone from its group and powers it off. A controller
// leaving disbands the group: members detect the leaver being the
// controller and clear their own membership.
func (g *speakerGroup) unjoin(ctx context.Context) error {
	z := g.zone

	z.mu.Lock()
	if g.status == GroupNonMember {
		z.mu.Unlock()
		return nil
	}
	group := g.id
	g.clearLocked()
	z.mu.Unlock()

	z.logger.Debug("leaving group", "group", group)
	g.publishMemberLeft(group, z.entityID)
	z.publishState(StateChange{})
	return z.TurnOff(ctx)
}

// propagateStateChanges turns confirmed state changes into group traffic:
// powering off leaves (or, for the controller, disbands) the group, and
// controller mute/volume/source changes are broadcast for members to
// mirror. A power transition suppresses the attribute broadcasts.
func (g *speakerGroup) propagateStateChanges(change StateChange) {
	z := g.zone

	z.mu.Lock()
	status := g.status
	group := g.id
	off := z.state.Power == PowerOff
	mute := z.state.Mute != nil && *z.state.Mute
	var volume *float64
	if z.state.Volume != nil {
		v := *z.state.Volume
		volume = &v
	}
	var source *string
	if z.state.Source != nil {
		s := *z.state.Source
		source = &s
	}
	z.mu.Unlock()

	if change.Power {
		if off && (status == GroupController || status == GroupMember) {
			// Powering off always leaves the group. When the leaver is the
			// controller, members see leaver == controller and disband.
			z.mu.Lock()
			g.clearLocked()
			z.mu.Unlock()

			z.logger.Debug("left group on power off", "group", group, "was", status)
			g.publishMemberLeft(group, z.entityID)
			z.publishState(StateChange{})
		}
		return
	}

	if status != GroupController {
		return
	}

	if change.Mute {
		z.bus.Publish(eventbus.Event{
			Type:   EventGroupControllerMuteChanged,
			Sender: z.entityID,
			Data:   ControllerMuteEvent{Group: group, Mute: mute},
		})
	}
	if change.Volume && volume != nil {
		z.bus.Publish(eventbus.Event{
			Type:   EventGroupControllerVolumeChanged,
			Sender: z.entityID,
			Data:   ControllerVolumeEvent{Group: group, Volume: *volume},
		})
	}
	if change.Source && source != nil {
		z.bus.Publish(eventbus.Event{
			Type:   EventGroupControllerSourceChanged,
			Sender: z.entityID,
			Data:   ControllerSourceEvent{Group: group, Source: *source},
		})
	}
}

// handleJoin processes a join invitation addressed to this zone. The zone
// adopts the invitation's group, announces the membership change, powers
// on if needed, and syncs source and volume from the controller.
func (g *speakerGroup) handleJoin(evt eventbus.Event) {
	data, ok := evt.Data.(JoinEvent)
	if !ok {
		return
	}
	z := g.zone
	if data.TargetEntity != z.entityID {
		return
	}

	z.mu.Lock()
	prevStatus := g.status
	prevGroup := g.id
	g.status = GroupMember
	g.id = data.Group
	g.controller = data.Controller
	g.members = append([]string(nil), data.Members...)
	z.mu.Unlock()

	z.logger.Debug("joining group",
		"group", data.Group,
		"controller", data.Controller,
		"previous_status", prevStatus,
	)

	// A zone already grouped leaves its old group first so the remaining
	// members prune their lists.
	if prevStatus == GroupController || prevStatus == GroupMember {
		g.publishMemberLeft(prevGroup, z.entityID)
	}
	g.publishMemberJoined(data.Group, z.entityID)
	z.publishState(StateChange{})

	ctx := context.Background()

	z.mu.Lock()
	off := z.state.Power == PowerOff || z.state.Power == PowerUnknown
	z.mu.Unlock()
	if off {
		status, err := z.driver.SetPower(ctx, z.id, true)
		if err != nil {
			z.logger.Error("failed to power on for group join", "error", err)
			return
		}
		z.applyStatus(status)
	}

	// Source sync: only when the controller's source is permitted here.
	if data.Source != nil {
		permitted := false
		for _, name := range z.SourceList() {
			if name == *data.Source {
				permitted = true
				break
			}
		}
		current := z.State().Source
		if permitted && (current == nil || *current != *data.Source) {
			if err := z.SelectSource(ctx, *data.Source); err != nil {
				z.logger.Warn("failed to sync source on group join", "error", err)
			}
		}
	}

	// Volume sync: match the controller, including its mute state.
	if data.Volume != nil && *data.Volume > 0 {
		if z.muted() {
			if err := z.SetMute(ctx, false); err != nil {
				z.logger.Warn("failed to unmute on group join", "error", err)
			}
		}
		if err := z.SetVolumeLevel(ctx, *data.Volume); err != nil {
			z.logger.Warn("failed to sync volume on group join", "error", err)
		}
	} else if !z.muted() {
		if err := z.SetMute(ctx, true); err != nil {
			z.logger.Warn("failed to mute on group join", "error", err)
		}
	}
}

// guardLocked implements the common membership filter: the zone must be in
// the event's group and must not be the event's sender. Caller holds
// zone.mu.
func (g *speakerGroup) guardLocked(sender, group string, memberOnly bool) bool {
	if memberOnly {
		if g.status != GroupMember {
			return false
		}
	} else if g.status == GroupNonMember {
		return false
	}
	if g.id == "" || g.id != group {
		return false
	}
	if sender == g.zone.entityID {
		return false
	}
	return true
}

// handleMemberJoined adds a newly joined zone to the local member list.
func (g *speakerGroup) handleMemberJoined(evt eventbus.Event) {
	data, ok := evt.Data.(MemberJoinedEvent)
	if !ok {
		return
	}
	z := g.zone

	z.mu.Lock()
	if !g.guardLocked(evt.Sender, data.Group, false) {
		z.mu.Unlock()
		return
	}
	for _, m := range g.members {
		if m == data.Joiner {
			// Already known, e.g. the joiner was in the invitation list.
			z.mu.Unlock()
			return
		}
	}
	g.members = append(append([]string(nil), g.members...), data.Joiner)
	members := append([]string(nil), g.members...)
	z.mu.Unlock()

	z.logger.Debug("group member joined", "group", data.Group, "joiner", data.Joiner, "members", members)
	z.publishState(StateChange{})
}

// handleMemberLeft prunes a departed zone from the local member list. A
// departing controller disbands the group; a list shrinking to just this
// zone auto-disbands.
func (g *speakerGroup) handleMemberLeft(evt eventbus.Event) {
	data, ok := evt.Data.(MemberLeftEvent)
	if !ok {
		return
	}
	z := g.zone
	ctx := context.Background()

	z.mu.Lock()
	if !g.guardLocked(evt.Sender, data.Group, false) {
		z.mu.Unlock()
		return
	}

	if data.Leaver == g.controller {
		g.clearLocked()
		z.mu.Unlock()

		z.logger.Debug("group disbanded by controller", "group", data.Group, "controller", data.Leaver)
		z.publishState(StateChange{})
		if err := z.TurnOff(ctx); err != nil {
			z.logger.Warn("failed to power off after group disband", "error", err)
		}
		return
	}

	idx := -1
	for i, m := range g.members {
		if m == data.Leaver {
			idx = i
			break
		}
	}
	if idx >= 0 {
		members := append([]string(nil), g.members...)
		g.members = append(members[:idx], members[idx+1:]...)
	} else {
		z.logger.Warn("group leaver not in member list", "group", data.Group, "leaver", data.Leaver, "members", g.members)
	}

	if len(g.members) == 1 {
		// This zone is the only one left, nothing to be grouped with.
		g.clearLocked()
		z.mu.Unlock()

		z.logger.Debug("group auto-disbanded, last remaining member", "group", data.Group)
		z.publishState(StateChange{})
		if err := z.TurnOff(ctx); err != nil {
			z.logger.Warn("failed to power off after group auto-disband", "error", err)
		}
		return
	}

	members := append([]string(nil), g.members...)
	z.mu.Unlock()

	z.logger.Debug("group member left", "group", data.Group, "leaver", data.Leaver, "members", members)
	z.publishState(StateChange{})
}

// handleControllerMute mirrors the controller's mute state.
func (g *speakerGroup) handleControllerMute(evt eventbus.Event) {
	data, ok := evt.Data.(ControllerMuteEvent)
	if !ok {
		return
	}
	z := g.zone

	z.mu.Lock()
	if !g.guardLocked(evt.Sender, data.Group, true) {
		z.mu.Unlock()
		return
	}
	current := z.state.Mute != nil && *z.state.Mute
	z.mu.Unlock()

	if current == data.Mute {
		return
	}
	z.logger.Debug("syncing mute with group controller", "group", data.Group, "mute", data.Mute)
	if err := z.SetMute(context.Background(), data.Mute); err != nil {
		z.logger.Warn("failed to sync mute with group controller", "error", err)
	}
}

// handleControllerVolume mirrors the controller's volume, unmuting first
// when needed.
func (g *speakerGroup) handleControllerVolume(evt eventbus.Event) {
	data, ok := evt.Data.(ControllerVolumeEvent)
	if !ok {
		return
	}
	z := g.zone

	z.mu.Lock()
	if !g.guardLocked(evt.Sender, data.Group, true) {
		z.mu.Unlock()
		return
	}
	muted := z.state.Mute != nil && *z.state.Mute
	sameVolume := z.state.Volume != nil && *z.state.Volume == data.Volume
	z.mu.Unlock()

	if sameVolume {
		return
	}
	ctx := context.Background()
	z.logger.Debug("syncing volume with group controller", "group", data.Group, "volume", data.Volume)
	if muted {
		if err := z.SetMute(ctx, false); err != nil {
			z.logger.Warn("failed to unmute for group volume sync", "error", err)
		}
	}
	if err := z.SetVolumeLevel(ctx, data.Volume); err != nil {
		z.logger.Warn("failed to sync volume with group controller", "error", err)
	}
}

// handleControllerSource mirrors the controller's source selection when
// that source is permitted for this zone.
func (g *speakerGroup) handleControllerSource(evt eventbus.Event) {
	data, ok := evt.Data.(ControllerSourceEvent)
	if !ok {
		return
	}
	z := g.zone

	z.mu.Lock()
	if !g.guardLocked(evt.Sender, data.Group, true) {
		z.mu.Unlock()
		return
	}
	permitted := false
	for _, name := range z.permitted {
		if name == data.Source {
			permitted = true
			break
		}
	}
	same := z.state.Source != nil && *z.state.Source == data.Source
	z.mu.Unlock()

	if !permitted || same {
		return
	}
	z.logger.Debug("syncing source with group controller", "group", data.Group, "source", data.Source)
	if err := z.SelectSource(context.Background(), data.Source); err != nil {
		z.logger.Warn("failed to sync source with group controller", "error", err)
	}
}

func (g *speakerGroup) publishMemberJoined(group, joiner string) {
	g.zone.bus.Publish(eventbus.Event{
		Type:   EventGroupMemberJoined,
		Sender: g.zone.entityID,
		Data:   MemberJoinedEvent{Group: group, Joiner: joiner},
	})
}

func (g *speakerGroup) publishMemberLeft(group, leaver string) {
	g.zone.bus.Publish(eventbus.Event{
		Type:   EventGroupMemberLeft,
		Sender: g.zone.entityID,
		Data:   MemberLeftEvent{Group: group, Leaver: leaver},
	})
}
