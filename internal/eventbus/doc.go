// Package eventbus provides the in-process event bus used for zone and
// speaker-group coordination.
//
// Events are published fire-and-forget: Publish never blocks on slow
// handlers and never reports delivery failures. Each subscriber owns an
// ordered mailbox drained by a dedicated goroutine, so a single subscriber
// always observes events in publish order, while distinct subscribers make
// progress independently. Handlers may publish further events from inside a
// handler without deadlocking.
//
// # Usage
//
//	bus := eventbus.New(logger)
//	defer bus.Close()
//
//	cancel := bus.Subscribe("group.member_joined", func(evt eventbus.Event) {
//	    // handle event
//	})
//	defer cancel()
//
//	bus.Publish(eventbus.Event{Type: "group.member_joined", Sender: "zone.kitchen"})
package eventbus
