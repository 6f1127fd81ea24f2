// Package mqtt provides the MQTT client for the Nuvo bridge surface.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the external automation surface: zone state and control state
// are published retained under nuvo/state/..., commands arrive on
// nuvo/command/..., and keypad presses are republished as events. Home
// automation systems integrate against these topics instead of the
// amplifier's serial protocol.
//
//	automation system ↔ MQTT broker ↔ nuvo-core ↔ serial driver ↔ amplifier
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllZoneCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        // dispatch the command
//	        return nil
//	    })
//
//	topic := mqtt.Topics{}.ZoneState(4)
//	client.PublishRetained(topic, stateJSON)
package mqtt
