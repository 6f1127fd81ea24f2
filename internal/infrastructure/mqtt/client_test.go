package mqtt

import (
	"errors"
	"strings"
	"testing"
)

// TestTopics verifies the topic builders produce the documented hierarchy.
func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"zone state", topics.ZoneState(4), "nuvo/state/zone/4"},
		{"zone control state", topics.ZoneControlState(4, "bass"), "nuvo/state/zone/4/bass"},
		{"source control state", topics.SourceControlState(2, "gain"), "nuvo/state/source/2/gain"},
		{"system control state", topics.SystemControlState("page"), "nuvo/state/system/page"},
		{"zone command", topics.ZoneCommand(4), "nuvo/command/zone/4"},
		{"system command", topics.SystemCommand(), "nuvo/command/system"},
		{"zone keypad event", topics.ZoneKeypadEvent(4), "nuvo/event/zone/4/keypad"},
		{"system status", topics.SystemStatus(), "nuvo/system/status"},
		{"all zone commands", topics.AllZoneCommands(), "nuvo/command/zone/+"},
		{"all topics", topics.AllTopics(), "nuvo/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

// TestPublishValidation verifies input validation happens before any
// broker interaction.
func TestPublishValidation(t *testing.T) {
	client := &Client{}

	if err := client.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("nuvo/state/zone/1", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) error = %v, want ErrInvalidQoS", err)
	}

	oversized := make([]byte, maxPayloadSize+1)
	if err := client.Publish("nuvo/state/zone/1", oversized, 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(oversized) error = %v, want ErrPublishFailed", err)
	}
}

// TestSubscribeValidation verifies input validation for subscriptions.
func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if err := client.Subscribe("", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("nuvo/#", 5, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 5) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("nuvo/#", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
}

// TestCloseNil verifies Close on an unconnected client is a no-op.
func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}

// TestStatusPayloads verifies the online/offline payload shapes.
func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("nuvo-core")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, `"client_id":"nuvo-core"`) {
		t.Errorf("online payload = %s", online)
	}

	offline := buildOfflinePayload("nuvo-core")
	if !strings.Contains(offline, `"status":"offline"`) || !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %s", offline)
	}
}

// TestSubscriptionTracking verifies the bookkeeping helpers.
func TestSubscriptionTracking(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}

	client.subscriptions["nuvo/command/zone/+"] = subscription{topic: "nuvo/command/zone/+", qos: 1}
	if !client.HasSubscription("nuvo/command/zone/+") {
		t.Error("HasSubscription() = false, want true")
	}
	if client.HasSubscription("nuvo/state/zone/1") {
		t.Error("HasSubscription() = true for untracked topic, want false")
	}
}
