package mqtt

import (
	"encoding/json"
	"testing"
)

// Tests in this file run without a broker. Connection and round-trip
// behaviour is covered by integration_test.go (build tag: integration).

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	if err := client.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("slate/event/x", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("invalid QoS error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if err := client.Subscribe("", 1, func(string, []byte) error { return nil }); err != ErrInvalidTopic {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("slate/#", 3, func(string, []byte) error { return nil }); err != ErrInvalidQoS {
		t.Errorf("invalid QoS error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("slate/#", 1, nil); err == nil {
		t.Error("nil handler accepted")
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "Event",
			fn:       func() string { return Topics{}.Event("schedule.updated") },
			expected: "slate/event/schedule.updated",
		},
		{
			name:     "DisplayStatus",
			fn:       func() string { return Topics{}.DisplayStatus("room-3b") },
			expected: "slate/display/room-3b/status",
		},
		{
			name:     "AllDisplayStatus",
			fn:       func() string { return Topics{}.AllDisplayStatus() },
			expected: "slate/display/+/status",
		},
		{
			name:     "SystemStatus",
			fn:       func() string { return Topics{}.SystemStatus() },
			expected: "slate/system/status",
		},
		{
			name:     "AllEvents",
			fn:       func() string { return Topics{}.AllEvents() },
			expected: "slate/event/#",
		},
		{
			name:     "AllTopics",
			fn:       func() string { return Topics{}.AllTopics() },
			expected: "slate/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

// The system status payload drives wall display presence views: online
// statuses carry no reason, offline statuses name one (graceful
// shutdown vs the LWT's unexpected disconnect).
func TestStatusPayload(t *testing.T) {
	var online map[string]string
	if err := json.Unmarshal([]byte(statusPayload("slate-core-1", "online", "")), &online); err != nil {
		t.Fatalf("online payload is not valid JSON: %v", err)
	}
	if online["status"] != "online" || online["client_id"] != "slate-core-1" {
		t.Errorf("online payload = %v", online)
	}
	if _, ok := online["reason"]; ok {
		t.Error("online payload should not carry a reason")
	}

	var offline map[string]string
	if err := json.Unmarshal([]byte(statusPayload("slate-core-1", "offline", "graceful_shutdown")), &offline); err != nil {
		t.Fatalf("offline payload is not valid JSON: %v", err)
	}
	if offline["reason"] != "graceful_shutdown" {
		t.Errorf("offline reason = %q, want graceful_shutdown", offline["reason"])
	}
	if offline["timestamp"] == "" {
		t.Error("offline payload missing timestamp")
	}
}

func TestSubscriptionTracking(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
	if client.HasSubscription("slate/event/#") {
		t.Error("HasSubscription() = true for untracked topic")
	}
}
