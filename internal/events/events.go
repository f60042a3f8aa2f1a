// Package events fans core event notifications out to their transports.
//
// The schedule planner, provisioning orchestrator, and batch executor
// all emit events through a single Broadcast(channel, payload) call;
// this package delivers them to the WebSocket hub for the teacher UI
// and mirrors them onto MQTT for classroom wall displays.
package events

import (
	"encoding/json"
	"log/slog"

	"github.com/slatedesk/slate-core/internal/infrastructure/mqtt"
)

// Broadcaster delivers one event to one transport.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Fanout delivers each event to every registered broadcaster.
// A nil or empty fanout drops events silently.
type Fanout []Broadcaster

// Broadcast sends the event to all transports.
func (f Fanout) Broadcast(channel string, payload any) {
	for _, b := range f {
		if b != nil {
			b.Broadcast(channel, payload)
		}
	}
}

// Mirror publishes events onto the MQTT bus under slate/event/<channel>.
// Publish failures are logged and dropped: the mirror is best-effort and
// must never stall the emitting operation.
type Mirror struct {
	client *mqtt.Client
	qos    byte
	logger *slog.Logger
}

// NewMirror creates an MQTT event mirror.
func NewMirror(client *mqtt.Client, qos byte, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{client: client, qos: qos, logger: logger}
}

// Broadcast mirrors one event onto MQTT.
func (m *Mirror) Broadcast(channel string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("event mirror: marshalling payload", "channel", channel, "error", err)
		return
	}

	topic := mqtt.Topics{}.Event(channel)
	if err := m.client.Publish(topic, body, m.qos, false); err != nil {
		m.logger.Warn("event mirror: publish failed", "topic", topic, "error", err)
	}
}
