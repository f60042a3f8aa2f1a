// Package mqtt provides MQTT client connectivity for Slate Core.
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
// Slate mirrors its live events (schedule edits, batch action progress,
// bootstrap completion) onto MQTT so classroom wall displays and other
// passive listeners can follow along without holding a WebSocket to the
// API. The core also subscribes to display status topics so it knows
// which wall displays are online.
//
//	Slate Core -> MQTT Broker -> Wall Displays
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Mirror an event
//	topic := mqtt.Topics{}.Event("schedule.updated")
//	client.Publish(topic, []byte(`{"student_id":42}`), 1, false)
//
//	// Watch wall display presence
//	err = client.Subscribe(mqtt.Topics{}.AllDisplayStatus(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("display: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
