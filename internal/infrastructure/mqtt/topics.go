package mqtt

import "fmt"

// Topic prefixes for the Slate event mirror.
//
// Core publishes its live events (schedule edits, batch action progress)
// under slate/event so classroom wall displays and other listeners can
// follow along without holding a WebSocket to the API.
const (
	// TopicPrefix is the base for all Slate topics.
	TopicPrefix = "slate"

	// TopicPrefixEvent is the base for mirrored core events.
	TopicPrefixEvent = "slate/event"

	// TopicPrefixDisplay is the base for wall display topics.
	TopicPrefixDisplay = "slate/display"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "slate/system"
)

// Topics provides builders for Slate MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// Event returns the topic an event channel is mirrored to.
//
// Example: slate/event/schedule.updated
func (Topics) Event(channel string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, channel)
}

// DisplayStatus returns the status topic for one wall display.
//
// Example: slate/display/room-3b/status
func (Topics) DisplayStatus(displayID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixDisplay, displayID)
}

// AllDisplayStatus returns a pattern matching every display's status.
//
// Pattern: slate/display/+/status
func (Topics) AllDisplayStatus() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixDisplay)
}

// SystemStatus returns the system status topic carrying the core's
// online/offline state (retained, with LWT on unexpected disconnect).
//
// Example: slate/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEvents returns a pattern matching every mirrored event.
//
// Pattern: slate/event/#
func (Topics) AllEvents() string {
	return TopicPrefixEvent + "/#"
}

// AllTopics returns a pattern matching all Slate topics.
// Use with caution, this receives ALL traffic.
//
// Pattern: slate/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
