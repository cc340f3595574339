package mqtt

import "fmt"

// Topic prefixes for the SkyLink MQTT hierarchy.
const (
	// TopicPrefix is the root of every topic the core owns.
	TopicPrefix = "skylink"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "skylink/system"

	// DefaultLinkPrefix is the default base for device link topics.
	DefaultLinkPrefix = "skylink/link"
)

// Topics provides builders for the plugin-facing topics published and
// consumed by the core.
//
//	topic := mqtt.Topics{}.Event("shot_received")
//	// Returns: "skylink/event/shot_received"
type Topics struct{}

// Event returns the topic a bus event kind is published on.
//
// Example: skylink/event/armed
func (Topics) Event(kind string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, kind)
}

// AllEvents returns a wildcard for every event topic.
func (Topics) AllEvents() string {
	return TopicPrefix + "/event/+"
}

// Status returns the retained monitor status topic.
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// Command returns the topic plugins send an action on.
//
// Example: skylink/command/set_mode
func (Topics) Command(action string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, action)
}

// AllCommands returns a wildcard for every plugin command.
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// Response returns the topic a command result is published on.
//
// Example: skylink/response/5f0c...
func (Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefix, requestID)
}

// PluginAnnounce returns the topic a plugin announces itself on.
//
// Example: skylink/plugin/overlay/announce
func (Topics) PluginAnnounce(name string) string {
	return fmt.Sprintf("%s/plugin/%s/announce", TopicPrefix, name)
}

// AllPluginAnnouncements returns a wildcard for every plugin announcement.
func (Topics) AllPluginAnnouncements() string {
	return TopicPrefix + "/plugin/+/announce"
}

// SystemStatus returns the core online/offline status topic (retained, LWT).
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// LinkTopics builds the device link topics under a configurable prefix.
//
//	lt := mqtt.LinkTopics{Prefix: "skylink/link"}
//	lt.Command("arm") // "skylink/link/command/arm"
type LinkTopics struct {
	Prefix string
}

func (l LinkTopics) prefix() string {
	if l.Prefix == "" {
		return DefaultLinkPrefix
	}
	return l.Prefix
}

// Command returns the topic a link command is sent on.
func (l LinkTopics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", l.prefix(), name)
}

// Ack returns the topic the link acknowledges a command on.
func (l LinkTopics) Ack(commandID string) string {
	return fmt.Sprintf("%s/ack/%s", l.prefix(), commandID)
}

// AllAcks returns a wildcard for every command acknowledgement.
func (l LinkTopics) AllAcks() string {
	return l.prefix() + "/ack/+"
}

// Signal returns the topic the link reports a signal on.
func (l LinkTopics) Signal(name string) string {
	return fmt.Sprintf("%s/signal/%s", l.prefix(), name)
}

// AllSignals returns a wildcard for every link signal.
func (l LinkTopics) AllSignals() string {
	return l.prefix() + "/signal/+"
}

// Health returns the retained link health topic.
func (l LinkTopics) Health() string {
	return l.prefix() + "/health"
}

// LastSegment returns the part of topic after the final slash.
func LastSegment(topic string) string {
	for i := len(topic) - 1; i >= 0; i-- {
		if topic[i] == '/' {
			return topic[i+1:]
		}
	}
	return topic
}
