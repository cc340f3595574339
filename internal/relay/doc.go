// Package relay exposes the launch monitor to plugins over MQTT.
//
// Outbound, every bus event is published on skylink/event/{kind} and the
// monitor status is kept retained on skylink/status. Inbound, plugins send
// actions on skylink/command/{action} and receive the outcome on
// skylink/response/{id}; a message on skylink/plugin/{name}/announce
// publishes plugin-loaded on the bus.
//
// Bus handlers run while the monitor holds its lock and MQTT callbacks run
// on the client's single router goroutine, so neither does any work
// directly. Both enqueue a job for the relay's worker goroutine, which runs
// jobs one at a time in arrival order.
package relay
