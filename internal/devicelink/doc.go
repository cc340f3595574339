// Package devicelink connects the launch monitor core to the device over MQTT.
//
// A small bridge process next to the device runtime owns the vendor library.
// It receives commands on {prefix}/command/{name}, answers each one on
// {prefix}/ack/{id}, and reports device activity on {prefix}/signal/{name}.
//
// # Commands
//
// Every monitor.DeviceLink primitive publishes a CommandMessage with a fresh
// UUID and blocks until the matching AckMessage arrives, the command timeout
// elapses, or the context is cancelled. A "failed" ack is returned as
// ErrCommandRejected.
//
// # Signals
//
// Signals are parsed on the MQTT callback goroutine, queued, and handed to the
// SignalHandler one at a time in arrival order. Handlers are free to issue
// commands because acks are delivered on a different goroutine.
//
// # Health
//
// HealthReporter publishes a retained HealthMessage on {prefix}/health.
package devicelink
