// Package monitor is the launch monitor control core.
//
// It tracks connection, readiness and armed state, mediates shot mode and
// handedness switches, classifies incoming shots by confidence, and
// publishes state changes and accepted shots on a typed event bus.
//
// # Components
//
//   - Bus: one eventbus.Topic per event kind
//   - ConnectionTracker: deduplicates connect, disconnect and ready signals
//   - ArmController: wraps the link's arm and disarm primitives
//   - ModeController: disarm, change, optional link refresh, restore armed state
//   - ShotClassifier: decode, score, accept or reject, cache the last shot
//   - Monitor: owns the single State and serialises every operation
//
// # Device link
//
// The core only talks to the device through DeviceLink. Every primitive may
// fail; a failure is logged and treated as the operation not having
// happened. Nothing in this package retries on its own, except that a
// rejected shot re-arms a device that was armed when the shot arrived.
//
// # Shot acceptance
//
// A shot without ball speed is always rejected. In putting mode the score is
// a bucket of the two launch angle confidences. In normal mode it is the
// average of club, launch and spin scores. The configured ConfidenceMode
// picks the threshold the score must meet.
//
// # Usage
//
//	m, err := monitor.New(monitor.Options{
//	    Link:                   link,
//	    Logger:                 logger,
//	    Confidence:             monitor.ConfidenceNormal,
//	    RefreshAfterModeSwitch: true,
//	    RefreshDelay:           monitor.DefaultRefreshDelay,
//	})
//	m.Bus().ShotReceived.Subscribe(func(e monitor.ShotEvent) { ... })
//	_ = m.Load(ctx)
package monitor
