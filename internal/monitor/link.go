package monitor

import (
	"context"
	"errors"
)

// DeviceLink is the narrow contract with the launch monitor link.
//
// Every primitive may fail. Callers in this package treat a failure as the
// operation not having happened.
type DeviceLink interface {
	Arm(ctx context.Context) error
	Disarm(ctx context.Context) error
	SetMode(ctx context.Context, mode ShotMode) error
	SetHandedness(ctx context.Context, h Handedness) error
	PauseLink(ctx context.Context, paused bool) error
	SoftResetNetwork(ctx context.Context) error

	// DecodeShot maps a raw shot payload to a ShotRecord. Fields the payload
	// does not carry are left at zero, with BallPosition set to BallUnknown.
	DecodeShot(payload []byte) (ShotRecord, error)
}

// HandednessReader is implemented by links that can report the handedness
// currently configured on the device.
type HandednessReader interface {
	ReadHandedness(ctx context.Context) (Handedness, error)
}

// ShotStore keeps the most recent accepted shot across restarts.
type ShotStore interface {
	SaveLastShot(ctx context.Context, shot ShotRecord) error
	LoadLastShot(ctx context.Context) (ShotRecord, bool, error)
}

// ClassificationRecorder receives the outcome of every classified shot,
// accepted or not. Errors are logged and otherwise ignored.
type ClassificationRecorder interface {
	RecordClassification(ctx context.Context, shot ShotRecord, c Classification) error
}

// Recorders fans a classification out to several recorders. Every recorder
// is called; the errors are joined.
type Recorders []ClassificationRecorder

// RecordClassification implements ClassificationRecorder.
func (rs Recorders) RecordClassification(ctx context.Context, shot ShotRecord, c Classification) error {
	var errs []error
	for _, r := range rs {
		if err := r.RecordClassification(ctx, shot, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logger defines the logging interface used by the monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
