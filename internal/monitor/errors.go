package monitor

import "errors"

// Domain errors for the monitor package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, monitor.ErrNoLastShot) {
//	    // nothing to replay yet
//	}
var (
	// ErrLinkRequired is returned by New when no device link is supplied.
	ErrLinkRequired = errors.New("monitor: device link is required")

	// ErrInvalidMode is returned when a shot mode value is not recognised.
	ErrInvalidMode = errors.New("monitor: invalid shot mode")

	// ErrInvalidHandedness is returned when a handedness value is not recognised.
	ErrInvalidHandedness = errors.New("monitor: invalid handedness")

	// ErrInvalidConfidenceMode is returned when a confidence mode is not recognised.
	ErrInvalidConfidenceMode = errors.New("monitor: invalid confidence mode")

	// ErrDecodeShot is returned when a raw shot payload cannot be decoded at all.
	ErrDecodeShot = errors.New("monitor: cannot decode shot payload")

	// ErrNoLastShot is returned when a replay is requested before any shot was accepted.
	ErrNoLastShot = errors.New("monitor: no accepted shot yet")
)
