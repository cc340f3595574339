package monitor

import (
	"fmt"
	"strings"
	"time"
)

// APIVersion is the version of the plugin-facing surface.
const APIVersion = "1.0"

// SupportedDeviceVersion is the device runtime version the link adapter targets.
const SupportedDeviceVersion = "4.4.7"

// ShotMode is the device operating mode.
type ShotMode string

// Shot mode constants.
const (
	ModeNormal  ShotMode = "normal"
	ModePutting ShotMode = "putting"
)

// ParseShotMode converts a user-supplied string to a ShotMode.
func ParseShotMode(s string) (ShotMode, error) {
	switch m := ShotMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeNormal, ModePutting:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Handedness is the device's left/right calibration.
type Handedness string

// Handedness constants.
const (
	RightHanded Handedness = "right"
	LeftHanded  Handedness = "left"
)

// ParseHandedness converts a user-supplied string to a Handedness.
func ParseHandedness(s string) (Handedness, error) {
	switch h := Handedness(strings.ToLower(strings.TrimSpace(s))); h {
	case RightHanded, LeftHanded:
		return h, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidHandedness, s)
	}
}

// Opposite returns the other handedness.
func (h Handedness) Opposite() Handedness {
	if h == LeftHanded {
		return RightHanded
	}
	return LeftHanded
}

// ConfidenceMode selects how much confidence a shot needs to be accepted.
type ConfidenceMode string

// Confidence mode constants.
const (
	ConfidenceForgiving ConfidenceMode = "forgiving"
	ConfidenceNormal    ConfidenceMode = "normal"
	ConfidenceStrict    ConfidenceMode = "strict"
)

// ParseConfidenceMode converts a configuration value to a ConfidenceMode.
func ParseConfidenceMode(s string) (ConfidenceMode, error) {
	switch c := ConfidenceMode(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceForgiving, ConfidenceNormal, ConfidenceStrict:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidConfidenceMode, s)
	}
}

// ArmState is the device armed flag. It is unknown until the first arm or
// disarm request succeeds.
type ArmState string

// Arm state constants.
const (
	ArmUnknown  ArmState = "unknown"
	ArmArmed    ArmState = "armed"
	ArmDisarmed ArmState = "disarmed"
)

// IsArmed reports whether the device is known to be armed.
func (a ArmState) IsArmed() bool {
	return a == ArmArmed
}

// Known reports whether an arm or disarm has ever succeeded.
func (a ArmState) Known() bool {
	return a == ArmArmed || a == ArmDisarmed
}

// BallPosition is the device's report of where the ball sits in the hitting zone.
type BallPosition string

// Ball position constants.
const (
	BallOK      BallPosition = "ok"
	BallNear    BallPosition = "near"
	BallFar     BallPosition = "far"
	BallUnknown BallPosition = "unknown"
)

// ClubData is the club head measurement.
type ClubData struct {
	HeadSpeed           float64 `json:"head_speed"`
	HeadSpeedConfidence float64 `json:"head_speed_confidence"`
}

// LaunchData is the ball launch measurement.
type LaunchData struct {
	HorizontalAngle           float64 `json:"horizontal_angle"`
	HorizontalAngleConfidence float64 `json:"horizontal_angle_confidence"`
	LaunchAngle               float64 `json:"launch_angle"`
	LaunchAngleConfidence     float64 `json:"launch_angle_confidence"`
	TotalSpeed                float64 `json:"total_speed"`
	TotalSpeedConfidence      float64 `json:"total_speed_confidence"`
}

// SpinData is the ball spin measurement.
type SpinData struct {
	Backspin              float64 `json:"backspin"`
	SideSpin              float64 `json:"side_spin"`
	TotalSpin             float64 `json:"total_spin"`
	SpinAxis              float64 `json:"spin_axis"`
	MeasurementConfidence float64 `json:"measurement_confidence"`
}

// ShotRecord is one captured shot in canonical form.
// Confidences are in [0,1].
type ShotRecord struct {
	BallPosition BallPosition `json:"ball_position"`
	Club         ClubData     `json:"club"`
	Launch       LaunchData   `json:"launch"`
	Spin         SpinData     `json:"spin"`
	CapturedAt   time.Time    `json:"captured_at"`
}

// IsZero reports whether r is the empty record.
func (r ShotRecord) IsZero() bool {
	return r == ShotRecord{}
}

// Status is a point-in-time snapshot of the monitor.
type Status struct {
	Connected   bool       `json:"connected"`
	Ready       bool       `json:"ready"`
	Armed       ArmState   `json:"armed"`
	Mode        ShotMode   `json:"mode"`
	Handedness  Handedness `json:"handedness"`
	HasLastShot bool       `json:"has_last_shot"`
	APIVersion  string     `json:"api_version"`
	Loaded      bool       `json:"loaded"`
}
