package devicelink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/skylink-core/internal/monitor"
)

// shotPayload is the flat shot report published by the link bridge on
// {prefix}/signal/shot. Every field is optional, and a field of the wrong
// type reads as absent rather than spoiling the rest of the shot.
type shotPayload struct {
	BallPosition json.RawMessage `json:"ball_position"`

	ClubSpeed           number `json:"club_speed"`
	ClubSpeedConfidence number `json:"club_speed_confidence"`

	BallSpeed                 number `json:"ball_speed"`
	BallSpeedConfidence       number `json:"ball_speed_confidence"`
	LaunchAngle               number `json:"launch_angle"`
	LaunchAngleConfidence     number `json:"launch_angle_confidence"`
	HorizontalAngle           number `json:"horizontal_angle"`
	HorizontalAngleConfidence number `json:"horizontal_angle_confidence"`

	Backspin       number `json:"backspin"`
	Sidespin       number `json:"sidespin"`
	TotalSpin      number `json:"total_spin"`
	SpinAxis       number `json:"spin_axis"`
	SpinConfidence number `json:"spin_confidence"`

	Timestamp json.RawMessage `json:"timestamp"`
}

// number is a float64 that decodes leniently: JSON numbers and numeric
// strings are read, anything else leaves it at zero.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = number(f)
			return nil
		}
	}
	*n = 0
	return nil
}

// vendorBallPositions maps the device library's numeric ball position codes.
var vendorBallPositions = map[int]monitor.BallPosition{
	0: monitor.BallOK,
	1: monitor.BallNear,
	2: monitor.BallFar,
	3: monitor.BallUnknown,
}

// DecodeShot maps a raw shot report to a monitor.ShotRecord.
// Missing numbers are zero and a missing or unrecognised ball position is
// BallUnknown. Only a payload that is not a JSON object is an error.
func (l *Link) DecodeShot(payload []byte) (monitor.ShotRecord, error) {
	return decodeShot(payload)
}

func decodeShot(payload []byte) (monitor.ShotRecord, error) {
	var p shotPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return monitor.ShotRecord{}, fmt.Errorf("%w: shot: %w", ErrInvalidMessage, err)
	}

	shot := monitor.ShotRecord{
		BallPosition: parseBallPosition(p.BallPosition),
		Club: monitor.ClubData{
			HeadSpeed:           float64(p.ClubSpeed),
			HeadSpeedConfidence: float64(p.ClubSpeedConfidence),
		},
		Launch: monitor.LaunchData{
			HorizontalAngle:           float64(p.HorizontalAngle),
			HorizontalAngleConfidence: float64(p.HorizontalAngleConfidence),
			LaunchAngle:               float64(p.LaunchAngle),
			LaunchAngleConfidence:     float64(p.LaunchAngleConfidence),
			TotalSpeed:                float64(p.BallSpeed),
			TotalSpeedConfidence:      float64(p.BallSpeedConfidence),
		},
		Spin: monitor.SpinData{
			Backspin:              float64(p.Backspin),
			SideSpin:              float64(p.Sidespin),
			TotalSpin:             float64(p.TotalSpin),
			SpinAxis:              float64(p.SpinAxis),
			MeasurementConfidence: float64(p.SpinConfidence),
		},
	}
	var ts time.Time
	if len(p.Timestamp) > 0 && json.Unmarshal(p.Timestamp, &ts) == nil {
		shot.CapturedAt = ts.UTC()
	}
	return shot, nil
}

// parseBallPosition accepts either the vendor code or a name.
func parseBallPosition(raw json.RawMessage) monitor.BallPosition {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return monitor.BallUnknown
	}

	var code int
	if err := json.Unmarshal(raw, &code); err == nil {
		if pos, ok := vendorBallPositions[code]; ok {
			return pos
		}
		return monitor.BallUnknown
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		switch pos := monitor.BallPosition(strings.ToLower(name)); pos {
		case monitor.BallOK, monitor.BallNear, monitor.BallFar:
			return pos
		}
	}
	return monitor.BallUnknown
}
