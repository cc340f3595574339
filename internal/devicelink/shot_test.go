package devicelink

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/skylink-core/internal/monitor"
)

func TestDecodeShotFullPayload(t *testing.T) {
	payload := []byte(`{
		"ball_position": "ok",
		"club_speed": 101.5, "club_speed_confidence": 0.9,
		"ball_speed": 150.2, "ball_speed_confidence": 0.95,
		"launch_angle": 12.1, "launch_angle_confidence": 0.8,
		"horizontal_angle": -1.5, "horizontal_angle_confidence": 0.7,
		"backspin": 2600, "sidespin": -300, "total_spin": 2617,
		"spin_axis": -6.5, "spin_confidence": 0.6,
		"timestamp": "2026-10-16T09:30:00Z"
	}`)

	shot, err := decodeShot(payload)
	if err != nil {
		t.Fatalf("decodeShot() error = %v", err)
	}

	want := monitor.ShotRecord{
		BallPosition: monitor.BallOK,
		Club:         monitor.ClubData{HeadSpeed: 101.5, HeadSpeedConfidence: 0.9},
		Launch: monitor.LaunchData{
			HorizontalAngle:           -1.5,
			HorizontalAngleConfidence: 0.7,
			LaunchAngle:               12.1,
			LaunchAngleConfidence:     0.8,
			TotalSpeed:                150.2,
			TotalSpeedConfidence:      0.95,
		},
		Spin: monitor.SpinData{
			Backspin:              2600,
			SideSpin:              -300,
			TotalSpin:             2617,
			SpinAxis:              -6.5,
			MeasurementConfidence: 0.6,
		},
	}
	wantAt := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	if !shot.CapturedAt.Equal(wantAt) {
		t.Errorf("CapturedAt = %v, want %v", shot.CapturedAt, wantAt)
	}
	shot.CapturedAt = time.Time{}
	if shot != want {
		t.Errorf("decodeShot() = %+v, want %+v", shot, want)
	}
}

func TestDecodeShotDefaults(t *testing.T) {
	shot, err := decodeShot([]byte(`{}`))
	if err != nil {
		t.Fatalf("decodeShot() error = %v", err)
	}
	if shot.BallPosition != monitor.BallUnknown {
		t.Errorf("BallPosition = %q, want unknown", shot.BallPosition)
	}
	if shot.Launch.TotalSpeed != 0 || shot.Spin.TotalSpin != 0 {
		t.Errorf("numeric fields should default to zero: %+v", shot)
	}
	if !shot.CapturedAt.IsZero() {
		t.Errorf("CapturedAt = %v, want zero", shot.CapturedAt)
	}
}

func TestDecodeShotBallPosition(t *testing.T) {
	tests := []struct {
		raw  string
		want monitor.BallPosition
	}{
		{`0`, monitor.BallOK},
		{`1`, monitor.BallNear},
		{`2`, monitor.BallFar},
		{`3`, monitor.BallUnknown},
		{`9`, monitor.BallUnknown},
		{`"near"`, monitor.BallNear},
		{`"FAR"`, monitor.BallFar},
		{`"sideways"`, monitor.BallUnknown},
		{`null`, monitor.BallUnknown},
		{`true`, monitor.BallUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			shot, err := decodeShot([]byte(`{"ball_position":` + tt.raw + `}`))
			if err != nil {
				t.Fatalf("decodeShot() error = %v", err)
			}
			if shot.BallPosition != tt.want {
				t.Errorf("BallPosition = %q, want %q", shot.BallPosition, tt.want)
			}
		})
	}
}

func TestDecodeShotInvalid(t *testing.T) {
	for _, payload := range []string{"", "not json", "[1,2]"} {
		if _, err := decodeShot([]byte(payload)); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("decodeShot(%q) error = %v, want ErrInvalidMessage", payload, err)
		}
	}
}

func TestDecodeShotBadFieldFallsBackToZero(t *testing.T) {
	payload := `{
		"ball_position": 0,
		"club_speed": "n/a",
		"club_speed_confidence": {"x": 1},
		"ball_speed": 71.5,
		"ball_speed_confidence": "0.9",
		"launch_angle": [12],
		"total_spin": null,
		"timestamp": "yesterday"
	}`

	shot, err := decodeShot([]byte(payload))
	if err != nil {
		t.Fatalf("decodeShot() error = %v", err)
	}
	if shot.Launch.TotalSpeed != 71.5 {
		t.Errorf("TotalSpeed = %v, want 71.5", shot.Launch.TotalSpeed)
	}
	if shot.Launch.TotalSpeedConfidence != 0.9 {
		t.Errorf("TotalSpeedConfidence = %v, want 0.9 from numeric string", shot.Launch.TotalSpeedConfidence)
	}
	if shot.Club.HeadSpeed != 0 || shot.Club.HeadSpeedConfidence != 0 || shot.Launch.LaunchAngle != 0 || shot.Spin.TotalSpin != 0 {
		t.Errorf("malformed fields should read as zero: %+v", shot)
	}
	if shot.BallPosition != monitor.BallOK {
		t.Errorf("BallPosition = %q, want ok", shot.BallPosition)
	}
	if !shot.CapturedAt.IsZero() {
		t.Errorf("CapturedAt = %v, want zero for unparsable timestamp", shot.CapturedAt)
	}
}
