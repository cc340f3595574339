package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/skylink-core/internal/monitor"
)

// Measurement names.
const (
	MeasurementShot        = "shot"
	MeasurementStatusEvent = "status_event"
)

// RecordClassification writes one shot point. It implements
// monitor.ClassificationRecorder; the write itself is asynchronous, so the
// returned error only reports a disconnected client.
func (c *Client) RecordClassification(_ context.Context, shot monitor.ShotRecord, cl monitor.Classification) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.writeAPI.WritePoint(shotPoint(c.site, shot, cl))
	return nil
}

// WriteStatusEvent records a bus status transition such as "armed".
func (c *Client) WriteStatusEvent(kind string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statusPoint(c.site, kind, at))
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

// shotPoint builds the point for one classified shot. Mode, confidence
// setting, ball position and outcome are tags; measurements are fields.
func shotPoint(site string, shot monitor.ShotRecord, cl monitor.Classification) *write.Point {
	ts := shot.CapturedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	outcome := "rejected"
	if cl.Accepted {
		outcome = "accepted"
	}

	tags := map[string]string{
		"site":            site,
		"mode":            string(cl.Mode),
		"confidence_mode": string(cl.Confidence),
		"ball_position":   string(shot.BallPosition),
		"outcome":         outcome,
	}
	fields := map[string]any{
		"score":            cl.Score,
		"club_score":       cl.Club,
		"launch_score":     cl.Launch,
		"spin_score":       cl.Spin,
		"club_speed":       shot.Club.HeadSpeed,
		"ball_speed":       shot.Launch.TotalSpeed,
		"launch_angle":     shot.Launch.LaunchAngle,
		"horizontal_angle": shot.Launch.HorizontalAngle,
		"backspin":         shot.Spin.Backspin,
		"sidespin":         shot.Spin.SideSpin,
		"total_spin":       shot.Spin.TotalSpin,
		"spin_axis":        shot.Spin.SpinAxis,
	}
	if cl.Reason != "" {
		fields["reason"] = cl.Reason
	}
	return write.NewPoint(MeasurementShot, tags, fields, ts)
}

func statusPoint(site, kind string, at time.Time) *write.Point {
	return write.NewPoint(MeasurementStatusEvent,
		map[string]string{"site": site, "event": kind},
		map[string]any{"count": 1},
		at,
	)
}
