package monitor

import (
	"context"
	"fmt"
	"time"
)

// ShotClassifier scores incoming shots and caches the last accepted one.
type ShotClassifier struct {
	state  *State
	link   DeviceLink
	arm    *ArmController
	bus    *Bus
	logger Logger

	confidence ConfidenceMode
	store      ShotStore
	recorder   ClassificationRecorder
	now        func() time.Time
}

// NewShotClassifier creates a classifier over the shared state.
// store and recorder may be nil.
func NewShotClassifier(state *State, link DeviceLink, arm *ArmController, bus *Bus, logger Logger, confidence ConfidenceMode, store ShotStore, recorder ClassificationRecorder) *ShotClassifier {
	if logger == nil {
		logger = noopLogger{}
	}
	if confidence == "" {
		confidence = ConfidenceNormal
	}
	return &ShotClassifier{
		state:      state,
		link:       link,
		arm:        arm,
		bus:        bus,
		logger:     logger,
		confidence: confidence,
		store:      store,
		recorder:   recorder,
		now:        time.Now,
	}
}

// ReceiveRawShot processes one shot reported by the device.
//
// The device is disarmed while the shot is processed. An accepted shot
// replaces the cached last shot and is published; a rejected or undecodable
// shot re-arms the device if it was armed when the shot arrived. Cancelling
// ctx does not interrupt processing or the re-arm.
func (c *ShotClassifier) ReceiveRawShot(ctx context.Context, payload []byte) (Classification, error) {
	ctx = context.WithoutCancel(ctx)
	wasArmed := c.state.Armed.IsArmed()
	c.arm.Disarm(ctx)

	shot, err := c.link.DecodeShot(payload)
	if err != nil {
		c.logger.Error("dropping undecodable shot", "error", err, "bytes", len(payload))
		c.rearm(ctx, wasArmed)
		return Classification{}, fmt.Errorf("%w: %w", ErrDecodeShot, err)
	}
	if shot.BallPosition == "" {
		shot.BallPosition = BallUnknown
	}
	if shot.CapturedAt.IsZero() {
		shot.CapturedAt = c.now().UTC()
	}

	result := Classify(shot, c.state.Mode, c.confidence)
	if c.recorder != nil {
		if err := c.recorder.RecordClassification(ctx, shot, result); err != nil {
			c.logger.Warn("recording classification failed", "error", err)
		}
	}

	if !result.Accepted {
		c.logRejected(shot, result)
		c.rearm(ctx, wasArmed)
		return result, nil
	}

	c.state.LastShot = shot
	c.state.HasLastShot = true
	c.logger.Info("shot accepted",
		"mode", result.Mode,
		"score", result.Score,
		"ball_speed", shot.Launch.TotalSpeed,
	)

	if c.store != nil {
		if err := c.store.SaveLastShot(ctx, shot); err != nil {
			c.logger.Warn("persisting last shot failed", "error", err)
		}
	}

	c.bus.emitShot(shot, false)
	return result, nil
}

// LastShot returns the most recently accepted shot, or the empty record.
func (c *ShotClassifier) LastShot() (ShotRecord, bool) {
	return c.state.LastShot, c.state.HasLastShot
}

// ReplayLastShot publishes the cached shot again without classifying it.
func (c *ShotClassifier) ReplayLastShot() error {
	if !c.state.HasLastShot {
		return ErrNoLastShot
	}
	c.bus.emitShot(c.state.LastShot, true)
	return nil
}

// restoreLastShot seeds the cache, typically from the ShotStore at startup.
func (c *ShotClassifier) restoreLastShot(shot ShotRecord) {
	c.state.LastShot = shot
	c.state.HasLastShot = true
}

func (c *ShotClassifier) rearm(ctx context.Context, wasArmed bool) {
	if wasArmed {
		c.arm.Arm(ctx)
	}
}

func (c *ShotClassifier) logRejected(shot ShotRecord, result Classification) {
	c.logger.Info("shot rejected",
		"reason", result.Reason,
		"mode", result.Mode,
		"confidence_mode", result.Confidence,
		"score", result.Score,
		"club_score", result.Club,
		"launch_score", result.Launch,
		"spin_score", result.Spin,
		"ball_position", shot.BallPosition,
		"ball_speed", shot.Launch.TotalSpeed,
		"ball_speed_confidence", shot.Launch.TotalSpeedConfidence,
		"launch_angle", shot.Launch.LaunchAngle,
		"launch_angle_confidence", shot.Launch.LaunchAngleConfidence,
		"horizontal_angle", shot.Launch.HorizontalAngle,
		"horizontal_angle_confidence", shot.Launch.HorizontalAngleConfidence,
		"club_speed", shot.Club.HeadSpeed,
		"club_speed_confidence", shot.Club.HeadSpeedConfidence,
		"backspin", shot.Spin.Backspin,
		"sidespin", shot.Spin.SideSpin,
		"total_spin", shot.Spin.TotalSpin,
		"spin_axis", shot.Spin.SpinAxis,
		"spin_confidence", shot.Spin.MeasurementConfidence,
	)
}
