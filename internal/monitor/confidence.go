package monitor

// Rejection reasons reported in Classification.Reason.
const (
	ReasonNoBallSpeed   = "no ball speed"
	ReasonLowConfidence = "confidence below threshold"
)

// Classification is the outcome of scoring one shot.
// Club, Launch and Spin are only populated in normal mode.
type Classification struct {
	Mode       ShotMode       `json:"mode"`
	Confidence ConfidenceMode `json:"confidence_mode"`
	Club       float64        `json:"club"`
	Launch     float64        `json:"launch"`
	Spin       float64        `json:"spin"`
	Score      float64        `json:"score"`
	Accepted   bool           `json:"accepted"`
	Reason     string         `json:"reason,omitempty"`
}

// Classify scores shot for the given mode and decides whether it is
// accepted under level. A shot with no ball speed is always rejected.
func Classify(shot ShotRecord, mode ShotMode, level ConfidenceMode) Classification {
	c := Classification{Mode: mode, Confidence: level}

	if shot.Launch.TotalSpeed == 0 {
		c.Reason = ReasonNoBallSpeed
		return c
	}

	if mode == ModePutting {
		c.Score = puttingScore(shot.Launch)
		c.Accepted = puttingAccepted(c.Score, level)
	} else {
		c.Club = clubScore(shot.Club)
		c.Launch = launchScore(shot.Launch)
		c.Spin = spinScore(shot.Spin)
		c.Score = (c.Club + c.Launch + c.Spin) / 3
		c.Accepted = normalAccepted(c.Score, level)
	}

	if !c.Accepted {
		c.Reason = ReasonLowConfidence
	}
	return c
}

// puttingScore buckets the two angle confidences.
func puttingScore(l LaunchData) float64 {
	la, ha := l.LaunchAngleConfidence, l.HorizontalAngleConfidence
	switch {
	case la == 0 && ha == 0:
		return 0
	case la == 0 || ha == 0:
		return 0.25
	case la < 1 || ha < 1:
		return 0.5
	case la == 1 && ha == 1:
		return 1
	default:
		return 0
	}
}

func puttingAccepted(score float64, level ConfidenceMode) bool {
	switch level {
	case ConfidenceForgiving:
		return score >= 0.5
	case ConfidenceStrict:
		return score > 0
	default:
		return score >= 0.25
	}
}

func clubScore(c ClubData) float64 {
	speed, conf := c.HeadSpeed, c.HeadSpeedConfidence
	switch {
	case speed == 0 || conf == 0:
		return 0
	case conf > 0 && conf < 1:
		return 0.5
	case speed > 0 && conf > 0.5:
		return 1
	default:
		return 0
	}
}

func launchScore(l LaunchData) float64 {
	lac, hac := l.LaunchAngleConfidence, l.HorizontalAngleConfidence
	switch {
	case (l.LaunchAngle == 0 || l.HorizontalAngle == 0) && (lac == 0 || hac == 0):
		return 0
	case (lac < 1 || hac < 1) && lac > 0 && hac > 0:
		return 0.5
	case lac == 1 && hac == 1:
		return 1
	default:
		return 0
	}
}

func spinScore(s SpinData) float64 {
	mc := s.MeasurementConfidence
	switch {
	case s.TotalSpin == 0 && mc < 0.5:
		return 0
	case mc > 0 && mc < 1:
		return 0.5
	case mc == 1:
		return 1
	default:
		return 0
	}
}

func normalAccepted(score float64, level ConfidenceMode) bool {
	switch level {
	case ConfidenceForgiving:
		return score >= 0.75
	case ConfidenceStrict:
		return score > 0
	default:
		return score >= 0.25
	}
}
