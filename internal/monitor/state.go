package monitor

// State is the single owned copy of the monitor's device state.
// One instance is created per Monitor and shared by reference with each
// controller. It has no locking of its own; the Monitor serialises access.
type State struct {
	Connected   bool
	Ready       bool
	Armed       ArmState
	Mode        ShotMode
	Handedness  Handedness
	LastShot    ShotRecord
	HasLastShot bool
}

// NewState returns the cold-start state.
func NewState(handedness Handedness) *State {
	if handedness == "" {
		handedness = RightHanded
	}
	return &State{
		Armed:      ArmUnknown,
		Mode:       ModeNormal,
		Handedness: handedness,
	}
}
