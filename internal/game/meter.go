package game

// Success meter bounds. A round starts at MeterStart; the meter saturates at
// the bounds before status is derived, so an overshoot past 100 still wins.
const (
	MeterMin   = 0
	MeterMax   = 100
	MeterStart = 20

	// LossThreshold is inclusive: a meter of exactly 5 loses.
	LossThreshold = 5
)

type Status string

const (
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
)

// ApplyDelta clamps the new meter into [MeterMin, MeterMax].
func ApplyDelta(meter, delta int) int {
	m := meter + delta
	if m < MeterMin {
		return MeterMin
	}
	if m > MeterMax {
		return MeterMax
	}
	return m
}

// DeriveStatus resolves the meter into a game status. Clamping happens before
// this is called; the >= / <= comparisons keep it total for any input anyway.
func DeriveStatus(meter int) Status {
	if meter >= MeterMax {
		return StatusWon
	}
	if meter <= LossThreshold {
		return StatusLost
	}
	return StatusActive
}
