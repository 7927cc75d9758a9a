package game

// Combo streak counter. Consecutive strong messages (delta >= ComboAdvanceMin)
// climb the counter; any negative delta breaks it; small positives hold.
const (
	ComboMax        = 5
	ComboAdvanceMin = 3

	// AmplifiedDeltaCap bounds an amplified delta regardless of combo level.
	AmplifiedDeltaCap = 14
)

var comboMultipliers = [ComboMax + 1]float64{1.0, 1.2, 1.4, 1.6, 1.8, 2.0}

var comboLabels = [ComboMax + 1]string{"", "Warming up", "In sync", "Vibing", "Magnetic", "ON FIRE!"}

// Advance returns the next combo level after a message with the given delta.
func Advance(current, delta int) int {
	if current < 0 {
		current = 0
	}
	if current > ComboMax {
		current = ComboMax
	}
	switch {
	case delta < 0:
		return 0
	case delta >= ComboAdvanceMin:
		if current >= ComboMax {
			return ComboMax
		}
		return current + 1
	default:
		return current
	}
}

func Multiplier(level int) float64 {
	if level < 0 {
		return comboMultipliers[0]
	}
	if level > ComboMax {
		return comboMultipliers[ComboMax]
	}
	return comboMultipliers[level]
}

// Amplify scales a positive delta by the combo multiplier. Non-positive
// deltas are never amplified: a combo softens nothing on the way down.
func Amplify(delta, level int) int {
	if delta <= 0 {
		return delta
	}
	amplified := int(float64(delta) * Multiplier(level))
	if amplified > AmplifiedDeltaCap {
		return AmplifiedDeltaCap
	}
	return amplified
}

// Label is the display string for a combo level. Presentation only.
func Label(level int) string {
	if level <= 0 {
		return comboLabels[0]
	}
	if level > ComboMax {
		return comboLabels[ComboMax]
	}
	return comboLabels[level]
}
