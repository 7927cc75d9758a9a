package game

import "math"

// Level bounds for the progression curve.
const (
	LevelMin = 1
	LevelMax = 99
)

// XPForLevel returns the total XP required to reach level l. The curve is the
// classic floor(sum(floor(i + 300*2^(i/7)))/4) shape: early levels come fast,
// late ones crawl. Level 1 (and anything below it) costs nothing.
func XPForLevel(l int) int {
	if l <= LevelMin {
		return 0
	}
	if l > LevelMax {
		l = LevelMax
	}
	points := 0.0
	for i := 1; i < l; i++ {
		points += math.Floor(float64(i) + 300*math.Pow(2, float64(i)/7))
	}
	return int(math.Floor(points / 4))
}

// LevelForXP is the inverse lookup: the highest level whose requirement does
// not exceed xp. Binary search over the monotonic curve; clamps to 99.
func LevelForXP(xp int) int {
	if xp <= 0 {
		return LevelMin
	}
	if xp >= XPForLevel(LevelMax) {
		return LevelMax
	}
	lo, hi := LevelMin, LevelMax
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if XPForLevel(mid) <= xp {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// MessageXP awards XP for one scored message. Non-positive deltas earn
// nothing; positive deltas pay a tiered base scaled gently by level.
func MessageXP(delta, level int) int {
	if delta <= 0 {
		return 0
	}
	var base int
	switch {
	case delta <= 2:
		base = 2
	case delta <= 4:
		base = 4
	case delta <= 6:
		base = 7
	default:
		base = 12
	}
	return int(math.Floor(float64(base) * math.Pow(float64(clampLevel(level)), 0.15)))
}

// WinXP is the flat bonus for closing a round with a win.
func WinXP(level int) int {
	return int(math.Floor(50 * math.Pow(float64(clampLevel(level)), 0.25)))
}

// StreakMultiplier scales the round total by consecutive wins: +10% per win,
// capped at 2.0 from ten wins on.
func StreakMultiplier(streak int) float64 {
	if streak <= 0 {
		return 1.0
	}
	if streak >= 10 {
		return 2.0
	}
	return float64(10+streak) / 10
}

// XPBreakdown itemizes the XP earned for one completed round.
type XPBreakdown struct {
	MessageXP        int     `json:"message_xp"`
	WinXP            int     `json:"win_xp"`
	StreakMultiplier float64 `json:"streak_multiplier"`
	Total            int     `json:"total"`
}

// RoundXP computes the total XP for a round. The streak multiplier applies to
// the round total only, never to individual messages.
func RoundXP(deltas []int, won bool, streak, level int) XPBreakdown {
	msgSum := 0
	for _, d := range deltas {
		msgSum += MessageXP(d, level)
	}
	winXP := 0
	if won {
		winXP = WinXP(level)
	}
	mult := StreakMultiplier(streak)
	return XPBreakdown{
		MessageXP:        msgSum,
		WinXP:            winXP,
		StreakMultiplier: mult,
		Total:            int(math.Floor(float64(msgSum+winXP) * mult)),
	}
}

func clampLevel(level int) int {
	if level < LevelMin {
		return LevelMin
	}
	if level > LevelMax {
		return LevelMax
	}
	return level
}
