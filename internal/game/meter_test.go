package game

import "testing"

func TestApplyDeltaClamps(t *testing.T) {
	cases := []struct {
		name  string
		meter int
		delta int
		want  int
	}{
		{name: "overshoot_saturates_high", meter: 95, delta: 8, want: 100},
		{name: "undershoot_saturates_low", meter: 3, delta: -8, want: 0},
		{name: "plain_addition", meter: 20, delta: 5, want: 25},
		{name: "exact_top", meter: 92, delta: 8, want: 100},
		{name: "exact_bottom", meter: 8, delta: -8, want: 0},
		{name: "zero_delta", meter: 50, delta: 0, want: 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplyDelta(tc.meter, tc.delta)
			if got != tc.want {
				t.Fatalf("ApplyDelta(%d, %d)=%d, want %d", tc.meter, tc.delta, got, tc.want)
			}
			if got < MeterMin || got > MeterMax {
				t.Fatalf("ApplyDelta(%d, %d)=%d escaped [0,100]", tc.meter, tc.delta, got)
			}
		})
	}
}

func TestDeriveStatusBoundaries(t *testing.T) {
	cases := []struct {
		meter int
		want  Status
	}{
		{meter: 100, want: StatusWon},
		{meter: 101, want: StatusWon},
		{meter: 99, want: StatusActive},
		{meter: 6, want: StatusActive},
		{meter: 5, want: StatusLost},
		{meter: 0, want: StatusLost},
	}
	for _, tc := range cases {
		if got := DeriveStatus(tc.meter); got != tc.want {
			t.Fatalf("DeriveStatus(%d)=%q, want %q", tc.meter, got, tc.want)
		}
	}
}

func TestWinningScenarioResolvesOnFirstFull(t *testing.T) {
	meter := MeterStart
	deltas := []int{5, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7}
	wonAt := -1
	for i, d := range deltas {
		meter = ApplyDelta(meter, d)
		if DeriveStatus(meter) == StatusWon {
			wonAt = i
			break
		}
	}
	if wonAt == -1 {
		t.Fatalf("never won; final meter %d", meter)
	}
	if meter != 100 {
		t.Fatalf("winning meter=%d, want 100", meter)
	}
	// 20+5=25, then +7 each turn: 95 after ten +7s, 100 (clamped 102) on the eleventh.
	if wonAt != 11 {
		t.Fatalf("won on turn %d, want 11", wonAt)
	}
}

func TestLosingScenarioResolvesAtThreshold(t *testing.T) {
	meter := 30
	deltas := []int{-4, -5, -8, -8, -8, -8}
	lostAt := -1
	for i, d := range deltas {
		meter = ApplyDelta(meter, d)
		if DeriveStatus(meter) == StatusLost {
			lostAt = i
			break
		}
	}
	// 30-4=26, 21, 13, then 5: the loss fires the first turn the meter
	// crosses the threshold, not at the end of the sequence.
	if lostAt != 3 {
		t.Fatalf("lost on turn %d (meter %d), want turn 3", lostAt, meter)
	}
	if meter != 5 {
		t.Fatalf("losing meter=%d, want 5", meter)
	}
}
