package game

import "testing"

func TestAdvance(t *testing.T) {
	cases := []struct {
		name    string
		current int
		delta   int
		want    int
	}{
		{name: "negative_breaks", current: 3, delta: -1, want: 0},
		{name: "strong_advances", current: 1, delta: 3, want: 2},
		{name: "capped_at_max", current: 4, delta: 3, want: 5},
		{name: "max_holds_at_max", current: 5, delta: 8, want: 5},
		{name: "weak_positive_holds", current: 2, delta: 1, want: 2},
		{name: "zero_holds", current: 2, delta: 0, want: 2},
		{name: "from_zero", current: 0, delta: 5, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Advance(tc.current, tc.delta)
			if got != tc.want {
				t.Fatalf("Advance(%d, %d)=%d, want %d", tc.current, tc.delta, got, tc.want)
			}
		})
	}
}

func TestMultiplierTable(t *testing.T) {
	want := []float64{1.0, 1.2, 1.4, 1.6, 1.8, 2.0}
	for level, m := range want {
		if got := Multiplier(level); got != m {
			t.Fatalf("Multiplier(%d)=%v, want %v", level, got, m)
		}
	}
	if got := Multiplier(-1); got != 1.0 {
		t.Fatalf("Multiplier(-1)=%v, want 1.0", got)
	}
	if got := Multiplier(9); got != 2.0 {
		t.Fatalf("Multiplier(9)=%v, want 2.0", got)
	}
}

func TestAmplify(t *testing.T) {
	cases := []struct {
		name  string
		delta int
		level int
		want  int
	}{
		{name: "no_combo_passthrough", delta: 5, level: 0, want: 5},
		{name: "floors_fraction", delta: 5, level: 1, want: 6},
		{name: "capped_at_fourteen", delta: 8, level: 5, want: 14},
		{name: "under_cap", delta: 7, level: 2, want: 9},
		{name: "negative_never_amplified", delta: -6, level: 5, want: -6},
		{name: "zero_never_amplified", delta: 0, level: 5, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Amplify(tc.delta, tc.level)
			if got != tc.want {
				t.Fatalf("Amplify(%d, %d)=%d, want %d", tc.delta, tc.level, got, tc.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if got := Label(5); got != "ON FIRE!" {
		t.Fatalf("Label(5)=%q, want ON FIRE!", got)
	}
	if got := Label(0); got != "" {
		t.Fatalf("Label(0)=%q, want empty", got)
	}
	if got := Label(99); got != "ON FIRE!" {
		t.Fatalf("Label(99)=%q, want ON FIRE!", got)
	}
}
