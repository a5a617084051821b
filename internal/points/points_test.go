package points

import "testing"

func TestForAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		perUnit int64
		want    int64
	}{
		{name: "exact multiple", amount: 520000, perUnit: 1000, want: 520},
		{name: "rounds down", amount: 1999, perUnit: 1000, want: 1},
		{name: "below one unit", amount: 999, perUnit: 1000, want: 0},
		{name: "zero amount", amount: 0, perUnit: 1000, want: 0},
		{name: "negative amount", amount: -5000, perUnit: 1000, want: 0},
		{name: "zero per unit", amount: 5000, perUnit: 0, want: 0},
		{name: "negative per unit", amount: 5000, perUnit: -10, want: 0},
		{name: "one unit per point", amount: 42, perUnit: 1, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForAmount(tt.amount, tt.perUnit); got != tt.want {
				t.Fatalf("ForAmount(%d, %d) = %d, want %d", tt.amount, tt.perUnit, got, tt.want)
			}
		})
	}
}
