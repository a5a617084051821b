package commission

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		rate  string
		want  int64
	}{
		{name: "floor never rounds up", total: 19999, rate: "0.05", want: 999},
		{name: "exact", total: 20000, rate: "0.05", want: 1000},
		{name: "small order", total: 5000, rate: "0.05", want: 250},
		{name: "ten percent", total: 10000, rate: "0.10", want: 1000},
		{name: "zero rate", total: 10000, rate: "0", want: 0},
		{name: "zero total", total: 0, rate: "0.05", want: 0},
		{name: "negative total", total: -100, rate: "0.05", want: 0},
		{name: "rate above one", total: 10000, rate: "1.5", want: 0},
		{name: "negative rate", total: 10000, rate: "-0.05", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := decimal.NewFromString(tt.rate)
			if err != nil {
				t.Fatalf("parse rate: %v", err)
			}
			if got := Amount(tt.total, rate); got != tt.want {
				t.Fatalf("Amount(%d, %s) = %d, want %d", tt.total, tt.rate, got, tt.want)
			}
		})
	}
}

func TestValidRate(t *testing.T) {
	if !ValidRate(decimal.Zero) {
		t.Fatalf("zero rate must be valid")
	}
	if !ValidRate(decimal.NewFromInt(1)) {
		t.Fatalf("rate of 1 must be valid")
	}
	if ValidRate(decimal.NewFromFloat(1.01)) {
		t.Fatalf("rate above 1 must be invalid")
	}
	if ValidRate(decimal.NewFromFloat(-0.01)) {
		t.Fatalf("negative rate must be invalid")
	}
}
