package payout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kdiomande/fidelite-system/internal/model"
)

func commissionWith(status model.CommissionStatus, amount int64) model.Commission {
	return model.Commission{
		ID:     uuid.New(),
		Amount: amount,
		Rate:   decimal.NewFromFloat(0.05),
		Status: status,
	}
}

func TestAvailableBalance(t *testing.T) {
	commissions := []model.Commission{
		commissionWith(model.CommissionPending, 500),
		commissionWith(model.CommissionPending, 1000),
		commissionWith(model.CommissionPending, 250),
		commissionWith(model.CommissionPaid, 700),
		commissionWith(model.CommissionVoided, 900),
	}

	// Сценарий из трёх доставленных заказов под 5%: 500 + 1000 + 250.
	// Выплаченные и аннулированные комиссии не участвуют.
	if got := AvailableBalance(commissions); got != 1750 {
		t.Fatalf("AvailableBalance = %d, want 1750", got)
	}

	if got := AvailableBalance(nil); got != 0 {
		t.Fatalf("AvailableBalance(nil) = %d, want 0", got)
	}
}

func TestCanRequest(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		min     int64
		want    bool
	}{
		{name: "one below threshold", balance: 9999, min: 10000, want: false},
		{name: "exactly at threshold", balance: 10000, min: 10000, want: true},
		{name: "above threshold", balance: 10001, min: 10000, want: true},
		{name: "zero balance", balance: 0, min: 10000, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRequest(tt.balance, tt.min); got != tt.want {
				t.Fatalf("CanRequest(%d, %d) = %v, want %v", tt.balance, tt.min, got, tt.want)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		min     int64
		want    float64
	}{
		{name: "half way", balance: 5000, min: 10000, want: 50},
		{name: "at threshold", balance: 10000, min: 10000, want: 100},
		{name: "over threshold clamps", balance: 25000, min: 10000, want: 100},
		{name: "zero balance", balance: 0, min: 10000, want: 0},
		{name: "negative balance clamps", balance: -100, min: 10000, want: 0},
		{name: "zero threshold", balance: 100, min: 0, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.balance, tt.min); got != tt.want {
				t.Fatalf("Progress(%d, %d) = %v, want %v", tt.balance, tt.min, got, tt.want)
			}
		})
	}
}
