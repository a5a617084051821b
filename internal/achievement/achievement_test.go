package achievement

import (
	"testing"

	"github.com/kdiomande/fidelite-system/internal/model"
)

func TestEvaluateUnlocks(t *testing.T) {
	catalogue := DefaultCatalogue()

	tests := []struct {
		name  string
		stats model.AccountStats
		want  []string
	}{
		{
			name:  "no activity",
			stats: model.AccountStats{},
			want:  nil,
		},
		{
			name:  "first order",
			stats: model.AccountStats{Points: 10, OrderCount: 1, Spend: 10000},
			want:  []string{"premier-achat"},
		},
		{
			name:  "five orders and big spend",
			stats: model.AccountStats{Points: 120, OrderCount: 5, Spend: 120000},
			want:  []string{"premier-achat", "client-fidele", "gros-panier"},
		},
		{
			name:  "points and referrals",
			stats: model.AccountStats{Points: 1000, OrderCount: 1, ReferralCount: 3},
			want:  []string{"premier-achat", "grand-collectionneur", "ambassadeur"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.stats, map[string]bool{}, catalogue)

			if len(got) != len(tt.want) {
				t.Fatalf("Evaluate returned %d achievements, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Fatalf("unlocked[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	catalogue := DefaultCatalogue()
	stats := model.AccountStats{Points: 1200, OrderCount: 6, Spend: 150000, ReferralCount: 4}

	credited := map[string]bool{}
	first := Evaluate(stats, credited, catalogue)
	if len(first) == 0 {
		t.Fatalf("expected achievements on first pass")
	}

	for _, d := range first {
		credited[d.ID] = true
	}

	// Повторный проход без изменения статистики ничего не добавляет.
	second := Evaluate(stats, credited, catalogue)
	if len(second) != 0 {
		t.Fatalf("second pass unlocked %d achievements, want 0", len(second))
	}
}

func TestEvaluateOrderIndependent(t *testing.T) {
	catalogue := DefaultCatalogue()
	stats := model.AccountStats{Points: 1200, OrderCount: 6, Spend: 150000, ReferralCount: 4}

	reversed := make([]Definition, len(catalogue))
	for i, d := range catalogue {
		reversed[len(catalogue)-1-i] = d
	}

	forward := Evaluate(stats, map[string]bool{}, catalogue)
	backward := Evaluate(stats, map[string]bool{}, reversed)

	if len(forward) != len(backward) {
		t.Fatalf("unlocked sets differ in size: %d vs %d", len(forward), len(backward))
	}

	seen := make(map[string]bool, len(forward))
	for _, d := range forward {
		seen[d.ID] = true
	}
	for _, d := range backward {
		if !seen[d.ID] {
			t.Fatalf("achievement %s unlocked only in reversed order", d.ID)
		}
	}
}

func TestDefinitionValid(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		want bool
	}{
		{name: "first purchase", def: Definition{ID: "a", Title: "A", Predicate: PredicateFirstPurchase}, want: true},
		{name: "threshold predicate", def: Definition{ID: "a", Title: "A", Predicate: PredicatePoints, Threshold: 10}, want: true},
		{name: "missing threshold", def: Definition{ID: "a", Title: "A", Predicate: PredicatePoints}, want: false},
		{name: "empty id", def: Definition{Title: "A", Predicate: PredicateFirstPurchase}, want: false},
		{name: "negative reward", def: Definition{ID: "a", Title: "A", Reward: -1, Predicate: PredicateFirstPurchase}, want: false},
		{name: "unknown predicate", def: Definition{ID: "a", Title: "A", Predicate: "mystery"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.def.Valid(); got != tt.want {
				t.Fatalf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
