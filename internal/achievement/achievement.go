// Package achievement содержит каталог достижений и логику их разблокировки.
package achievement

import (
	"github.com/kdiomande/fidelite-system/internal/model"
)

// PredicateType описывает тип условия достижения.
type PredicateType string

const (
	PredicateFirstPurchase PredicateType = "first-purchase"
	PredicateOrderCount    PredicateType = "order-count"
	PredicatePoints        PredicateType = "points"
	PredicateSpend         PredicateType = "spend"
	PredicateReferralCount PredicateType = "referral-count"
)

// Definition описывает одно достижение каталога.
type Definition struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Reward    int64         `json:"reward"`
	Predicate PredicateType `json:"predicate"`
	Threshold int64         `json:"threshold,omitempty"`
}

// Valid проверяет корректность определения достижения.
func (d Definition) Valid() bool {
	if d.ID == "" || d.Title == "" || d.Reward < 0 {
		return false
	}
	switch d.Predicate {
	case PredicateFirstPurchase:
		return true
	case PredicateOrderCount, PredicatePoints, PredicateSpend, PredicateReferralCount:
		return d.Threshold > 0
	default:
		return false
	}
}

// Met проверяет условие достижения на текущей статистике счёта.
func (d Definition) Met(stats model.AccountStats) bool {
	switch d.Predicate {
	case PredicateFirstPurchase:
		return stats.OrderCount >= 1
	case PredicateOrderCount:
		return stats.OrderCount >= d.Threshold
	case PredicatePoints:
		return stats.Points >= d.Threshold
	case PredicateSpend:
		return stats.Spend >= d.Threshold
	case PredicateReferralCount:
		return stats.ReferralCount >= d.Threshold
	default:
		return false
	}
}

// DefaultCatalogue возвращает каталог достижений по умолчанию.
func DefaultCatalogue() []Definition {
	return []Definition{
		{ID: "premier-achat", Title: "Premier achat", Reward: 50, Predicate: PredicateFirstPurchase},
		{ID: "client-fidele", Title: "Client fidèle", Reward: 100, Predicate: PredicateOrderCount, Threshold: 5},
		{ID: "grand-collectionneur", Title: "Grand collectionneur", Reward: 150, Predicate: PredicatePoints, Threshold: 1000},
		{ID: "gros-panier", Title: "Gros panier", Reward: 200, Predicate: PredicateSpend, Threshold: 100000},
		{ID: "ambassadeur", Title: "Ambassadeur", Reward: 100, Predicate: PredicateReferralCount, Threshold: 3},
	}
}

// Evaluate возвращает достижения, условия которых выполнены и которые ещё
// не были зачислены счёту. Проверка детерминирована и повторный вызов с
// пополненным множеством credited не возвращает дубликатов. Достижения
// оцениваются независимо: разблокировка одного не влияет на оценку других
// в том же проходе, порядок обхода каталога не меняет итоговое множество.
func Evaluate(stats model.AccountStats, credited map[string]bool, catalogue []Definition) []Definition {
	var unlocked []Definition
	for _, d := range catalogue {
		if credited[d.ID] {
			continue
		}
		if d.Met(stats) {
			unlocked = append(unlocked, d)
		}
	}
	return unlocked
}
