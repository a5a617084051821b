// Package payout содержит расчёты доступного баланса и права на выплату.
package payout

import (
	"github.com/kdiomande/fidelite-system/internal/model"
)

// DefaultMinAmount — минимальная сумма заявки на выплату по умолчанию, FCFA.
const DefaultMinAmount int64 = 10000

// AvailableBalance возвращает сумму невыплаченных и неаннулированных
// комиссий. Результат обязан совпадать с SQL-суммой по статусу pending,
// которую считает хранилище; эквивалентность закреплена тестами.
func AvailableBalance(commissions []model.Commission) int64 {
	var total int64
	for _, c := range commissions {
		if c.Status == model.CommissionPending {
			total += c.Amount
		}
	}
	return total
}

// CanRequest сообщает, достигнут ли минимальный порог выплаты.
func CanRequest(balance, minAmount int64) bool {
	return balance >= minAmount
}

// Progress возвращает продвижение к минимальному порогу выплаты в процентах,
// ограниченное диапазоном [0, 100].
func Progress(balance, minAmount int64) float64 {
	if minAmount <= 0 || balance >= minAmount {
		return 100
	}
	if balance <= 0 {
		return 0
	}
	return float64(balance) / float64(minAmount) * 100
}
