// Package commission содержит расчёт суммы комиссии инфлюенсера.
package commission

import (
	"github.com/shopspring/decimal"
)

// MaxRate — верхняя граница допустимой ставки комиссии.
var MaxRate = decimal.NewFromInt(1)

// ValidRate проверяет, что ставка комиссии лежит в диапазоне [0, 1].
func ValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && !rate.GreaterThan(MaxRate)
}

// Amount возвращает сумму комиссии за заказ: floor(orderTotal * rate).
// Округление всегда вниз, чтобы не переплачивать; некорректные входы дают 0.
func Amount(orderTotal int64, rate decimal.Decimal) int64 {
	if orderTotal <= 0 || !ValidRate(rate) {
		return 0
	}
	return decimal.NewFromInt(orderTotal).Mul(rate).Floor().IntPart()
}
