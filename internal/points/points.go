// Package points содержит расчёт начисления баллов за покупку.
package points

// DefaultPerUnit — количество франков FCFA за один балл по умолчанию.
const DefaultPerUnit int64 = 1000

// ForAmount возвращает количество баллов за покупку на указанную сумму:
// floor(amount / perUnit). Неположительная сумма или шаг дают 0 баллов,
// отрицательный результат невозможен. Функция чистая: запись транзакции
// начисления и её уникальность по заказу — обязанность вызывающего кода.
func ForAmount(amount, perUnit int64) int64 {
	if amount <= 0 || perUnit <= 0 {
		return 0
	}
	return amount / perUnit
}
