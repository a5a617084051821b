// Package validation содержит функции валидации входных данных.
package validation

const maxOrderIDLen = 64

// IsValidOrderID проверяет идентификатор заказа: непустая строка разумной
// длины из букв, цифр и дефисов.
func IsValidOrderID(id string) bool {
	if id == "" || len(id) > maxOrderIDLen {
		return false
	}
	for _, ch := range id {
		switch {
		case ch >= '0' && ch <= '9':
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch == '-':
		default:
			return false
		}
	}
	return true
}

// payoutMethods — поддерживаемые способы выплаты.
var payoutMethods = map[string]bool{
	"wave":          true,
	"orange_money":  true,
	"mtn_money":     true,
	"moov_money":    true,
	"bank_transfer": true,
}

// IsValidPayoutMethod проверяет поддерживаемый способ выплаты.
func IsValidPayoutMethod(method string) bool {
	return payoutMethods[method]
}
