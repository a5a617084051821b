// Package referral содержит генерацию и проверку формата реферальных кодов.
package referral

import (
	"crypto/rand"
	"strconv"
	"strings"
)

// Prefix — фиксированный префикс всех реферальных кодов.
const Prefix = "FID-"

// DefaultBonusPoints — бонус реферера по умолчанию за завершённое приглашение.
const DefaultBonusPoints int64 = 100

const suffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const suffixLen = 4

// GenerateCode формирует реферальный код: префикс, суффикс из идентификатора
// реферера в base36 и случайный хвост, позволяющий выдавать несколько кодов
// одному рефереру.
func GenerateCode(referrerID int64) (string, error) {
	buf := make([]byte, suffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	tail := make([]byte, suffixLen)
	for i, b := range buf {
		tail[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}

	base := strings.ToUpper(strconv.FormatInt(referrerID, 36))
	return Prefix + base + "-" + string(tail), nil
}

// ValidFormat проверяет, что строка похожа на реферальный код:
// префикс, две непустые части, допустимые символы.
func ValidFormat(code string) bool {
	if !strings.HasPrefix(code, Prefix) {
		return false
	}
	rest := strings.TrimPrefix(code, Prefix)
	parts := strings.Split(rest, "-")
	if len(parts) != 2 || parts[0] == "" || len(parts[1]) != suffixLen {
		return false
	}
	for _, part := range parts {
		for _, ch := range part {
			if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
				return false
			}
		}
	}
	return true
}
