package roster

import (
	"net/mail"
	"strings"
	"unicode"
)

// EmailKey normalises an email into a store-safe index key: trimmed,
// lowercased, with '.' replaced by ','. Empty input yields "".
func EmailKey(email string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	return strings.ReplaceAll(e, ".", ",")
}

// PhoneKey keeps only the digits of phone
func PhoneKey(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidEmail reports whether email is a bare address
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && addr.Name == ""
}
