// Package inputval validates raw request input.
package inputval

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/validate"
)

// IsValidEmail reports whether s is a bare email address: one '@', no
// whitespace or display-name brackets, and a dotted domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n<>") || strings.Count(s, "@") != 1 {
		return false
	}
	if !validate.SimpleEmailValid(s) {
		return false
	}
	at := strings.IndexByte(s, '@')
	return validDotAtoms(s[:at]) && validDotAtoms(s[at+1:])
}

// validDotAtoms rejects leading, trailing, and consecutive dots.
func validDotAtoms(s string) bool {
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	return !strings.Contains(s, "..")
}

// InvalidEmails returns the entries of emails that fail IsValidEmail.
func InvalidEmails(emails []string) []string {
	var bad []string
	for _, e := range emails {
		if !IsValidEmail(e) {
			bad = append(bad, e)
		}
	}
	return bad
}
