// Package normalize canonicalizes identifiers before they are stored or
// compared.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Emails normalizes each address, drops blanks, and removes duplicates while
// keeping first-seen order.
func Emails(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, e := range in {
		e = Email(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Name trims surrounding whitespace; case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Tags trims tags, drops blanks, and removes exact duplicates while keeping
// first-seen order. Case is significant: "Go" and "go" are distinct tags.
func Tags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Role lowercases a site role.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
