// Package normalize holds the canonical-form rules for user-entered
// identifiers. Every store write and lookup goes through these so the same
// input always hits the same document.
package normalize

import "strings"

// Email trims whitespace and lowercases. Emails are stored and matched in
// this canonical form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Username trims whitespace. Case is preserved; uniqueness is enforced on
// the stored form.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Name trims whitespace, preserving case.
func Name(s string) string {
	return strings.TrimSpace(s)
}
