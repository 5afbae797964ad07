// Package emailparse extracts contact addresses from free-form profile text.
package emailparse

import "regexp"

// reEmail is intentionally conservative: it targets typical business contact
// addresses, not full RFC 5322. Pre-compiled to avoid recompilation per call.
var reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// First returns the leftmost email-looking token in text, or "" when there
// is none. Pure and deterministic; callers treat "" as "no email found".
func First(text string) string {
	return reEmail.FindString(text)
}
