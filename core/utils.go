package core

import "strings"

// CleanString normalizes user-supplied text: surrounding whitespace is
// dropped, and the optional lower flag folds the result to lower case
// (email addresses compare case-insensitively).
func CleanString(s string, lower ...bool) string {
	cleaned := strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		cleaned = strings.ToLower(cleaned)
	}
	return cleaned
}
