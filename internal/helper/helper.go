package helper

import "strings"

// NormSymbol canonicalizes wire spellings of an instrument: upper-case, no
// separators ("sol_usdt" -> "SOLUSDT").
func NormSymbol(raw string) string {
	s := strings.TrimSpace(strings.ToUpper(raw))
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	return s
}

// MaskKey renders an API key safe for logs: first and last four characters.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
