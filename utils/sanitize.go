package utils

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict     = bluemonday.StrictPolicy()
	angleStrip = strings.NewReplacer("<", "", ">", "")
)

// SanitizeText strips all markup from user supplied free text, trims it
// and truncates it to maxRunes (0 keeps the full length).
func SanitizeText(input string, maxRunes int) string {
	// Entities are decoded for plain-text storage; brackets that decode back are dropped.
	out := strings.TrimSpace(angleStrip.Replace(html.UnescapeString(strict.Sanitize(input))))
	if maxRunes > 0 && utf8.RuneCountInString(out) > maxRunes {
		out = string([]rune(out)[:maxRunes])
	}
	return out
}
