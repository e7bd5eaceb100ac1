package protocol

import "regexp"

// Matches q3 color codes (a caret followed by any character, e.g. ^1 for red)
var colorSequence = regexp.MustCompile(`(?s)\^(.?)`)

// StripColors returns s without color codes. A doubled caret stands for a
// literal one.
func StripColors(s string) string {
	return colorSequence.ReplaceAllStringFunc(s, func(seq string) string {
		if seq == "^^" {
			return "^"
		}
		return ""
	})
}
