// Package log provides a small helper for stripping ANSI color codes from
// terminal-formatted log output before it's written to a plain-text
// fixture or piped to a non-terminal consumer.
package log

import "regexp"

var uncolor = regexp.MustCompile("\x1b\\[([0-9]+;)*[0-9]+m")

// Uncolor strips ANSI SGR escape sequences from text.
func Uncolor(text string) string {
	return uncolor.ReplaceAllString(text, "")
}
