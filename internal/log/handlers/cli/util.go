package cli

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ansiEscapes matches the color escape sequences.
var ansiEscapes = regexp.MustCompile("\x1b\\[[0-9;]*m")

// EscapeAwareRuneCountInString counts the runes without
// counting the color escape sequences.
func EscapeAwareRuneCountInString(s string) int {
	return utf8.RuneCountInString(ansiEscapes.ReplaceAllString(s, ""))
}

// RightPad pads str with spaces until it is length runes long.
func RightPad(str string, length int) string {
	n := length - EscapeAwareRuneCountInString(str)
	if n <= 0 {
		return str
	}
	return str + strings.Repeat(" ", n)
}
