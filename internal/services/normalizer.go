package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRuns  = regexp.MustCompile(` {2,}`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Normalize transforms raw minutes bytes into canonical text. The steps
// run in a fixed order: lossy UTF-8 decode, NFC composition, leading BOM
// strip, removal of Unicode format code points followed by
// recomposition, collapse of ASCII space runs, newline normalization,
// blank-line condensing, and a final trim.
// The transform is idempotent: Normalize applied to its own output is a
// no-op. It performs no I/O and never fails; undecodable byte sequences
// become replacement characters.
func Normalize(raw []byte) string {
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	text = norm.NFC.String(text)
	text = strings.TrimLeft(text, "\uFEFF")

	// Zero-width joiners, directional marks and the like carry no
	// content and break downstream diffing.
	text = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, text)

	// Removing a format character can leave a base letter adjacent to a
	// combining mark that the first NFC pass could not compose, so the
	// result must be composed again to stay canonical.
	text = norm.NFC.String(text)

	text = spaceRuns.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
