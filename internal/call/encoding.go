package call

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FixDoubleEncoding repairs UTF-8 text that was decoded as Latin-1 somewhere
// upstream ("JosÃ©" → "José"). Text that is not mojibake comes back
// unchanged: correctly encoded input re-encodes to invalid UTF-8 and fails
// the round trip.
func FixDoubleEncoding(s string) string {
	if s == "" {
		return s
	}

	if fixed, err := charmap.ISO8859_1.NewEncoder().String(s); err == nil && utf8.ValidString(fixed) {
		return fixed
	}

	// Mixed content: repair the Latin-1-representable segments and pass the
	// rest through untouched.
	var (
		b   strings.Builder
		seg []byte
	)
	flush := func() {
		if len(seg) == 0 {
			return
		}
		if utf8.Valid(seg) {
			b.Write(seg)
		} else {
			for _, c := range seg {
				b.WriteRune(rune(c))
			}
		}
		seg = seg[:0]
	}

	for _, r := range s {
		if r <= 0xFF {
			seg = append(seg, byte(r))
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}
