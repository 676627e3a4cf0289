// Package destiny derives the destiny profile from a user's life parameters.
// Everything here is a pure function of its inputs.
package destiny

import "unicode/utf16"

// Hash is a 31-multiplier rolling hash over UTF-16 code units, folded to a
// non-negative value. It must stay stable: persisted profiles depend on it.
func Hash(text string) uint32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(text)) {
		h = (h << 5) - h + int32(unit)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}
