package format_raw

import (
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// EncodeTruncatedString returns exactly 2*capacity bytes holding s as UTF-16BE
// code units. Longer strings are cut at capacity code units, shorter ones are
// zero padded. An empty string yields an all-zero block.
func EncodeTruncatedString(s string, capacity int) []byte {
	block := make([]byte, 2*capacity)
	if s == "" || capacity <= 0 {
		return block
	}
	encoded, err := utf16be.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// The encoder substitutes invalid UTF-8, this only guards against misuse
		return block
	}
	copy(block, encoded)
	return block
}

// DecodeTruncatedString is the inverse of EncodeTruncatedString. Trailing
// zero code units are padding and are dropped.
func DecodeTruncatedString(block []byte) string {
	end := len(block) &^ 1
	for end >= 2 && binary.BigEndian.Uint16(block[end-2:end]) == 0 {
		end -= 2
	}
	if end == 0 {
		return ""
	}
	decoded, err := utf16be.NewDecoder().Bytes(block[:end])
	if err != nil {
		return ""
	}
	return string(decoded)
}
