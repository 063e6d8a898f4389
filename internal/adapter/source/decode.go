package source

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encodings reported by Decode.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns b as a UTF-8 string. Valid UTF-8 is used as-is (without a
// leading BOM); anything else is decoded as Latin-1, which older SMN exports use.
func Decode(b []byte) (string, string, error) {
	if utf8.Valid(b) {
		return string(bytes.TrimPrefix(b, utf8BOM)), EncodingUTF8, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), EncodingLatin1, nil
}
