package core

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// pdfDocHigh holds the PDFDocEncoding code points that differ from
// Latin-1 in the 0x80-0xA0 range. Zero marks an undefined code.
var pdfDocHigh = [...]rune{
	0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
	0x2039, 0x203A, 0x2212, 0x2030, 0x201E, 0x201C, 0x201D, 0x2018,
	0x2019, 0x201A, 0x2122, 0xFB01, 0xFB02, 0x0141, 0x0152, 0x0160,
	0x0178, 0x017D, 0x0131, 0x0142, 0x0153, 0x0161, 0x017E, 0,
	0x20AC,
}

var (
	utf16BOM = []byte{0xFE, 0xFF}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// DecodeTextString converts a PDF text string (as used in /Info and
// outlines) to UTF-8. UTF-16BE and UTF-8 strings are recognized by their
// byte order marks; everything else is PDFDocEncoding.
func DecodeTextString(s String) string {
	b := []byte(s)
	switch {
	case bytes.HasPrefix(b, utf16BOM):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(b)
		if err == nil {
			return norm.NFC.String(string(out))
		}
	case bytes.HasPrefix(b, utf8BOM) && utf8.Valid(b[3:]):
		return string(b[3:])
	}

	var sb []rune
	latin1 := charmap.ISO8859_1
	for _, c := range b {
		if c >= 0x80 && c <= 0xA0 {
			if r := pdfDocHigh[c-0x80]; r != 0 {
				sb = append(sb, r)
				continue
			}
			sb = append(sb, utf8.RuneError)
			continue
		}
		sb = append(sb, latin1.DecodeByte(c))
	}
	return string(sb)
}

// EncodeTextString converts UTF-8 text to a PDF text string. ASCII text is
// stored as is; anything else is written as UTF-16BE with a byte order mark.
func EncodeTextString(text string) String {
	ascii := true
	for i := 0; i < len(text); i++ {
		if text[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return String(text)
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.String(text)
	if err != nil {
		return String(text)
	}
	return String(out)
}
