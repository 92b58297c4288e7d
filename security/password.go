package security

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/secure/precis"
)

// passwordPad is the padding string of the standard security handler.
var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// legacyPassword encodes a password for revisions 2 to 4, which expect
// Latin-1 bytes. Characters outside Latin-1 fall back to UTF-8.
func legacyPassword(password string) []byte {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(password))
	if err != nil {
		b = []byte(password)
	}
	if len(b) > 32 {
		b = b[:32]
	}
	return b
}

// modernPassword prepares a revision 6 password: PRECIS OpaqueString,
// UTF-8, at most 127 bytes.
func modernPassword(password string) []byte {
	s, err := precis.OpaqueString.String(password)
	if err != nil {
		// the empty string is rejected by the profile
		s = password
	}
	b := []byte(s)
	if len(b) > 127 {
		b = b[:127]
	}
	return b
}

// pad returns the password padded or truncated to 32 bytes.
func pad(pw []byte) []byte {
	out := make([]byte, 32)
	n := copy(out, pw)
	copy(out[n:], passwordPad)
	return out
}
