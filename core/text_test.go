package core

import "testing"

// TestDecodeTextString tests the three text string encodings.
func TestDecodeTextString(t *testing.T) {
	tests := []struct {
		name string
		in   String
		want string
	}{
		{"ascii", "Annual Report", "Annual Report"},
		{"pdfdoc latin1", "caf\xe9", "café"},
		{"pdfdoc specials", "\x84 \x92", "— ™"},
		{"utf16", "\xfe\xff\x00H\x00i\x30\x42", "Hiあ"},
		{"utf8 bom", "\xef\xbb\xbfnaïve", "naïve"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeTextString(tt.in); got != tt.want {
				t.Errorf("DecodeTextString(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestEncodeTextString tests that non-ASCII text becomes UTF-16BE.
func TestEncodeTextString(t *testing.T) {
	if got := EncodeTextString("plain"); got != "plain" {
		t.Errorf("ascii = %q", got)
	}
	got := EncodeTextString("日本")
	if got != "\xfe\xff\x65\xe5\x67\x2c" {
		t.Errorf("utf16 = %x", string(got))
	}
	if DecodeTextString(got) != "日本" {
		t.Error("encoded text does not decode back")
	}
}
