package filters

import (
	"bytes"
	"errors"
	"testing"
)

// TestDecodeDispatch tests filter name dispatch including abbreviations.
func TestDecodeDispatch(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		input  []byte
		want   []byte
	}{
		{"hex", "ASCIIHexDecode", []byte("48 65 6C6C6F>"), []byte("Hello")},
		{"hex abbreviation", "AHx", []byte("4869>"), []byte("Hi")},
		{"ascii85", "ASCII85Decode", []byte(`87cURD]i,"Ebo7~>`), []byte("Hello World")},
		{"run length", "RL", []byte{2, 'a', 'b', 'c', 254, 'x', 128}, []byte("abcxxx")},
		{"dct passthrough", "DCTDecode", []byte{0xFF, 0xD8}, []byte{0xFF, 0xD8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.filter, tt.input, nil)
			if err != nil {
				t.Fatalf("Decode(%s) error: %v", tt.filter, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Decode(%s) = %q, want %q", tt.filter, got, tt.want)
			}
		})
	}
}

// TestDecodeUnsupported tests that unknown filters report ErrUnsupportedFilter.
func TestDecodeUnsupported(t *testing.T) {
	for _, name := range []string{"LZWDecode", "JBIG2Decode", "Bogus"} {
		_, err := Decode(name, []byte("x"), nil)
		if !errors.Is(err, ErrUnsupportedFilter) {
			t.Errorf("Decode(%s) error = %v, want ErrUnsupportedFilter", name, err)
		}
	}
}

// TestEncodeDecodeFlate tests that Encode output decodes to the input.
func TestEncodeDecodeFlate(t *testing.T) {
	data := bytes.Repeat([]byte("BT /F1 12 Tf 72 712 Td (Hello) Tj ET\n"), 50)
	name, raw, err := Encode(data)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if name != "FlateDecode" {
		t.Errorf("filter name = %s, want FlateDecode", name)
	}
	if len(raw) >= len(data) {
		t.Errorf("encoded size %d not smaller than %d", len(raw), len(data))
	}
	got, err := Decode(name, raw, nil)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("decoded data differs from input")
	}
}

// TestFlateDecodeMissingChecksum tests recovery of streams without the adler32 trailer.
func TestFlateDecodeMissingChecksum(t *testing.T) {
	data := []byte("0 0 m 100 100 l S")
	raw, err := FlateEncode(data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := FlateDecode(raw[:len(raw)-4], nil)
	if err != nil {
		t.Fatalf("FlateDecode error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

// TestFlateDecodeInvalid tests that garbage input is rejected.
func TestFlateDecodeInvalid(t *testing.T) {
	if _, err := FlateDecode([]byte("not zlib"), nil); err == nil {
		t.Error("expected error for invalid zlib data")
	}
}

// TestPNGPredictor tests the PNG row filters used by xref streams.
func TestPNGPredictor(t *testing.T) {
	rows := []byte{
		2, 1, 2, 3, // Up from a zero row
		1, 1, 1, 1, // Sub
		2, 1, 1, 1, // Up
		0, 9, 8, 7, // None
	}
	raw, err := FlateEncode(rows)
	if err != nil {
		t.Fatal(err)
	}
	got, err := FlateDecode(raw, Params{"Predictor": 12, "Columns": 3})
	if err != nil {
		t.Fatalf("FlateDecode error: %v", err)
	}
	want := []byte{1, 2, 3, 1, 2, 3, 2, 3, 4, 9, 8, 7}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestTIFFPredictor tests horizontal differencing.
func TestTIFFPredictor(t *testing.T) {
	got, err := unpredict([]byte{10, 1, 1, 5, 2, 2}, 2, Params{"Columns": 3})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{10, 11, 12, 5, 7, 9}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestPaeth tests the Paeth selector.
func TestPaeth(t *testing.T) {
	tests := []struct{ a, b, c, want byte }{
		{0, 0, 0, 0},
		{10, 20, 10, 20},
		{20, 10, 10, 20},
		{10, 10, 20, 10},
	}
	for _, tt := range tests {
		if got := paeth(tt.a, tt.b, tt.c); got != tt.want {
			t.Errorf("paeth(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
		}
	}
}

// TestASCIIHexDecodeOdd tests padding of a trailing digit.
func TestASCIIHexDecodeOdd(t *testing.T) {
	got, err := ASCIIHexDecode([]byte("414>"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x41, 0x40}) {
		t.Errorf("got %x", got)
	}
	if _, err := ASCIIHexDecode([]byte("4G>")); err == nil {
		t.Error("expected error for invalid digit")
	}
}

// TestASCII85DecodeZ tests the zero group shorthand.
func TestASCII85DecodeZ(t *testing.T) {
	got, err := ASCII85Decode([]byte("z~>"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0, 0, 0, 0}) {
		t.Errorf("got %v", got)
	}
}

// TestRunLengthDecodeOverrun tests truncated literal runs.
func TestRunLengthDecodeOverrun(t *testing.T) {
	if _, err := RunLengthDecode([]byte{5, 'a'}); err == nil {
		t.Error("expected error for short literal run")
	}
}

// TestParams tests parameter conversion defaults.
func TestParams(t *testing.T) {
	p := Params{"Columns": 4, "K": float64(-1), "BlackIs1": true}
	if p.Int("Columns", 1) != 4 || p.Int("K", 0) != -1 || p.Int("Rows", 7) != 7 {
		t.Error("unexpected Int results")
	}
	if !p.Bool("BlackIs1", false) || p.Bool("EncodedByteAlign", false) {
		t.Error("unexpected Bool results")
	}
	var nilParams Params
	if nilParams.Int("Predictor", 1) != 1 {
		t.Error("nil Params should return default")
	}
}
