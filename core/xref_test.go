package core

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"testing"
)

// classicFile lays out objects after a header and appends a classic xref
// section. It returns the file and the offsets of each object.
func classicFile(objs []string, trailer string) ([]byte, []int) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer, xref)
	return buf.Bytes(), offsets
}

// TestXRefClassic tests a single classic section.
func TestXRefClassic(t *testing.T) {
	data, offsets := classicFile([]string{"<< /Type /Catalog >>", "(two)"}, "<< /Size 3 /Root 1 0 R >>")
	table, err := NewXRefParser(data).ParseAll()
	if err != nil {
		t.Fatalf("ParseAll error: %v", err)
	}
	if table.Size() != 3 {
		t.Errorf("Size = %d, want 3", table.Size())
	}
	e, ok := table.Get(2)
	if !ok || e.Kind != XRefInUse || e.Offset != int64(offsets[1]) {
		t.Errorf("entry 2 = %+v, want in use at %d", e, offsets[1])
	}
	if free, _ := table.Get(0); free.InUse() {
		t.Error("entry 0 should be free")
	}
	if ref, _ := table.Trailer.GetIndirectRef("Root"); ref.Number != 1 {
		t.Errorf("trailer Root = %v", table.Trailer["Root"])
	}
}

// TestXRefPrevChain tests that a newer section overrides an older one.
func TestXRefPrevChain(t *testing.T) {
	data, _ := classicFile([]string{"<< /Type /Catalog >>", "(old)"}, "<< /Size 3 /Root 1 0 R >>")
	firstXref, err := NewXRefParser(data).FindXRef()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	buf.Write(data)
	newOff := buf.Len()
	buf.WriteString("2 0 obj\n(new)\nendobj\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n2 1\n%010d 00000 n \ntrailer\n<< /Size 3 /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", newOff, firstXref, xref)

	table, err := NewXRefParser(buf.Bytes()).ParseAll()
	if err != nil {
		t.Fatalf("ParseAll error: %v", err)
	}
	if e, _ := table.Get(2); e.Offset != int64(newOff) {
		t.Errorf("object 2 offset = %d, want %d", e.Offset, newOff)
	}
	if e, _ := table.Get(1); e == nil || !e.InUse() {
		t.Error("object 1 should come from the older section")
	}
	if !table.Trailer.Has("Root") {
		t.Error("Root from the older trailer should be kept")
	}
}

// TestXRefPrevLoop tests detection of a /Prev chain pointing at itself.
func TestXRefPrevLoop(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 1\n0000000000 65535 f \ntrailer\n<< /Size 1 /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", xref, xref)

	_, err := NewXRefParser(buf.Bytes()).ParseAll()
	if !errors.Is(err, ErrBadXref) {
		t.Errorf("error = %v, want ErrBadXref", err)
	}
}

// TestXRefMissingStartxref tests a file without startxref.
func TestXRefMissingStartxref(t *testing.T) {
	_, err := NewXRefParser([]byte("%PDF-1.4\n1 0 obj null endobj\n")).ParseAll()
	if !errors.Is(err, ErrBadXref) {
		t.Errorf("error = %v, want ErrBadXref", err)
	}
}

// TestXRefStream tests /W, /Index and the PNG Up predictor.
func TestXRefStream(t *testing.T) {
	// rows: type(1) offset(2) field3(1)
	rows := [][]byte{
		{1, 0x00, 0x0F, 0},  // object 10 at 15
		{2, 0x00, 0x05, 3},  // object 11 in stream 5, index 3
		{0, 0x00, 0x00, 1},  // object 12 free
	}
	var raw []byte
	prev := make([]byte, 4)
	for _, row := range rows {
		raw = append(raw, 2) // PNG Up
		for i := range row {
			raw = append(raw, row[i]-prev[i])
		}
		prev = row
	}
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write(raw)
	zw.Close()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	off := buf.Len()
	fmt.Fprintf(&buf, "20 0 obj\n<< /Type /XRef /Size 21 /W [1 2 1] /Index [10 3] /Root 1 0 R "+
		"/Filter /FlateDecode /DecodeParms << /Predictor 12 /Columns 4 >> /Length %d >>\nstream\n", z.Len())
	buf.Write(z.Bytes())
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", off)

	table, err := NewXRefParser(buf.Bytes()).ParseAll()
	if err != nil {
		t.Fatalf("ParseAll error: %v", err)
	}
	want := map[int]XRefEntry{
		10: {Kind: XRefInUse, Offset: 15},
		11: {Kind: XRefCompressed, StreamNum: 5, Index: 3},
		12: {Kind: XRefFree, Generation: 1},
	}
	for num, w := range want {
		got, ok := table.Get(num)
		if !ok {
			t.Errorf("entry %d missing", num)
			continue
		}
		if *got != w {
			t.Errorf("entry %d = %+v, want %+v", num, *got, w)
		}
	}
	if table.Trailer.Has("W") || !table.Trailer.Has("Root") {
		t.Errorf("trailer = %v", table.Trailer)
	}
}

// hybridFile returns a file whose classic table marks object 2 free while
// the /XRefStm section stores it at index 0 of object stream 4. Object 4
// holds "2 0 (packed)".
func hybridFile() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	catalog := buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	objStm := buf.Len()
	buf.WriteString("4 0 obj\n<< /Type /ObjStm /N 1 /First 4 /Length 12 >>\nstream\n2 0 (packed)\nendstream\nendobj\n")
	stm := buf.Len()
	buf.WriteString("3 0 obj\n<< /Type /XRef /Size 5 /W [1 2 1] /Index [2 1] /Length 4 >>\nstream\n")
	buf.Write([]byte{2, 0, 4, 0})
	buf.WriteString("\nendstream\nendobj\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 5\n0000000000 65535 f \n%010d 00000 n \n0000000000 00000 f \n%010d 00000 n \n%010d 00000 n \n",
		catalog, stm, objStm)
	fmt.Fprintf(&buf, "trailer\n<< /Size 5 /Root 1 0 R /XRefStm %d >>\nstartxref\n%d\n%%%%EOF\n", stm, xref)
	return buf.Bytes()
}

// TestXRefHybrid tests that /XRefStm entries override the table they
// accompany.
func TestXRefHybrid(t *testing.T) {
	table, err := NewXRefParser(hybridFile()).ParseAll()
	if err != nil {
		t.Fatalf("ParseAll error: %v", err)
	}
	e, ok := table.Get(2)
	if !ok || *e != (XRefEntry{Kind: XRefCompressed, StreamNum: 4, Index: 0}) {
		t.Errorf("entry 2 = %+v, want compressed in stream 4", e)
	}
	for _, num := range []int{1, 3, 4} {
		if e, ok := table.Get(num); !ok || e.Kind != XRefInUse {
			t.Errorf("entry %d = %+v, want in use", num, e)
		}
	}
	if !table.Trailer.Has("Root") || !table.Trailer.Has("XRefStm") {
		t.Errorf("trailer = %v", table.Trailer)
	}
}

// TestXRefStreamPrevTable tests an xref stream update chained by /Prev to
// a classic table.
func TestXRefStreamPrevTable(t *testing.T) {
	data, offsets := classicFile([]string{"<< /Type /Catalog >>", "(old)"}, "<< /Size 3 /Root 1 0 R >>")
	firstXref, err := NewXRefParser(data).FindXRef()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	buf.Write(data)
	newOff := buf.Len()
	buf.WriteString("2 0 obj\n(new)\nendobj\n")
	stm := buf.Len()
	fmt.Fprintf(&buf, "4 0 obj\n<< /Type /XRef /Size 5 /W [1 2 1] /Index [2 1 4 1] /Prev %d /Length 8 >>\nstream\n", firstXref)
	buf.Write([]byte{1, byte(newOff >> 8), byte(newOff), 0, 1, byte(stm >> 8), byte(stm), 0})
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", stm)

	table, err := NewXRefParser(buf.Bytes()).ParseAll()
	if err != nil {
		t.Fatalf("ParseAll error: %v", err)
	}
	want := map[int]int64{1: int64(offsets[0]), 2: int64(newOff), 4: int64(stm)}
	for num, off := range want {
		e, ok := table.Get(num)
		if !ok || e.Kind != XRefInUse || e.Offset != off {
			t.Errorf("entry %d = %+v, want in use at %d", num, e, off)
		}
	}
	if ref, _ := table.Trailer.GetIndirectRef("Root"); ref.Number != 1 {
		t.Errorf("Root from the older trailer should be kept, trailer = %v", table.Trailer)
	}
	if size, _ := table.Trailer.GetInt("Size"); size != 5 {
		t.Errorf("Size = %d, want the newest value 5", size)
	}
}

// TestXRefOutOfRangeNumbers tests that entries numbered past
// MaxObjectNumber are ignored.
func TestXRefOutOfRangeNumbers(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 1\n0000000000 65535 f \n%d 2\n0000000009 00000 n \n0000000009 00000 n \n", MaxObjectNumber)
	fmt.Fprintf(&buf, "trailer\n<< /Size 1 >>\nstartxref\n%d\n%%%%EOF\n", xref)

	table, err := NewXRefParser(buf.Bytes()).ParseAll()
	if err != nil {
		t.Fatalf("ParseAll error: %v", err)
	}
	if _, ok := table.Get(MaxObjectNumber); !ok {
		t.Error("entry at MaxObjectNumber missing")
	}
	if table.Size() != 2 {
		t.Errorf("Size = %d, want 2", table.Size())
	}
}

// TestReadBigEndianInt tests field decoding for various widths.
func TestReadBigEndianInt(t *testing.T) {
	tests := []struct {
		data  []byte
		width int
		want  int64
	}{
		{nil, 0, 0},
		{[]byte{0x7F}, 1, 127},
		{[]byte{0x01, 0x00}, 2, 256},
		{[]byte{0x01, 0x02, 0x03}, 3, 0x010203},
	}
	for _, tt := range tests {
		if got := readBigEndianInt(tt.data, tt.width); got != tt.want {
			t.Errorf("readBigEndianInt(%v, %d) = %d, want %d", tt.data, tt.width, got, tt.want)
		}
	}
}
