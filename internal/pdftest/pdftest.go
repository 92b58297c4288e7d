// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"sort"
	"strings"
)

// Builder collects object bodies and serializes them with a
// cross-reference section.
type Builder struct {
	Version string
	bodies  map[int]string
	max     int
}

// New creates a builder producing version 1.7 files.
func New() *Builder {
	return &Builder{Version: "1.7", bodies: make(map[int]string)}
}

// Add stores body under the next object number.
func (b *Builder) Add(body string) int {
	b.max++
	b.bodies[b.max] = body
	return b.max
}

// Set stores body under num.
func (b *Builder) Set(num int, body string) {
	b.bodies[num] = body
	if num > b.max {
		b.max = num
	}
}

// AddStream stores a stream object. dict is the dictionary content
// without the enclosing << >> and without /Length.
func (b *Builder) AddStream(dict string, data []byte) int {
	return b.Add(streamBody(dict, data))
}

func streamBody(dict string, data []byte) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// Bytes writes the file with a classic xref table. trailer is the trailer
// dictionary content; /Size is added.
func (b *Builder) Bytes(trailer string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.Version)
	offsets := make(map[int]int)
	for _, num := range b.numbers() {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, b.bodies[num])
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", b.max+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= b.max; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 00000 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<< %s /Size %d >>\nstartxref\n%d\n%%%%EOF\n", trailer, b.max+1, xref)
	return buf.Bytes()
}

// BytesXRefStream writes the file with the objects listed in packed
// stored in one object stream and an xref stream in place of the table.
func (b *Builder) BytesXRefStream(trailer string, packed []int) []byte {
	inStm := make(map[int]int)
	var header, body strings.Builder
	for i, num := range packed {
		inStm[num] = i
		fmt.Fprintf(&header, "%d %d ", num, body.Len())
		body.WriteString(b.bodies[num])
		body.WriteByte('\n')
	}
	stmNum := b.max + 1
	xrefNum := b.max + 2
	first := header.Len()
	payload := header.String() + body.String()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.Version)
	offsets := make(map[int]int)
	for _, num := range b.numbers() {
		if _, ok := inStm[num]; ok {
			continue
		}
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, b.bodies[num])
	}
	offsets[stmNum] = buf.Len()
	fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", stmNum,
		streamBody(fmt.Sprintf("/Type /ObjStm /N %d /First %d", len(packed), first), []byte(payload)))

	offsets[xrefNum] = buf.Len()
	var rows bytes.Buffer
	for num := 0; num <= xrefNum; num++ {
		switch {
		case num == 0:
			rows.Write([]byte{0, 0, 0, 0, 0xFF})
		case offsets[num] > 0:
			off := offsets[num]
			rows.Write([]byte{1, byte(off >> 16), byte(off >> 8), byte(off), 0})
		default:
			if idx, ok := inStm[num]; ok {
				rows.Write([]byte{2, byte(stmNum >> 16), byte(stmNum >> 8), byte(stmNum), byte(idx)})
			} else {
				rows.Write([]byte{0, 0, 0, 0, 0})
			}
		}
	}
	dict := fmt.Sprintf("/Type /XRef /W [1 3 1] /Size %d /Filter /FlateDecode %s", xrefNum+1, trailer)
	fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", xrefNum, streamBody(dict, Deflate(rows.Bytes())))
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", offsets[xrefNum])
	return buf.Bytes()
}

func (b *Builder) numbers() []int {
	nums := make([]int, 0, len(b.bodies))
	for num := range b.bodies {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

// Deflate compresses data with zlib.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Pages returns a document with one page per content string. Page n
// (1-based) is object 2+n; its content stream follows the pages.
// The info dictionary has /Title (Test).
func Pages(contents ...string) []byte {
	b := New()
	n := len(contents)
	b.Add("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, n)
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	b.Add(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", strings.Join(kids, " "), n))
	for i := range contents {
		b.Add(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R /Resources << >> >>", 3+n+i))
	}
	for _, c := range contents {
		b.AddStream("", []byte(c))
	}
	info := b.Add("<< /Title (Test) /Producer (pdftest) >>")
	return b.Bytes(fmt.Sprintf("/Root 1 0 R /Info %d 0 R", info))
}
