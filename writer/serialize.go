package writer

import (
	"bytes"
	"math"
	"strconv"

	"github.com/seyaytua/manken/core"
)

const hexDigits = "0123456789ABCDEF"

// writeObject appends the PDF syntax for obj. Dictionary keys are
// written in sorted order.
func writeObject(buf *bytes.Buffer, obj core.Object) {
	switch v := obj.(type) {
	case nil, core.Null:
		buf.WriteString("null")
	case core.Bool:
		buf.WriteString(v.String())
	case core.Int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case core.Real:
		writeReal(buf, float64(v))
	case core.String:
		writeString(buf, []byte(v))
	case core.Name:
		writeName(buf, string(v))
	case core.IndirectRef:
		buf.WriteString(strconv.Itoa(v.Number))
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(v.Generation))
		buf.WriteString(" R")
	case core.Array:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, elem)
		}
		buf.WriteByte(']')
	case core.Dict:
		writeDict(buf, v, nil)
	case *core.Stream:
		length := core.Int(len(v.Data))
		writeDict(buf, v.Dict, &length)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	}
}

// writeDict writes d, replacing /Length when length is set. Null values
// are omitted.
func writeDict(buf *bytes.Buffer, d core.Dict, length *core.Int) {
	buf.WriteString("<<")
	for _, key := range d.Keys() {
		value := d[key]
		if key == "Length" && length != nil {
			continue
		}
		if _, isNull := value.(core.Null); isNull || value == nil {
			continue
		}
		writeName(buf, key)
		buf.WriteByte(' ')
		writeObject(buf, value)
	}
	if length != nil {
		buf.WriteString("/Length ")
		writeObject(buf, *length)
	}
	buf.WriteString(">>")
}

// writeReal uses the shortest decimal form; PDF has no exponent syntax.
func writeReal(buf *bytes.Buffer, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if s == "-0" {
		s = "0"
	}
	buf.WriteString(s)
}

// writeString uses a literal string for text and a hex string for
// anything with control or high bytes.
func writeString(buf *bytes.Buffer, s []byte) {
	if !isText(s) {
		buf.WriteByte('<')
		for _, c := range s {
			buf.WriteByte(hexDigits[c>>4])
			buf.WriteByte(hexDigits[c&0x0F])
		}
		buf.WriteByte('>')
		return
	}

	buf.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\r':
			buf.WriteString(`\r`)
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

func isText(s []byte) bool {
	for _, c := range s {
		if c >= 0x7F || (c < 0x20 && c != '\r' && c != '\n' && c != '\t') {
			return false
		}
	}
	return true
}

// writeName escapes delimiters, whitespace, '#' and bytes outside the
// printable ASCII range as #xx.
func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x21 || c > 0x7E || isDelimiter(c) || c == '#' {
			buf.WriteByte('#')
			buf.WriteByte(hexDigits[c>>4])
			buf.WriteByte(hexDigits[c&0x0F])
			continue
		}
		buf.WriteByte(c)
	}
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
