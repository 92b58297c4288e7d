package core

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestParseObject tests parsing of every direct object variant.
func TestParseObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Object
	}{
		{"null", "null", Null{}},
		{"true", "true", Bool(true)},
		{"int", "42", Int(42)},
		{"negative int", "-7", Int(-7)},
		{"real", "-0.25", Real(-0.25)},
		{"string", "(abc)", String("abc")},
		{"hex string", "<00FF>", String("\x00\xff")},
		{"name", "/MediaBox", Name("MediaBox")},
		{"reference", "12 0 R", IndirectRef{Number: 12}},
		{"array", "[1 2.5 /N (s)]", Array{Int(1), Real(2.5), Name("N"), String("s")}},
		{"array of refs", "[1 0 R 2 0 R]", Array{IndirectRef{Number: 1}, IndirectRef{Number: 2}}},
		{"ints not refs", "[1 2 3]", Array{Int(1), Int(2), Int(3)}},
		{"dict", "<< /Type /Page /Count 3 >>", Dict{"Type": Name("Page"), "Count": Int(3)}},
		{"null value dropped", "<< /A null /B 1 >>", Dict{"B": Int(1)}},
		{"nested", "<< /Kids [3 0 R] /R << /X true >> >>",
			Dict{"Kids": Array{IndirectRef{Number: 3}}, "R": Dict{"X": Bool(true)}}},
		{"comment skipped", "% c\n[1 % d\n2]", Array{Int(1), Int(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser([]byte(tt.input)).ParseObject()
			if err != nil {
				t.Fatalf("ParseObject error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseObject mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestParseObjectEOF tests end of input handling.
func TestParseObjectEOF(t *testing.T) {
	p := NewParser([]byte("1 "))
	if _, err := p.ParseObject(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ParseObject(); err != io.EOF {
		t.Errorf("second ParseObject error = %v, want io.EOF", err)
	}
	if _, err := NewParser([]byte("[1 2")).ParseObject(); err == nil {
		t.Error("expected error for unterminated array")
	}
	if _, err := NewParser([]byte("<< 1 2 >>")).ParseObject(); err == nil {
		t.Error("expected error for non-name key")
	}
}

// TestParseNesting tests the limit on nested arrays and dictionaries.
func TestParseNesting(t *testing.T) {
	nested := func(n int) string {
		return strings.Repeat("[", n) + strings.Repeat("]", n)
	}
	if _, err := NewParser([]byte(nested(MaxNesting))).ParseObject(); err != nil {
		t.Errorf("%d levels: %v", MaxNesting, err)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"one level too many", nested(MaxNesting + 1)},
		{"unterminated arrays", strings.Repeat("[", 8<<20)},
		{"dictionaries", strings.Repeat("<< /A ", MaxNesting+1)},
		{"mixed", strings.Repeat("<< /K [", MaxNesting)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser([]byte(tt.input)).ParseObject()
			if !errors.Is(err, ErrTooDeep) {
				t.Errorf("error = %v, want ErrTooDeep", err)
			}
		})
	}
}

// TestParseIndirectObject tests object headers and stream bodies.
func TestParseIndirectObject(t *testing.T) {
	input := "7 1 obj\n<< /Length 5 >>\nstream\nhello\nendstream\nendobj\n"
	obj, err := NewParser([]byte(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("ParseIndirectObject error: %v", err)
	}
	if obj.Ref != (IndirectRef{Number: 7, Generation: 1}) {
		t.Errorf("ref = %v", obj.Ref)
	}
	s, ok := obj.Object.(*Stream)
	if !ok {
		t.Fatalf("object is %T, want *Stream", obj.Object)
	}
	if string(s.Data) != "hello" {
		t.Errorf("data = %q, want hello", s.Data)
	}
}

// TestParseStreamWrongLength tests recovery when /Length is wrong.
func TestParseStreamWrongLength(t *testing.T) {
	for _, length := range []int{2, 9, 500} {
		t.Run(fmt.Sprint(length), func(t *testing.T) {
			input := fmt.Sprintf("1 0 obj\n<< /Length %d >>\nstream\r\nhello\r\nendstream\nendobj\n", length)
			obj, err := NewParser([]byte(input)).ParseIndirectObject()
			if err != nil {
				t.Fatalf("ParseIndirectObject error: %v", err)
			}
			if got := string(obj.Object.(*Stream).Data); got != "hello" {
				t.Errorf("data = %q, want hello", got)
			}
		})
	}
}

// TestParseStreamTruncated tests a payload cut off before its declared end.
func TestParseStreamTruncated(t *testing.T) {
	input := "1 0 obj\n<< /Length 100 >>\nstream\nshort"
	_, err := NewParser([]byte(input)).ParseIndirectObject()
	if !errors.Is(err, ErrTruncatedStream) {
		t.Fatalf("error = %v, want ErrTruncatedStream", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != TruncatedStream {
		t.Errorf("error %v is not a TruncatedStream ParseError", err)
	}
}

type lengthResolver map[IndirectRef]Object

func (r lengthResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if obj, ok := r[ref]; ok {
		return obj, nil
	}
	return nil, fmt.Errorf("no object %v", ref)
}

// TestParseStreamIndirectLength tests /Length given as a reference.
func TestParseStreamIndirectLength(t *testing.T) {
	input := "1 0 obj\n<< /Length 9 0 R >>\nstream\nabc\nendstream\nendobj"
	p := NewParser([]byte(input))
	p.SetReferenceResolver(lengthResolver{{Number: 9}: Int(3)})
	obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatal(err)
	}
	if got := string(obj.Object.(*Stream).Data); got != "abc" {
		t.Errorf("data = %q, want abc", got)
	}
}
