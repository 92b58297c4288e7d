package core

import (
	"bytes"
	"errors"
	"testing"
)

// TestLexerTokens tests tokenization of each token class.
func TestLexerTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		typ   TokenType
		value string
	}{
		{"integer", "123", TokenInteger, "123"},
		{"negative", "-17", TokenInteger, "-17"},
		{"real", "3.14", TokenReal, "3.14"},
		{"leading dot", ".5", TokenReal, ".5"},
		{"name", "/Type", TokenName, "Type"},
		{"name escape", "/A#20B", TokenName, "A B"},
		{"string", "(hello)", TokenString, "hello"},
		{"nested string", "(a(b)c)", TokenString, "a(b)c"},
		{"escapes", `(a\nb\(\)\\)`, TokenString, "a\nb()\\"},
		{"octal", `(\101\7)`, TokenString, "A\x07"},
		{"line continuation", "(ab\\\ncd)", TokenString, "abcd"},
		{"hex", "<48 65 6c>", TokenHexString, "Hel"},
		{"odd hex", "<414>", TokenHexString, "A@"},
		{"dict start", "<<", TokenDictStart, "<<"},
		{"dict end", ">>", TokenDictEnd, ">>"},
		{"array start", "[", TokenArrayStart, "["},
		{"keyword", "endobj", TokenKeyword, "endobj"},
		{"reference", "R", TokenIndirectRef, "R"},
		{"comment", "% note\n", TokenComment, "% note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := NewLexer([]byte(tt.input)).NextToken()
			if err != nil {
				t.Fatalf("NextToken error: %v", err)
			}
			if tok.Type != tt.typ {
				t.Errorf("type = %v, want %v", tok.Type, tt.typ)
			}
			if string(tok.Value) != tt.value {
				t.Errorf("value = %q, want %q", tok.Value, tt.value)
			}
		})
	}
}

// TestLexerSequence tests positions across a token run.
func TestLexerSequence(t *testing.T) {
	lex := NewLexer([]byte("  1 0 obj\n<< >>"))
	var types []TokenType
	var positions []int64
	for {
		tok, err := lex.NextToken()
		if err != nil {
			t.Fatal(err)
		}
		if tok.Type == TokenEOF {
			break
		}
		types = append(types, tok.Type)
		positions = append(positions, tok.Pos)
	}
	wantTypes := []TokenType{TokenInteger, TokenInteger, TokenKeyword, TokenDictStart, TokenDictEnd}
	wantPos := []int64{2, 4, 6, 10, 13}
	if len(types) != len(wantTypes) {
		t.Fatalf("got %d tokens, want %d", len(types), len(wantTypes))
	}
	for i := range types {
		if types[i] != wantTypes[i] || positions[i] != wantPos[i] {
			t.Errorf("token %d = %v@%d, want %v@%d", i, types[i], positions[i], wantTypes[i], wantPos[i])
		}
	}
}

// TestLexerErrors tests malformed input.
func TestLexerErrors(t *testing.T) {
	for _, input := range []string{"(unterminated", "<4G>", "<414", ">x", ")"} {
		if _, err := NewLexer([]byte(input)).NextToken(); err == nil {
			t.Errorf("NextToken(%q) expected error", input)
		}
	}
}

// TestLexerStreamPayload tests EOL skipping and bounded reads.
func TestLexerStreamPayload(t *testing.T) {
	lex := NewLexer([]byte("\r\nABCDE"))
	lex.SkipStreamEOL()
	got, err := lex.ReadBytes(5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("ABCDE")) {
		t.Errorf("ReadBytes = %q", got)
	}

	_, err = lex.ReadBytes(1)
	if !errors.Is(err, ErrTruncatedStream) {
		t.Errorf("ReadBytes past end error = %v, want ErrTruncatedStream", err)
	}
}
