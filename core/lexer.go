package core

import (
	"bytes"
	"fmt"
)

// TokenType is the lexical class of a Token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword     // true, false, null, obj, endobj, stream, endstream, xref, trailer...
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello), escapes resolved
	TokenHexString   // <48656C6C6F>, digits decoded
	TokenName        // /Type, #xx escapes resolved
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenComment:
		return "comment"
	case TokenKeyword:
		return "keyword"
	case TokenInteger:
		return "integer"
	case TokenReal:
		return "real"
	case TokenString:
		return "string"
	case TokenHexString:
		return "hex string"
	case TokenName:
		return "name"
	case TokenArrayStart:
		return "'['"
	case TokenArrayEnd:
		return "']'"
	case TokenDictStart:
		return "'<<'"
	case TokenDictEnd:
		return "'>>'"
	case TokenIndirectRef:
		return "'R'"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexical token. Pos is its offset in the lexer input.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
}

// Lexer tokenizes PDF syntax from an in-memory buffer. The buffer may be
// a memory mapped file; token values for strings and names are copies,
// stream payloads returned by ReadBytes are subslices.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer positioned at the start of data.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the current offset.
func (l *Lexer) Pos() int64 { return int64(l.pos) }

// Seek moves to offset, clamped to the input bounds.
func (l *Lexer) Seek(offset int64) {
	switch {
	case offset < 0:
		l.pos = 0
	case offset > int64(len(l.data)):
		l.pos = len(l.data)
	default:
		l.pos = int(offset)
	}
}

// Data returns the whole input.
func (l *Lexer) Data() []byte { return l.data }

// NextToken returns the next token, skipping whitespace. At the end of
// input it returns a TokenEOF token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()
	start := int64(l.pos)
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	c := l.data[l.pos]
	switch c {
	case '%':
		return l.readComment(), nil
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if l.at(1) == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if l.at(1) == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at offset %d", start)
	case '/':
		return l.readName()
	case ')', '{', '}':
		return Token{}, fmt.Errorf("unexpected %q at offset %d", c, start)
	}

	if isDigit(c) || c == '-' || c == '+' || c == '.' {
		return l.readNumber(), nil
	}
	return l.readKeyword(), nil
}

// at returns the byte k positions ahead, or 0 past the end.
func (l *Lexer) at(k int) byte {
	if l.pos+k < len(l.data) {
		return l.data[l.pos+k]
	}
	return 0
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) readComment() Token {
	start := l.pos
	for l.pos < len(l.data) && l.data[l.pos] != '\r' && l.data[l.pos] != '\n' {
		l.pos++
	}
	return Token{Type: TokenComment, Value: l.data[start:l.pos], Pos: int64(start)}
}

// readString reads a literal string with balanced parentheses.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1

	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: int64(start)}, nil
			}
		case '\\':
			l.readEscape(&buf)
			continue
		case '\r':
			// end-of-line markers inside strings read as a single LF
			if l.at(0) == '\n' {
				l.pos++
			}
			c = '\n'
		}
		buf.WriteByte(c)
	}
	return Token{}, fmt.Errorf("unterminated string starting at offset %d", start)
}

func (l *Lexer) readEscape(buf *bytes.Buffer) {
	if l.pos >= len(l.data) {
		return
	}
	c := l.data[l.pos]
	l.pos++
	switch c {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		if l.at(0) == '\n' {
			l.pos++
		}
	case '\n':
	default:
		if isOctalDigit(c) {
			v := c - '0'
			for i := 0; i < 2 && isOctalDigit(l.at(0)); i++ {
				v = v*8 + (l.data[l.pos] - '0')
				l.pos++
			}
			buf.WriteByte(v)
			return
		}
		// \( \) \\ and unknown escapes keep the character
		buf.WriteByte(c)
	}
}

// readHexString reads <...> and returns the decoded bytes.
func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	l.pos++ // <
	var out []byte
	var hi byte
	half := false

	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if half {
				out = append(out, hi<<4)
			}
			return Token{Type: TokenHexString, Value: out, Pos: int64(start)}, nil
		}
		if isWhitespace(c) {
			continue
		}
		if !isHexDigit(c) {
			return Token{}, fmt.Errorf("invalid hex digit %q at offset %d", c, l.pos-1)
		}
		if half {
			out = append(out, hi<<4|hexValue(c))
		} else {
			hi = hexValue(c)
		}
		half = !half
	}
	return Token{}, fmt.Errorf("unterminated hex string starting at offset %d", start)
}

// readName reads /Name, resolving #xx escapes.
func (l *Lexer) readName() (Token, error) {
	start := l.pos
	l.pos++ // /
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		l.pos++
		if c == '#' && isHexDigit(l.at(0)) && isHexDigit(l.at(1)) {
			buf.WriteByte(hexValue(l.data[l.pos])<<4 | hexValue(l.data[l.pos+1]))
			l.pos += 2
			continue
		}
		buf.WriteByte(c)
	}
	return Token{Type: TokenName, Value: buf.Bytes(), Pos: int64(start)}, nil
}

// readNumber reads an integer or real. A second '.' ends the token.
func (l *Lexer) readNumber() Token {
	start := l.pos
	isReal := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '.' {
			if isReal {
				break
			}
			isReal = true
		} else if !isDigit(c) && !((c == '-' || c == '+') && l.pos == start) {
			break
		}
		l.pos++
	}
	typ := TokenInteger
	if isReal {
		typ = TokenReal
	}
	return Token{Type: typ, Value: l.data[start:l.pos], Pos: int64(start)}
}

// readKeyword reads a run of regular characters.
func (l *Lexer) readKeyword() Token {
	start := l.pos
	for l.pos < len(l.data) && !isWhitespace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	value := l.data[start:l.pos]
	if len(value) == 1 && value[0] == 'R' {
		return Token{Type: TokenIndirectRef, Value: value, Pos: int64(start)}
	}
	return Token{Type: TokenKeyword, Value: value, Pos: int64(start)}
}

// SkipStreamEOL consumes the end-of-line marker that follows the stream
// keyword: CRLF or LF, and a lone CR as written by some producers.
func (l *Lexer) SkipStreamEOL() {
	// spaces before the EOL are tolerated
	for l.at(0) == ' ' {
		l.pos++
	}
	switch l.at(0) {
	case '\r':
		l.pos++
		if l.at(0) == '\n' {
			l.pos++
		}
	case '\n':
		l.pos++
	}
}

// ReadBytes returns the next n bytes without copying.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || l.pos+n > len(l.data) {
		return nil, NewParseError(TruncatedStream, int64(l.pos),
			fmt.Errorf("need %d bytes, %d remain", n, len(l.data)-l.pos))
	}
	b := l.data[l.pos : l.pos+n]
	l.pos += n
	return b, nil
}

// HasPrefix reports whether the input at the current position, after
// whitespace, starts with s. The position is not changed.
func (l *Lexer) HasPrefix(s string) bool {
	p := l.pos
	for p < len(l.data) && isWhitespace(l.data[p]) {
		p++
	}
	return bytes.HasPrefix(l.data[p:], []byte(s))
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
