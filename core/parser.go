package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tdewolff/parse/v2/strconv"
)

// ReferenceResolver resolves indirect references met while parsing, such
// as an indirect stream /Length.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// MaxNesting is the deepest nesting of arrays and dictionaries the
// parser accepts.
const MaxNesting = 512

// Parser builds objects from the tokens of a Lexer.
type Parser struct {
	lex      *Lexer
	resolver ReferenceResolver
	depth    int
}

// NewParser creates a parser reading data from the start.
func NewParser(data []byte) *Parser {
	return &Parser{lex: NewLexer(data)}
}

// NewParserAt creates a parser reading data from offset.
func NewParserAt(data []byte, offset int64) *Parser {
	p := NewParser(data)
	p.lex.Seek(offset)
	return p
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(r ReferenceResolver) {
	p.resolver = r
}

// Lexer returns the underlying lexer.
func (p *Parser) Lexer() *Lexer { return p.lex }

// next returns the next non-comment token.
func (p *Parser) next() (Token, error) {
	for {
		tok, err := p.lex.NextToken()
		if err != nil || tok.Type != TokenComment {
			return tok, err
		}
	}
}

// ParseObject parses the next object. It returns io.EOF at end of input.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenEOF {
		return nil, io.EOF
	}
	return p.parseFrom(tok)
}

func (p *Parser) parseFrom(tok Token) (Object, error) {
	switch tok.Type {
	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
	case TokenInteger:
		return p.parseNumber(tok)
	case TokenReal:
		f, n := strconv.ParseFloat(tok.Value)
		if n == 0 {
			return nil, fmt.Errorf("invalid number %q at offset %d", tok.Value, tok.Pos)
		}
		return Real(f), nil
	case TokenString, TokenHexString:
		return String(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart, TokenDictStart:
		if p.depth >= MaxNesting {
			return nil, NewParseError(TooDeep, tok.Pos, fmt.Errorf("more than %d nested arrays and dictionaries", MaxNesting))
		}
		p.depth++
		defer func() { p.depth-- }()
		if tok.Type == TokenArrayStart {
			return p.parseArray()
		}
		return p.parseDict()
	case TokenEOF:
		return nil, io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("unexpected %s at offset %d", tok.Type, tok.Pos)
}

// parseNumber parses an integer, looking ahead for "gen R" to form an
// indirect reference.
func (p *Parser) parseNumber(tok Token) (Object, error) {
	num, n := strconv.ParseInt(tok.Value)
	if n == 0 {
		// a lone sign; some producers write "-" for zero
		return Int(0), nil
	}

	mark := p.lex.Pos()
	gen, err := p.lex.NextToken()
	if err == nil && gen.Type == TokenInteger {
		r, err := p.lex.NextToken()
		if err == nil && r.Type == TokenIndirectRef && num >= 0 {
			g, _ := strconv.ParseInt(gen.Value)
			return IndirectRef{Number: int(num), Generation: int(g)}, nil
		}
	}
	p.lex.Seek(mark)
	return Int(num), nil
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated array: %w", io.ErrUnexpectedEOF)
		}
		obj, err := p.parseFrom(tok)
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", len(arr), err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	dict := Dict{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated dictionary: %w", io.ErrUnexpectedEOF)
		case TokenName:
		default:
			return nil, fmt.Errorf("dictionary key must be a name, got %s at offset %d", tok.Type, tok.Pos)
		}
		key := string(tok.Value)

		vtok, err := p.next()
		if err != nil {
			return nil, err
		}
		if vtok.Type == TokenDictEnd {
			// key without value
			return dict, nil
		}
		value, err := p.parseFrom(vtok)
		if err != nil {
			return nil, fmt.Errorf("value for /%s: %w", key, err)
		}
		// a null value is equivalent to an absent key
		if _, isNull := value.(Null); !isNull {
			dict[key] = value
		}
	}
}

// ParseIndirectObject parses "num gen obj ... endobj", including a stream
// body when the object is a dictionary followed by the stream keyword.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	start := p.lex.Pos()
	var header [2]int64
	for i := range header {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("expected object header at offset %d, got %s", tok.Pos, tok.Type)
		}
		header[i], _ = strconv.ParseInt(tok.Value)
	}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "obj" {
		return nil, fmt.Errorf("expected 'obj' at offset %d", tok.Pos)
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d at offset %d: %w", header[0], header[1], start, err)
	}

	mark := p.lex.Pos()
	tok, err = p.next()
	if err == nil && tok.Type == TokenKeyword && string(tok.Value) == "stream" {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream at offset %d does not follow a dictionary", tok.Pos)
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, err
		}
		obj = stream
		mark = p.lex.Pos()
		tok, err = p.next()
	}
	if err != nil || tok.Type != TokenKeyword || string(tok.Value) != "endobj" {
		// tolerate a missing endobj
		p.lex.Seek(mark)
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: int(header[0]), Generation: int(header[1])},
		Object: obj,
	}, nil
}

var endstreamKeyword = []byte("endstream")

// parseStream reads the payload after the stream keyword. The declared
// /Length is trusted when endstream follows it; otherwise the payload is
// recovered by scanning for endstream.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	p.lex.SkipStreamEOL()
	start := p.lex.Pos()
	data := p.lex.Data()

	length, lengthErr := p.streamLength(dict)
	if lengthErr == nil && length >= 0 && start+length <= int64(len(data)) {
		end := start + length
		rest := NewLexer(data[end:])
		if rest.HasPrefix("endstream") {
			p.lex.Seek(end)
			p.lex.NextToken() // endstream
			return NewStream(dict, data[start:end]), nil
		}
	}

	idx := bytes.Index(data[start:], endstreamKeyword)
	if idx < 0 {
		if lengthErr != nil {
			return nil, NewParseError(TruncatedStream, start, lengthErr)
		}
		if _, err := p.lex.ReadBytes(int(length)); err != nil {
			return nil, err
		}
		// no endstream but the declared length fits
		return NewStream(dict, data[start:start+length]), nil
	}
	end := start + int64(idx)
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	p.lex.Seek(start + int64(idx) + int64(len(endstreamKeyword)))
	return NewStream(dict, data[start:end]), nil
}

func (p *Parser) streamLength(dict Dict) (int64, error) {
	switch v := dict["Length"].(type) {
	case Int:
		return int64(v), nil
	case IndirectRef:
		if p.resolver == nil {
			return 0, errors.New("indirect /Length without a resolver")
		}
		obj, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve /Length %s: %w", v, err)
		}
		n, err := AsInt(obj)
		if err != nil {
			return 0, fmt.Errorf("/Length %s: %w", v, err)
		}
		return int64(n), nil
	case nil:
		return 0, errors.New("stream has no /Length")
	default:
		return 0, &TypeError{Key: "Length", Want: ObjInt, Got: v}
	}
}
