package contentstream

import (
	"fmt"

	"github.com/seyaytua/manken/core"
	"github.com/tdewolff/parse/v2/strconv"
)

// Operation represents a single content stream operation consisting of an
// operator and its operands. Operands are PDF objects that precede the operator.
type Operation struct {
	Operator string        // The operator (e.g., "Tj", "Tm", "q")
	Operands []core.Object // The operands
	Data     []byte        // Image bytes of an inline image (BI)
}

// Parser parses PDF content streams into a sequence of operations.
// Each operation consists of an operator and its operands.
type Parser struct {
	data     []byte
	lex      *core.Lexer
	operands []core.Object
	ops      []Operation
}

// NewParser creates a new content stream parser for the given data.
func NewParser(data []byte) *Parser {
	return &Parser{
		data: data,
		lex:  core.NewLexer(data),
	}
}

// Parse parses the content stream and returns all operations in order.
// Operands left over at the end of the stream are an error.
func (p *Parser) Parse() ([]Operation, error) {
	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case core.TokenEOF:
			if len(p.operands) > 0 {
				return nil, fmt.Errorf("%d operands without operator at end of stream", len(p.operands))
			}
			return p.ops, nil
		case core.TokenComment:
			continue
		case core.TokenKeyword, core.TokenIndirectRef:
			if err := p.keyword(tok); err != nil {
				return nil, err
			}
		default:
			operand, err := p.operand(tok)
			if err != nil {
				return nil, fmt.Errorf("at position %d: %w", tok.Pos, err)
			}
			p.operands = append(p.operands, operand)
		}
	}
}

// keyword handles a bare word: true, false and null are operands, all
// other words are operators.
func (p *Parser) keyword(tok core.Token) error {
	switch word := string(tok.Value); word {
	case "true":
		p.operands = append(p.operands, core.Bool(true))
	case "false":
		p.operands = append(p.operands, core.Bool(false))
	case "null":
		p.operands = append(p.operands, core.Null{})
	case "BI":
		return p.inlineImage(tok.Pos)
	default:
		p.emit(Operation{Operator: word})
	}
	return nil
}

// emit records op with the pending operands.
func (p *Parser) emit(op Operation) {
	op.Operands = append(op.Operands, p.operands...)
	p.operands = p.operands[:0]
	p.ops = append(p.ops, op)
}

// operand converts a non-keyword token. Arrays and dictionaries are
// handed to the object parser.
func (p *Parser) operand(tok core.Token) (core.Object, error) {
	switch tok.Type {
	case core.TokenInteger:
		n, _ := strconv.ParseInt(tok.Value)
		return core.Int(n), nil
	case core.TokenReal:
		f, n := strconv.ParseFloat(tok.Value)
		if n == 0 {
			return nil, fmt.Errorf("invalid number %q", tok.Value)
		}
		return core.Real(f), nil
	case core.TokenString, core.TokenHexString:
		return core.String(tok.Value), nil
	case core.TokenName:
		return core.Name(tok.Value), nil
	case core.TokenArrayStart, core.TokenDictStart:
		parser := core.NewParserAt(p.data, tok.Pos)
		obj, err := parser.ParseObject()
		if err != nil {
			return nil, err
		}
		p.lex.Seek(parser.Lexer().Pos())
		return obj, nil
	}
	return nil, fmt.Errorf("unexpected %s", tok.Type)
}

// inlineImage reads "BI key value ... ID data EI". The image dictionary
// becomes the single operand and the raw bytes go to Data.
func (p *Parser) inlineImage(start int64) error {
	dict := core.Dict{}
	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			return err
		}
		if tok.Type == core.TokenKeyword && string(tok.Value) == "ID" {
			break
		}
		if tok.Type != core.TokenName {
			return fmt.Errorf("inline image at position %d: expected key, got %s", start, tok.Type)
		}
		vtok, err := p.lex.NextToken()
		if err != nil {
			return err
		}
		var value core.Object
		switch {
		case vtok.Type == core.TokenKeyword && string(vtok.Value) == "true":
			value = core.Bool(true)
		case vtok.Type == core.TokenKeyword && string(vtok.Value) == "false":
			value = core.Bool(false)
		case vtok.Type == core.TokenKeyword:
			// abbreviated filter names are sometimes written bare
			value = core.Name(vtok.Value)
		default:
			if value, err = p.operand(vtok); err != nil {
				return fmt.Errorf("inline image at position %d: %w", start, err)
			}
		}
		dict[string(tok.Value)] = value
	}

	// one whitespace byte separates ID from the data
	pos := int(p.lex.Pos()) + 1
	if pos > len(p.data) {
		return fmt.Errorf("inline image at position %d: no data", start)
	}
	end := findEI(p.data, pos)
	if end < 0 {
		return fmt.Errorf("inline image at position %d: missing EI", start)
	}
	// the whitespace before EI belongs to the operator
	stop := end
	if stop > pos && isWhitespace(p.data[stop-1]) {
		stop--
		if stop > pos && p.data[stop] == '\n' && p.data[stop-1] == '\r' {
			stop--
		}
	}
	data := p.data[pos:stop]
	p.lex.Seek(int64(end + 2))

	p.emit(Operation{Operator: "BI", Operands: []core.Object{dict}, Data: data})
	return nil
}

// findEI returns the offset of an EI keyword at or after pos that is
// preceded by whitespace and followed by whitespace or the end of data.
func findEI(data []byte, pos int) int {
	for i := pos; i+1 < len(data); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		if i > pos && !isWhitespace(data[i-1]) {
			continue
		}
		if i+2 < len(data) && !isWhitespace(data[i+2]) {
			continue
		}
		return i
	}
	return -1
}

// Validate reports whether data parses as a content stream.
func Validate(data []byte) error {
	_, err := NewParser(data).Parse()
	return err
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
