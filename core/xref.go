package core

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tdewolff/parse/v2/strconv"
)

// XRefKind says where an object lives.
type XRefKind int

const (
	XRefFree       XRefKind = iota
	XRefInUse               // stored at Offset in the file
	XRefCompressed          // stored at Index inside object stream StreamNum
)

// XRefEntry locates one object.
type XRefEntry struct {
	Kind       XRefKind
	Offset     int64
	Generation int
	StreamNum  int
	Index      int
}

// InUse reports whether the entry refers to a live object.
func (e *XRefEntry) InUse() bool {
	return e.Kind != XRefFree
}

// XRefTable maps object numbers to their locations. Trailer is the
// trailer dictionary of the newest section.
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

// NewXRefTable creates an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get returns the entry for an object number.
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or replaces an entry.
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries.
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// merge adds entries from an older section; entries already present win.
func (x *XRefTable) merge(older *XRefTable) {
	for num, entry := range older.Entries {
		if _, ok := x.Entries[num]; !ok {
			x.Entries[num] = entry
		}
	}
}

// XRefParser reads cross-reference sections from a whole file held in memory.
type XRefParser struct {
	data []byte
}

// NewXRefParser creates a parser over the file contents.
func NewXRefParser(data []byte) *XRefParser {
	return &XRefParser{data: data}
}

var startxrefKeyword = []byte("startxref")

// FindXRef returns the offset recorded after the last startxref keyword.
func (x *XRefParser) FindXRef() (int64, error) {
	tail := x.data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, startxrefKeyword)
	if idx < 0 {
		return 0, NewParseError(BadXref, -1, errors.New("startxref not found"))
	}
	rest := bytes.TrimLeft(tail[idx+len(startxrefKeyword):], " \t\r\n\f\x00")
	offset, n := strconv.ParseUint(rest)
	if n == 0 {
		return 0, NewParseError(BadXref, int64(len(x.data)-len(tail)+idx), errors.New("startxref has no offset"))
	}
	if offset >= uint64(len(x.data)) {
		return 0, NewParseError(BadXref, int64(offset), errors.New("startxref points past end of file"))
	}
	return int64(offset), nil
}

// ParseXRef parses the section at offset, which is either a classic table
// or an xref stream.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(x.data)) {
		return nil, NewParseError(BadXref, offset, errors.New("offset outside file"))
	}
	lex := NewLexer(x.data)
	lex.Seek(offset)
	if lex.HasPrefix("xref") {
		return x.parseTable(offset)
	}
	if x.isXRefStream(offset) {
		return x.parseXRefStream(offset)
	}
	return nil, NewParseError(BadXref, offset, errors.New("no xref table or xref stream"))
}

// isXRefStream reports whether an indirect object header starts at offset.
func (x *XRefParser) isXRefStream(offset int64) bool {
	lex := NewLexer(x.data)
	lex.Seek(offset)
	for _, want := range []TokenType{TokenInteger, TokenInteger, TokenKeyword} {
		tok, err := lex.NextToken()
		if err != nil || tok.Type != want {
			return false
		}
	}
	return true
}

// parseTable parses "xref" subsections followed by "trailer << ... >>".
func (x *XRefParser) parseTable(offset int64) (*XRefTable, error) {
	lex := NewLexer(x.data)
	lex.Seek(offset)
	lex.NextToken() // xref

	table := NewXRefTable()
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, NewParseError(BadXref, lex.Pos(), err)
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		if tok.Type != TokenInteger {
			return nil, NewParseError(BadXref, tok.Pos, fmt.Errorf("expected subsection header, got %s", tok.Type))
		}
		first, _ := strconv.ParseInt(tok.Value)
		countTok, err := lex.NextToken()
		if err != nil || countTok.Type != TokenInteger {
			return nil, NewParseError(BadXref, tok.Pos, errors.New("subsection header missing count"))
		}
		count, _ := strconv.ParseInt(countTok.Value)

		for i := int64(0); i < count; i++ {
			entry, err := x.parseEntry(lex)
			if err != nil {
				return nil, err
			}
			num := int(first + i)
			if num < 0 || num > MaxObjectNumber {
				continue
			}
			if _, dup := table.Entries[num]; !dup {
				table.Set(num, entry)
			}
		}
	}

	p := NewParserAt(x.data, lex.Pos())
	obj, err := p.ParseObject()
	if err != nil {
		return nil, NewParseError(BadXref, lex.Pos(), fmt.Errorf("trailer: %w", err))
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, NewParseError(BadXref, lex.Pos(), &TypeError{Key: "trailer", Want: ObjDict, Got: obj})
	}
	table.Trailer = trailer
	return table, nil
}

// parseEntry reads "oooooooooo ggggg n" from the lexer. Field widths are
// not enforced; some writers pad differently.
func (x *XRefParser) parseEntry(lex *Lexer) (*XRefEntry, error) {
	var fields [3]Token
	for i := range fields {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, NewParseError(BadXref, lex.Pos(), err)
		}
		fields[i] = tok
	}
	if fields[0].Type != TokenInteger || fields[1].Type != TokenInteger || fields[2].Type != TokenKeyword {
		return nil, NewParseError(BadXref, fields[0].Pos, errors.New("malformed xref entry"))
	}
	off, _ := strconv.ParseInt(fields[0].Value)
	gen, _ := strconv.ParseInt(fields[1].Value)

	entry := &XRefEntry{Offset: off, Generation: int(gen)}
	switch string(fields[2].Value) {
	case "n":
		entry.Kind = XRefInUse
	case "f":
		entry.Kind = XRefFree
	default:
		return nil, NewParseError(BadXref, fields[2].Pos, fmt.Errorf("invalid xref entry type %q", fields[2].Value))
	}
	return entry, nil
}

// parseXRefStream parses a /Type /XRef stream object at offset.
func (x *XRefParser) parseXRefStream(offset int64) (*XRefTable, error) {
	p := NewParserAt(x.data, offset)
	p.SetReferenceResolver(x)
	iobj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, NewParseError(BadXref, offset, err)
	}
	stream, ok := iobj.Object.(*Stream)
	if !ok {
		return nil, NewParseError(BadXref, offset, errors.New("xref object is not a stream"))
	}
	if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
		return nil, NewParseError(BadXref, offset, fmt.Errorf("stream type is /%s, want /XRef", t))
	}

	widths, err := xrefWidths(stream.Dict)
	if err != nil {
		return nil, NewParseError(BadXref, offset, err)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, NewParseError(BadXref, offset, err)
	}

	size, _ := stream.Dict.GetInt("Size")
	index := []int64{0, int64(size)}
	if arr, ok := stream.Dict.GetArray("Index"); ok {
		index = index[:0]
		for _, v := range arr {
			n, err := AsInt(v)
			if err != nil {
				return nil, NewParseError(BadXref, offset, fmt.Errorf("/Index: %w", err))
			}
			index = append(index, int64(n))
		}
		if len(index)%2 != 0 {
			return nil, NewParseError(BadXref, offset, errors.New("/Index has odd length"))
		}
	}

	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return nil, NewParseError(BadXref, offset, errors.New("/W describes empty rows"))
	}

	table := NewXRefTable()
	pos := 0
	for i := 0; i < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := int64(0); j < count; j++ {
			if pos+rowLen > len(data) {
				// short streams are common; keep what was read
				break
			}
			if num := int(first + j); num >= 0 && num <= MaxObjectNumber {
				table.Set(num, parseXRefStreamEntry(data[pos:pos+rowLen], widths))
			}
			pos += rowLen
		}
	}

	trailer := stream.Dict.Clone()
	for _, k := range []string{"Length", "Filter", "DecodeParms", "W", "Index", "Type"} {
		trailer.Delete(k)
	}
	table.Trailer = trailer
	return table, nil
}

func xrefWidths(dict Dict) ([3]int, error) {
	var w [3]int
	arr, ok := dict.GetArray("W")
	if !ok || len(arr) < 3 {
		return w, errors.New("xref stream missing /W")
	}
	for i := 0; i < 3; i++ {
		n, err := AsInt(arr[i])
		if err != nil || n < 0 || n > 8 {
			return w, fmt.Errorf("invalid /W entry %v", arr[i])
		}
		w[i] = n
	}
	return w, nil
}

// parseXRefStreamEntry decodes one row. A zero width type field defaults
// to type 1.
func parseXRefStreamEntry(row []byte, w [3]int) *XRefEntry {
	typ := int64(1)
	if w[0] > 0 {
		typ = readBigEndianInt(row[:w[0]], w[0])
	}
	f2 := readBigEndianInt(row[w[0]:w[0]+w[1]], w[1])
	f3 := readBigEndianInt(row[w[0]+w[1]:], w[2])

	switch typ {
	case 0:
		return &XRefEntry{Kind: XRefFree, Offset: f2, Generation: int(f3)}
	case 2:
		return &XRefEntry{Kind: XRefCompressed, StreamNum: int(f2), Index: int(f3)}
	default:
		return &XRefEntry{Kind: XRefInUse, Offset: f2, Generation: int(f3)}
	}
}

func readBigEndianInt(data []byte, width int) int64 {
	var v int64
	for i := 0; i < width && i < len(data); i++ {
		v = v<<8 | int64(data[i])
	}
	return v
}

// ResolveReference lets the xref stream parser follow an indirect /Length.
// Only direct objects at classic offsets can be reached this early.
func (x *XRefParser) ResolveReference(ref IndirectRef) (Object, error) {
	return nil, fmt.Errorf("object %s cannot be resolved while reading cross-reference data", ref)
}

// ParseAll follows the chain from the last startxref through /Prev and
// /XRefStm links and returns the merged table. Newer sections override
// older ones per object number; the trailer is the newest one.
func (x *XRefParser) ParseAll() (*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	merged := NewXRefTable()
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			return nil, NewParseError(BadXref, offset, errors.New("loop in /Prev chain"))
		}
		seen[offset] = true

		section, err := x.ParseXRef(offset)
		if err != nil {
			return nil, err
		}
		// hybrid file: the stream section is newer than the table it
		// accompanies
		if stm, ok := section.Trailer.GetInt("XRefStm"); ok && !seen[int64(stm)] {
			seen[int64(stm)] = true
			hidden, err := x.ParseXRef(int64(stm))
			if err != nil {
				return nil, err
			}
			merged.merge(hidden)
		}
		merged.merge(section)
		for k, v := range section.Trailer {
			if !merged.Trailer.Has(k) {
				merged.Trailer[k] = v
			}
		}

		prev, ok := section.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	return merged, nil
}
