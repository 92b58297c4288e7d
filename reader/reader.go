package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/edsrzf/mmap-go"
	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
	"github.com/seyaytua/manken/security"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

type config struct {
	password    string
	requireAuth bool
}

// Option configures Parse and Open
type Option func(*config)

// WithPassword sets the password tried on encrypted documents
func WithPassword(password string) Option {
	return func(c *config) { c.password = password }
}

// RequireAuth makes Parse fail with core.ErrAccessDenied when the
// password does not open an encrypted document
func RequireAuth() Option {
	return func(c *config) { c.requireAuth = true }
}

// Reader serves the objects of one PDF file. It implements
// document.Source and, for encrypted files, document.Gate.
type Reader struct {
	data      []byte
	xrefTable *core.XRefTable
	trailer   core.Dict
	version   PDFVersion

	objStreams map[int]*core.ObjectStream
	resolving  map[int]bool

	encrypt    core.Dict
	encryptRef core.IndirectRef
	fileID     []byte
	handler    *security.Handler
}

var (
	_ document.Source = (*Reader)(nil)
	_ document.Gate   = (*Reader)(nil)
)

// NewReader parses the header and cross-reference data of a PDF held in
// memory. Objects are not parsed until loaded.
func NewReader(data []byte, opts ...Option) (*Reader, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Reader{
		data:       data,
		objStreams: make(map[int]*core.ObjectStream),
		resolving:  make(map[int]bool),
	}

	version, err := r.parseHeader()
	if err != nil {
		return nil, err
	}
	r.version = version

	table, err := core.NewXRefParser(data).ParseAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load xref: %w", err)
	}
	r.xrefTable = table
	r.trailer = table.Trailer
	if _, ok := r.trailer.GetIndirectRef("Root"); !ok {
		return nil, core.NewParseError(core.BadXref, -1, errors.New("trailer has no /Root reference"))
	}

	if err := r.setupEncryption(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Parse reads a PDF from memory. data must not be modified while the
// document is in use.
func Parse(data []byte, opts ...Option) (*document.Document, error) {
	r, err := NewReader(data, opts...)
	if err != nil {
		return nil, err
	}
	doc := document.NewFromSource(r, r.trailer, r.version.String())
	if r.encrypt != nil {
		doc.SetGate(r)
	}
	return doc, nil
}

type mappedFile struct {
	file *os.File
	mmap mmap.MMap
}

func (m *mappedFile) Close() error {
	err := m.mmap.Unmap()
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Open memory maps a PDF file and parses it. The returned closer unmaps
// the file; the document must not be used after closing it.
func Open(filename string, opts ...Option) (*document.Document, io.Closer, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if info.Size() == 0 {
		file.Close()
		return nil, nil, core.NewParseError(core.BadHeader, 0, errors.New("empty file"))
	}

	m, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to map file: %w", err)
	}
	closer := &mappedFile{file: file, mmap: m}

	doc, err := Parse(m, opts...)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return doc, closer, nil
}

var versionPattern = regexp.MustCompile(`^(\d)\.(\d)`)

// parseHeader parses the PDF header (%PDF-x.y). Some producers put junk
// before it, so the first kilobyte is searched.
func (r *Reader) parseHeader() (PDFVersion, error) {
	head := r.data
	if len(head) > 1024 {
		head = head[:1024]
	}
	idx := bytes.Index(head, []byte("%PDF-"))
	if idx < 0 {
		return PDFVersion{}, core.NewParseError(core.BadHeader, 0, errors.New("missing %PDF- signature"))
	}

	matches := versionPattern.FindSubmatch(r.data[idx+5:])
	if matches == nil {
		return PDFVersion{}, core.NewParseError(core.BadHeader, int64(idx), errors.New("invalid version number"))
	}
	return PDFVersion{Major: int(matches[1][0] - '0'), Minor: int(matches[2][0] - '0')}, nil
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// XRefTable returns the merged cross-reference table
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xrefTable
}

// Refs lists every object the cross-reference table marks in use.
func (r *Reader) Refs() []core.IndirectRef {
	refs := make([]core.IndirectRef, 0, len(r.xrefTable.Entries))
	for num, entry := range r.xrefTable.Entries {
		if num == 0 || !entry.InUse() {
			continue
		}
		gen := entry.Generation
		if entry.Kind == core.XRefCompressed {
			gen = 0
		}
		refs = append(refs, core.IndirectRef{Number: num, Generation: gen})
	}
	return refs
}

// Load parses the object for ref and decrypts it if needed.
func (r *Reader) Load(ref core.IndirectRef) (core.Object, error) {
	obj, err := r.loadRaw(ref)
	if err != nil {
		return nil, err
	}
	if entry, _ := r.xrefTable.Get(ref.Number); entry.Kind == core.XRefCompressed {
		return obj, nil
	}
	return r.decrypt(ref, obj), nil
}

// loadRaw parses an object without decryption. Objects from object
// streams are returned as stored; the container was decrypted as a whole.
func (r *Reader) loadRaw(ref core.IndirectRef) (core.Object, error) {
	entry, ok := r.xrefTable.Get(ref.Number)
	if !ok || !entry.InUse() {
		return nil, document.ErrObjectNotFound
	}
	if entry.Kind == core.XRefCompressed {
		return r.loadCompressed(ref.Number, entry)
	}
	if entry.Generation != ref.Generation {
		return nil, document.ErrObjectNotFound
	}

	if r.resolving[ref.Number] {
		return nil, core.NewParseError(core.CyclicReference, entry.Offset,
			fmt.Errorf("object %d needed to parse itself", ref.Number))
	}
	r.resolving[ref.Number] = true
	defer delete(r.resolving, ref.Number)

	parser := core.NewParserAt(r.data, entry.Offset)
	parser.SetReferenceResolver(r)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", ref.Number, err)
	}

	// Verify object number matches
	if indObj.Ref.Number != ref.Number {
		return nil, core.NewParseError(core.BadXref, entry.Offset,
			fmt.Errorf("object number mismatch: expected %d, got %d", ref.Number, indObj.Ref.Number))
	}
	return indObj.Object, nil
}

func (r *Reader) loadCompressed(num int, entry *core.XRefEntry) (core.Object, error) {
	stm, ok := r.objStreams[entry.StreamNum]
	if !ok {
		obj, err := r.Load(core.IndirectRef{Number: entry.StreamNum})
		if err != nil {
			return nil, fmt.Errorf("failed to load object stream %d: %w", entry.StreamNum, err)
		}
		stream, err := core.AsStream(obj)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.StreamNum, err)
		}
		if stm, err = core.NewObjectStream(stream); err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.StreamNum, err)
		}
		r.objStreams[entry.StreamNum] = stm
	}
	obj, err := stm.GetObjectByNumber(num, entry.Index)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", entry.StreamNum, err)
	}
	return obj, nil
}

// ResolveReference resolves an indirect /Length while parsing a stream
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.loadRaw(ref)
}
