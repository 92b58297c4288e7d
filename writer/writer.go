package writer

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
	"github.com/seyaytua/manken/security"
)

// binaryMarker follows the header so transfer tools treat the file as
// binary.
var binaryMarker = []byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'}

type config struct {
	encrypt *security.Credentials
	secOpts []security.Option
}

// Option configures Write.
type Option func(*config)

// WithEncryption encrypts the output for creds. An empty user and owner
// password leaves the output unencrypted.
func WithEncryption(creds security.Credentials, opts ...security.Option) Option {
	return func(c *config) {
		if creds.Empty() {
			c.encrypt = nil
			return
		}
		c.encrypt = &creds
		c.secOpts = opts
	}
}

// entry is one object to be written.
type entry struct {
	ref core.IndirectRef
	obj core.Object
}

// Bytes serializes doc into memory.
func Bytes(doc *document.Document, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes doc to w. A locked document, or one holding a stream
// whose payload could not be decrypted, fails with core.ErrAccessDenied.
func Write(w io.Writer, doc *document.Document, opts ...Option) error {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if doc.Locked() {
		return fmt.Errorf("failed to write document: %w", core.ErrAccessDenied)
	}

	root, err := doc.RootRef()
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	var info *core.IndirectRef
	if ref, ok := doc.Trailer().GetIndirectRef("Info"); ok {
		info = &ref
	}

	roots := []core.IndirectRef{root}
	if info != nil {
		roots = append(roots, *info)
	}
	entries, err := collect(doc, roots)
	if err != nil {
		return err
	}

	version := doc.Version()
	trailer := core.Dict{"Root": root}
	if info != nil && contains(entries, *info) {
		trailer["Info"] = *info
	}

	id := fileID(doc.Trailer())
	if id == nil {
		body, _ := serialize(version, entries)
		sum := md5.Sum(body)
		id = core.Array{core.String(sum[:]), core.String(sum[:])}
	}
	trailer["ID"] = id

	if cfg.encrypt != nil {
		first, _ := id[0].(core.String)
		handler, encDict, err := security.NewHandler(*cfg.encrypt, []byte(first), cfg.secOpts...)
		if err != nil {
			return fmt.Errorf("failed to set up encryption: %w", err)
		}
		for i := range entries {
			obj, err := handler.EncryptObject(entries[i].ref, core.Clone(entries[i].obj))
			if err != nil {
				return fmt.Errorf("failed to encrypt object %s: %w", entries[i].ref, err)
			}
			entries[i].obj = obj
		}
		encRef := core.IndirectRef{Number: maxNumber(entries) + 1}
		entries = append(entries, entry{ref: encRef, obj: encDict})
		trailer["Encrypt"] = encRef
		if v := handler.MinVersion(); version < v {
			version = v
		}
	}

	body, offsets := serialize(version, entries)
	out := bytes.NewBuffer(body)
	writeXRef(out, entries, offsets, trailer)
	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// collect walks the object graph from the trailer and returns every
// reachable object in ascending number. Cross-reference and object
// stream containers are left out; their contents are written as
// ordinary objects.
func collect(doc *document.Document, roots []core.IndirectRef) ([]entry, error) {
	seen := bitset.New(uint(doc.MaxNumber() + 1))
	stack := append([]core.IndirectRef(nil), roots...)

	var entries []entry
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		// numbers past the table are dangling and write as nothing
		if !ref.Valid() || ref.Number > doc.MaxNumber() || seen.Test(uint(ref.Number)) {
			continue
		}
		seen.Set(uint(ref.Number))

		obj, err := doc.Get(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to write object %s: %w", ref, err)
		}
		if _, isNull := obj.(core.Null); isNull {
			continue
		}
		if s, ok := obj.(*core.Stream); ok {
			if err := s.Denied(); err != nil {
				return nil, fmt.Errorf("failed to write object %s: %w", ref, err)
			}
			if t, _ := s.Dict.GetName("Type"); t == "XRef" || t == "ObjStm" {
				continue
			}
		}
		entries = append(entries, entry{ref: ref, obj: obj})
		stack = appendRefs(stack, obj)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ref.Number < entries[j].ref.Number
	})
	return entries, nil
}

// appendRefs pushes the references held by obj. A stream's /Length is
// skipped since it is rewritten as a direct integer.
func appendRefs(stack []core.IndirectRef, obj core.Object) []core.IndirectRef {
	switch v := obj.(type) {
	case core.IndirectRef:
		stack = append(stack, v)
	case core.Array:
		for _, elem := range v {
			stack = appendRefs(stack, elem)
		}
	case core.Dict:
		for _, key := range v.Keys() {
			stack = appendRefs(stack, v[key])
		}
	case *core.Stream:
		for _, key := range v.Dict.Keys() {
			if key != "Length" {
				stack = appendRefs(stack, v.Dict[key])
			}
		}
	}
	return stack
}

func contains(entries []entry, ref core.IndirectRef) bool {
	for _, e := range entries {
		if e.ref.Number == ref.Number {
			return true
		}
	}
	return false
}

func maxNumber(entries []entry) int {
	if len(entries) == 0 {
		return 0
	}
	return entries[len(entries)-1].ref.Number
}

// fileID returns the trailer /ID when it is a pair of strings.
func fileID(trailer core.Dict) core.Array {
	arr, ok := trailer.GetArray("ID")
	if !ok || len(arr) != 2 {
		return nil
	}
	for _, v := range arr {
		if _, ok := v.(core.String); !ok {
			return nil
		}
	}
	return core.Array{arr[0], arr[1]}
}

// serialize writes the header and the objects. It returns the bytes and
// the offset of each object, indexed like entries.
func serialize(version string, entries []entry) ([]byte, []int) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", version)
	buf.Write(binaryMarker)

	offsets := make([]int, len(entries))
	for i, e := range entries {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d %d obj\n", e.ref.Number, e.ref.Generation)
		writeObject(&buf, e.obj)
		buf.WriteString("\nendobj\n")
	}
	return buf.Bytes(), offsets
}

// writeXRef appends the cross-reference table, trailer and startxref.
// Numbers without an object are written as free entries.
func writeXRef(buf *bytes.Buffer, entries []entry, offsets []int, trailer core.Dict) {
	size := maxNumber(entries) + 1
	start := buf.Len()

	byNum := make(map[int]int, len(entries))
	for i, e := range entries {
		byNum[e.ref.Number] = i
	}

	fmt.Fprintf(buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num < size; num++ {
		i, ok := byNum[num]
		if !ok {
			buf.WriteString("0000000000 00000 f \n")
			continue
		}
		fmt.Fprintf(buf, "%010d %05d n \n", offsets[i], entries[i].ref.Generation)
	}

	trailer["Size"] = core.Int(size)
	buf.WriteString("trailer\n")
	writeObject(buf, trailer)
	fmt.Fprintf(buf, "\nstartxref\n%d\n%%%%EOF\n", start)
}
