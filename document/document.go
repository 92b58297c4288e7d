// Package document holds a PDF document in memory: an object table keyed
// by indirect reference, the trailer dictionary and the header version.
//
// Objects come from an optional Source (the reader) and are loaded on
// first access. Mutations are made on the loaded objects themselves or via
// Set, Add and Delete. A Document is not safe for concurrent use.
package document

import (
	"errors"
	"fmt"
	"sort"

	"github.com/seyaytua/manken/core"
)

// ErrObjectNotFound is returned by a Source for references it does not
// know. Document.Get turns it into core.Null.
var ErrObjectNotFound = errors.New("object not found")

// Source loads objects on demand.
type Source interface {
	Load(ref core.IndirectRef) (core.Object, error)
	Refs() []core.IndirectRef
}

// Gate controls access to the strings and streams of an encrypted
// document.
type Gate interface {
	Locked() bool
	Authorize(password string) error
}

// DefaultVersion is the header version of documents created by New.
const DefaultVersion = "1.7"

// Document is a PDF object graph.
type Document struct {
	version string
	trailer core.Dict
	src     Source
	gate    Gate

	objects map[core.IndirectRef]core.Object
	loaded  map[core.IndirectRef]bool // cached from src, not modified via Set
	deleted map[core.IndirectRef]bool
	maxNum  int
}

// New creates an empty document with an empty trailer.
func New() *Document {
	return &Document{
		version: DefaultVersion,
		trailer: core.Dict{},
		objects: make(map[core.IndirectRef]core.Object),
		loaded:  make(map[core.IndirectRef]bool),
		deleted: make(map[core.IndirectRef]bool),
	}
}

// NewFromSource creates a document whose objects are loaded from src.
func NewFromSource(src Source, trailer core.Dict, version string) *Document {
	d := New()
	d.src = src
	if trailer != nil {
		d.trailer = trailer
	}
	if version != "" {
		d.version = version
	}
	// /Size is not trusted; only numbers present in the source count
	for _, ref := range src.Refs() {
		if ref.Number > d.maxNum {
			d.maxNum = ref.Number
		}
	}
	return d
}

// SetGate installs the access gate of an encrypted document.
func (d *Document) SetGate(g Gate) { d.gate = g }

// Version returns the header version, e.g. "1.7".
func (d *Document) Version() string { return d.version }

// SetVersion sets the header version.
func (d *Document) SetVersion(v string) { d.version = v }

// Trailer returns the trailer dictionary. It is live: changes are kept.
func (d *Document) Trailer() core.Dict { return d.trailer }

// Encrypted reports whether the source document carried /Encrypt.
func (d *Document) Encrypted() bool { return d.gate != nil }

// Locked reports whether encrypted content is still inaccessible.
func (d *Document) Locked() bool { return d.gate != nil && d.gate.Locked() }

// Authorize tries password against the encryption dictionary. On success
// previously loaded objects are discarded so they are read again in clear.
func (d *Document) Authorize(password string) error {
	if d.gate == nil {
		return nil
	}
	if err := d.gate.Authorize(password); err != nil {
		return err
	}
	for ref := range d.loaded {
		delete(d.objects, ref)
	}
	d.loaded = make(map[core.IndirectRef]bool)
	return nil
}

// Get returns the object for ref. Unknown and deleted references resolve
// to core.Null.
func (d *Document) Get(ref core.IndirectRef) (core.Object, error) {
	if d.deleted[ref] {
		return core.Null{}, nil
	}
	if obj, ok := d.objects[ref]; ok {
		return obj, nil
	}
	if d.src == nil {
		return core.Null{}, nil
	}
	obj, err := d.src.Load(ref)
	if errors.Is(err, ErrObjectNotFound) {
		return core.Null{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load object %s: %w", ref, err)
	}
	if obj == nil {
		obj = core.Null{}
	}
	d.objects[ref] = obj
	d.loaded[ref] = true
	return obj, nil
}

// ResolveReference is Get; it satisfies core.ReferenceResolver.
func (d *Document) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return d.Get(ref)
}

// Resolve follows obj if it is a reference; other objects are returned
// unchanged. Chains of references are followed up to a fixed depth.
func (d *Document) Resolve(obj core.Object) (core.Object, error) {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		var err error
		if obj, err = d.Get(ref); err != nil {
			return nil, err
		}
	}
	return nil, core.NewParseError(core.CyclicReference, -1, fmt.Errorf("reference chain too long"))
}

// Add stores obj under a fresh object number and returns its reference.
func (d *Document) Add(obj core.Object) core.IndirectRef {
	d.maxNum++
	ref := core.IndirectRef{Number: d.maxNum}
	d.objects[ref] = obj
	return ref
}

// Set replaces the object stored under ref.
func (d *Document) Set(ref core.IndirectRef, obj core.Object) {
	delete(d.deleted, ref)
	delete(d.loaded, ref)
	d.objects[ref] = obj
	if ref.Number > d.maxNum {
		d.maxNum = ref.Number
	}
}

// Delete removes ref from the table.
func (d *Document) Delete(ref core.IndirectRef) {
	delete(d.objects, ref)
	delete(d.loaded, ref)
	d.deleted[ref] = true
}

// MaxNumber returns the highest object number in use or allocated.
func (d *Document) MaxNumber() int { return d.maxNum }

// Refs lists every live reference in ascending object number order.
func (d *Document) Refs() []core.IndirectRef {
	seen := make(map[core.IndirectRef]bool, len(d.objects))
	var refs []core.IndirectRef
	if d.src != nil {
		for _, ref := range d.src.Refs() {
			if !d.deleted[ref] && !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	for ref := range d.objects {
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Number != refs[j].Number {
			return refs[i].Number < refs[j].Number
		}
		return refs[i].Generation < refs[j].Generation
	})
	return refs
}

// RootRef returns the trailer /Root reference.
func (d *Document) RootRef() (core.IndirectRef, error) {
	ref, ok := d.trailer.GetIndirectRef("Root")
	if !ok {
		return core.IndirectRef{}, &core.TypeError{Key: "Root", Want: core.ObjIndirect, Got: d.trailer["Root"]}
	}
	return ref, nil
}

// Catalog returns the document catalog.
func (d *Document) Catalog() (core.Dict, error) {
	ref, err := d.RootRef()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	obj, err := d.Get(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	catalog, err := core.AsDict(obj)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", ref, err)
	}
	return catalog, nil
}

// Info returns the document information dictionary, or nil when absent.
func (d *Document) Info() (core.Dict, error) {
	obj, ok := d.trailer["Info"]
	if !ok {
		return nil, nil
	}
	obj, err := d.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to load info: %w", err)
	}
	if _, isNull := obj.(core.Null); isNull {
		return nil, nil
	}
	info, err := core.AsDict(obj)
	if err != nil {
		return nil, fmt.Errorf("info: %w", err)
	}
	return info, nil
}

// EnsureCatalog returns the catalog reference, creating an empty
// /Type /Catalog when the trailer has none.
func (d *Document) EnsureCatalog() core.IndirectRef {
	if ref, err := d.RootRef(); err == nil {
		return ref
	}
	ref := d.Add(core.Dict{"Type": core.Name("Catalog")})
	d.trailer["Root"] = ref
	return ref
}
