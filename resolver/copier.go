package resolver

import (
	"fmt"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
	"github.com/seyaytua/manken/pages"
)

// Copier copies objects from one document into another. Every source
// object is copied at most once; references are renumbered through a
// mapping that lives as long as the Copier.
type Copier struct {
	dst      *document.Document
	src      ObjectReader
	mapping  map[core.IndirectRef]core.IndirectRef
	excluded map[core.IndirectRef]bool
}

// NewCopier creates a copier from src into dst
func NewCopier(dst *document.Document, src ObjectReader) *Copier {
	return &Copier{
		dst:      dst,
		src:      src,
		mapping:  make(map[core.IndirectRef]core.IndirectRef),
		excluded: make(map[core.IndirectRef]bool),
	}
}

// Mapping returns the destination reference for a copied source reference
func (c *Copier) Mapping(ref core.IndirectRef) (core.IndirectRef, bool) {
	out, ok := c.mapping[ref]
	return out, ok
}

// CopyPages copies selected pages, in order, into the destination and
// returns their new references. all lists every page of the source
// document: references to pages that are not selected become null, so
// links and annotations never drag unselected pages along. A page
// selected twice is copied twice.
func (c *Copier) CopyPages(selected, all []*pages.Page) ([]core.IndirectRef, error) {
	refs := c.Reserve(selected, all)
	for i, p := range selected {
		if err := c.CopyPage(p, refs[i]); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// Reserve allocates destination references for selected pages and marks
// the other pages of all as excluded. Fill each reference with CopyPage.
func (c *Copier) Reserve(selected, all []*pages.Page) []core.IndirectRef {
	for _, p := range all {
		if p.Ref.Number > 0 {
			if _, mapped := c.mapping[p.Ref]; !mapped {
				c.excluded[p.Ref] = true
			}
		}
	}

	refs := make([]core.IndirectRef, len(selected))
	for i, p := range selected {
		refs[i] = c.dst.Add(core.Null{})
		if p.Ref.Number > 0 {
			if _, dup := c.mapping[p.Ref]; !dup {
				c.mapping[p.Ref] = refs[i]
				delete(c.excluded, p.Ref)
			}
		}
	}
	return refs
}

// CopyPage copies the materialized dictionary of p into ref.
func (c *Copier) CopyPage(p *pages.Page, ref core.IndirectRef) error {
	copied, err := c.Copy(p.Materialize())
	if err != nil {
		return fmt.Errorf("failed to copy page %s: %w", p.Ref, err)
	}
	c.dst.Set(ref, copied)
	return nil
}

// CopyRef copies the object behind ref and everything it references.
// A dangling reference yields a zero reference and false.
func (c *Copier) CopyRef(ref core.IndirectRef) (core.IndirectRef, bool, error) {
	if out, ok := c.mapping[ref]; ok {
		return out, true, nil
	}
	if c.excluded[ref] {
		return core.IndirectRef{}, false, nil
	}

	obj, err := c.src.ResolveReference(ref)
	if err != nil {
		return core.IndirectRef{}, false, fmt.Errorf("failed to load object %s: %w", ref, err)
	}
	if _, isNull := obj.(core.Null); isNull || obj == nil {
		return core.IndirectRef{}, false, nil
	}

	// allocate before descending so cycles map onto the new number
	out := c.dst.Add(core.Null{})
	c.mapping[ref] = out
	copied, err := c.Copy(obj)
	if err != nil {
		return core.IndirectRef{}, false, err
	}
	c.dst.Set(out, copied)
	return out, true, nil
}

// Copy returns a deep copy of obj in which every reference has been
// copied into the destination and renumbered.
func (c *Copier) Copy(obj core.Object) (core.Object, error) {
	switch v := obj.(type) {
	case core.IndirectRef:
		out, ok, err := c.CopyRef(v)
		if err != nil {
			return nil, err
		}
		if !ok {
			return core.Null{}, nil
		}
		return out, nil

	case core.Dict:
		out := make(core.Dict, len(v))
		dropParent := false
		if t, _ := v.GetName("Type"); t == "Page" || t == "Pages" {
			dropParent = true
		}
		for key, value := range v {
			if dropParent && key == "Parent" {
				continue
			}
			copied, err := c.Copy(value)
			if err != nil {
				return nil, err
			}
			if _, isNull := copied.(core.Null); isNull {
				continue
			}
			out[key] = copied
		}
		return out, nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			copied, err := c.Copy(elem)
			if err != nil {
				return nil, err
			}
			out[i] = copied
		}
		return out, nil

	case *core.Stream:
		dict, err := c.Copy(v.Dict)
		if err != nil {
			return nil, err
		}
		out := v.Clone()
		out.Dict = dict.(core.Dict)
		return out, nil
	}
	return obj, nil
}
