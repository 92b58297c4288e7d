package pages

import (
	"fmt"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
)

// FromDocument returns the pages of doc in document order
func FromDocument(doc *document.Document) ([]*Page, error) {
	catalog, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	ref, root, err := NewCatalog(catalog, doc).Pages()
	if err != nil {
		return nil, err
	}
	tree := NewPageTree(root, doc)
	tree.rootRef = ref
	return tree.Pages()
}

// Build installs a flat page tree in doc: one /Pages node whose /Kids are
// pageRefs in order. Each page gets /Parent pointing at the new node and
// the catalog, created if needed, points /Pages at it. The pages are
// expected to carry their own attributes; see Page.Materialize.
func Build(doc *document.Document, pageRefs []core.IndirectRef) (core.IndirectRef, error) {
	pagesRef := doc.Add(core.Null{})
	kids := make(core.Array, 0, len(pageRefs))
	for _, ref := range pageRefs {
		obj, err := doc.Get(ref)
		if err != nil {
			return core.IndirectRef{}, err
		}
		dict, err := core.AsDict(obj)
		if err != nil {
			return core.IndirectRef{}, fmt.Errorf("page %s: %w", ref, err)
		}
		dict["Type"] = core.Name("Page")
		dict["Parent"] = pagesRef
		kids = append(kids, ref)
	}
	doc.Set(pagesRef, core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  kids,
		"Count": core.Int(len(kids)),
	})

	catalogRef := doc.EnsureCatalog()
	obj, err := doc.Get(catalogRef)
	if err != nil {
		return core.IndirectRef{}, err
	}
	catalog, err := core.AsDict(obj)
	if err != nil {
		return core.IndirectRef{}, fmt.Errorf("catalog: %w", err)
	}
	catalog["Pages"] = pagesRef
	return pagesRef, nil
}

// Rebuild replaces the page tree of doc with a flat one holding pages in
// the given order. Inherited attributes are materialized onto each page.
// A page listed more than once is duplicated so every leaf has a single
// parent.
func Rebuild(doc *document.Document, pages []*Page) (core.IndirectRef, error) {
	refs := make([]core.IndirectRef, 0, len(pages))
	seen := make(map[core.IndirectRef]bool, len(pages))
	for _, p := range pages {
		dict := p.Materialize()
		if p.Ref.Number == 0 || seen[p.Ref] {
			refs = append(refs, doc.Add(dict))
			continue
		}
		seen[p.Ref] = true
		doc.Set(p.Ref, dict)
		refs = append(refs, p.Ref)
	}
	return Build(doc, refs)
}
