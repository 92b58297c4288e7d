package pages

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/seyaytua/manken/core"
)

// ObjectResolver interface for resolving indirect references
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// inheritable lists the page attributes a Pages node passes down to its
// descendants
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// Catalog represents the PDF document catalog (root of document structure)
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a new catalog from a dictionary
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{
		dict:     dict,
		resolver: resolver,
	}
}

// Type returns the catalog type (should be "Catalog")
func (c *Catalog) Type() string {
	name, _ := c.dict.GetName("Type")
	return string(name)
}

// Pages returns the page tree root and its reference. The reference is
// zero when /Pages is a direct dictionary.
func (c *Catalog) Pages() (core.IndirectRef, core.Dict, error) {
	pagesObj := c.dict.Get("Pages")
	if pagesObj == nil {
		return core.IndirectRef{}, nil, fmt.Errorf("catalog missing /Pages entry")
	}
	ref, _ := pagesObj.(core.IndirectRef)

	// Resolve reference if needed
	resolved, err := c.resolver.Resolve(pagesObj)
	if err != nil {
		return ref, nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	pagesDict, err := core.AsDict(resolved)
	if err != nil {
		return ref, nil, fmt.Errorf("invalid /Pages: %w", err)
	}
	return ref, pagesDict, nil
}

// PageTree represents the PDF page tree
type PageTree struct {
	root     core.Dict
	rootRef  core.IndirectRef
	resolver ObjectResolver
	pages    []*Page // Cached flattened page list
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Count returns the number of leaf pages. /Count is not trusted.
func (t *PageTree) Count() (int, error) {
	pages, err := t.Pages()
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("page %d of %d: %w", index, len(pages), core.ErrPageIndexInvalid)
	}
	return pages[index], nil
}

// Pages returns all pages in document order
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages != nil {
		return t.pages, nil
	}

	w := &walker{resolver: t.resolver, path: bitset.New(64)}
	if t.rootRef.Valid() {
		w.path.Set(uint(t.rootRef.Number))
	}
	if err := w.visit(t.rootRef, t.root, core.Dict{}); err != nil {
		return nil, fmt.Errorf("failed to traverse page tree: %w", err)
	}
	t.pages = w.pages
	return t.pages, nil
}

// Flatten walks the page tree under root depth first and returns its
// leaves in document order. A node met again on its own path fails with
// a CyclicReference error.
func Flatten(resolver ObjectResolver, root core.Dict) ([]*Page, error) {
	return NewPageTree(root, resolver).Pages()
}

// walker carries the traversal state. path holds the object numbers of
// the nodes between the root and the current node.
type walker struct {
	resolver ObjectResolver
	path     *bitset.BitSet
	pages    []*Page
}

// visit handles one node. inherited holds the inheritable attributes
// collected from the ancestors.
func (w *walker) visit(ref core.IndirectRef, node core.Dict, inherited core.Dict) error {
	switch nodeType(node) {
	case "Pages":
		next, cloned := inherited, false
		for _, key := range inheritable {
			if v, ok := node[key]; ok {
				if !cloned {
					next, cloned = inherited.Clone(), true
				}
				next[key] = v
			}
		}

		kidsObj, err := w.resolver.Resolve(node.Get("Kids"))
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsObj.(core.Array)
		if !ok {
			// an empty or broken node contributes no pages
			return nil
		}
		for i, kid := range kids {
			if err := w.visitKid(i, kid, next); err != nil {
				return err
			}
		}

	default:
		page := &Page{Ref: ref, dict: node, inherited: inherited, resolver: w.resolver}
		w.pages = append(w.pages, page)
	}
	return nil
}

func (w *walker) visitKid(i int, kid core.Object, inherited core.Dict) error {
	ref, isRef := kid.(core.IndirectRef)
	if isRef && !ref.Valid() {
		// no object can carry this number
		return nil
	}
	if isRef {
		if w.path.Test(uint(ref.Number)) {
			return core.NewParseError(core.CyclicReference, -1,
				fmt.Errorf("page tree node %s is its own ancestor", ref))
		}
		w.path.Set(uint(ref.Number))
		defer w.path.Clear(uint(ref.Number))
	}

	// Resolve child reference
	resolved, err := w.resolver.Resolve(kid)
	if err != nil {
		return fmt.Errorf("failed to resolve kid %d: %w", i, err)
	}
	kidDict, ok := resolved.(core.Dict)
	if !ok {
		// dangling kids are skipped
		return nil
	}

	return w.visit(ref, kidDict, inherited)
}

// nodeType returns /Type, inferring it from /Kids when absent
func nodeType(node core.Dict) string {
	if name, ok := node.GetName("Type"); ok && (name == "Pages" || name == "Page") {
		return string(name)
	}
	if _, ok := node["Kids"]; ok {
		return "Pages"
	}
	return "Page"
}

// Page represents a single PDF page
type Page struct {
	// Ref is the page's reference; zero for a direct dictionary
	Ref core.IndirectRef

	dict      core.Dict
	inherited core.Dict // attributes collected from ancestor Pages nodes
	resolver  ObjectResolver
}

// NewPage creates a new page from a dictionary
func NewPage(ref core.IndirectRef, dict core.Dict, resolver ObjectResolver) *Page {
	return &Page{
		Ref:       ref,
		dict:      dict,
		inherited: core.Dict{},
		resolver:  resolver,
	}
}

// Dict returns the live page dictionary
func (p *Page) Dict() core.Dict {
	return p.dict
}

// attr returns a page attribute, looking at the ancestors for
// inheritable ones
func (p *Page) attr(name string) core.Object {
	if v, ok := p.dict[name]; ok {
		return v
	}
	return p.inherited[name]
}

// MediaBox returns the page media box [x1 y1 x2 y2]
// This is inheritable, so checks ancestors if not present
func (p *Page) MediaBox() ([]float64, error) {
	return p.getBox("MediaBox")
}

// CropBox returns the page crop box [x1 y1 x2 y2]
// This is inheritable, defaults to MediaBox if not present
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.getBox("CropBox")
	if err != nil {
		// CropBox defaults to MediaBox
		return p.MediaBox()
	}
	return box, nil
}

// getBox retrieves a box attribute (inheritable)
func (p *Page) getBox(name string) ([]float64, error) {
	boxObj := p.attr(name)
	if boxObj == nil {
		return nil, fmt.Errorf("%s not found", name)
	}

	// Resolve if reference
	boxResolved, err := p.resolver.Resolve(boxObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	boxArr, err := core.AsArray(boxResolved)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	if len(boxArr) != 4 {
		return nil, fmt.Errorf("invalid %s length: %d (expected 4)", name, len(boxArr))
	}

	box := make([]float64, 4)
	for i := range boxArr {
		elem, err := p.resolver.Resolve(boxArr[i])
		if err != nil {
			return nil, err
		}
		v, ok := core.Number(elem)
		if !ok {
			return nil, fmt.Errorf("invalid %s element %d: %w", name, i, &core.TypeError{Want: core.ObjReal, Got: elem})
		}
		box[i] = v
	}
	return box, nil
}

// Resources returns the page resources dictionary
// This is inheritable; a page without resources gets an empty dictionary
func (p *Page) Resources() (core.Dict, error) {
	resourcesObj := p.attr("Resources")
	if resourcesObj == nil {
		return core.Dict{}, nil
	}
	resolved, err := p.resolver.Resolve(resourcesObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}
	if _, isNull := resolved.(core.Null); isNull {
		return core.Dict{}, nil
	}
	resourcesDict, err := core.AsDict(resolved)
	if err != nil {
		return nil, fmt.Errorf("invalid Resources: %w", err)
	}
	return resourcesDict, nil
}

// Contents returns the page content streams in drawing order. Missing
// and dangling entries are skipped.
func (p *Page) Contents() ([]*core.Stream, error) {
	contentsObj := p.dict.Get("Contents")
	if contentsObj == nil {
		return nil, nil // Contents is optional
	}
	resolved, err := p.resolver.Resolve(contentsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}

	// Contents can be a single stream or array of streams
	var elems core.Array
	switch v := resolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		elems = v
	case core.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid Contents: %w", &core.TypeError{Key: "Contents", Want: core.ObjStream, Got: resolved})
	}

	streams := make([]*core.Stream, 0, len(elems))
	for i, elem := range elems {
		obj, err := p.resolver.Resolve(elem)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
		}
		if s, ok := obj.(*core.Stream); ok {
			streams = append(streams, s)
		}
	}
	return streams, nil
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270
// This is inheritable
func (p *Page) Rotate() int {
	obj, err := p.resolver.Resolve(p.attr("Rotate"))
	if err != nil {
		return 0
	}
	rotate, err := core.AsInt(obj)
	if err != nil {
		return 0
	}
	return normalize(rotate)
}

func normalize(angle int) int {
	angle %= 360
	if angle < 0 {
		angle += 360
	}
	// values off the quarter turns are rounded down
	return angle - angle%90
}

// SetRotation adds delta degrees to the page rotation. The result is
// stored on the page itself, normalized to [0, 360).
func SetRotation(p *Page, delta int) {
	p.dict["Rotate"] = core.Int(normalize(p.Rotate() + delta))
}

// Width returns the page width (from MediaBox)
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the page height (from MediaBox)
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}

// Materialize returns a copy of the page dictionary that no longer
// depends on its ancestors: inherited attributes are copied in and
// /Parent is removed. References inside are kept as references.
func (p *Page) Materialize() core.Dict {
	out := p.dict.Clone()
	for _, key := range inheritable {
		if _, ok := out[key]; ok {
			continue
		}
		if v, ok := p.inherited[key]; ok {
			out[key] = core.Clone(v)
		}
	}
	out.Delete("Parent")
	out["Type"] = core.Name("Page")
	return out
}
