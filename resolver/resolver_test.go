package resolver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
	"github.com/seyaytua/manken/pages"
)

// mockReader is a mock ObjectReader for testing
type mockReader struct {
	objects map[int]core.Object
}

func newMockReader() *mockReader {
	return &mockReader{objects: make(map[int]core.Object)}
}

func (m *mockReader) AddObject(num int, obj core.Object) {
	m.objects[num] = obj
}

func (m *mockReader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, ok := m.objects[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return obj, nil
}

func ref(n int) core.IndirectRef { return core.IndirectRef{Number: n} }

// TestResolveIndirectRef tests resolving a simple indirect reference
func TestResolveIndirectRef(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(5, core.Int(42))

	resolved, err := NewResolver(reader).Resolve(ref(5))
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if resolved != core.Int(42) {
		t.Errorf("expected 42, got %v", resolved)
	}
}

// TestResolveShallow tests that containers are not expanded by Resolve
func TestResolveShallow(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(1, core.Dict{"Child": ref(2)})
	reader.AddObject(2, core.Int(7))

	resolved, err := NewResolver(reader).Resolve(ref(1))
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if resolved.(core.Dict)["Child"] != ref(2) {
		t.Errorf("shallow resolve expanded the child: %v", resolved)
	}
}

// TestResolveDeep tests expansion through dictionaries, arrays and streams
func TestResolveDeep(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(10, core.Dict{
		"Kids":   core.Array{ref(11), core.Int(1)},
		"Stream": ref(12),
	})
	reader.AddObject(11, core.String("leaf"))
	reader.AddObject(12, core.NewStream(core.Dict{"Length": ref(13)}, []byte("abc")))
	reader.AddObject(13, core.Int(3))

	resolved, err := NewResolver(reader).ResolveDeep(ref(10))
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	dict := resolved.(core.Dict)
	if diff := cmp.Diff(core.Array{core.String("leaf"), core.Int(1)}, dict["Kids"]); diff != "" {
		t.Errorf("Kids mismatch (-want +got):\n%s", diff)
	}
	stream := dict["Stream"].(*core.Stream)
	if stream.Dict["Length"] != core.Int(3) {
		t.Errorf("stream /Length = %v, want 3", stream.Dict["Length"])
	}

	// the source stream is untouched
	if reader.objects[12].(*core.Stream).Dict["Length"] != ref(13) {
		t.Error("ResolveDeep modified the source stream")
	}
}

// TestCycleDetection tests circular references
func TestCycleDetection(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(50, core.Dict{"Next": ref(51)})
	reader.AddObject(51, core.Dict{"Next": ref(50)})

	_, err := NewResolver(reader).ResolveDeep(ref(50))
	if !errors.Is(err, core.ErrCyclicReference) {
		t.Errorf("expected ErrCyclicReference, got: %v", err)
	}
}

// TestResolveOutOfRange tests that references no object can carry
// resolve to null without reaching the reader
func TestResolveOutOfRange(t *testing.T) {
	reader := newMockReader()
	r := NewResolver(reader)
	for _, n := range []int{0, -1, core.MaxObjectNumber + 1, 90000000000} {
		got, err := r.ResolveDeep(core.Array{ref(n)})
		if err != nil {
			t.Fatalf("ResolveDeep(%d) failed: %v", n, err)
		}
		if diff := cmp.Diff(core.Array{core.Null{}}, got); diff != "" {
			t.Errorf("ResolveDeep(%d) mismatch (-want +got):\n%s", n, diff)
		}
	}
}

// TestSharedIsNotCycle tests the same object on two branches
func TestSharedIsNotCycle(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(1, core.Array{ref(2), ref(2)})
	reader.AddObject(2, core.Dict{"V": core.Int(1)})

	resolver := NewResolver(reader)
	resolved, err := resolver.ResolveDeep(ref(1))
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if len(resolved.(core.Array)) != 2 {
		t.Errorf("resolved = %v", resolved)
	}

	// state is reset between calls
	if _, err := resolver.ResolveDeep(ref(1)); err != nil {
		t.Errorf("second resolve failed: %v", err)
	}
}

// TestMaxDepth tests depth limiting
func TestMaxDepth(t *testing.T) {
	reader := newMockReader()
	for i := 60; i < 70; i++ {
		reader.AddObject(i, core.Dict{"Next": ref(i + 1)})
	}
	reader.AddObject(70, core.String("End"))

	if _, err := NewResolver(reader, WithMaxDepth(5)).ResolveDeep(ref(60)); err == nil {
		t.Error("expected error for exceeding max depth")
	}
	if _, err := NewResolver(reader).ResolveDeep(ref(60)); err != nil {
		t.Errorf("default depth failed: %v", err)
	}
}

// TestResolveDict tests the dictionary convenience method
func TestResolveDict(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(3, core.String("Ada"))

	dict, err := NewResolver(reader).ResolveDict(core.Dict{"Author": ref(3)})
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if dict["Author"] != core.String("Ada") {
		t.Errorf("Author = %v", dict["Author"])
	}

	if _, err := NewResolver(reader).ResolveDict(core.Dict{"Missing": ref(99)}); err == nil {
		t.Error("expected error for missing object")
	}
}

// sourceDocument builds a two page document whose pages share a font
// and link to each other
func sourceDocument(t *testing.T) (*document.Document, []*pages.Page) {
	t.Helper()
	doc := document.New()
	font := doc.Add(core.Dict{"Type": core.Name("Font"), "BaseFont": core.Name("Helvetica")})
	res := core.Dict{"Font": core.Dict{"F1": font}}
	pagesRef := doc.Add(core.Null{})
	content1 := doc.Add(core.NewStream(nil, []byte("page one")))
	content2 := doc.Add(core.NewStream(nil, []byte("page two")))
	page1 := doc.Add(core.Null{})
	page2 := doc.Add(core.Null{})
	doc.Set(page1, core.Dict{"Type": core.Name("Page"), "Parent": pagesRef, "Contents": content1,
		"Annots": core.Array{core.Dict{"Subtype": core.Name("Link"), "Dest": core.Array{page2, core.Name("Fit")}}}})
	doc.Set(page2, core.Dict{"Type": core.Name("Page"), "Parent": pagesRef, "Contents": content2})
	doc.Set(pagesRef, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{page1, page2}, "Count": core.Int(2),
		"Resources": res, "MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(100), core.Int(100)}})
	doc.Trailer()["Root"] = doc.Add(core.Dict{"Type": core.Name("Catalog"), "Pages": pagesRef})

	list, err := pages.FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}
	return doc, list
}

func contentOf(t *testing.T, doc *document.Document, pageRef core.IndirectRef) string {
	t.Helper()
	obj, err := doc.Get(pageRef)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	page := obj.(core.Dict)
	obj, err = doc.Resolve(page["Contents"])
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return string(obj.(*core.Stream).Data)
}

// TestCopyPages tests copying a subset of pages
func TestCopyPages(t *testing.T) {
	src, list := sourceDocument(t)
	dst := document.New()

	refs, err := NewCopier(dst, src).CopyPages([]*pages.Page{list[0]}, list)
	if err != nil {
		t.Fatalf("CopyPages failed: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	if got := contentOf(t, dst, refs[0]); got != "page one" {
		t.Errorf("content = %q", got)
	}

	obj, _ := dst.Get(refs[0])
	page := obj.(core.Dict)
	if page.Has("Parent") {
		t.Error("copied page keeps /Parent")
	}
	if !page.Has("MediaBox") || !page.Has("Resources") {
		t.Error("inherited attributes were not materialized")
	}
	// the link to the unselected page is cut
	link := page["Annots"].(core.Array)[0].(core.Dict)
	if dest := link["Dest"].(core.Array); dest[0] != (core.Null{}) {
		t.Errorf("link destination = %v, want null", dest[0])
	}
	// page, content stream and font
	if n := len(dst.Refs()); n != 3 {
		t.Errorf("destination has %d objects, want 3: %v", n, dst.Refs())
	}
}

// TestCopyPagesDuplicates tests that shared objects are copied once and
// duplicated pages get distinct objects
func TestCopyPagesDuplicates(t *testing.T) {
	src, list := sourceDocument(t)
	dst := document.New()
	copier := NewCopier(dst, src)

	refs, err := copier.CopyPages([]*pages.Page{list[1], list[0], list[1]}, list)
	if err != nil {
		t.Fatalf("CopyPages failed: %v", err)
	}
	if refs[0] == refs[2] {
		t.Error("duplicate page shares its object")
	}
	for i, want := range []string{"page two", "page one", "page two"} {
		if got := contentOf(t, dst, refs[i]); got != want {
			t.Errorf("page %d content = %q, want %q", i, got, want)
		}
	}

	// the link now points at the first copy of page two
	obj, _ := dst.Get(refs[1])
	link := obj.(core.Dict)["Annots"].(core.Array)[0].(core.Dict)
	if dest := link["Dest"].(core.Array); dest[0] != refs[0] {
		t.Errorf("link destination = %v, want %v", dest[0], refs[0])
	}

	fontRefs := map[core.Object]bool{}
	for _, r := range refs {
		obj, _ := dst.Get(r)
		fonts := obj.(core.Dict)["Resources"].(core.Dict)["Font"].(core.Dict)
		fontRefs[fonts["F1"]] = true
	}
	if len(fontRefs) != 1 {
		t.Errorf("font copied %d times, want once", len(fontRefs))
	}
}

// TestCopyRefCycle tests that cyclic graphs are copied without looping
func TestCopyRefCycle(t *testing.T) {
	reader := newMockReader()
	reader.AddObject(1, core.Dict{"Next": ref(2)})
	reader.AddObject(2, core.Dict{"Next": ref(1)})
	dst := document.New()

	out, ok, err := NewCopier(dst, reader).CopyRef(ref(1))
	if err != nil || !ok {
		t.Fatalf("CopyRef = %v, %v, %v", out, ok, err)
	}
	first, _ := dst.Get(out)
	second, _ := dst.Get(first.(core.Dict)["Next"].(core.IndirectRef))
	if second.(core.Dict)["Next"] != out {
		t.Errorf("cycle not preserved: %v", second)
	}
}
