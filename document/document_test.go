package document

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/seyaytua/manken/core"
)

type mapSource struct {
	objects map[core.IndirectRef]core.Object
	loads   int
}

func (m *mapSource) Load(ref core.IndirectRef) (core.Object, error) {
	m.loads++
	obj, ok := m.objects[ref]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return obj, nil
}

func (m *mapSource) Refs() []core.IndirectRef {
	refs := make([]core.IndirectRef, 0, len(m.objects))
	for ref := range m.objects {
		refs = append(refs, ref)
	}
	return refs
}

type fakeGate struct {
	locked   bool
	password string
}

func (g *fakeGate) Locked() bool { return g.locked }

func (g *fakeGate) Authorize(password string) error {
	if password != g.password {
		return core.ErrAccessDenied
	}
	g.locked = false
	return nil
}

func ref(n int) core.IndirectRef { return core.IndirectRef{Number: n} }

func newTestDocument() (*Document, *mapSource) {
	src := &mapSource{objects: map[core.IndirectRef]core.Object{
		ref(1): core.Dict{"Type": core.Name("Catalog"), "Pages": ref(2)},
		ref(2): core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{}, "Count": core.Int(0)},
		ref(4): core.Dict{"Title": core.String("Report")},
		ref(5): ref(6),
		ref(6): core.Int(42),
	}}
	trailer := core.Dict{"Root": ref(1), "Info": ref(4), "Size": core.Int(7)}
	return NewFromSource(src, trailer, "1.4"), src
}

// TestGetCaches tests that objects are loaded once.
func TestGetCaches(t *testing.T) {
	doc, src := newTestDocument()
	for i := 0; i < 3; i++ {
		if _, err := doc.Get(ref(1)); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}
	if src.loads != 1 {
		t.Errorf("loads = %d, want 1", src.loads)
	}
}

// TestGetDangling tests that unknown references resolve to null.
func TestGetDangling(t *testing.T) {
	doc, _ := newTestDocument()
	obj, err := doc.Get(ref(99))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := obj.(core.Null); !ok {
		t.Errorf("Get(99) = %v, want null", obj)
	}
}

// TestResolveChain tests following a reference to a reference.
func TestResolveChain(t *testing.T) {
	doc, _ := newTestDocument()
	obj, err := doc.Resolve(ref(5))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if obj != core.Int(42) {
		t.Errorf("Resolve = %v, want 42", obj)
	}

	loop := New()
	loop.Set(ref(1), ref(2))
	loop.Set(ref(2), ref(1))
	if _, err := loop.Resolve(ref(1)); !errors.Is(err, core.ErrCyclicReference) {
		t.Errorf("Resolve loop error = %v, want ErrCyclicReference", err)
	}
}

// TestAddAllocatesAfterMax tests object number allocation.
func TestAddAllocatesAfterMax(t *testing.T) {
	doc, _ := newTestDocument()
	if got := doc.MaxNumber(); got != 6 {
		t.Errorf("MaxNumber = %d, want 6", got)
	}
	r := doc.Add(core.Int(1))
	if r != ref(7) {
		t.Errorf("Add = %v, want 7 0 R", r)
	}
	doc.Delete(ref(5))
	want := []core.IndirectRef{ref(1), ref(2), ref(4), ref(6), ref(7)}
	if diff := cmp.Diff(want, doc.Refs()); diff != "" {
		t.Errorf("Refs mismatch (-want +got):\n%s", diff)
	}
}

// TestSizeNotTrusted tests that the trailer /Size does not raise the
// highest object number
func TestSizeNotTrusted(t *testing.T) {
	src := &mapSource{objects: map[core.IndirectRef]core.Object{
		ref(1): core.Dict{"Type": core.Name("Catalog")},
	}}
	doc := NewFromSource(src, core.Dict{"Root": ref(1), "Size": core.Int(90000000000)}, "1.7")
	if got := doc.MaxNumber(); got != 1 {
		t.Errorf("MaxNumber = %d, want 1", got)
	}
	if r := doc.Add(core.Null{}); r != ref(2) {
		t.Errorf("Add = %v, want 2 0 R", r)
	}
}

// TestCatalogAndInfo tests the trailer accessors.
func TestCatalogAndInfo(t *testing.T) {
	doc, _ := newTestDocument()
	catalog, err := doc.Catalog()
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	if name, _ := catalog.GetName("Type"); name != "Catalog" {
		t.Errorf("catalog /Type = %q", name)
	}
	info, err := doc.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if title, _ := info.GetString("Title"); title != "Report" {
		t.Errorf("info /Title = %q", title)
	}

	empty := New()
	if _, err := empty.Catalog(); err == nil {
		t.Error("expected error for missing /Root")
	}
	root := empty.EnsureCatalog()
	if got, _ := empty.Trailer().GetIndirectRef("Root"); got != root {
		t.Errorf("trailer /Root = %v, want %v", got, root)
	}
}

// TestAuthorize tests that authorization reloads source objects and
// keeps caller changes.
func TestAuthorize(t *testing.T) {
	doc, src := newTestDocument()
	gate := &fakeGate{locked: true, password: "secret"}
	doc.SetGate(gate)
	if !doc.Locked() || !doc.Encrypted() {
		t.Fatal("document should be encrypted and locked")
	}
	doc.Get(ref(1))
	added := doc.Add(core.String("mine"))

	if err := doc.Authorize("wrong"); !errors.Is(err, core.ErrAccessDenied) {
		t.Errorf("Authorize(wrong) = %v, want ErrAccessDenied", err)
	}
	if err := doc.Authorize("secret"); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if doc.Locked() {
		t.Error("document still locked")
	}
	doc.Get(ref(1))
	if src.loads != 2 {
		t.Errorf("loads = %d, want 2", src.loads)
	}
	if obj, _ := doc.Get(added); obj != core.String("mine") {
		t.Errorf("added object = %v", obj)
	}
}
