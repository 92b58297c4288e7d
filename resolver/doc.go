// Package resolver expands and copies PDF object graphs.
//
// PDF documents use indirect references (e.g., "5 0 R") to refer to objects
// stored elsewhere in the file.
//
// # Deep Resolution
//
// An [ObjectResolver] replaces every reference inside an object with the
// object it points to:
//
//	r := resolver.NewResolver(doc)
//	info, err := r.ResolveDict(infoDict)
//
// Circular references fail with a CyclicReference error rather than
// looping; the recursion depth is bounded by [WithMaxDepth].
//
// # Copying Between Documents
//
// A [Copier] transfers the objects reachable from a set of pages into
// another document, allocating fresh object numbers. Source pages that
// are not copied are cut off, so nothing pulls in the rest of the source
// page tree.
package resolver
