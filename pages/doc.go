// Package pages provides PDF page tree traversal and restructuring.
//
// # Page Tree
//
// PDF documents organize pages in a tree of /Pages nodes. [Flatten] and
// [FromDocument] walk it depth first and return the leaves in document
// order:
//
//	list, err := pages.FromDocument(doc)
//
// Nodes without /Type are classified by the presence of /Kids. A node
// that is its own ancestor fails the walk with a CyclicReference error;
// the same page object reached along two different paths is not a cycle.
//
// # Page Access
//
// The [Page] type represents a single PDF page with:
//
//   - MediaBox - page dimensions
//   - CropBox - visible area (optional)
//   - Rotate - page rotation (0, 90, 180, 270)
//   - Resources - fonts, images, etc.
//   - Contents - content streams
//
// Resources, MediaBox, CropBox and Rotate can be inherited from any
// ancestor node; [Page.Materialize] copies them onto the page.
//
// # Restructuring
//
// [Build] and [Rebuild] replace the tree with a single flat /Pages node.
// [SetRotation] adds to a page's rotation.
package pages
