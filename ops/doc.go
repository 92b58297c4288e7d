// Package ops implements the document level operations: merge, split,
// extract, rotate and compress.
//
// Operations are synchronous. Each one is made of units (a source file
// for Merge, a page for the others); the context is checked before every
// unit and progress is reported after it through Options.Progress.
//
//	out, err := ops.Extract(ctx, doc, []int{2, 0}, ops.Options{})
//
// Merge, Split and Extract build new documents and leave their inputs
// untouched. Rotate and Compress modify the document they are given.
package ops
