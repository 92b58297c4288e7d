// Package writer serializes a document to a complete PDF file.
//
// Only objects reachable from the trailer's /Root and /Info are written,
// in ascending object number, followed by a single classic
// cross-reference table:
//
//	data, err := writer.Bytes(doc)
//
// Stream /Length entries are always recomputed. When the document has no
// /ID one is derived from the MD5 of the unencrypted body, so writing the
// same document twice yields the same bytes.
//
// [WithEncryption] protects the output with the standard security
// handler; see package security for the supported revisions.
package writer
