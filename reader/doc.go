// Package reader turns the bytes of a PDF file into a document.Document.
//
// It orchestrates the lower-level core package: the header is checked,
// the cross-reference chain is merged and objects are then parsed lazily
// as the document asks for them.
//
// # Opening PDF Files
//
// Use [Open] to memory map a file:
//
//	doc, closer, err := reader.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer closer.Close()
//
// Or use [Parse] with bytes already in memory. The mapping must stay open
// while the document is in use; objects are read from it on demand.
//
// # Encrypted Documents
//
// When the trailer has /Encrypt, the password given with [WithPassword]
// (by default the empty password) is tried as user and owner password.
// On failure the document is still returned but locked: its streams
// report core.ErrAccessDenied until Document.Authorize succeeds. With
// [RequireAuth], Parse fails instead.
package reader
