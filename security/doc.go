// Package security implements the PDF standard security handler:
// password authentication, key derivation and the RC4/AES object
// ciphers for revisions 2, 3, 4 and 6.
//
// A Handler is obtained either from Authenticate, for reading an
// encrypted document, or from NewHandler, which also returns the
// /Encrypt dictionary to store in a new file.
package security
