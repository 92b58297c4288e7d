// Package core holds the PDF object model and the low level syntax layer.
//
// Objects form a closed set of variants satisfying [Object]: [Null],
// [Bool], [Int], [Real], [String], [Name], [Array], [Dict], [*Stream] and
// [IndirectRef]. Code that needs a particular variant uses a type switch or
// the As helpers ([AsDict], [AsArray], [AsInt], [AsStream]), which report a
// [TypeError] instead of panicking.
//
// # Parsing
//
// [Lexer] and [Parser] work on an in-memory buffer, usually a memory
// mapped file, so any object can be parsed from its offset on demand.
// [XRefParser] reads classic cross-reference tables and xref streams and
// follows /Prev and /XRefStm links. [ObjectStream] unpacks objects stored
// in /Type /ObjStm streams.
//
// # Streams
//
// [Stream.Decode] runs the /Filter chain through internal/filters;
// [Stream.Recompress] writes a new Flate payload.
//
// # Errors
//
// Malformed input is reported as a [*ParseError] whose Kind is one of
// BadHeader, BadXref, TruncatedStream, CyclicReference or
// UnsupportedFilter; errors.Is matches it against the corresponding
// sentinel such as [ErrBadXref].
package core
