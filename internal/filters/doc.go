// Package filters implements the PDF stream filters used by the engine.
//
// Decode applies one named filter to raw stream bytes:
//
//	data, err := filters.Decode("FlateDecode", raw, filters.Params{"Predictor": 12, "Columns": 5})
//
// Supported: FlateDecode (with TIFF and PNG predictors), ASCIIHexDecode,
// ASCII85Decode, RunLengthDecode and CCITTFaxDecode. DCTDecode and
// JPXDecode payloads are returned unchanged. Any other filter yields
// ErrUnsupportedFilter.
//
// Encode produces a FlateDecode payload at best compression; it is the only
// encoder the engine writes.
package filters
