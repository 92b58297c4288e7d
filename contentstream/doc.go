// Package contentstream parses PDF content streams into operations.
//
// Content streams hold the drawing instructions of a page: operands
// followed by an operator.
//
//	ops, err := contentstream.NewParser(data).Parse()
//	for _, op := range ops {
//	    fmt.Printf("%s %v\n", op.Operator, op.Operands)
//	}
//
// Inline images (BI ... ID ... EI) become a single BI operation whose
// operand is the image dictionary and whose Data holds the raw samples.
//
// [Validate] is used before rewriting a stream to make sure the decoded
// bytes are a well formed content stream.
package contentstream
