package ops

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/seyaytua/manken/contentstream"
	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
)

var errRoundTrip = errors.New("re-encoded stream does not decode to the original bytes")

// Compress re-encodes the content streams of every page with Flate at
// best compression. A stream is replaced only when its new payload
// decodes back to the same bytes; streams that cannot be decoded,
// parsed or verified are logged and left as they are.
func Compress(ctx context.Context, doc *document.Document, opts Options) error {
	list, err := readPages(doc)
	if err != nil {
		return fmt.Errorf("failed to read pages: %w", err)
	}
	log := opts.logger()
	tracker := opts.tracker(len(list))
	done := make(map[core.IndirectRef]bool)

	for i, p := range list {
		if err := checkContext(ctx, "compress"); err != nil {
			return err
		}
		for _, ref := range contentRefs(doc, p.Dict()["Contents"]) {
			if done[ref] {
				continue
			}
			done[ref] = true

			obj, err := doc.Get(ref)
			if err != nil {
				log.Warn("failed to load content stream", "page", i+1, "object", ref.String(), "error", err)
				continue
			}
			stream, ok := obj.(*core.Stream)
			if !ok {
				continue
			}
			out, err := compressStream(stream)
			if err != nil {
				log.Warn("content stream left unchanged", "page", i+1, "object", ref.String(), "error", err)
				continue
			}
			log.Debug("compressed content stream", "page", i+1, "object", ref.String(),
				"before", len(stream.Data), "after", len(out.Data))
			doc.Set(ref, out)
		}
		tracker.Step()
	}
	tracker.Finish()
	return nil
}

// contentRefs returns the stream references of a page /Contents entry.
func contentRefs(doc *document.Document, contents core.Object) []core.IndirectRef {
	switch v := contents.(type) {
	case core.IndirectRef:
		obj, err := doc.Get(v)
		if err != nil {
			return nil
		}
		if arr, ok := obj.(core.Array); ok {
			return contentRefs(doc, arr)
		}
		return []core.IndirectRef{v}
	case core.Array:
		var refs []core.IndirectRef
		for _, elem := range v {
			if ref, ok := elem.(core.IndirectRef); ok {
				refs = append(refs, ref)
			}
		}
		return refs
	}
	return nil
}

// compressStream returns a Flate encoded copy of s holding the same
// decoded bytes.
func compressStream(s *core.Stream) (*core.Stream, error) {
	data, err := s.Decode()
	if err != nil {
		return nil, err
	}
	if err := contentstream.Validate(data); err != nil {
		return nil, fmt.Errorf("invalid content stream: %w", err)
	}

	out := s.Clone()
	if err := out.Recompress(data); err != nil {
		return nil, err
	}
	check, err := core.NewStream(out.Dict.Clone(), out.Data).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to verify stream: %w", err)
	}
	if !bytes.Equal(check, data) {
		return nil, errRoundTrip
	}
	return out, nil
}
