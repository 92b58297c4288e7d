package ops

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
	"github.com/seyaytua/manken/pages"
	"github.com/seyaytua/manken/progress"
	"github.com/seyaytua/manken/resolver"
)

// Options carries the optional collaborators of an operation.
type Options struct {
	// Progress receives percentages; nil discards them.
	Progress progress.Sink
	// Logger receives recovered failures; nil discards them.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o Options) tracker(units int) *progress.Tracker {
	return progress.NewTracker(o.Progress, units)
}

// Source is one input of Merge. Name identifies it in errors.
type Source struct {
	Name string
	Doc  *document.Document
}

func checkContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s cancelled: %w", op, err)
	}
	return nil
}

// readPages returns the pages of doc, refusing locked documents.
func readPages(doc *document.Document) ([]*pages.Page, error) {
	if doc.Locked() {
		return nil, core.ErrAccessDenied
	}
	return pages.FromDocument(doc)
}

// Merge concatenates the pages of sources, in order, into a new
// document. Every object a page needs is copied; objects shared between
// pages of one source are copied once. A source whose page tree cannot
// be read fails the merge with a *core.SourceReadError naming it.
func Merge(ctx context.Context, sources []Source, opts Options) (*document.Document, error) {
	dst := document.New()
	tracker := opts.tracker(len(sources))

	var refs []core.IndirectRef
	for _, src := range sources {
		if err := checkContext(ctx, "merge"); err != nil {
			return nil, err
		}
		list, err := readPages(src.Doc)
		if err != nil {
			return nil, &core.SourceReadError{Path: src.Name, Err: err}
		}
		copied, err := resolver.NewCopier(dst, src.Doc).CopyPages(list, list)
		if err != nil {
			return nil, &core.SourceReadError{Path: src.Name, Err: err}
		}
		refs = append(refs, copied...)
		opts.logger().Debug("merged source", "name", src.Name, "pages", len(list))
		tracker.Step()
	}

	if _, err := pages.Build(dst, refs); err != nil {
		return nil, fmt.Errorf("failed to build page tree: %w", err)
	}
	tracker.Finish()
	return dst, nil
}

// Split returns one self-contained document per page of doc. Output i
// holds page i and only the objects it references.
func Split(ctx context.Context, doc *document.Document, opts Options) ([]*document.Document, error) {
	list, err := readPages(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}
	tracker := opts.tracker(len(list))

	out := make([]*document.Document, 0, len(list))
	for i, p := range list {
		if err := checkContext(ctx, "split"); err != nil {
			return nil, err
		}
		dst, err := single(doc, p, list)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out = append(out, dst)
		tracker.Step()
	}
	tracker.Finish()
	return out, nil
}

func single(src *document.Document, p *pages.Page, all []*pages.Page) (*document.Document, error) {
	dst := document.New()
	refs, err := resolver.NewCopier(dst, src).CopyPages([]*pages.Page{p}, all)
	if err != nil {
		return nil, err
	}
	if _, err := pages.Build(dst, refs); err != nil {
		return nil, err
	}
	return dst, nil
}

// Extract builds a document from the pages of doc at the given 0-based
// indices, in the order given. Indices out of range are skipped; an
// index listed twice yields two copies of the page.
func Extract(ctx context.Context, doc *document.Document, indices []int, opts Options) (*document.Document, error) {
	list, err := readPages(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	var selected []*pages.Page
	for _, i := range indices {
		if i >= 0 && i < len(list) {
			selected = append(selected, list[i])
		} else {
			opts.logger().Debug("skipping page index out of range", "index", i, "pages", len(list))
		}
	}

	dst := document.New()
	copier := resolver.NewCopier(dst, doc)
	refs := copier.Reserve(selected, list)
	tracker := opts.tracker(len(indices))

	next := 0
	for _, i := range indices {
		if err := checkContext(ctx, "extract"); err != nil {
			return nil, err
		}
		if i >= 0 && i < len(list) {
			if err := copier.CopyPage(selected[next], refs[next]); err != nil {
				return nil, err
			}
			next++
		}
		tracker.Step()
	}

	if _, err := pages.Build(dst, refs); err != nil {
		return nil, fmt.Errorf("failed to build page tree: %w", err)
	}
	tracker.Finish()
	return dst, nil
}
