package ops

import (
	"context"
	"fmt"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
	"github.com/seyaytua/manken/pages"
)

// Rotate adds angle degrees to the rotation of the pages at the 0-based
// target indices. angle must be 90, 180 or 270 and every target must
// exist; nothing is changed otherwise. A target listed twice is rotated
// once.
func Rotate(ctx context.Context, doc *document.Document, targets []int, angle int, opts Options) error {
	switch angle {
	case 90, 180, 270:
	default:
		return fmt.Errorf("%w: got %d", core.ErrInvalidAngle, angle)
	}
	if len(targets) == 0 {
		return core.ErrNoPagesSelected
	}
	list, err := readPages(doc)
	if err != nil {
		return fmt.Errorf("failed to read pages: %w", err)
	}

	rotate := make(map[int]bool, len(targets))
	for _, i := range targets {
		if i < 0 || i >= len(list) {
			return fmt.Errorf("%w: %d not in [0, %d)", core.ErrPageIndexInvalid, i, len(list))
		}
		rotate[i] = true
	}

	tracker := opts.tracker(len(list))
	for i, p := range list {
		if err := checkContext(ctx, "rotate"); err != nil {
			return err
		}
		if rotate[i] {
			pages.SetRotation(p, angle)
			if p.Ref.Number > 0 {
				doc.Set(p.Ref, p.Dict())
			}
		}
		tracker.Step()
	}
	tracker.Finish()
	return nil
}
