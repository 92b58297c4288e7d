package manken

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/format"
	"github.com/seyaytua/manken/progress"
	"github.com/seyaytua/manken/raster"
)

// ConvertFiles renders every page of each source at dpi and writes the
// images to outDir in format f. A single page source becomes
// "{stem}.{ext}", a longer one "{stem}_page_{n}.{ext}". Each source is
// one progress unit. It returns the image paths in source and page order.
func ConvertFiles(ctx context.Context, srcs []string, outDir string, f format.Format, dpi int, opts ...Option) ([]string, error) {
	if !f.IsImage() {
		return nil, fmt.Errorf("cannot convert to %s", f)
	}
	if err := raster.CheckDPI(dpi); err != nil {
		return nil, err
	}
	cfg := newConfig(opts)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tracker := progress.NewTracker(cfg.sink, len(srcs))
	var s staging
	var names []string
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			s.abort()
			return nil, fmt.Errorf("convert cancelled: %w", err)
		}
		images, err := cfg.rasterizer.Render(ctx, src, dpi, cfg.sourcePassword)
		if err != nil {
			s.abort()
			return nil, &core.SourceReadError{Path: filepath.Base(src), Err: err}
		}
		for i, name := range raster.FileNames(stem(src), len(images), f) {
			var buf bytes.Buffer
			if err := raster.Encode(&buf, images[i], f); err != nil {
				s.abort()
				return nil, fmt.Errorf("%s page %d: %w", filepath.Base(src), i+1, err)
			}
			path := filepath.Join(outDir, name)
			if err := s.add(path, buf.Bytes()); err != nil {
				s.abort()
				return nil, err
			}
			names = append(names, path)
		}
		cfg.logger.Debug("rendered file", "input", src, "pages", len(images), "dpi", dpi)
		tracker.Step()
	}
	if err := s.commit(); err != nil {
		return nil, err
	}
	tracker.Finish()
	return names, nil
}
