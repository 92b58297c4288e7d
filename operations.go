package manken

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seyaytua/manken/ops"
)

// MergeFiles concatenates the pages of srcs, in order, into out. A source
// that cannot be opened or read fails the merge with a
// *core.SourceReadError naming the file.
func MergeFiles(ctx context.Context, srcs []string, out string, opts ...Option) (string, error) {
	if len(srcs) == 0 {
		return "", fmt.Errorf("merge needs at least one input")
	}
	cfg := newConfig(opts)

	sources := make([]ops.Source, 0, len(srcs))
	for _, path := range srcs {
		doc, closer, err := cfg.open(path)
		if err != nil {
			return "", err
		}
		defer closer.Close()
		sources = append(sources, ops.Source{Name: filepath.Base(path), Doc: doc})
	}

	merged, err := ops.Merge(ctx, sources, cfg.ops())
	if err != nil {
		return "", err
	}
	data, err := cfg.encode(merged)
	if err != nil {
		return "", err
	}
	if err := writeOne(out, data); err != nil {
		return "", err
	}
	cfg.logger.Info("merged files", "inputs", len(srcs), "output", out)
	return out, nil
}

// SplitFile writes every page of src to its own file in outDir, named
// "{stem}_page_{n}.pdf" with n counted from 1. It returns the paths in
// page order.
func SplitFile(ctx context.Context, src, outDir string, opts ...Option) ([]string, error) {
	cfg := newConfig(opts)
	doc, closer, err := cfg.open(src)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	docs, err := ops.Split(ctx, doc, cfg.ops())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var s staging
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = filepath.Join(outDir, fmt.Sprintf("%s_page_%d.pdf", stem(src), i+1))
		data, err := cfg.encode(d)
		if err != nil {
			s.abort()
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		if err := s.add(names[i], data); err != nil {
			s.abort()
			return nil, err
		}
	}
	if err := s.commit(); err != nil {
		return nil, err
	}
	cfg.logger.Info("split file", "input", src, "pages", len(names))
	return names, nil
}

// ExtractFile writes the pages of src at the 0-based indices to out, in
// the order given. Indices outside the document are skipped.
func ExtractFile(ctx context.Context, src, out string, indices []int, opts ...Option) (string, error) {
	cfg := newConfig(opts)
	doc, closer, err := cfg.open(src)
	if err != nil {
		return "", err
	}
	defer closer.Close()

	extracted, err := ops.Extract(ctx, doc, indices, cfg.ops())
	if err != nil {
		return "", err
	}
	if err := cfg.save(extracted, out); err != nil {
		return "", err
	}
	return out, nil
}

// RotateFile adds angle degrees to the pages of src at the 0-based target
// indices and writes the result to out. At least one target is required.
func RotateFile(ctx context.Context, src, out string, targets []int, angle int, opts ...Option) (string, error) {
	cfg := newConfig(opts)
	doc, closer, err := cfg.open(src)
	if err != nil {
		return "", err
	}
	defer closer.Close()

	if err := ops.Rotate(ctx, doc, targets, angle, cfg.ops()); err != nil {
		return "", err
	}
	if err := cfg.save(doc, out); err != nil {
		return "", err
	}
	return out, nil
}

// CompressFile recompresses the page content streams of src and writes
// the result to out.
func CompressFile(ctx context.Context, src, out string, opts ...Option) (string, error) {
	cfg := newConfig(opts)
	doc, closer, err := cfg.open(src)
	if err != nil {
		return "", err
	}
	defer closer.Close()

	before := fileSize(src)
	if err := ops.Compress(ctx, doc, cfg.ops()); err != nil {
		return "", err
	}
	if err := cfg.save(doc, out); err != nil {
		return "", err
	}
	cfg.logger.Info("compressed file", "input", src, "before", before, "after", fileSize(out))
	return out, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
