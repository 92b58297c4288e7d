// Package manken reads, restructures and writes PDF files.
//
// Each function works on paths: it opens its inputs, runs one operation
// from the ops package and writes the result. Outputs are staged next to
// their destination and renamed into place only when every output of the
// call was produced, so a failed call leaves no partial files behind.
//
// Basic usage:
//
//	out, err := manken.MergeFiles(ctx, []string{"a.pdf", "b.pdf"}, "merged.pdf")
//
// With options:
//
//	names, err := manken.SplitFile(ctx, "report.pdf", "pages",
//	    manken.WithPassword("secret"),
//	    manken.WithProgress(progress.SinkFunc(func(p int) { fmt.Println(p) })),
//	)
//
// For work on documents in memory use the reader, ops and writer
// packages directly.
package manken

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/document"
	"github.com/seyaytua/manken/ops"
	"github.com/seyaytua/manken/progress"
	"github.com/seyaytua/manken/raster"
	"github.com/seyaytua/manken/reader"
	"github.com/seyaytua/manken/security"
	"github.com/seyaytua/manken/writer"
)

type config struct {
	password       string
	sourcePassword string
	sink           progress.Sink
	logger         *slog.Logger
	rasterizer     raster.Rasterizer
}

// Option configures the file operations.
type Option func(*config)

// WithPassword encrypts every output PDF with password as both user and
// owner password.
func WithPassword(password string) Option {
	return func(c *config) { c.password = password }
}

// WithSourcePassword sets the password used to open encrypted inputs.
func WithSourcePassword(password string) Option {
	return func(c *config) { c.sourcePassword = password }
}

// WithProgress sets the sink receiving completion percentages.
func WithProgress(sink progress.Sink) Option {
	return func(c *config) { c.sink = sink }
}

// WithLogger sets the logger for recovered failures and debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithRasterizer replaces the pdftoppm renderer used by ConvertFiles.
func WithRasterizer(r raster.Rasterizer) Option {
	return func(c *config) { c.rasterizer = r }
}

func newConfig(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.rasterizer == nil {
		cfg.rasterizer = raster.NewPdftoppm()
	}
	return cfg
}

func (c config) ops() ops.Options {
	return ops.Options{Progress: c.sink, Logger: c.logger}
}

func (c config) writeOptions() []writer.Option {
	if c.password == "" {
		return nil
	}
	return []writer.Option{writer.WithEncryption(security.Credentials{User: c.password, Owner: c.password})}
}

// open maps path and parses it. An encrypted file must open with the
// source password (or the empty password).
func (c config) open(path string) (*document.Document, io.Closer, error) {
	doc, closer, err := reader.Open(path, reader.WithPassword(c.sourcePassword), reader.RequireAuth())
	if err != nil {
		return nil, nil, &core.SourceReadError{Path: filepath.Base(path), Err: err}
	}
	return doc, closer, nil
}

// encode serializes doc with the configured output encryption.
func (c config) encode(doc *document.Document) ([]byte, error) {
	data, err := writer.Bytes(doc, c.writeOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return data, nil
}

// save encodes doc and writes it to out.
func (c config) save(doc *document.Document, out string) error {
	data, err := c.encode(doc)
	if err != nil {
		return err
	}
	return writeOne(out, data)
}

// stem returns the file name of path without directory and extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var defaultSuffixes = map[string]string{
	"compress": "_compressed.pdf",
	"rotate":   "_rotated.pdf",
	"extract":  "_extracted.pdf",
}

// DefaultOutputName returns the output path used when none is given:
// "merged.pdf" next to the input for merge, "{stem}_compressed.pdf",
// "{stem}_rotated.pdf" or "{stem}_extracted.pdf" next to the input
// otherwise, and the input's directory for split and convert. It returns
// "" for an unknown command.
func DefaultOutputName(command, input string) string {
	dir := filepath.Dir(input)
	switch command {
	case "merge":
		return filepath.Join(dir, "merged.pdf")
	case "split", "convert":
		return dir
	}
	suffix, ok := defaultSuffixes[command]
	if !ok {
		return ""
	}
	return filepath.Join(dir, stem(input)+suffix)
}

// staging collects outputs in temporary files beside their destinations.
type staging struct {
	temps []string
	dests []string
}

func (s *staging) add(dest string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return &core.IOError{Path: dest, Err: err}
	}
	s.temps = append(s.temps, f.Name())
	s.dests = append(s.dests, dest)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return &core.IOError{Path: dest, Err: err}
	}
	if err := f.Close(); err != nil {
		return &core.IOError{Path: dest, Err: err}
	}
	return nil
}

// commit renames every staged file into place. On failure the files
// already renamed are removed again.
func (s *staging) commit() error {
	for i, tmp := range s.temps {
		if err := os.Rename(tmp, s.dests[i]); err != nil {
			for _, done := range s.dests[:i] {
				os.Remove(done)
			}
			s.temps = s.temps[i:]
			s.abort()
			return &core.IOError{Path: s.dests[i], Err: err}
		}
	}
	s.temps = nil
	return nil
}

// abort removes the staged files that were not committed.
func (s *staging) abort() {
	for _, tmp := range s.temps {
		os.Remove(tmp)
	}
	s.temps = nil
}

// writeOne stages and commits a single output.
func writeOne(dest string, data []byte) error {
	var s staging
	if err := s.add(dest, data); err != nil {
		s.abort()
		return err
	}
	return s.commit()
}
