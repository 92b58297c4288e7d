package manken

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/pages"
	"github.com/seyaytua/manken/reader"
	"github.com/seyaytua/manken/resolver"
)

// Info describes a PDF file.
type Info struct {
	Name      string
	Path      string
	Size      int64
	Version   string
	Encrypted bool
	// Locked is set when the file is encrypted and the source password
	// did not open it; Pages and Metadata are then unknown.
	Locked   bool
	Pages    int
	Metadata map[string]string
}

// Inspect reads the header, page count and document information
// dictionary of src. Text values of /Info are decoded to UTF-8.
func Inspect(src string, opts ...Option) (*Info, error) {
	cfg := newConfig(opts)
	stat, err := os.Stat(src)
	if err != nil {
		return nil, &core.SourceReadError{Path: filepath.Base(src), Err: err}
	}

	doc, closer, err := reader.Open(src, reader.WithPassword(cfg.sourcePassword))
	if err != nil {
		return nil, &core.SourceReadError{Path: filepath.Base(src), Err: err}
	}
	defer closer.Close()

	abs, err := filepath.Abs(src)
	if err != nil {
		abs = src
	}
	info := &Info{
		Name:      filepath.Base(src),
		Path:      abs,
		Size:      stat.Size(),
		Version:   doc.Version(),
		Encrypted: doc.Encrypted(),
		Locked:    doc.Locked(),
	}
	if info.Locked {
		return info, nil
	}

	list, err := pages.FromDocument(doc)
	if err != nil {
		return nil, &core.SourceReadError{Path: info.Name, Err: err}
	}
	info.Pages = len(list)

	dict, err := doc.Info()
	if err != nil {
		cfg.logger.Warn("unreadable document information", "file", info.Name, "error", err)
		return info, nil
	}
	if dict != nil {
		info.Metadata, err = metadata(resolver.NewResolver(doc), dict)
		if err != nil {
			cfg.logger.Warn("unreadable document information", "file", info.Name, "error", err)
		}
	}
	return info, nil
}

// metadata decodes the text entries of an information dictionary.
// Entries of other types are ignored.
func metadata(r *resolver.ObjectResolver, dict core.Dict) (map[string]string, error) {
	resolved, err := r.ResolveDict(dict)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve info: %w", err)
	}
	out := make(map[string]string)
	for _, key := range resolved.Keys() {
		if s, ok := resolved[key].(core.String); ok {
			out[key] = core.DecodeTextString(s)
		}
	}
	return out, nil
}
