package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Pdftoppm renders pages with the pdftoppm command line tool.
type Pdftoppm struct {
	// Command is the executable to run; empty means "pdftoppm" from PATH.
	Command string
}

// NewPdftoppm returns a rasterizer using pdftoppm from PATH.
func NewPdftoppm() *Pdftoppm {
	return &Pdftoppm{}
}

func (p *Pdftoppm) command() string {
	if p.Command == "" {
		return "pdftoppm"
	}
	return p.Command
}

// Available reports whether the executable can be found.
func (p *Pdftoppm) Available() bool {
	_, err := exec.LookPath(p.command())
	return err == nil
}

// Render runs pdftoppm into a temporary directory and decodes the PNG
// files it produces.
func (p *Pdftoppm) Render(ctx context.Context, path string, dpi int, password string) ([]image.Image, error) {
	if err := CheckDPI(dpi); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "manken-raster")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if password != "" {
		args = append(args, "-upw", password)
	}
	args = append(args, path, filepath.Join(dir, "page"))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.command(), args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	files, err := pageFiles(dir)
	if err != nil {
		return nil, err
	}
	images := make([]image.Image, 0, len(files))
	for _, name := range files {
		img, err := decodePNG(name)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// pageFiles lists the "page-N.png" files in dir ordered by N. pdftoppm
// pads N to the width of the largest page number.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type page struct {
		num  int
		name string
	}
	var pages []page
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "page-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "page-"), ".png"))
		if err != nil {
			continue
		}
		pages = append(pages, page{num, filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.name
	}
	return names, nil
}

func decodePNG(name string) (image.Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(name), err)
	}
	return img, nil
}
