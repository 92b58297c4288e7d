package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seyaytua/manken/core"
	"github.com/seyaytua/manken/internal/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePDF(t *testing.T, dir, name string, n int) string {
	t.Helper()
	contents := make([]string, n)
	for i := range contents {
		contents[i] = fmt.Sprintf("BT (p%d) Tj ET", i+1)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, pdftest.Pages(contents...), 0o644))
	return path
}

func runArgs(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// TestRunUsage tests missing and unknown commands
func TestRunUsage(t *testing.T) {
	_, stderr, err := runArgs()
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, stderr, "Usage: manken")

	_, _, err = runArgs("shred", "a.pdf")
	assert.EqualError(t, err, `unknown command "shred"`)
}

// TestRunCommands tests each command with default output names
func TestRunCommands(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", 3)
	b := writePDF(t, dir, "b.pdf", 1)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"merge", []string{"merge", a, b}, []string{"merged.pdf"}},
		{"extract", []string{"extract", "-pages", "3,1", a}, []string{"a_extracted.pdf"}},
		{"rotate", []string{"rotate", "-angle", "180", "-pages", "2", a}, []string{"a_rotated.pdf"}},
		{"compress", []string{"compress", b}, []string{"b_compressed.pdf"}},
		{"split", []string{"split", a}, []string{"a_page_1.pdf", "a_page_2.pdf", "a_page_3.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := runArgs(tt.args...)
			require.NoError(t, err)
			lines := strings.Fields(stdout)
			require.Len(t, lines, len(tt.want))
			for i, line := range lines {
				assert.Equal(t, filepath.Join(dir, tt.want[i]), line)
				assert.FileExists(t, line)
			}
		})
	}
}

// TestRunPasswords tests password confirmation and encrypted output
func TestRunPasswords(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", 2)
	out := filepath.Join(dir, "locked.pdf")

	_, _, err := runArgs("compress", "-password", "secret", "-password-confirm", "other", "-o", out, a)
	assert.EqualError(t, err, "passwords do not match")
	_, _, err = runArgs("compress", "-password-confirm", "secret", "-o", out, a)
	assert.EqualError(t, err, "password must not be empty")
	assert.NoFileExists(t, out)

	_, _, err = runArgs("compress", "-password", "secret", "-password-confirm", "secret", "-o", out, a)
	require.NoError(t, err)

	_, _, err = runArgs("extract", "-pages", "1", a+"x")
	assert.Error(t, err)
	_, _, err = runArgs("extract", "-pages", "1", out)
	assert.True(t, errors.Is(err, core.ErrAccessDenied), "got %v", err)
	_, _, err = runArgs("extract", "-pages", "1", "-source-password", "secret", out)
	assert.NoError(t, err)
}

// TestRunInfo tests the info report
func TestRunInfo(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", 2)

	stdout, _, err := runArgs("info", a)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Name:      a.pdf\n")
	assert.Contains(t, stdout, "Version:   1.7\n")
	assert.Contains(t, stdout, "Pages:     2\n")
	assert.Contains(t, stdout, "Title:     Test\n")
}

// TestRunArgumentErrors tests flag validation
func TestRunArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", 1)

	tests := []struct {
		name string
		args []string
	}{
		{"merge one input", []string{"merge", a}},
		{"extract without pages", []string{"extract", a}},
		{"extract bad range", []string{"extract", "-pages", "x", a}},
		{"rotate bad angle", []string{"rotate", "-angle", "45", "-pages", "1", a}},
		{"rotate without pages", []string{"rotate", a}},
		{"convert bad format", []string{"convert", "-format", "gif", a}},
		{"convert pdf format", []string{"convert", "-format", "pdf", a}},
		{"convert bad dpi", []string{"convert", "-dpi", "10", a}},
		{"unknown flag", []string{"split", "-x", a}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runArgs(tt.args...)
			assert.Error(t, err)
		})
	}
	assert.Equal(t, []string{"a.pdf"}, names(t, dir))
}

// TestRunRejectsImages tests that image inputs are refused before reading
func TestRunRejectsImages(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", 1)
	png := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(png, []byte("%PDF-1.4\n"), 0o644))
	disguised := filepath.Join(dir, "photo.pdf")
	require.NoError(t, os.WriteFile(disguised, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"image extension", []string{"info", png}, "PNG file is not a PDF"},
		{"image magic", []string{"split", disguised}, "PNG data is not a PDF"},
		{"second merge input", []string{"merge", a, disguised}, "PNG data is not a PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runArgs(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Equal(t, []string{"a.pdf", "photo.pdf", "scan.png"}, names(t, dir))
}

func names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}
