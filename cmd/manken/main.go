// Command manken merges, splits, extracts, rotates, compresses and
// converts PDF files.
//
// Usage:
//
//	manken <command> [flags] file.pdf...
//
// Run "manken <command> -h" for the flags of a command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/seyaytua/manken"
	"github.com/seyaytua/manken/format"
	"github.com/seyaytua/manken/progress"
	"github.com/seyaytua/manken/raster"
)

const usage = `Usage: manken <command> [flags] file.pdf...

Commands:
  merge     combine files in the order given
  split     write every page to its own file
  extract   copy selected pages to a new file
  rotate    rotate pages by 90, 180 or 270 degrees
  compress  recompress page contents
  convert   render pages to images
  info      print file information
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "manken: %v\n", err)
		os.Exit(1)
	}
}

// command holds the flags shared by every subcommand.
type command struct {
	fs             *flag.FlagSet
	output         *string
	password       *string
	confirm        *string
	sourcePassword *string
	verbose        *bool
}

func newCommand(name string, stderr io.Writer, outputHelp string) *command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &command{
		fs:             fs,
		output:         fs.String("o", "", outputHelp),
		password:       fs.String("password", "", "encrypt the output with this password"),
		confirm:        fs.String("password-confirm", "", "repeat the output password"),
		sourcePassword: fs.String("source-password", "", "password of encrypted inputs"),
		verbose:        fs.Bool("v", false, "log progress and details to stderr"),
	}
}

// parse parses args and returns the input files. want is the minimum
// number of inputs.
func (c *command) parse(args []string, want int) ([]string, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	if c.fs.NArg() < want {
		return nil, fmt.Errorf("%s: need at least %d input file(s)", c.fs.Name(), want)
	}
	if *c.password != "" || *c.confirm != "" {
		if *c.password == "" {
			return nil, errors.New("password must not be empty")
		}
		if *c.password != *c.confirm {
			return nil, errors.New("passwords do not match")
		}
	}
	for _, input := range c.fs.Args() {
		if err := checkInput(input); err != nil {
			return nil, err
		}
	}
	return c.fs.Args(), nil
}

// checkInput rejects an input whose name or leading bytes identify an
// image rather than a PDF. Unknown content is left to the reader, which
// accepts junk before the header.
func checkInput(path string) error {
	if f := format.Detect(path); f != format.PDF && f != format.Unknown {
		return fmt.Errorf("%s: %s file is not a PDF", path, f)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	head := make([]byte, 16)
	n, _ := io.ReadFull(f, head)
	if kind := format.DetectFromMagic(head[:n]); kind != format.PDF && kind != format.Unknown {
		return fmt.Errorf("%s: %s data is not a PDF", path, kind)
	}
	return nil
}

// options builds the library options, logging to stderr.
func (c *command) options(stderr io.Writer) []manken.Option {
	level := slog.LevelWarn
	if *c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	opts := []manken.Option{
		manken.WithLogger(logger),
		manken.WithSourcePassword(*c.sourcePassword),
		manken.WithProgress(progress.SinkFunc(func(percent int) {
			logger.Debug("progress", "command", c.fs.Name(), "percent", percent)
		})),
	}
	if *c.password != "" {
		opts = append(opts, manken.WithPassword(*c.password))
	}
	return opts
}

// out returns the -o flag or the default name for input.
func (c *command) out(input string) string {
	if *c.output != "" {
		return *c.output
	}
	return manken.DefaultOutputName(c.fs.Name(), input)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}
	name, args := args[0], args[1:]
	switch name {
	case "merge":
		return runMerge(ctx, args, stdout, stderr)
	case "split":
		return runSplit(ctx, args, stdout, stderr)
	case "extract":
		return runExtract(ctx, args, stdout, stderr)
	case "rotate":
		return runRotate(ctx, args, stdout, stderr)
	case "compress":
		return runCompress(ctx, args, stdout, stderr)
	case "convert":
		return runConvert(ctx, args, stdout, stderr)
	case "info":
		return runInfo(args, stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}
	return fmt.Errorf("unknown command %q", name)
}

func runMerge(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newCommand("merge", stderr, "output file (default merged.pdf next to the first input)")
	inputs, err := cmd.parse(args, 2)
	if err != nil {
		return err
	}
	out, err := manken.MergeFiles(ctx, inputs, cmd.out(inputs[0]), cmd.options(stderr)...)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func runSplit(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newCommand("split", stderr, "output directory (default: the input's directory)")
	inputs, err := cmd.parse(args, 1)
	if err != nil {
		return err
	}
	opts := cmd.options(stderr)
	for _, input := range inputs {
		names, err := manken.SplitFile(ctx, input, cmd.out(input), opts...)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
	}
	return nil
}

func runExtract(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newCommand("extract", stderr, "output file (default {name}_extracted.pdf)")
	pageList := cmd.fs.String("pages", "", "pages to copy, e.g. 1-3,5 (required)")
	inputs, err := cmd.parse(args, 1)
	if err != nil {
		return err
	}
	if *pageList == "" {
		return errors.New("extract: -pages is required")
	}
	indices, err := manken.ParsePageRange(*pageList)
	if err != nil {
		return err
	}
	out, err := manken.ExtractFile(ctx, inputs[0], cmd.out(inputs[0]), indices, cmd.options(stderr)...)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func runRotate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newCommand("rotate", stderr, "output file (default {name}_rotated.pdf)")
	angle := cmd.fs.Int("angle", 90, "clockwise rotation: 90, 180 or 270")
	pageList := cmd.fs.String("pages", "", "pages to rotate, e.g. 1-3,5 (required)")
	inputs, err := cmd.parse(args, 1)
	if err != nil {
		return err
	}
	if *pageList == "" {
		return errors.New("rotate: -pages is required")
	}
	targets, err := manken.ParsePageRange(*pageList)
	if err != nil {
		return err
	}
	out, err := manken.RotateFile(ctx, inputs[0], cmd.out(inputs[0]), targets, *angle, cmd.options(stderr)...)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func runCompress(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newCommand("compress", stderr, "output file (default {name}_compressed.pdf)")
	inputs, err := cmd.parse(args, 1)
	if err != nil {
		return err
	}
	out, err := manken.CompressFile(ctx, inputs[0], cmd.out(inputs[0]), cmd.options(stderr)...)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func runConvert(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newCommand("convert", stderr, "output directory (default: the first input's directory)")
	formatName := cmd.fs.String("format", "png", "image format: png, jpeg, tiff or bmp")
	dpi := cmd.fs.Int("dpi", raster.DefaultDPI, fmt.Sprintf("resolution, %d to %d", raster.MinDPI, raster.MaxDPI))
	inputs, err := cmd.parse(args, 1)
	if err != nil {
		return err
	}
	f, err := format.Parse(*formatName)
	if err != nil {
		return err
	}
	if !f.IsImage() {
		return fmt.Errorf("convert: %s is not an image format", f)
	}
	names, err := manken.ConvertFiles(ctx, inputs, cmd.out(inputs[0]), f, *dpi, cmd.options(stderr)...)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func runInfo(args []string, stdout, stderr io.Writer) error {
	cmd := newCommand("info", stderr, "unused")
	inputs, err := cmd.parse(args, 1)
	if err != nil {
		return err
	}
	opts := cmd.options(stderr)
	for i, input := range inputs {
		info, err := manken.Inspect(input, opts...)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		printInfo(stdout, info)
	}
	return nil
}

func printInfo(w io.Writer, info *manken.Info) {
	fmt.Fprintf(w, "Name:      %s\n", info.Name)
	fmt.Fprintf(w, "Path:      %s\n", info.Path)
	fmt.Fprintf(w, "Size:      %d bytes\n", info.Size)
	fmt.Fprintf(w, "Version:   %s\n", info.Version)
	fmt.Fprintf(w, "Encrypted: %t\n", info.Encrypted)
	if info.Locked {
		fmt.Fprintln(w, "Pages:     unknown (password required)")
		return
	}
	fmt.Fprintf(w, "Pages:     %d\n", info.Pages)

	keys := make([]string, 0, len(info.Metadata))
	for k := range info.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-10s %s\n", k+":", strings.TrimSpace(info.Metadata[k]))
	}
}
