package stitch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"codeberg.org/opensuse/docbuildd/internal/execx"
)

// Invoker runs the stitcher binary and parses its output.
type Invoker struct {
	runner *execx.Runner
	bin    string
}

// NewInvoker returns an Invoker that shells out to bin (the configured
// stitcher path).
func NewInvoker(runner *execx.Runner, bin string) *Invoker {
	return &Invoker{runner: runner, bin: bin}
}

// Options controls one stitch invocation.
type Options struct {
	ConfigDir         string
	OutFile           string
	ValidLanguages    []string
	ValidSiteSections []string
	RevalidateOnly    bool
}

// Invoke runs the stitcher over ConfigDir, writing the combined document to
// OutFile, then parses and returns it. A non-zero exit returns an error
// wrapping stderr.
func (iv *Invoker) Invoke(ctx context.Context, opts Options) (*Config, error) {
	args := []string{"--simplify"}
	if opts.RevalidateOnly {
		args = append(args, "--revalidate-only")
	}
	args = append(args, fmt.Sprintf("--valid-languages=%s", strings.Join(opts.ValidLanguages, ",")))
	if len(opts.ValidSiteSections) > 0 {
		args = append(args, fmt.Sprintf("--valid-site-sections=%s", strings.Join(opts.ValidSiteSections, ",")))
	}
	args = append(args, opts.ConfigDir, opts.OutFile)

	result := iv.runner.Run(ctx, "", iv.bin, args...)
	if !result.Succeeded() {
		return nil, fmt.Errorf("stitch: stitching %s failed: %w", opts.ConfigDir, result.Err)
	}

	data, err := os.ReadFile(opts.OutFile)
	if err != nil {
		return nil, fmt.Errorf("stitch: read stitched output: %w", err)
	}
	return Parse(data)
}
