package publish

import (
	"context"
	"fmt"

	"codeberg.org/opensuse/docbuildd/internal/execx"
)

// ArchiveOptions carries the parameters for one archive-tool invocation.
type ArchiveOptions struct {
	InputDir  string
	OutputZip string
	Formats   []string
	CacheBase string
	Target    string
	Product   string
	Docset    string
	Lang      string
}

// Archiver invokes the external archive tool that produces a zip of a
// docset's selected output formats.
type Archiver struct {
	runner *execx.Runner
	bin    string
}

// NewArchiver returns an Archiver that shells out to bin.
func NewArchiver(runner *execx.Runner, bin string) *Archiver {
	return &Archiver{runner: runner, bin: bin}
}

// Archive produces a zip archive per opts.
func (a *Archiver) Archive(ctx context.Context, opts ArchiveOptions) error {
	args := []string{
		"--input", opts.InputDir,
		"--output", opts.OutputZip,
		"--cache", opts.CacheBase,
		"--target", opts.Target,
		"--product", opts.Product,
		"--docset", opts.Docset,
		"--lang", opts.Lang,
	}
	for _, f := range opts.Formats {
		args = append(args, "--format", f)
	}

	result := a.runner.Run(ctx, "", a.bin, args...)
	if !result.Succeeded() {
		return fmt.Errorf("publish: archive %s failed: %w", opts.Docset, result.Err)
	}
	return nil
}
