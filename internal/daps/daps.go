// Package daps invokes the containerized DAPS runner that converts DocBook
// XML sources into HTML, single-HTML, PDF, or EPUB output, and parses the
// JSON filelist it produces.
package daps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"codeberg.org/opensuse/docbuildd/internal/execx"
)

// FilelistEntry describes one artifact the runner produced.
type FilelistEntry struct {
	Format string `json:"format"`
	Status string `json:"status"`
	File   string `json:"file"`
}

// Filelist maps deliverable name to its produced artifact entry.
type Filelist map[string]FilelistEntry

// FindSucceeded returns an entry matching format with status "succeeded".
// Filelist is a map, so when several entries match, which one is returned
// is not defined. An empty or malformed filelist is the caller's responsibility
// to detect via ParseFilelist's error return.
func (fl Filelist) FindSucceeded(format string) (FilelistEntry, bool) {
	for _, entry := range fl {
		if entry.Format == format && entry.Status == "succeeded" {
			return entry, true
		}
	}
	return FilelistEntry{}, false
}

// ParseFilelist reads and decodes the filelist.json produced by a runner
// invocation. An empty or malformed file is reported as an error so callers
// can fail the deliverable per the "empty/missing/malformed filelist" rule.
func ParseFilelist(path string) (Filelist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("daps: read filelist %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("daps: filelist %s is empty", path)
	}
	var fl Filelist
	if err := json.Unmarshal(data, &fl); err != nil {
		return nil, fmt.Errorf("daps: parse filelist %s: %w", path, err)
	}
	if len(fl) == 0 {
		return nil, fmt.Errorf("daps: filelist %s has no entries", path)
	}
	return fl, nil
}

// RunOptions carries the parameters for one DAPS container invocation.
type RunOptions struct {
	InputDir       string
	OutputDir      string
	Format         string
	DCFile         string
	XSLTParamsFile string
	DAPSParamsFile string
	ContainerImage string

	Bigfile        bool
	JSONFilelist   bool
	AutoValidate   bool
	ContainerPull  bool
}

// Runner invokes the DAPS container runner binary.
type Runner struct {
	execRunner *execx.Runner
	bin        string
}

// NewRunner returns a Runner that shells out to bin (the configured DAPS
// runner binary/wrapper script).
func NewRunner(execRunner *execx.Runner, bin string) *Runner {
	return &Runner{execRunner: execRunner, bin: bin}
}

// Run executes the DAPS container build described by opts and returns the
// raw subprocess result; the caller parses filelist.json from opts.OutputDir
// on success.
func (r *Runner) Run(ctx context.Context, opts RunOptions) execx.Result {
	args := []string{
		"-i", opts.InputDir,
		"-o", opts.OutputDir,
		"-f", opts.Format,
		"-x", opts.XSLTParamsFile,
		"-d", opts.DAPSParamsFile,
	}
	if opts.Bigfile {
		args = append(args, "-b=1")
	}
	if opts.JSONFilelist {
		args = append(args, "-j=1")
	}
	if opts.AutoValidate {
		args = append(args, "-v=1")
	}
	if opts.ContainerPull {
		args = append(args, "-u=1")
	}
	if opts.ContainerImage != "" {
		args = append(args, "--image", opts.ContainerImage)
	}
	args = append(args, opts.DCFile)

	return r.execRunner.Run(ctx, "", r.bin, args...)
}
