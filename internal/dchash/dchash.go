// Package dchash invokes the external dc-hash tool to compute a content
// digest of a DC file, optionally scoped to one root id for sub-deliverables.
package dchash

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/opensuse/docbuildd/internal/execx"
)

// Invoker runs the dc-hash binary.
type Invoker struct {
	runner *execx.Runner
	bin    string
}

// NewInvoker returns an Invoker that shells out to bin.
func NewInvoker(runner *execx.Runner, bin string) *Invoker {
	return &Invoker{runner: runner, bin: bin}
}

// Hash computes the content digest of dcPath, scoped to rootID when non-empty.
func (iv *Invoker) Hash(ctx context.Context, dcPath, rootID string) (string, error) {
	args := []string{dcPath}
	if rootID != "" {
		args = append(args, rootID)
	}
	result := iv.runner.Run(ctx, "", iv.bin, args...)
	if !result.Succeeded() {
		return "", fmt.Errorf("dchash: hashing %s failed: %w", dcPath, result.Err)
	}
	return strings.TrimSpace(result.Stdout), nil
}
