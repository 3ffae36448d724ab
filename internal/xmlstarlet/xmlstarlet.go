// Package xmlstarlet invokes the external xmlstarlet tool to pull a single
// text value out of a DocBook bigfile via an XPath selector, the same way
// the reference documentation-build tooling extracts deliverable titles.
package xmlstarlet

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/opensuse/docbuildd/internal/execx"
)

// Invoker runs the xmlstarlet binary.
type Invoker struct {
	runner *execx.Runner
	bin    string
}

// NewInvoker returns an Invoker that shells out to bin (typically
// "xmlstarlet").
func NewInvoker(runner *execx.Runner, bin string) *Invoker {
	return &Invoker{runner: runner, bin: bin}
}

// SelectText runs `xmlstarlet sel -t -v <xpath> <path>` and returns the
// trimmed result.
func (iv *Invoker) SelectText(ctx context.Context, path, xpath string) (string, error) {
	result := iv.runner.Run(ctx, "", iv.bin, "sel", "-t", "-v", xpath, path)
	if !result.Succeeded() {
		return "", fmt.Errorf("xmlstarlet: select %q in %s failed: %w", xpath, path, result.Err)
	}
	return strings.TrimSpace(result.Stdout), nil
}

// TitleXPath builds the title-selection XPath used for both a deliverable's
// own root id and any sub-deliverable root ids: the first <title> under an
// *info wrapper for the element with the given id, else a bare <title>
// sibling.
func TitleXPath(rootID string) string {
	return fmt.Sprintf(
		"(//*[@*[local-name(.)='id']='%s']/*[contains(local-name(.),'info')]/*[local-name(.)='title']|"+
			"//*[@*[local-name(.)='id']='%s']/*[local-name(.)='title'])[1]",
		rootID, rootID)
}

// RootTitleXPath builds the title-selection XPath used when a deliverable
// has no ROOTID override: the document root's own title.
func RootTitleXPath() string {
	return "(/*/*[contains(local-name(.),'info')]/*[local-name(.)='title']|/*/*[local-name(.)='title'])[1]"
}
