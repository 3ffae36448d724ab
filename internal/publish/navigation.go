package publish

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/opensuse/docbuildd/internal/execx"
)

// NavigationOptions carries the parameters for one navigation-builder
// invocation: it renders index/home/search/404 pages from templates.
type NavigationOptions struct {
	StitchedConfigPath string
	Target             string
	Product            string
	Docset             string
	UILanguages        []string
	DefaultSiteSection string
	DeliverableCache   string
	TemplateDir        string
	OutputDir          string
	BaseURLPath        string
}

// NavigationBuilder invokes the external navigation/index page generator.
type NavigationBuilder struct {
	runner *execx.Runner
	bin    string
}

// NewNavigationBuilder returns a NavigationBuilder that shells out to bin.
func NewNavigationBuilder(runner *execx.Runner, bin string) *NavigationBuilder {
	return &NavigationBuilder{runner: runner, bin: bin}
}

// Build renders the navigation tree for one target into opts.OutputDir.
func (n *NavigationBuilder) Build(ctx context.Context, opts NavigationOptions) error {
	args := []string{
		"--config", opts.StitchedConfigPath,
		"--target", opts.Target,
		"--product", opts.Product,
		"--docset", opts.Docset,
		"--ui-languages", strings.Join(opts.UILanguages, ","),
		"--default-site-section", opts.DefaultSiteSection,
		"--deliverable-cache", opts.DeliverableCache,
		"--template-dir", opts.TemplateDir,
		"--output-dir", opts.OutputDir,
		"--base-url-path", opts.BaseURLPath,
	}

	result := n.runner.Run(ctx, "", n.bin, args...)
	if !result.Succeeded() {
		return fmt.Errorf("publish: navigation build for %s/%s failed: %w", opts.Target, opts.Docset, result.Err)
	}
	return nil
}
