package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	appcfg "codeberg.org/opensuse/docbuildd/internal/config"
	"codeberg.org/opensuse/docbuildd/internal/model"
	"codeberg.org/opensuse/docbuildd/internal/stitch"
)

// canonicalURLBase builds the canonical-url-base XSLT parameter for
// HTML/single-HTML deliverables: target domain + base path + optional
// language segment + product + docset + format + dc-file slug.
func canonicalURLBase(target appcfg.Target, d *model.Deliverable, lang string) string {
	var segments []string
	segments = append(segments, strings.TrimSuffix(target.CanonicalDomain, "/"))
	if target.ServerBasePath != "" {
		segments = append(segments, strings.Trim(target.ServerBasePath, "/"))
	}
	if !(lang == target.DefaultLanguage && target.OmitDefaultLanguage) {
		segments = append(segments, lang)
	}
	segments = append(segments, d.ID, dcSlug(d.DCFile), string(d.Format))
	return strings.Join(segments, "/")
}

// dcSlug derives a filesystem/URL-safe slug from a DC file name.
func dcSlug(dcFile string) string {
	base := filepath.Base(dcFile)
	base = strings.TrimPrefix(base, "DC-")
	return base
}

// writeXSLTParams composes and writes the XSLT parameter file for a
// deliverable: the deliverable's own overrides and, for HTML/single-HTML
// only, a computed canonical-url-base. No target-level default parameters
// are added.
func writeXSLTParams(path string, target appcfg.Target, d *model.Deliverable, lang string) error {
	params := map[string]string{}
	for k, v := range d.XSLTParams {
		params[k] = v
	}
	if d.Format == model.FormatHTML || d.Format == model.FormatSingleHTML {
		params["canonical-url-base"] = canonicalURLBase(target, d, lang)
	}
	return writeParamFile(path, params)
}

// writeDAPSParams composes the DAPS parameter file: --remarks/--meta follow the
// target's flags; --draft is forced when the docset is unpublished
// regardless of the target's setting.
func writeDAPSParams(path string, target appcfg.Target, docset *stitch.Docset) error {
	var flags []string
	if target.DAPSRemarks {
		flags = append(flags, "--remarks")
	}
	if docset.Lifecycle == stitch.LifecycleUnpublished {
		flags = append(flags, "--draft")
	}
	if target.DAPSMeta {
		flags = append(flags, "--meta")
	}
	return os.WriteFile(path, []byte(strings.Join(flags, "\n")+"\n"), 0o644)
}

// writeParamFile writes name=value pairs, one per line, sorted by name for
// deterministic output.
func writeParamFile(path string, params map[string]string) error {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%s\n", name, params[name])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
