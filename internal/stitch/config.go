// Package stitch invokes the external stitcher tool and parses its combined,
// validated XML configuration for one target.
package stitch

import (
	"encoding/xml"
	"fmt"
)

// Lifecycle is a docset's publication state.
type Lifecycle string

const (
	LifecycleSupported   Lifecycle = "supported"
	LifecycleBeta        Lifecycle = "beta"
	LifecycleUnsupported Lifecycle = "unsupported"
	LifecycleUnpublished Lifecycle = "unpublished"
)

// Navigation is a docset's navigation-page generation mode.
type Navigation string

const (
	NavigationLinked   Navigation = "linked"
	NavigationHidden   Navigation = "hidden"
	NavigationDisabled Navigation = "disabled"
)

// Config is the root of a stitched, simplified product configuration for one
// target, as produced by the stitcher tool.
type Config struct {
	XMLName  xml.Name  `xml:"config"`
	Products []Product `xml:"product"`
}

// Product groups every docset belonging to one product.
type Product struct {
	ProductID   string      `xml:"productid,attr"`
	Maintainers Maintainers `xml:"maintainers"`
	Docsets     []Docset    `xml:"docset"`
}

// Maintainers is the contact list notified on build failures.
type Maintainers struct {
	Contacts []string `xml:"contact"`
}

// Docset is one versioned documentation set within a product.
type Docset struct {
	SetID      string     `xml:"setid,attr"`
	Lifecycle  Lifecycle  `xml:"lifecycle,attr"`
	Navigation Navigation `xml:"navigation,attr"`
	Image      string     `xml:"image,attr,omitempty"`
	BuildDocs  BuildDocs  `xml:"builddocs"`
}

// BuildDocs holds the git remote and the per-language build configuration.
type BuildDocs struct {
	Git       Git        `xml:"git"`
	Languages []Language `xml:"language"`
}

// Git names the remote backing a docset's sources.
type Git struct {
	Remote string `xml:"remote,attr"`
}

// Language is one language's branch/subdirectory and deliverable list.
type Language struct {
	Lang         string        `xml:"lang,attr"`
	Branch       string        `xml:"branch"`
	Subdir       string        `xml:"subdir,omitempty"`
	Deliverables []Deliverable `xml:"deliverable"`
}

// Deliverable is one <deliverable> node: a DC file with a set of requested
// output formats and their overrides.
type Deliverable struct {
	DC              string      `xml:"dc"`
	Format          FormatFlags `xml:"format"`
	Subdeliverables []string    `xml:"subdeliverable"`
	Params          []Param     `xml:"param"`
	Image           string      `xml:"image,attr,omitempty"`
}

// FormatFlags lists which output formats are requested for a deliverable.
// Each attribute is "true"/"false"; absent or false means not requested.
type FormatFlags struct {
	HTML       string `xml:"html,attr,omitempty"`
	SingleHTML string `xml:"single-html,attr,omitempty"`
	PDF        string `xml:"pdf,attr,omitempty"`
	EPUB       string `xml:"epub,attr,omitempty"`
}

// Enabled returns the list of formats this FormatFlags requests.
func (f FormatFlags) Enabled() []string {
	var formats []string
	if f.HTML == "true" {
		formats = append(formats, "html")
	}
	if f.SingleHTML == "true" {
		formats = append(formats, "single-html")
	}
	if f.PDF == "true" {
		formats = append(formats, "pdf")
	}
	if f.EPUB == "true" {
		formats = append(formats, "epub")
	}
	return formats
}

// Param is an XSLT parameter name/value override.
type Param struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Parse decodes a stitched configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("stitch: parse config: %w", err)
	}
	return &cfg, nil
}

// FindDocset locates a (product, docset) pair.
func (c *Config) FindDocset(productID, setID string) (*Docset, *Product, bool) {
	for i := range c.Products {
		p := &c.Products[i]
		if p.ProductID != productID {
			continue
		}
		for j := range p.Docsets {
			if p.Docsets[j].SetID == setID {
				return &p.Docsets[j], p, true
			}
		}
	}
	return nil, nil, false
}

// FindLanguage locates a docset's per-language build configuration.
func (d *Docset) FindLanguage(lang string) (*Language, bool) {
	for i := range d.BuildDocs.Languages {
		if d.BuildDocs.Languages[i].Lang == lang {
			return &d.BuildDocs.Languages[i], true
		}
	}
	return nil, false
}
