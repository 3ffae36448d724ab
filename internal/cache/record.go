// Package cache manages the per-deliverable XML metadata records consumed by
// the navigation builder: one file per (target, lang, product, docset,
// format, dc-file), cleared and rewritten as deliverables complete.
package cache

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// Title is one <title> child of a deliverable cache record: either the
// deliverable's own title, or a sub-deliverable's.
type Title struct {
	Hash                string `xml:"hash,attr"`
	RootID              string `xml:"rootid,attr,omitempty"`
	Subtitle            string `xml:"subtitle,attr,omitempty"`
	ProductFromDocument string `xml:"product-from-document,attr,omitempty"`
	Text                string `xml:",chardata"`
}

// Path is the <path> child naming the produced artifact's relative location.
type Path struct {
	Format string `xml:"format,attr"`
	Text   string `xml:",chardata"`
}

// Record is the root <document> element of a deliverable cache file.
type Record struct {
	XMLName    xml.Name `xml:"document"`
	Lang       string   `xml:"lang,attr"`
	ProductID  string   `xml:"productid,attr"`
	SetID      string   `xml:"setid,attr"`
	DC         string   `xml:"dc,attr"`
	CacheDate  int64    `xml:"cachedate,attr"`
	Commit     string   `xml:"commit"`
	Path       Path     `xml:"path"`
	Titles     []Title  `xml:"title"`
}

// PathFor returns the deliverable cache record's path for (target, lang,
// product, docset, format, dcFile), per spec: <base>/<target>/<lang>/
// <product>/<docset>/<format>/<dc-file>.xml.
func PathFor(base, target, lang, product, docset, format, dcFile string) string {
	return filepath.Join(base, target, lang, product, docset, format, dcFile+".xml")
}

// Write serializes rec to path, creating parent directories as needed.
func Write(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: create cache dir: %w", err)
	}
	data, err := xml.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal record: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cache: write record: %w", err)
	}
	return nil
}

// Read parses a previously written deliverable cache record.
func Read(path string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("cache: read record: %w", err)
	}
	if err := xml.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("cache: parse record: %w", err)
	}
	return rec, nil
}

// ClearDocset removes every cached record under (target, lang, product,
// docset) so a reduced-deliverable build cannot leave stale format entries
// behind. Called once at the start of deliverable enumeration.
func ClearDocset(base, target, lang, product, docset string) error {
	dir := filepath.Join(base, target, lang, product, docset)
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: clear docset cache %s: %w", dir, err)
	}
	return nil
}
