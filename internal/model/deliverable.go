package model

import (
	"crypto/md5"
	"fmt"
)

// DeliverableStatus is the lifecycle state of a Deliverable.
type DeliverableStatus string

const (
	DeliverableQueued   DeliverableStatus = "queued"
	DeliverableBuilding DeliverableStatus = "building"
	DeliverableSuccess  DeliverableStatus = "success"
	DeliverableFail     DeliverableStatus = "fail"
)

// Format is an output format a deliverable may be built in.
type Format string

const (
	FormatHTML       Format = "html"
	FormatSingleHTML Format = "single-html"
	FormatPDF        Format = "pdf"
	FormatEPUB       Format = "epub"
)

// Deliverable is one (DC-file, output-format) unit within a BuildInstruction.
// It is created exactly once by the handler during enumeration and executed
// exactly once per build attempt.
type Deliverable struct {
	ID string `json:"id"`

	DCFile string `json:"dc"`
	Format Format `json:"build_format"`

	// SubdeliverableRootIDs names root-id children nested under this
	// deliverable's <deliverable> node, if any.
	SubdeliverableRootIDs []string `json:"subdeliverables,omitempty"`

	// XSLTParams holds name/value overrides collected from <param> nodes.
	XSLTParams map[string]string `json:"-"`

	// ContainerImage overrides the target's default DAPS image for this
	// deliverable alone, when set.
	ContainerImage string `json:"-"`

	Status DeliverableStatus `json:"status"`

	// Title is filled in from the produced document's metadata once the
	// build completes.
	Title string `json:"title,omitempty"`
	// Path is the deliverable's output location relative to the target's
	// publication root.
	Path string `json:"path,omitempty"`

	LastBuildAttemptCommit string `json:"last_build_attempt_commit,omitempty"`
	SuccessfulBuildCommit  string `json:"successful_build_commit,omitempty"`

	// ContentHash is a digest of the DC file's contents, used to short
	// circuit a rebuild when neither the commit nor the DC file changed.
	ContentHash string `json:"-"`
}

// NewDeliverable constructs a queued deliverable whose id is derived from
// the owning instruction's identifying tuple plus the DC file and format.
func NewDeliverable(target, product, docset, language, dcFile string, format Format, subdeliverableRootIDs []string) *Deliverable {
	d := &Deliverable{
		DCFile:                dcFile,
		Format:                format,
		SubdeliverableRootIDs: subdeliverableRootIDs,
		Status:                DeliverableQueued,
		XSLTParams:            make(map[string]string),
	}
	d.ID = generateDeliverableID(target, product, docset, language, dcFile, format)
	return d
}

// generateDeliverableID reproduces the reference implementation's scheme: an
// MD5 digest over the instruction's tuple plus the DC file and format,
// truncated to 9 hex characters.
func generateDeliverableID(target, product, docset, language, dcFile string, format Format) string {
	sum := md5.Sum([]byte(target + docset + language + product + dcFile + string(format)))
	return fmt.Sprintf("%x", sum)[:9]
}

// UpToDate reports whether attemptCommit matches the last successful build
// commit, meaning this deliverable can be skipped rather than rebuilt.
func (d *Deliverable) UpToDate(attemptCommit string) bool {
	return d.SuccessfulBuildCommit != "" && d.SuccessfulBuildCommit == attemptCommit
}

// MarkAttempt records that a build attempt for commit is starting.
func (d *Deliverable) MarkAttempt(commit string) {
	d.Status = DeliverableBuilding
	d.LastBuildAttemptCommit = commit
}

// Finish records the terminal outcome of a build attempt.
func (d *Deliverable) Finish(success bool, commit string) {
	if success {
		d.Status = DeliverableSuccess
		d.SuccessfulBuildCommit = commit
		return
	}
	d.Status = DeliverableFail
}
