// Package handler implements the per-instruction initialization sequence:
// invoking the stitcher, validating the resolved docset against its target,
// cloning the backing repository under the git-remote lock, and enumerating
// the instruction's deliverables.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"codeberg.org/opensuse/docbuildd/internal/cache"
	appcfg "codeberg.org/opensuse/docbuildd/internal/config"
	foundationerrors "codeberg.org/opensuse/docbuildd/internal/foundation/errors"
	"codeberg.org/opensuse/docbuildd/internal/git"
	"codeberg.org/opensuse/docbuildd/internal/lock"
	"codeberg.org/opensuse/docbuildd/internal/logfields"
	"codeberg.org/opensuse/docbuildd/internal/model"
	"codeberg.org/opensuse/docbuildd/internal/stitch"
)

// Handler runs the initialization sequence for one BuildInstruction.
type Handler struct {
	cfg      *appcfg.Config
	stitcher *stitch.Invoker
	locks    *lock.Registry
	gitClone *git.Client
}

// New constructs a Handler. gitClone's workspace directory is the permanent
// clone cache shared by all instructions against the same remote.
func New(cfg *appcfg.Config, stitcher *stitch.Invoker, locks *lock.Registry, gitClone *git.Client) *Handler {
	return &Handler{cfg: cfg, stitcher: stitcher, locks: locks, gitClone: gitClone}
}

// InitResult carries everything the caller needs to run the deliverable
// executors and, later, the finalize step.
type InitResult struct {
	WorkDir         string
	EphemeralGitDir string
	Docset          *stitch.Docset
	Maintainers     []string
}

// Init runs steps 1-6 of the instruction lifecycle: verify the target,
// resolve the docset from the stitched configuration, validate its
// publication rules against the target, clone the repository, and stage a
// temporary working tree. On success bi.Commit is populated and bi's Open
// list holds every enumerated deliverable.
func (h *Handler) Init(ctx context.Context, bi *model.BuildInstruction) (InitResult, error) {
	target, ok := h.findTarget(bi.Target)
	if !ok {
		return InitResult{}, foundationerrors.ValidationError(
			fmt.Sprintf("unknown target %q", bi.Target)).Build()
	}

	cfg, err := h.stitcher.Invoke(ctx, stitch.Options{
		ConfigDir:         target.ConfigDir,
		OutFile:           filepath.Join(h.cfg.WorkspaceRoot, bi.ID+"-stitched.xml"),
		ValidLanguages:    h.cfg.ValidLanguages,
		ValidSiteSections: h.cfg.ValidSiteSections,
	})
	if err != nil {
		return InitResult{}, foundationerrors.StitchError("invoke stitcher").WithCause(err).Build()
	}

	docset, product, ok := cfg.FindDocset(bi.Product, bi.Docset)
	if !ok {
		return InitResult{}, foundationerrors.ValidationError(
			fmt.Sprintf("docset %s/%s not found in stitched configuration", bi.Product, bi.Docset)).Build()
	}

	language, ok := docset.FindLanguage(bi.Language)
	if !ok {
		return InitResult{}, foundationerrors.ValidationError(
			fmt.Sprintf("language %q not configured for docset %s/%s", bi.Language, bi.Product, bi.Docset)).Build()
	}

	if docset.Lifecycle == stitch.LifecycleUnpublished && !target.Internal {
		return InitResult{}, foundationerrors.ValidationError(
			fmt.Sprintf("docset %s/%s is unpublished and target %q is not internal", bi.Product, bi.Docset, bi.Target)).Build()
	}

	remoteName := CanonicalRemoteName(docset.BuildDocs.Git.Remote)
	repo := appcfg.Repository{
		URL:    docset.BuildDocs.Git.Remote,
		Name:   remoteName,
		Branch: language.Branch,
	}

	gitLock := h.locks.Lock(lock.TypeGitRemote, remoteName)
	gitLock.Acquire()
	defer gitLock.Release()

	permanentPath, err := h.gitClone.UpdateRepo(repo)
	if err != nil {
		return InitResult{}, foundationerrors.GitError("update permanent clone").WithCause(err).Build()
	}

	ephemeralGitDir := filepath.Join(h.cfg.WorkspaceRoot, "ephemeral", bi.ID)
	ephemeral := appcfg.Repository{
		URL:    permanentPath,
		Name:   bi.ID,
		Branch: language.Branch,
	}
	ephemeralClone := git.NewClient(filepath.Dir(ephemeralGitDir))
	ephemeralResult, err := ephemeralClone.CloneRepoWithMetadata(ephemeral)
	if err != nil {
		return InitResult{}, foundationerrors.GitError("prepare ephemeral clone").WithCause(err).Build()
	}
	bi.Commit = ephemeralResult.CommitSHA

	workDir := filepath.Join(h.cfg.WorkspaceRoot, "instructions", bi.ID, bi.Language, bi.Product, bi.Docset)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return InitResult{}, foundationerrors.FileSystemError("create temp instruction tree").WithCause(err).Build()
	}

	slog.Info("instruction initialized",
		logfields.Name(bi.ID), logfields.Repository(remoteName), slog.String("commit", bi.Commit))

	if err := cache.ClearDocset(h.cfg.CacheDir, bi.Target, bi.Language, bi.Product, bi.Docset); err != nil {
		slog.Warn("failed to clear stale deliverable cache", logfields.Name(bi.ID), slog.String("error", err.Error()))
	}
	h.enumerateDeliverables(bi, docset, language)

	return InitResult{
		WorkDir:         workDir,
		EphemeralGitDir: ephemeralResult.Path,
		Docset:          docset,
		Maintainers:     product.Maintainers.Contacts,
	}, nil
}

// findTarget locates the target profile named by the instruction.
func (h *Handler) findTarget(name string) (appcfg.Target, bool) {
	return h.cfg.TargetByName(name)
}

// enumerateDeliverables builds one model.Deliverable per <deliverable>
// element for each truthy format flag and places it in bi's Open list.
func (h *Handler) enumerateDeliverables(bi *model.BuildInstruction, docset *stitch.Docset, language *stitch.Language) {
	for _, d := range language.Deliverables {
		for _, format := range d.Format.Enabled() {
			deliverable := model.NewDeliverable(bi.Target, bi.Product, bi.Docset, bi.Language, d.DC, model.Format(format), d.Subdeliverables)
			deliverable.ContainerImage = d.Image
			if deliverable.ContainerImage == "" {
				deliverable.ContainerImage = docset.Image
			}
			deliverable.XSLTParams = make(map[string]string, len(d.Params))
			for _, p := range d.Params {
				deliverable.XSLTParams[p.Name] = p.Value
			}
			bi.PutDeliverable(deliverable)
		}
	}
}
