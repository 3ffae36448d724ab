package handler

import (
	"crypto/sha1"
	"fmt"
	"regexp"
	"strings"
)

var unsafeSlugChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// CanonicalRemoteName maps a git remote URL to a deterministic,
// filesystem-safe name so it can serve both as a workspace directory and as
// the resource key in the git-remote lock registry. Any one-to-one,
// deterministic, filesystem-safe mapping is conformant; this one keeps the
// tail of the URL human-readable and appends a short content hash to avoid
// collisions between remotes that share a basename.
func CanonicalRemoteName(remoteURL string) string {
	trimmed := strings.TrimSuffix(remoteURL, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	readable := unsafeSlugChars.ReplaceAllString(trimmed, "-")
	readable = strings.Trim(readable, "-")
	if len(readable) > 80 {
		readable = readable[len(readable)-80:]
	}

	sum := sha1.Sum([]byte(remoteURL))
	return fmt.Sprintf("%s-%x", readable, sum[:4])
}
