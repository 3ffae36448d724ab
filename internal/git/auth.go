package git

import (
	"codeberg.org/opensuse/docbuildd/internal/auth"
	appcfg "codeberg.org/opensuse/docbuildd/internal/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

func (c *Client) getAuth(authConfig *appcfg.AuthConfig) (transport.AuthMethod, error) {
	// Use the auth manager to create authentication
	return auth.CreateAuth(authConfig)
}
