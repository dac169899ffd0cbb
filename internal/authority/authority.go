// Package authority implements the controlling-authority check consumed by
// the registry and compliance services. The core deliberately does not own
// role management; it only asks "is this caller the registered authority".
package authority

import (
	"context"

	id "assetgate/pkg/domain"
)

// Static authorizes exactly one actor, fixed at construction. This matches
// the single-controlling-authority model: no delegation, no quorum.
type Static struct {
	authority id.ActorID
}

// NewStatic builds an authorizer for the given authority identity. A zero
// authority authorizes nobody, which fails closed for misconfigured
// deployments.
func NewStatic(authority id.ActorID) *Static {
	return &Static{authority: authority}
}

// IsAuthorized reports whether actor is the controlling authority.
func (s *Static) IsAuthorized(_ context.Context, actor id.ActorID) bool {
	if s.authority.IsNil() {
		return false
	}
	return actor == s.authority
}
