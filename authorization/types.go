package authorization

import "context"

// Principal is the authenticated caller identity, produced by the
// hosting layer's authentication middleware. The framework only needs
// a stable subject id and the group memberships policy may key on.
type Principal struct {
	ID       string
	Name     string
	GroupIDs []string
}

// Resolvable reports whether the principal carries a usable subject
// id. Unresolvable principals are rejected before any policy call.
func (p Principal) Resolvable() bool {
	return p.ID != ""
}

// Request is one access decision to evaluate: may the principal
// perform the action on the object.
type Request struct {
	Action      string   `json:"action"`
	ObjectID    string   `json:"objectId"`
	PrincipalID string   `json:"principalId"`
	GroupIDs    []string `json:"groupIds,omitempty"`
}

// Result is the outcome of a single decision. Decisions are stateless;
// the framework never caches them across calls.
type Result struct {
	Authorized bool `json:"authorized"`
}

// Client evaluates authorization requests against the policy decision
// point. Any error is treated by the gate as a denial.
type Client interface {
	Authorize(ctx context.Context, request Request) (Result, error)
}
