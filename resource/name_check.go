package resource

// NameCheckStatus is the outcome of a name-availability check.
type NameCheckStatus string

const (
	NameCheckAllowed NameCheckStatus = "Allowed"
	NameCheckDenied  NameCheckStatus = "Denied"
)

// NameRequest is the body of a checkName action invocation.
type NameRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NameCheckResult reports whether a resource name may be used for a
// new resource. A name is denied both when a live resource holds it
// and when a soft-deleted reference still claims it.
type NameCheckResult struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Status  NameCheckStatus `json:"status"`
	Message string          `json:"message,omitempty"`
}
