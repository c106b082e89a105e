// Package staticpolicy evaluates authorization requests against a
// fixed in-process rule set. It serves single-node and development
// deployments that have no remote policy decision point.
package staticpolicy

import (
	"context"
	"strings"

	"github.com/agentplane/agentplane/authorization"
)

var _ authorization.Client = (*StaticPolicyClient)(nil)

// Rule allows a set of principals (or groups) to perform matching
// actions on matching objects. Action and object patterns are
// slash-hierarchical globs: "*" matches one segment, "**" matches any
// number of trailing segments.
type Rule struct {
	Principals []string `yaml:"principals,omitempty"`
	Groups     []string `yaml:"groups,omitempty"`
	Actions    []string `yaml:"actions"`
	Objects    []string `yaml:"objects"`
}

// StaticPolicyClient grants a request when any rule matches. There
// are no denial rules; anything not granted is denied.
type StaticPolicyClient struct {
	rules []Rule
}

func NewStaticPolicyClient(rules []Rule) *StaticPolicyClient {
	return &StaticPolicyClient{rules: rules}
}

func (c *StaticPolicyClient) Authorize(_ context.Context, request authorization.Request) (authorization.Result, error) {
	for _, rule := range c.rules {
		if !rule.matchesSubject(request.PrincipalID, request.GroupIDs) {
			continue
		}
		if !matchAnyPattern(rule.Actions, request.Action) {
			continue
		}
		if !matchAnyPattern(rule.Objects, strings.TrimPrefix(request.ObjectID, "/")) {
			continue
		}
		return authorization.Result{Authorized: true}, nil
	}
	return authorization.Result{Authorized: false}, nil
}

func (r Rule) matchesSubject(principalID string, groupIDs []string) bool {
	for _, candidate := range r.Principals {
		if candidate == principalID || candidate == "*" {
			return true
		}
	}
	for _, group := range r.Groups {
		for _, memberOf := range groupIDs {
			if group == memberOf {
				return true
			}
		}
	}
	return false
}

func matchAnyPattern(patterns []string, value string) bool {
	for _, pattern := range patterns {
		if matchPattern(pattern, value) {
			return true
		}
	}
	return false
}

// matchPattern matches a "/"-separated value against a glob pattern.
// "**" must be the final pattern segment and matches zero or more
// remaining segments; "*" matches exactly one segment.
func matchPattern(pattern string, value string) bool {
	patternSegments := strings.Split(pattern, "/")
	valueSegments := strings.Split(value, "/")

	for i, patternSegment := range patternSegments {
		if patternSegment == "**" {
			return i == len(patternSegments)-1
		}
		if i >= len(valueSegments) {
			return false
		}
		if patternSegment == "*" {
			continue
		}
		if patternSegment != valueSegments[i] {
			return false
		}
	}
	return len(patternSegments) == len(valueSegments)
}
