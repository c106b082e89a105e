package staticpolicy

import (
	"context"
	"testing"

	"github.com/agentplane/agentplane/authorization"
)

func TestStaticPolicyClient(t *testing.T) {
	t.Parallel()

	client := NewStaticPolicyClient([]Rule{
		{
			Principals: []string{"user-1"},
			Actions:    []string{"AgentPlane.Prompt/prompts/*"},
			Objects:    []string{"instances/7f1a/providers/AgentPlane.Prompt/**"},
		},
		{
			Groups:  []string{"admins"},
			Actions: []string{"**"},
			Objects: []string{"**"},
		},
	})

	check := func(t *testing.T, request authorization.Request, want bool) {
		t.Helper()
		result, err := client.Authorize(context.Background(), request)
		if err != nil {
			t.Fatalf("Authorize returned error: %v", err)
		}
		if result.Authorized != want {
			t.Fatalf("expected authorized=%v for %+v", want, request)
		}
	}

	t.Run("principal_rule_matches", func(t *testing.T) {
		t.Parallel()
		check(t, authorization.Request{
			Action:      "AgentPlane.Prompt/prompts/read",
			ObjectID:    "/instances/7f1a/providers/AgentPlane.Prompt/prompts/Greeting",
			PrincipalID: "user-1",
		}, true)
	})

	t.Run("action_outside_pattern", func(t *testing.T) {
		t.Parallel()
		check(t, authorization.Request{
			Action:      "AgentPlane.Agent/agents/read",
			ObjectID:    "/instances/7f1a/providers/AgentPlane.Prompt/prompts/Greeting",
			PrincipalID: "user-1",
		}, false)
	})

	t.Run("object_outside_pattern", func(t *testing.T) {
		t.Parallel()
		check(t, authorization.Request{
			Action:      "AgentPlane.Prompt/prompts/read",
			ObjectID:    "/instances/other/providers/AgentPlane.Prompt/prompts/Greeting",
			PrincipalID: "user-1",
		}, false)
	})

	t.Run("group_rule_matches", func(t *testing.T) {
		t.Parallel()
		check(t, authorization.Request{
			Action:      "AgentPlane.Agent/agents/delete",
			ObjectID:    "/instances/7f1a/providers/AgentPlane.Agent/agents/Writer",
			PrincipalID: "user-2",
			GroupIDs:    []string{"admins"},
		}, true)
	})

	t.Run("unmatched_principal_denied", func(t *testing.T) {
		t.Parallel()
		check(t, authorization.Request{
			Action:      "AgentPlane.Prompt/prompts/read",
			ObjectID:    "/instances/7f1a/providers/AgentPlane.Prompt/prompts/Greeting",
			PrincipalID: "user-3",
		}, false)
	})
}

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/*/c", "a/b/c", true},
		{"a/*/c", "a/b/d", false},
		{"a/**", "a/b/c/d", true},
		{"a/**", "a", true},
		{"**", "anything/at/all", true},
		{"a/b", "a/b/c", false},
		{"a/b/c", "a/b", false},
	}
	for _, tc := range cases {
		if got := matchPattern(tc.pattern, tc.value); got != tc.want {
			t.Fatalf("matchPattern(%q, %q) = %v, want %v", tc.pattern, tc.value, got, tc.want)
		}
	}
}
