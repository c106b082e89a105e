package authorization

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/resource"
)

type recordingClient struct {
	authorized bool
	err        error
	requests   []Request
}

func (c *recordingClient) Authorize(_ context.Context, request Request) (Result, error) {
	c.requests = append(c.requests, request)
	if c.err != nil {
		return Result{}, c.err
	}
	return Result{Authorized: c.authorized}, nil
}

func promptPath(t *testing.T) resource.Path {
	t.Helper()
	graph := map[string]resource.TypeDescriptor{
		"prompts": {Actions: []string{"checkName"}},
	}
	parsed, err := resource.ParsePath("/prompts/Greeting", "AgentPlane.Prompt", graph, false)
	if err != nil {
		t.Fatalf("ParsePath returned error: %v", err)
	}
	return parsed
}

func TestGateAuthorize(t *testing.T) {
	t.Parallel()

	t.Run("allowed", func(t *testing.T) {
		t.Parallel()

		client := &recordingClient{authorized: true}
		gate := NewGate("7f1a", "AgentPlane.Prompt", client, logr.Discard())

		principal := Principal{ID: "user-1", Name: "pat", GroupIDs: []string{"editors"}}
		if err := gate.Authorize(context.Background(), promptPath(t), principal, "read"); err != nil {
			t.Fatalf("Authorize returned error: %v", err)
		}

		if len(client.requests) != 1 {
			t.Fatalf("expected one decision request, got %d", len(client.requests))
		}
		request := client.requests[0]
		if request.Action != "AgentPlane.Prompt/prompts/read" {
			t.Fatalf("unexpected action string %q", request.Action)
		}
		if request.ObjectID != "/instances/7f1a/providers/AgentPlane.Prompt/prompts/Greeting" {
			t.Fatalf("unexpected object id %q", request.ObjectID)
		}
		if request.PrincipalID != "user-1" || len(request.GroupIDs) != 1 {
			t.Fatalf("unexpected principal fields %+v", request)
		}
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()

		gate := NewGate("7f1a", "AgentPlane.Prompt", &recordingClient{authorized: false}, logr.Discard())
		err := gate.Authorize(context.Background(), promptPath(t), Principal{ID: "user-1"}, "write")
		if !faults.IsCategory(err, faults.ForbiddenError) {
			t.Fatalf("expected ForbiddenError, got %v", err)
		}
	})

	t.Run("client_failure_fails_closed", func(t *testing.T) {
		t.Parallel()

		client := &recordingClient{err: errors.New("connection refused")}
		gate := NewGate("7f1a", "AgentPlane.Prompt", client, logr.Discard())
		err := gate.Authorize(context.Background(), promptPath(t), Principal{ID: "user-1"}, "delete")
		if !faults.IsCategory(err, faults.ForbiddenError) {
			t.Fatalf("expected ForbiddenError, got %v", err)
		}
		if err.Error() != deniedMessage {
			t.Fatalf("client failure detail must not leak, got %q", err.Error())
		}
	})

	t.Run("missing_principal_skips_client", func(t *testing.T) {
		t.Parallel()

		client := &recordingClient{authorized: true}
		gate := NewGate("7f1a", "AgentPlane.Prompt", client, logr.Discard())
		err := gate.Authorize(context.Background(), promptPath(t), Principal{}, "read")
		if !faults.IsCategory(err, faults.ForbiddenError) {
			t.Fatalf("expected ForbiddenError, got %v", err)
		}
		if len(client.requests) != 0 {
			t.Fatalf("expected no decision request for unresolvable principal")
		}
	})
}
