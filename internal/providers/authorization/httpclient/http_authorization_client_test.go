package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentplane/agentplane/authorization"
	"github.com/agentplane/agentplane/faults"
)

func TestHTTPAuthorizationClient(t *testing.T) {
	t.Parallel()

	t.Run("posts_the_request_and_returns_the_decision", func(t *testing.T) {
		t.Parallel()

		var received authorization.Request
		endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if r.Header.Get("X-API-KEY") != "secret" {
				t.Errorf("expected the API key header, got %q", r.Header.Get("X-API-KEY"))
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("decode request: %v", err)
			}
			_ = json.NewEncoder(w).Encode(authorization.Result{Authorized: true})
		}))
		t.Cleanup(endpoint.Close)

		client := NewHTTPAuthorizationClient(endpoint.URL, WithAPIKey("secret"))
		result, err := client.Authorize(context.Background(), authorization.Request{
			Action:      "AgentPlane.Prompt/prompts/read",
			ObjectID:    "/instances/i/providers/AgentPlane.Prompt/prompts/p",
			PrincipalID: "admin",
		})
		if err != nil {
			t.Fatalf("authorize: %v", err)
		}
		if !result.Authorized {
			t.Error("expected the decision to be authorized")
		}
		if received.Action != "AgentPlane.Prompt/prompts/read" || received.PrincipalID != "admin" {
			t.Errorf("unexpected request payload %+v", received)
		}
	})

	t.Run("non_ok_status_is_an_error", func(t *testing.T) {
		t.Parallel()

		endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(endpoint.Close)

		client := NewHTTPAuthorizationClient(endpoint.URL)
		if _, err := client.Authorize(context.Background(), authorization.Request{}); !faults.IsCategory(err, faults.InternalError) {
			t.Errorf("expected an internal error, got %v", err)
		}
	})

	t.Run("unreachable_endpoint_is_an_error", func(t *testing.T) {
		t.Parallel()

		client := NewHTTPAuthorizationClient("http://127.0.0.1:1")
		if _, err := client.Authorize(context.Background(), authorization.Request{}); !faults.IsCategory(err, faults.InternalError) {
			t.Errorf("expected an internal error, got %v", err)
		}
	})

	t.Run("canceled_context_interrupts_rate_limiting", func(t *testing.T) {
		t.Parallel()

		client := NewHTTPAuthorizationClient("http://unused", WithRateLimit(0.0001, 1))
		ctx, cancel := context.WithCancel(context.Background())
		// Consume the single burst token; the HTTP failure is expected.
		_, _ = client.Authorize(ctx, authorization.Request{})
		cancel()
		if _, err := client.Authorize(ctx, authorization.Request{}); !faults.IsCategory(err, faults.InternalError) {
			t.Errorf("expected an internal error after cancellation, got %v", err)
		}
	})
}
