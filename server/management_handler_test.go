package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr"

	"github.com/agentplane/agentplane/internal/providers/authorization/staticpolicy"
	"github.com/agentplane/agentplane/internal/providers/resources/promptprovider"
	"github.com/agentplane/agentplane/internal/providers/storage/memstore"
	"github.com/agentplane/agentplane/provider"
)

const testInstanceID = "9b2f7a14-4c0d-4a0e-9f58-1f6f9a3c2d01"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	handler := promptprovider.NewPromptHandler(memstore.NewMemoryObjectStore(), logr.Discard())
	client := staticpolicy.NewStaticPolicyClient([]staticpolicy.Rule{{
		Principals: []string{"admin"},
		Actions:    []string{"AgentPlane.Prompt/**"},
		Objects:    []string{"**"},
	}})

	prompts, err := provider.New(provider.Options{
		Name:          promptprovider.ProviderName,
		InstanceID:    testInstanceID,
		Handler:       handler,
		Authorization: client,
		Logger:        logr.Discard(),
	})
	if err != nil {
		t.Fatalf("build provider: %v", err)
	}
	if err := prompts.Start(context.Background()); err != nil {
		t.Fatalf("start provider: %v", err)
	}

	registry := provider.NewRegistry()
	if err := registry.Register(prompts); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	server := httptest.NewServer(NewManagementHandler(testInstanceID, registry, logr.Discard()))
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, server *httptest.Server, method string, path string, body string, principal string) *http.Response {
	t.Helper()

	request, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if principal != "" {
		request.Header.Set("X-Principal-Id", principal)
	}
	response, err := server.Client().Do(request)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = response.Body.Close() })
	return response
}

func promptURL(suffix string) string {
	return "/instances/" + testInstanceID + "/providers/AgentPlane.Prompt" + suffix
}

func TestManagementHandlerRouting(t *testing.T) {
	t.Parallel()

	t.Run("upsert_get_delete_round_trip", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(t)
		body := `{"type":"multipart","name":"summarizer","prefix":"Summarize:"}`

		response := doRequest(t, server, http.MethodPost, promptURL("/prompts/summarizer"), body, "admin")
		if response.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 on upsert, got %d", response.StatusCode)
		}
		var upsert struct {
			ObjectID string `json:"objectId"`
		}
		if err := json.NewDecoder(response.Body).Decode(&upsert); err != nil {
			t.Fatalf("decode upsert response: %v", err)
		}
		if !strings.HasPrefix(upsert.ObjectID, "/instances/"+testInstanceID+"/providers/AgentPlane.Prompt/prompts/summarizer") {
			t.Errorf("unexpected object id %q", upsert.ObjectID)
		}

		response = doRequest(t, server, http.MethodGet, promptURL("/prompts/summarizer"), "", "admin")
		if response.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 on get, got %d", response.StatusCode)
		}
		var prompt promptprovider.Prompt
		if err := json.NewDecoder(response.Body).Decode(&prompt); err != nil {
			t.Fatalf("decode prompt: %v", err)
		}
		if prompt.Prefix != "Summarize:" {
			t.Errorf("expected the stored prefix, got %q", prompt.Prefix)
		}

		response = doRequest(t, server, http.MethodDelete, promptURL("/prompts/summarizer"), "", "admin")
		if response.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204 on delete, got %d", response.StatusCode)
		}

		response = doRequest(t, server, http.MethodGet, promptURL("/prompts/summarizer"), "", "admin")
		if response.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", response.StatusCode)
		}

		response = doRequest(t, server, http.MethodPost, promptURL("/prompts/summarizer"), body, "admin")
		if response.StatusCode != http.StatusConflict {
			t.Errorf("expected 409 when reusing a deleted name, got %d", response.StatusCode)
		}
	})

	t.Run("missing_principal_is_forbidden", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(t)
		response := doRequest(t, server, http.MethodGet, promptURL("/prompts/summarizer"), "", "")
		if response.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403 without a principal, got %d", response.StatusCode)
		}
	})

	t.Run("unknown_provider_is_not_found", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(t)
		response := doRequest(t, server, http.MethodGet,
			"/instances/"+testInstanceID+"/providers/AgentPlane.Unknown/prompts", "", "admin")
		if response.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 for an unknown provider, got %d", response.StatusCode)
		}
	})

	t.Run("wrong_instance_is_not_found", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(t)
		response := doRequest(t, server, http.MethodGet,
			"/instances/other/providers/AgentPlane.Prompt/prompts", "", "admin")
		if response.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 for an unknown instance, got %d", response.StatusCode)
		}
	})

	t.Run("malformed_route_is_bad_request", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(t)
		response := doRequest(t, server, http.MethodGet, "/instances/"+testInstanceID, "", "admin")
		if response.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for a malformed route, got %d", response.StatusCode)
		}
	})

	t.Run("action_dispatch_through_post", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(t)
		response := doRequest(t, server, http.MethodPost, promptURL("/prompts/checkName"),
			`{"name":"fresh","type":"multipart"}`, "admin")
		if response.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 on checkName, got %d", response.StatusCode)
		}
		var check struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(response.Body).Decode(&check); err != nil {
			t.Fatalf("decode checkName response: %v", err)
		}
		if check.Status != "Allowed" {
			t.Errorf("expected the fresh name to be allowed, got %q", check.Status)
		}
	})
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	// Method-level rejection carries an Allow header.
	response := doRequest(t, server, http.MethodPatch, promptURL("/prompts/summarizer"), "{}", "admin")
	if response.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for PATCH, got %d", response.StatusCode)
	}
	if allow := response.Header.Get("Allow"); !strings.Contains(allow, http.MethodDelete) {
		t.Errorf("expected the Allow header to list supported methods, got %q", allow)
	}
}
