// Package server exposes the management HTTP surface: a thin routing
// and serialization layer over the provider registry. All resource
// semantics live in the providers; the handler only locates the
// provider, carries the caller identity, and maps faults to statuses.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-logr/logr"

	"github.com/agentplane/agentplane/authorization"
	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/provider"
)

const (
	headerPrincipalID     = "X-Principal-Id"
	headerPrincipalName   = "X-Principal-Name"
	headerPrincipalGroups = "X-Principal-Groups"

	maxRequestBody = 4 << 20
)

type errorBody struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// ManagementHandler serves resource requests under
// /instances/{instanceID}/providers/{provider}/{resourcePath...}.
type ManagementHandler struct {
	instanceID string
	registry   *provider.Registry
	log        logr.Logger
}

var _ http.Handler = (*ManagementHandler)(nil)

func NewManagementHandler(instanceID string, registry *provider.Registry, log logr.Logger) *ManagementHandler {
	return &ManagementHandler{
		instanceID: instanceID,
		registry:   registry,
		log:        log.WithName("management"),
	}
}

func (h *ManagementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, resourcePath, err := h.resolve(r.URL.Path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	principal := principalFromRequest(r)

	switch r.Method {
	case http.MethodGet:
		result, err := target.HandleGet(r.Context(), resourcePath, principal)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, result)
	case http.MethodPost, http.MethodPut:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			h.writeError(w, r, faults.Validation("failed to read the request body", err))
			return
		}
		result, err := target.HandleUpsert(r.Context(), resourcePath, body, principal)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, result)
	case http.MethodDelete:
		if err := target.HandleDelete(r.Context(), resourcePath, principal); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, POST, PUT, DELETE")
		h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: errorBody{
			Category: string(faults.ValidationError),
			Message:  "the request method is not supported",
		}})
	}
}

// resolve splits the URL into the addressed provider and the
// provider-relative resource path.
func (h *ManagementHandler) resolve(urlPath string) (*provider.Provider, string, error) {
	segments := strings.Split(strings.Trim(urlPath, "/"), "/")
	if len(segments) < 4 || segments[0] != "instances" || segments[2] != "providers" {
		return nil, "", faults.InvalidPath(
			"the request path must have the form /instances/{instanceId}/providers/{provider}/{resourcePath}", nil)
	}
	if segments[1] != h.instanceID {
		return nil, "", faults.NotFound("the requested instance does not exist")
	}

	target, err := h.registry.Resolve(segments[3])
	if err != nil {
		return nil, "", err
	}
	return target, "/" + strings.Join(segments[4:], "/"), nil
}

func principalFromRequest(r *http.Request) authorization.Principal {
	principal := authorization.Principal{
		ID:   r.Header.Get(headerPrincipalID),
		Name: r.Header.Get(headerPrincipalName),
	}
	if groups := r.Header.Get(headerPrincipalGroups); groups != "" {
		for _, group := range strings.Split(groups, ",") {
			if group = strings.TrimSpace(group); group != "" {
				principal.GroupIDs = append(principal.GroupIDs, group)
			}
		}
	}
	return principal
}

func (h *ManagementHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		h.log.Error(err, "request failed", "method", r.Method, "path", r.URL.Path)
	} else {
		h.log.V(1).Info("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "reason", err.Error())
	}
	h.writeJSON(w, status, errorResponse{Error: errorBody{
		Category: string(faults.CategoryOf(err)),
		Message:  err.Error(),
	}})
}

func (h *ManagementHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error(err, "failed to write the response body")
	}
}
