// Package promptprovider implements the AgentPlane.Prompt resource
// provider: multipart prompt definitions addressed by name, with a
// checkName action for validating names before creation.
package promptprovider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/agentplane/agentplane/events"
	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/provider"
	"github.com/agentplane/agentplane/refstore"
	"github.com/agentplane/agentplane/resource"
	"github.com/agentplane/agentplane/storage"
)

const (
	// ProviderName is the provider's registered name.
	ProviderName = "AgentPlane.Prompt"

	// EventNamespace carries prompt change notifications between
	// replicas.
	EventNamespace = "agentplane:prompts"

	resourceTypePrompts = "prompts"
	actionCheckName     = "checkName"
	referenceKind       = "prompt"
)

// Prompt is a multipart prompt definition. Prefix and suffix are
// joined around the caller-supplied content at completion time.
type Prompt struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	ObjectID    string `json:"objectId,omitempty"`
	Description string `json:"description,omitempty"`
	Prefix      string `json:"prefix,omitempty"`
	Suffix      string `json:"suffix,omitempty"`
}

var _ provider.Handler = (*PromptHandler)(nil)
var _ provider.EventReactor = (*PromptHandler)(nil)

// PromptHandler persists prompts through an object store and keeps
// the per-provider reference index.
type PromptHandler struct {
	objectStore storage.ObjectStore
	references  *refstore.Store
	log         logr.Logger
}

func NewPromptHandler(objectStore storage.ObjectStore, log logr.Logger) *PromptHandler {
	log = log.WithValues("provider", ProviderName)
	return &PromptHandler{
		objectStore: objectStore,
		references:  refstore.New(objectStore, resource.IndexDocumentPath(ProviderName, referenceKind), log),
		log:         log,
	}
}

func (h *PromptHandler) TypeGraph() map[string]resource.TypeDescriptor {
	return map[string]resource.TypeDescriptor{
		resourceTypePrompts: {
			Actions:  []string{actionCheckName},
			SubTypes: map[string]resource.TypeDescriptor{},
		},
	}
}

func (h *PromptHandler) Initialize(ctx context.Context) error {
	return h.references.Load(ctx)
}

func (h *PromptHandler) FetchByReference(ctx context.Context, path resource.Path) (any, error) {
	last := path.Last()
	if last.ID == "" {
		return h.loadAll(ctx)
	}

	reference, err := h.references.Get(last.ID)
	if err != nil {
		return nil, err
	}
	return h.loadPrompt(ctx, reference)
}

func (h *PromptHandler) Upsert(ctx context.Context, path resource.Path, body []byte, objectID string) (any, error) {
	var prompt Prompt
	if err := json.Unmarshal(body, &prompt); err != nil {
		return nil, faults.Validation("the prompt definition is invalid", err)
	}
	if !resource.ValidName(prompt.Name) {
		return nil, faults.Validation("the prompt definition requires a valid name", nil)
	}
	if prompt.Name != path.Last().ID {
		return nil, faults.Validation("the resource path does not match the prompt definition (name mismatch)", nil)
	}
	if h.references.IsDeleted(prompt.Name) {
		return nil, faults.Conflict(fmt.Sprintf(
			"the prompt %s cannot be added or updated: the name was previously deleted and not purged", prompt.Name))
	}

	prompt.ObjectID = objectID
	content, err := json.MarshalIndent(prompt, "", "  ")
	if err != nil {
		return nil, faults.Internal("failed to encode the prompt", err)
	}

	// Object first, reference second: a crash in between leaves an
	// unreachable object, never a reference to a missing object.
	location := resource.ObjectPath(ProviderName, prompt.Name)
	if err := h.objectStore.Write(ctx, location, content); err != nil {
		return nil, err
	}
	if err := h.references.Upsert(ctx, resource.Reference{
		Name:     prompt.Name,
		Type:     prompt.Type,
		Location: location,
	}); err != nil {
		return nil, err
	}

	return resource.UpsertResult{ObjectID: objectID}, nil
}

func (h *PromptHandler) ExecuteAction(_ context.Context, path resource.Path, body []byte) (any, error) {
	switch path.Last().Action {
	case actionCheckName:
		var request resource.NameRequest
		if err := json.Unmarshal(body, &request); err != nil {
			return nil, faults.Validation("the name check request is invalid", err)
		}
		return h.checkName(request), nil
	default:
		return nil, faults.InvalidPath(fmt.Sprintf(
			"the action %s is not supported by the %s resource provider", path.Last().Action, ProviderName), nil)
	}
}

func (h *PromptHandler) Delete(ctx context.Context, path resource.Path) error {
	last := path.Last()
	if last.ID == "" {
		return faults.InvalidPath("delete must target a concrete prompt resource", nil)
	}
	return h.references.MarkDeleted(ctx, last.ID)
}

// HandleEvents reloads the reference index so writes on other
// replicas become visible within one polling cycle.
func (h *PromptHandler) HandleEvents(ctx context.Context, set events.EventSet) {
	h.log.V(1).Info("reloading prompt references", "namespace", set.Namespace, "events", len(set.Events))
	if err := h.references.Load(ctx); err != nil {
		h.log.Error(err, "failed to reload prompt references")
	}
}

func (h *PromptHandler) checkName(request resource.NameRequest) resource.NameCheckResult {
	if h.references.Claimed(request.Name) {
		return resource.NameCheckResult{
			Name:    request.Name,
			Type:    request.Type,
			Status:  resource.NameCheckDenied,
			Message: "a resource with the specified name already exists or was previously deleted and not purged",
		}
	}
	return resource.NameCheckResult{
		Name:   request.Name,
		Type:   request.Type,
		Status: resource.NameCheckAllowed,
	}
}

func (h *PromptHandler) loadAll(ctx context.Context) ([]Prompt, error) {
	references := h.references.List()
	prompts := make([]Prompt, 0, len(references))
	for _, reference := range references {
		prompt, err := h.loadPrompt(ctx, reference)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	return prompts, nil
}

func (h *PromptHandler) loadPrompt(ctx context.Context, reference resource.Reference) (Prompt, error) {
	content, err := h.objectStore.Read(ctx, reference.Location)
	if err != nil {
		if faults.IsCategory(err, faults.NotFoundError) {
			return Prompt{}, faults.NotFound(fmt.Sprintf("could not locate the %s prompt resource", reference.Name))
		}
		return Prompt{}, err
	}

	var prompt Prompt
	if err := json.Unmarshal(content, &prompt); err != nil {
		return Prompt{}, faults.Internal(fmt.Sprintf("failed to load the prompt %s", reference.Name), err)
	}
	return prompt, nil
}
