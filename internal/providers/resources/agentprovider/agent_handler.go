// Package agentprovider implements the AgentPlane.Agent resource
// provider for agent definitions.
package agentprovider

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
	ProviderName   = "AgentPlane.Agent"
	EventNamespace = "agentplane:agents"

	resourceTypeAgents = "agents"
	actionCheckName    = "checkName"
	referenceKind      = "agent"
)

// Agent is an agent definition: which prompt it speaks with and which
// data sources feed its knowledge.
type Agent struct {
	Type            string   `json:"type"`
	Name            string   `json:"name"`
	ObjectID        string   `json:"objectId,omitempty"`
	Description     string   `json:"description,omitempty"`
	PromptObjectID  string   `json:"promptObjectId,omitempty"`
	DataSourceNames []string `json:"dataSourceNames,omitempty"`
	Orchestrator    string   `json:"orchestrator,omitempty"`
}

var _ provider.Handler = (*AgentHandler)(nil)
var _ provider.EventReactor = (*AgentHandler)(nil)

type AgentHandler struct {
	objectStore storage.ObjectStore
	references  *refstore.Store
	log         logr.Logger
}

func NewAgentHandler(objectStore storage.ObjectStore, log logr.Logger) *AgentHandler {
	log = log.WithValues("provider", ProviderName)
	return &AgentHandler{
		objectStore: objectStore,
		references:  refstore.New(objectStore, resource.IndexDocumentPath(ProviderName, referenceKind), log),
		log:         log,
	}
}

func (h *AgentHandler) TypeGraph() map[string]resource.TypeDescriptor {
	return map[string]resource.TypeDescriptor{
		resourceTypeAgents: {
			Actions:  []string{actionCheckName},
			SubTypes: map[string]resource.TypeDescriptor{},
		},
	}
}

func (h *AgentHandler) Initialize(ctx context.Context) error {
	return h.references.Load(ctx)
}

func (h *AgentHandler) FetchByReference(ctx context.Context, path resource.Path) (any, error) {
	last := path.Last()
	if last.ID == "" {
		references := h.references.List()
		agents := make([]Agent, 0, len(references))
		for _, reference := range references {
			agent, err := h.loadAgent(ctx, reference)
			if err != nil {
				return nil, err
			}
			agents = append(agents, agent)
		}
		return agents, nil
	}

	reference, err := h.references.Get(last.ID)
	if err != nil {
		return nil, err
	}
	return h.loadAgent(ctx, reference)
}

func (h *AgentHandler) Upsert(ctx context.Context, path resource.Path, body []byte, objectID string) (any, error) {
	var agent Agent
	if err := json.Unmarshal(body, &agent); err != nil {
		return nil, faults.Validation("the agent definition is invalid", err)
	}
	if !resource.ValidName(agent.Name) {
		return nil, faults.Validation("the agent definition requires a valid name", nil)
	}
	if agent.Name != path.Last().ID {
		return nil, faults.Validation("the resource path does not match the agent definition (name mismatch)", nil)
	}
	if h.references.IsDeleted(agent.Name) {
		return nil, faults.Conflict(fmt.Sprintf(
			"the agent %s cannot be added or updated: the name was previously deleted and not purged", agent.Name))
	}

	agent.ObjectID = objectID
	content, err := json.MarshalIndent(agent, "", "  ")
	if err != nil {
		return nil, faults.Internal("failed to encode the agent", err)
	}

	location := resource.ObjectPath(ProviderName, agent.Name)
	if err := h.objectStore.Write(ctx, location, content); err != nil {
		return nil, err
	}
	if err := h.references.Upsert(ctx, resource.Reference{
		Name:     agent.Name,
		Type:     agent.Type,
		Location: location,
	}); err != nil {
		return nil, err
	}

	return resource.UpsertResult{ObjectID: objectID}, nil
}

func (h *AgentHandler) ExecuteAction(_ context.Context, path resource.Path, body []byte) (any, error) {
	switch path.Last().Action {
	case actionCheckName:
		var request resource.NameRequest
		if err := json.Unmarshal(body, &request); err != nil {
			return nil, faults.Validation("the name check request is invalid", err)
		}
		if h.references.Claimed(request.Name) {
			return resource.NameCheckResult{
				Name:    request.Name,
				Type:    request.Type,
				Status:  resource.NameCheckDenied,
				Message: "a resource with the specified name already exists or was previously deleted and not purged",
			}, nil
		}
		return resource.NameCheckResult{
			Name:   request.Name,
			Type:   request.Type,
			Status: resource.NameCheckAllowed,
		}, nil
	default:
		return nil, faults.InvalidPath(fmt.Sprintf(
			"the action %s is not supported by the %s resource provider", path.Last().Action, ProviderName), nil)
	}
}

func (h *AgentHandler) Delete(ctx context.Context, path resource.Path) error {
	last := path.Last()
	if last.ID == "" {
		return faults.InvalidPath("delete must target a concrete agent resource", nil)
	}
	return h.references.MarkDeleted(ctx, last.ID)
}

func (h *AgentHandler) HandleEvents(ctx context.Context, set events.EventSet) {
	h.log.V(1).Info("reloading agent references", "namespace", set.Namespace, "events", len(set.Events))
	if err := h.references.Load(ctx); err != nil {
		h.log.Error(err, "failed to reload agent references")
	}
}

func (h *AgentHandler) loadAgent(ctx context.Context, reference resource.Reference) (Agent, error) {
	content, err := h.objectStore.Read(ctx, reference.Location)
	if err != nil {
		if faults.IsCategory(err, faults.NotFoundError) {
			return Agent{}, faults.NotFound(fmt.Sprintf("could not locate the %s agent resource", reference.Name))
		}
		return Agent{}, err
	}

	var agent Agent
	if err := json.Unmarshal(content, &agent); err != nil {
		return Agent{}, faults.Internal(fmt.Sprintf("failed to load the agent %s", reference.Name), err)
	}
	return agent, nil
}
