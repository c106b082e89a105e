// Package vectorizationprovider implements the AgentPlane.Vectorization
// resource provider for content sources and text partitioning profiles.
package vectorizationprovider

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
	ProviderName   = "AgentPlane.Vectorization"
	EventNamespace = "agentplane:vectorization"

	resourceTypeContentSources        = "contentSources"
	resourceTypeTextPartitionProfiles = "textPartitionProfiles"
	actionCheckName                   = "checkName"

	contentSourceKind        = "content-source"
	textPartitionProfileKind = "text-partition-profile"
)

// ContentSource describes a location that vectorization pipelines pull
// documents from.
type ContentSource struct {
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	ObjectID    string            `json:"objectId,omitempty"`
	Description string            `json:"description,omitempty"`
	SourceType  string            `json:"sourceType,omitempty"`
	Settings    map[string]string `json:"settings,omitempty"`
}

// TextPartitionProfile describes how source text is split before
// embedding. The settings payload is stored as a content-addressed
// artifact so profiles with identical settings share a single object.
type TextPartitionProfile struct {
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	ObjectID    string            `json:"objectId,omitempty"`
	Description string            `json:"description,omitempty"`
	Partitioner string            `json:"partitioner,omitempty"`
	Settings    map[string]string `json:"settings,omitempty"`
}

var _ provider.Handler = (*VectorizationHandler)(nil)
var _ provider.EventReactor = (*VectorizationHandler)(nil)

type VectorizationHandler struct {
	objectStore    storage.ObjectStore
	contentSources *refstore.Store
	profiles       *refstore.Store
	log            logr.Logger
}

func NewVectorizationHandler(objectStore storage.ObjectStore, log logr.Logger) *VectorizationHandler {
	log = log.WithValues("provider", ProviderName)
	return &VectorizationHandler{
		objectStore:    objectStore,
		contentSources: refstore.New(objectStore, resource.IndexDocumentPath(ProviderName, contentSourceKind), log),
		profiles:       refstore.New(objectStore, resource.IndexDocumentPath(ProviderName, textPartitionProfileKind), log),
		log:            log,
	}
}

func (h *VectorizationHandler) TypeGraph() map[string]resource.TypeDescriptor {
	return map[string]resource.TypeDescriptor{
		resourceTypeContentSources: {
			Actions:  []string{actionCheckName},
			SubTypes: map[string]resource.TypeDescriptor{},
		},
		resourceTypeTextPartitionProfiles: {
			Actions:  []string{actionCheckName},
			SubTypes: map[string]resource.TypeDescriptor{},
		},
	}
}

func (h *VectorizationHandler) Initialize(ctx context.Context) error {
	if err := h.contentSources.Load(ctx); err != nil {
		return err
	}
	return h.profiles.Load(ctx)
}

func (h *VectorizationHandler) FetchByReference(ctx context.Context, path resource.Path) (any, error) {
	last := path.Last()
	switch last.Type {
	case resourceTypeContentSources:
		return fetch(ctx, h.contentSources, last.ID, h.loadContentSource)
	case resourceTypeTextPartitionProfiles:
		return fetch(ctx, h.profiles, last.ID, h.loadProfile)
	default:
		return nil, faults.InvalidPath(fmt.Sprintf(
			"the resource type %s is not supported by the %s resource provider", last.Type, ProviderName), nil)
	}
}

func (h *VectorizationHandler) Upsert(ctx context.Context, path resource.Path, body []byte, objectID string) (any, error) {
	switch path.Last().Type {
	case resourceTypeContentSources:
		return h.upsertContentSource(ctx, path, body, objectID)
	case resourceTypeTextPartitionProfiles:
		return h.upsertProfile(ctx, path, body, objectID)
	default:
		return nil, faults.InvalidPath(fmt.Sprintf(
			"the resource type %s is not supported by the %s resource provider", path.Last().Type, ProviderName), nil)
	}
}

func (h *VectorizationHandler) ExecuteAction(_ context.Context, path resource.Path, body []byte) (any, error) {
	last := path.Last()
	if last.Action != actionCheckName {
		return nil, faults.InvalidPath(fmt.Sprintf(
			"the action %s is not supported by the %s resource provider", last.Action, ProviderName), nil)
	}

	var request resource.NameRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return nil, faults.Validation("the name check request is invalid", err)
	}

	references := h.contentSources
	if last.Type == resourceTypeTextPartitionProfiles {
		references = h.profiles
	}
	if references.Claimed(request.Name) {
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
}

func (h *VectorizationHandler) Delete(ctx context.Context, path resource.Path) error {
	last := path.Last()
	if last.ID == "" {
		return faults.InvalidPath("delete must target a concrete vectorization resource", nil)
	}
	switch last.Type {
	case resourceTypeContentSources:
		return h.contentSources.MarkDeleted(ctx, last.ID)
	case resourceTypeTextPartitionProfiles:
		return h.profiles.MarkDeleted(ctx, last.ID)
	default:
		return faults.InvalidPath(fmt.Sprintf(
			"the resource type %s is not supported by the %s resource provider", last.Type, ProviderName), nil)
	}
}

func (h *VectorizationHandler) HandleEvents(ctx context.Context, set events.EventSet) {
	h.log.V(1).Info("reloading vectorization references", "namespace", set.Namespace, "events", len(set.Events))
	if err := h.contentSources.Load(ctx); err != nil {
		h.log.Error(err, "failed to reload content source references")
	}
	if err := h.profiles.Load(ctx); err != nil {
		h.log.Error(err, "failed to reload text partition profile references")
	}
}

func (h *VectorizationHandler) upsertContentSource(ctx context.Context, path resource.Path, body []byte, objectID string) (any, error) {
	var source ContentSource
	if err := json.Unmarshal(body, &source); err != nil {
		return nil, faults.Validation("the content source definition is invalid", err)
	}
	if !resource.ValidName(source.Name) {
		return nil, faults.Validation("the content source definition requires a valid name", nil)
	}
	if source.Name != path.Last().ID {
		return nil, faults.Validation("the resource path does not match the content source definition (name mismatch)", nil)
	}
	if h.contentSources.IsDeleted(source.Name) {
		return nil, faults.Conflict(fmt.Sprintf(
			"the content source %s cannot be added or updated: the name was previously deleted and not purged", source.Name))
	}

	source.ObjectID = objectID
	content, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return nil, faults.Internal("failed to encode the content source", err)
	}

	location := resource.ObjectPath(ProviderName, source.Name)
	if err := h.objectStore.Write(ctx, location, content); err != nil {
		return nil, err
	}
	if err := h.contentSources.Upsert(ctx, resource.Reference{
		Name:     source.Name,
		Type:     source.Type,
		Location: location,
	}); err != nil {
		return nil, err
	}

	return resource.UpsertResult{ObjectID: objectID}, nil
}

func (h *VectorizationHandler) upsertProfile(ctx context.Context, path resource.Path, body []byte, objectID string) (any, error) {
	var profile TextPartitionProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, faults.Validation("the text partition profile definition is invalid", err)
	}
	if !resource.ValidName(profile.Name) {
		return nil, faults.Validation("the text partition profile definition requires a valid name", nil)
	}
	if profile.Name != path.Last().ID {
		return nil, faults.Validation("the resource path does not match the text partition profile definition (name mismatch)", nil)
	}
	if h.profiles.IsDeleted(profile.Name) {
		return nil, faults.Conflict(fmt.Sprintf(
			"the text partition profile %s cannot be added or updated: the name was previously deleted and not purged", profile.Name))
	}

	profile.ObjectID = objectID
	content, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, faults.Internal("failed to encode the text partition profile", err)
	}

	// Profiles are content addressed: a settings change lands at a new
	// location while the previous artifact stays readable for pipelines
	// still holding the old reference.
	location := resource.ContentAddressedPath(ProviderName, profile.Name, content)
	if err := h.objectStore.Write(ctx, location, content); err != nil {
		return nil, err
	}
	if err := h.profiles.Upsert(ctx, resource.Reference{
		Name:     profile.Name,
		Type:     profile.Type,
		Location: location,
	}); err != nil {
		return nil, err
	}

	return resource.UpsertResult{ObjectID: objectID}, nil
}

func fetch[T any](ctx context.Context, references *refstore.Store, id string,
	load func(context.Context, resource.Reference) (T, error)) (any, error) {
	if id == "" {
		all := references.List()
		results := make([]T, 0, len(all))
		for _, reference := range all {
			value, err := load(ctx, reference)
			if err != nil {
				return nil, err
			}
			results = append(results, value)
		}
		return results, nil
	}

	reference, err := references.Get(id)
	if err != nil {
		return nil, err
	}
	value, err := load(ctx, reference)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (h *VectorizationHandler) loadContentSource(ctx context.Context, reference resource.Reference) (ContentSource, error) {
	content, err := h.objectStore.Read(ctx, reference.Location)
	if err != nil {
		if faults.IsCategory(err, faults.NotFoundError) {
			return ContentSource{}, faults.NotFound(fmt.Sprintf("could not locate the %s content source resource", reference.Name))
		}
		return ContentSource{}, err
	}

	var source ContentSource
	if err := json.Unmarshal(content, &source); err != nil {
		return ContentSource{}, faults.Internal(fmt.Sprintf("failed to load the content source %s", reference.Name), err)
	}
	return source, nil
}

func (h *VectorizationHandler) loadProfile(ctx context.Context, reference resource.Reference) (TextPartitionProfile, error) {
	content, err := h.objectStore.Read(ctx, reference.Location)
	if err != nil {
		if faults.IsCategory(err, faults.NotFoundError) {
			return TextPartitionProfile{}, faults.NotFound(fmt.Sprintf("could not locate the %s text partition profile resource", reference.Name))
		}
		return TextPartitionProfile{}, err
	}

	var profile TextPartitionProfile
	if err := json.Unmarshal(content, &profile); err != nil {
		return TextPartitionProfile{}, faults.Internal(fmt.Sprintf("failed to load the text partition profile %s", reference.Name), err)
	}
	return profile, nil
}
