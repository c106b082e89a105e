package authorization

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/resource"
)

const deniedMessage = "access is not authorized"

// Gate guards a provider's resource paths. It builds the action
// string and fully-qualified object id for a parsed path, asks the
// Client for a decision, and fails closed: a denial, a client error,
// and an unidentifiable principal all surface as ForbiddenError. The
// caller-facing message stays generic; the detail goes to the log.
type Gate struct {
	instanceID string
	provider   string
	client     Client
	log        logr.Logger
}

func NewGate(instanceID string, provider string, client Client, log logr.Logger) *Gate {
	return &Gate{
		instanceID: instanceID,
		provider:   provider,
		client:     client,
		log:        log,
	}
}

// Authorize evaluates actionType ("read", "write", "delete", or a
// terminal action name) against the path for the principal.
func (g *Gate) Authorize(ctx context.Context, path resource.Path, principal Principal, actionType string) error {
	if !principal.Resolvable() {
		g.log.Info("rejecting request without a resolvable principal identity",
			"provider", g.provider, "actionType", actionType)
		return faults.Forbidden(deniedMessage, nil)
	}

	objectID := path.ObjectID(g.instanceID, g.provider)
	result, err := g.client.Authorize(ctx, Request{
		Action:      g.provider + "/" + path.MainType() + "/" + actionType,
		ObjectID:    objectID,
		PrincipalID: principal.ID,
		GroupIDs:    principal.GroupIDs,
	})
	if err != nil {
		g.log.Error(err, "authorization client failure, denying access",
			"objectId", objectID, "actionType", actionType, "principal", principal.Name)
		return faults.Forbidden(deniedMessage, nil)
	}
	if !result.Authorized {
		g.log.Info("access denied",
			"objectId", objectID, "actionType", actionType, "principal", principal.Name)
		return faults.Forbidden(deniedMessage, nil)
	}
	return nil
}
