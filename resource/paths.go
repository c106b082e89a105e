package resource

import (
	"strings"

	"github.com/agentplane/agentplane/faults"
)

// Path is a validated resource path: the provider it belongs to and
// the chain of type instances it addresses. Only the last instance
// may carry an action.
type Path struct {
	Provider  string
	Instances []TypeInstance
}

// ParsePath validates raw against the provider's declared type graph
// and returns the parsed chain. Tokens are consumed two at a time as
// (type, id) pairs, descending into the matched type's sub-type map at
// each level. A single trailing token is either the bare collection of
// a declared type, or, when it matches a declared action of the
// current type, the terminal action. Action paths are rejected unless
// allowAction is set; read and delete operations must target a
// concrete resource.
func ParsePath(raw string, provider string, graph map[string]TypeDescriptor, allowAction bool) (Path, error) {
	tokens := splitPathTokens(raw)
	if len(tokens) == 0 {
		return Path{}, faults.InvalidPath("the resource path must contain at least one resource type", nil)
	}

	current := graph
	instances := make([]TypeInstance, 0, (len(tokens)+1)/2)

	i := 0
	for i < len(tokens) {
		typeToken := tokens[i]
		descriptor, known := current[typeToken]
		if !known {
			return Path{}, faults.InvalidPath(
				"the resource type "+typeToken+" is not declared at this position of the path", nil)
		}

		instance := TypeInstance{Type: typeToken}

		if i+1 >= len(tokens) {
			// Bare trailing type addresses the whole collection.
			instances = append(instances, instance)
			i++
			continue
		}

		next := tokens[i+1]
		if i+2 == len(tokens) && descriptor.HasAction(next) {
			if !allowAction {
				return Path{}, faults.InvalidPath(
					"the action "+next+" is not allowed for this operation", nil)
			}
			instance.Action = next
			instances = append(instances, instance)
			i += 2
			continue
		}

		instance.ID = next
		i += 2

		if i+1 == len(tokens) && descriptor.HasAction(tokens[i]) {
			if !allowAction {
				return Path{}, faults.InvalidPath(
					"the action "+tokens[i]+" is not allowed for this operation", nil)
			}
			instance.Action = tokens[i]
			i++
		}

		instances = append(instances, instance)
		current = descriptor.SubTypes
	}

	return Path{Provider: provider, Instances: instances}, nil
}

// MainType is the top-level resource type of the path. Authorization
// actions are scoped to it.
func (p Path) MainType() string {
	if len(p.Instances) == 0 {
		return ""
	}
	return p.Instances[0].Type
}

// Last is the terminal type instance of the path.
func (p Path) Last() TypeInstance {
	if len(p.Instances) == 0 {
		return TypeInstance{}
	}
	return p.Instances[len(p.Instances)-1]
}

// HasAction reports whether the path invokes an action.
func (p Path) HasAction() bool {
	return p.Last().Action != ""
}

// String renders the path back to its slash form, including the
// terminal action when present. Parsing the rendered form against the
// same type graph yields an equivalent path.
func (p Path) String() string {
	var b strings.Builder
	for _, instance := range p.Instances {
		b.WriteString("/")
		b.WriteString(instance.Type)
		if instance.ID != "" {
			b.WriteString("/")
			b.WriteString(instance.ID)
		}
		if instance.Action != "" {
			b.WriteString("/")
			b.WriteString(instance.Action)
		}
	}
	return b.String()
}

// ObjectID renders the fully-qualified object identifier the path
// addresses within an instance. Actions are not part of the identity;
// authorization evaluates the identifier of the resource the action
// targets.
func (p Path) ObjectID(instanceID string, provider string) string {
	var b strings.Builder
	b.WriteString("/instances/")
	b.WriteString(instanceID)
	b.WriteString("/providers/")
	b.WriteString(provider)
	for _, instance := range p.Instances {
		b.WriteString("/")
		b.WriteString(instance.Type)
		if instance.ID != "" {
			b.WriteString("/")
			b.WriteString(instance.ID)
		}
	}
	return b.String()
}

func splitPathTokens(raw string) []string {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")
	segments := strings.Split(normalized, "/")
	tokens := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		tokens = append(tokens, segment)
	}
	return tokens
}
