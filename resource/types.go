package resource

// TypeDescriptor declares what a resource type supports: the actions
// that may terminate a path targeting it and the nested resource types
// allowed beneath it. Descriptors are declared once per provider and
// never change afterwards.
type TypeDescriptor struct {
	Actions  []string
	SubTypes map[string]TypeDescriptor
}

// HasAction reports whether name is a declared action of the type.
func (d TypeDescriptor) HasAction(name string) bool {
	for _, action := range d.Actions {
		if action == name {
			return true
		}
	}
	return false
}

// TypeInstance is one level of a parsed resource path. ID is empty
// when the path targets the whole collection. Action is set only on
// the terminal instance of an action-invoking path.
type TypeInstance struct {
	Type   string
	ID     string
	Action string
}

// Reference is the lightweight index entry for a resource: where its
// payload lives and whether it has been soft deleted. The payload
// itself is stored separately, one durable object per resource.
type Reference struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Deleted  bool   `json:"deleted"`
}

// UpsertResult is returned by a successful create or update.
type UpsertResult struct {
	ObjectID string `json:"objectId"`
}
