package staticpolicy

import (
	"fmt"
	"os"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/yamlutil"
)

type rulesDocument struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRulesFile reads a YAML rule set from disk.
func LoadRulesFile(path string) ([]Rule, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, faults.NotFound(fmt.Sprintf("the rules file %s does not exist", path))
		}
		return nil, faults.Internal(fmt.Sprintf("failed to read the rules file %s", path), err)
	}

	var document rulesDocument
	if err := yamlutil.UnmarshalStrict(content, &document); err != nil {
		return nil, faults.Validation(fmt.Sprintf("the rules file %s is not valid YAML", path), err)
	}
	for i, rule := range document.Rules {
		if len(rule.Actions) == 0 || len(rule.Objects) == 0 {
			return nil, faults.Validation(fmt.Sprintf("rule %d in %s must declare actions and objects", i, path), nil)
		}
	}
	return document.Rules, nil
}
