package resource

import (
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/agentplane/agentplane/faults"
)

// FilterList applies a jq expression to each element of a list result
// and returns every non-null value the expression emits. A plain
// select() expression filters; a projection expression reshapes.
func FilterList(values []any, expression string) ([]any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, faults.Validation("invalid filter expression", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, faults.Validation("invalid filter expression", err)
	}

	filtered := make([]any, 0, len(values))
	for _, value := range values {
		iter := code.Run(value)
		for {
			out, more := iter.Next()
			if !more {
				break
			}
			if runErr, failed := out.(error); failed {
				return nil, faults.Validation(
					fmt.Sprintf("filter expression failed on element: %v", runErr), nil)
			}
			if out == nil {
				continue
			}
			filtered = append(filtered, out)
		}
	}
	return filtered, nil
}
