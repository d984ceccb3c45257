package objects

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateDocument checks a JSON document against a JSON Schema definition and
// returns one message per violation. An empty definition accepts any document.
func ValidateDocument(definition, document []byte) ([]string, error) {
	if len(definition) == 0 {
		return nil, nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(definition),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate document: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations, nil
}
