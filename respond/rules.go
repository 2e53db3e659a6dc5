package respond

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// rulesSchema validates a rules file before it replaces the defaults. A bad
// deployment artifact should fail at startup, not mid-call.
const rulesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["keywords", "reply"],
    "additionalProperties": false,
    "properties": {
      "keywords": {
        "type": "array",
        "minItems": 1,
        "items": {"type": "string", "minLength": 1}
      },
      "reply": {"type": "string", "minLength": 1}
    }
  }
}`

// LoadRules reads and validates a JSON rule file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules validates and decodes a JSON rule document.
func ParseRules(data []byte) ([]Rule, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(rulesSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validating rules: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("invalid rules file: %s", strings.Join(problems, "; "))
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}

	// Matching is case-insensitive; normalize once at load time.
	for i := range rules {
		for j := range rules[i].Keywords {
			rules[i].Keywords[j] = strings.ToLower(rules[i].Keywords[j])
		}
	}
	return rules, nil
}
