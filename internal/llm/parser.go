package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaValidation is matched by every SchemaValidationError.
var ErrSchemaValidation = errors.New("model output failed schema validation")

// SchemaValidationError reports model output that is not valid JSON of the expected shape.
type SchemaValidationError struct {
	Err    error
	Role   string
	Output string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s output failed schema validation: %v", e.Role, e.Err)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrSchemaValidation) hold.
func (e *SchemaValidationError) Is(target error) bool {
	return target == ErrSchemaValidation
}

// cleanMarkdownWrapper removes ``` fences that models like to wrap JSON in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	lines := strings.Split(content, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONObject trims prose before the first '{' and after the last '}'.
func extractJSONObject(content string) string {
	content = cleanMarkdownWrapper(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end < start {
		return content
	}
	return content[start : end+1]
}

// decodeObject parses a model reply into out, reporting failures as schema errors.
func decodeObject(role, content string, out any) error {
	if err := json.Unmarshal([]byte(extractJSONObject(content)), out); err != nil {
		return &SchemaValidationError{Role: role, Output: content, Err: err}
	}
	return nil
}
