package toolcall

import (
	"fmt"
	"math"
)

// ValidationError reports an argument that does not match the declared
// parameter mapping of a tool.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Field, e.Message)
}

// ValidateParams checks decoded call arguments against the tool's declared
// parameter mapping before dispatch. Undeclared arguments are rejected, as
// are declared ones of the wrong type. Declared types outside the known set
// are accepted as-is; interpretation is the tool's responsibility.
func ValidateParams(args map[string]any, spec Spec) error {
	for name, value := range args {
		param, ok := spec.Parameters[name]
		if !ok {
			return &ValidationError{Field: name, Message: "not declared by tool " + spec.Name}
		}
		if err := checkType(value, param.Type); err != nil {
			return &ValidationError{Field: name, Message: err.Error()}
		}
	}
	return nil
}

func checkType(value any, declared string) error {
	switch declared {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected type string, got %T", value)
		}
	case "number":
		if !isNumber(value) {
			return fmt.Errorf("expected type number, got %T", value)
		}
	case "integer":
		if !isInteger(value) {
			return fmt.Errorf("expected type integer, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected type boolean, got %T", value)
		}
	}
	return nil
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}

// isInteger accepts native ints plus the float64 values JSON decoding
// produces, as long as they are integral.
func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == math.Trunc(v)
	default:
		return false
	}
}
