package toolcall

import (
	"context"
)

// Tool couples a declared Spec with an executable handler. Implementations
// must be safe for concurrent use; the dispatcher may run calls from many
// turns at once.
type Tool interface {
	// Spec returns the declaration exposed to the model.
	Spec() Spec

	// Call executes the tool with decoded arguments and returns a text
	// result or a text error.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// FuncTool is a generic adapter exposing a plain Go function as a Tool.
// Arguments are validated against the declared parameter mapping before the
// function runs, and failures are normalized to *ToolError so downstream
// handling stays uniform.
type FuncTool struct {
	spec Spec
	fn   func(ctx context.Context, args map[string]any) (string, error)
}

// NewFuncTool constructs a FuncTool from an explicit spec and function.
func NewFuncTool(spec Spec, fn func(ctx context.Context, args map[string]any) (string, error)) *FuncTool {
	return &FuncTool{spec: spec, fn: fn}
}

// Spec implements Tool.
func (t *FuncTool) Spec() Spec { return t.spec }

// Call validates args against the declared parameters then invokes the
// underlying function. Validation failures and plain errors come back as
// *ToolError; a *ToolError returned by the function is forwarded unchanged.
func (t *FuncTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := ValidateParams(args, t.spec); err != nil {
		return "", NewToolError(t.spec.Name, err.Error())
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return "", toolErr
		}
		return "", NewToolError(t.spec.Name, err.Error())
	}
	return result, nil
}

var _ Tool = (*FuncTool)(nil)
