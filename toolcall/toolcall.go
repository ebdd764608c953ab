// Package toolcall implements the free-text tool-calling protocol: a catalog
// of declared tools is appended to the prompt together with an invocation
// marker format, and the model's prose reply is scanned for marker payloads
// which are decoded strictly as data. No structured API support is required
// from the backend.
package toolcall

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deepthought-ai/deepthought/logging"
)

// Marker is the invocation token the model is instructed to reproduce
// verbatim when it wants a tool executed. The payload that follows is a
// bounded JSON object, never code.
const Marker = "TOOL_CALL:"

// Param describes one declared tool parameter.
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Spec declares a callable capability to the model. Declared by plugins,
// consumed read-only by the protocol.
type Spec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  map[string]Param `json:"parameters,omitempty"`
}

// Call is a single invocation request extracted from a model reply. Calls in
// one reply are logically unordered with respect to each other; the protocol
// only guarantees all well-formed ones are surfaced.
type Call struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// ToolError represents a failure during external tool execution. The turn
// orchestrator folds it into the follow-up prompt as an explicit error entry
// instead of aborting the turn.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError for the given tool.
func NewToolError(tool, message string) *ToolError {
	return &ToolError{Tool: tool, Message: message}
}

// Options configure a Protocol.
type Options struct {
	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger

	// MaxPayloadBytes bounds the JSON payload accepted after a marker.
	// Defaults to 4096.
	MaxPayloadBytes int
}

// Protocol renders tool catalogs into prompts and parses invocation requests
// out of replies. It is stateless and safe for concurrent use; both Augment
// and Parse are synchronous and never block.
type Protocol struct {
	logger     logging.Logger
	maxPayload int
}

// NewProtocol constructs a Protocol.
func NewProtocol(optFns ...func(o *Options)) *Protocol {
	opts := Options{Logger: logging.NoOpLogger{}, MaxPayloadBytes: 4096}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Protocol{logger: opts.Logger, maxPayload: opts.MaxPayloadBytes}
}

// Augment appends a human-readable catalog of tools plus the invocation
// format to basePrompt. With no tools the prompt is returned unchanged.
func (p *Protocol) Augment(basePrompt string, tools []Spec) string {
	if len(tools) == 0 {
		return basePrompt
	}

	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString("\n\nYou have access to the following tools:\n")

	for _, tool := range tools {
		sb.WriteString(fmt.Sprintf("\n- %s: %s\n", tool.Name, tool.Description))
		for _, name := range sortedParamNames(tool.Parameters) {
			param := tool.Parameters[name]
			sb.WriteString(fmt.Sprintf("    %s (%s): %s\n", name, param.Type, param.Description))
		}
	}

	sb.WriteString("\nTo call a tool, reply with a single line in exactly this form:\n")
	sb.WriteString(Marker)
	sb.WriteString(` {"tool":"<name>","parameters":{"<param>":"<value>"}}`)
	sb.WriteString("\nOtherwise, answer normally.")

	return sb.String()
}

func sortedParamNames(params map[string]Param) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
