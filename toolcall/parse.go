package toolcall

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseError describes a malformed invocation payload. Parse logs and skips
// the offending payload; it never aborts extraction of other calls in the
// same reply.
type ParseError struct {
	Payload string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed tool call payload: %s", e.Reason)
}

// Parse scans text for invocation markers and decodes their payloads. Zero
// markers yield an empty slice. Malformed payloads are logged and skipped;
// near-JSON payloads (single quotes, trailing commas, unquoted keys) are
// salvaged with jsonrepair before being rejected. A payload whose braces
// never balance is skipped without consuming the text after it, so markers
// following an unterminated payload are still extracted.
func (p *Protocol) Parse(text string) []Call {
	calls := []Call{}

	idx := 0
	for {
		rel := strings.Index(text[idx:], Marker)
		if rel < 0 {
			break
		}
		start := idx + rel + len(Marker)
		// Resume here on any failure so a marker inside a broken payload
		// is found by the next iteration.
		idx = start

		payload, end, ok := p.extractObject(text, start)
		if !ok {
			if payload == "" {
				p.logger.Warn("tool call marker without payload", "offset", start)
			} else {
				p.logger.Warn("skipping malformed tool call",
					"error", &ParseError{Payload: payload, Reason: "unterminated object"})
			}
			continue
		}

		call, err := decodeCall(payload)
		if err != nil {
			p.logger.Warn("skipping malformed tool call", "error", err)
		} else {
			calls = append(calls, call)
		}
		idx = end
	}

	return calls
}

// extractObject returns the balanced JSON object starting at or after
// position start (skipping horizontal whitespace), the scan position after
// it, and whether a complete object was found. Brace counting is string-
// and escape-aware. An object whose braces never balance before the payload
// bound, the end of text, or the next marker outside a string is reported
// as incomplete with its truncated payload, never handed to the repair pass.
func (p *Protocol) extractObject(text string, start int) (string, int, bool) {
	i := start
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i >= len(text) || text[i] != '{' {
		return "", start, false
	}

	depth := 0
	inString := false
	escaped := false
	limit := i + p.maxPayload
	if limit > len(text) {
		limit = len(text)
	}

	for j := i; j < limit; j++ {
		c := text[j]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return text[i : j+1], j + 1, true
			}
		case !inString && strings.HasPrefix(text[j:], Marker):
			// A new marker begins before this object closed.
			return text[i:j], j, false
		}
	}

	return text[i:limit], limit, false
}

// decodeCall unmarshals a payload into a Call, repairing near-JSON first if a
// strict decode fails. The payload is data only; nothing is ever evaluated.
func decodeCall(payload string) (Call, error) {
	var call Call
	if err := json.Unmarshal([]byte(payload), &call); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return Call{}, &ParseError{Payload: payload, Reason: err.Error()}
		}
		if err := json.Unmarshal([]byte(repaired), &call); err != nil {
			return Call{}, &ParseError{Payload: payload, Reason: err.Error()}
		}
	}

	if call.Tool == "" {
		return Call{}, &ParseError{Payload: payload, Reason: "missing tool name"}
	}
	if call.Parameters == nil {
		call.Parameters = map[string]any{}
	}
	return call, nil
}
