package toolcall

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weatherSpec() Spec {
	return Spec{
		Name:        "weather",
		Description: "Get the current weather for a location",
		Parameters: map[string]Param{
			"location": {Type: "string", Description: "City name"},
		},
	}
}

// -------------------- Augment --------------------

func TestAugment_NoToolsLeavesPromptUnchanged(t *testing.T) {
	p := NewProtocol()
	assert.Equal(t, "base", p.Augment("base", nil))
}

func TestAugment_IncludesCatalogAndMarkerFormat(t *testing.T) {
	p := NewProtocol()
	out := p.Augment("You are a helpful assistant.", []Spec{weatherSpec()})

	assert.True(t, strings.HasPrefix(out, "You are a helpful assistant."))
	assert.Contains(t, out, "- weather: Get the current weather for a location")
	assert.Contains(t, out, "location (string): City name")
	assert.Contains(t, out, Marker)
}

func TestAugment_ParamsListedDeterministically(t *testing.T) {
	spec := Spec{
		Name: "convert",
		Parameters: map[string]Param{
			"to":     {Type: "string"},
			"amount": {Type: "number"},
			"from":   {Type: "string"},
		},
	}
	p := NewProtocol()
	out := p.Augment("base", []Spec{spec})

	amount := strings.Index(out, "amount (")
	from := strings.Index(out, "from (")
	to := strings.Index(out, "to (")
	require.True(t, amount >= 0 && from >= 0 && to >= 0)
	assert.Less(t, amount, from)
	assert.Less(t, from, to)
}

// -------------------- Parse --------------------

func TestParse_NoMarkers(t *testing.T) {
	p := NewProtocol()
	calls := p.Parse("Just a normal reply, nothing to execute.")
	require.NotNil(t, calls)
	assert.Empty(t, calls)
}

func TestParse_SingleWellFormedCall(t *testing.T) {
	p := NewProtocol()
	text := `Sure, let me look that up.
TOOL_CALL: {"tool":"weather","parameters":{"location":"Paris"}}
One moment please.`

	calls := p.Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "weather", calls[0].Tool)
	assert.Equal(t, map[string]any{"location": "Paris"}, calls[0].Parameters)
}

func TestParse_MultipleCalls(t *testing.T) {
	p := NewProtocol()
	text := `TOOL_CALL: {"tool":"weather","parameters":{"location":"Paris"}}
and also
TOOL_CALL: {"tool":"currency","parameters":{"from":"EUR","to":"USD","amount":10}}`

	calls := p.Parse(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "weather", calls[0].Tool)
	assert.Equal(t, "currency", calls[1].Tool)
	assert.Equal(t, float64(10), calls[1].Parameters["amount"])
}

func TestParse_MalformedThenWellFormed(t *testing.T) {
	p := NewProtocol()
	text := `TOOL_CALL: {"broken": }
TOOL_CALL: {"tool":"weather","parameters":{"location":"Paris"}}`

	calls := p.Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "weather", calls[0].Tool)
}

func TestParse_MarkerWithoutPayload(t *testing.T) {
	p := NewProtocol()
	calls := p.Parse("I would use TOOL_CALL: but I have nothing to call.")
	assert.Empty(t, calls)
}

func TestParse_NearJSONIsRepaired(t *testing.T) {
	p := NewProtocol()
	text := `TOOL_CALL: {'tool': 'weather', 'parameters': {'location': 'Paris'}}`

	calls := p.Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "weather", calls[0].Tool)
	assert.Equal(t, "Paris", calls[0].Parameters["location"])
}

func TestParse_MissingToolNameIsSkipped(t *testing.T) {
	p := NewProtocol()
	calls := p.Parse(`TOOL_CALL: {"parameters":{"location":"Paris"}}`)
	assert.Empty(t, calls)
}

func TestParse_NilParametersNormalized(t *testing.T) {
	p := NewProtocol()
	calls := p.Parse(`TOOL_CALL: {"tool":"trivia"}`)
	require.Len(t, calls, 1)
	assert.NotNil(t, calls[0].Parameters)
	assert.Empty(t, calls[0].Parameters)
}

func TestParse_UnterminatedPayloadDoesNotSwallowNextCall(t *testing.T) {
	p := NewProtocol()
	text := "TOOL_CALL: {\"tool\": \"a\", \"parameters\": {\"x\": \"y\"\n" +
		`TOOL_CALL: {"tool":"weather","parameters":{"location":"Paris"}}`

	calls := p.Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "weather", calls[0].Tool)
	assert.Equal(t, "Paris", calls[0].Parameters["location"])
}

func TestParse_UnterminatedPayloadAtEndOfText(t *testing.T) {
	p := NewProtocol()
	calls := p.Parse(`TOOL_CALL: {"tool": "a", "parameters": {"x": "y"`)
	assert.Empty(t, calls)
}

func TestParse_MarkerInsideStringStaysInPayload(t *testing.T) {
	p := NewProtocol()
	calls := p.Parse(`TOOL_CALL: {"tool":"echo","parameters":{"text":"say TOOL_CALL: back to me"}}`)
	require.Len(t, calls, 1)
	assert.Equal(t, "say TOOL_CALL: back to me", calls[0].Parameters["text"])
}

func TestParse_NestedBracesInsideStrings(t *testing.T) {
	p := NewProtocol()
	calls := p.Parse(`TOOL_CALL: {"tool":"echo","parameters":{"text":"a { weird } string"}}`)
	require.Len(t, calls, 1)
	assert.Equal(t, "a { weird } string", calls[0].Parameters["text"])
}

// -------------------- ValidateParams --------------------

func TestValidateParams(t *testing.T) {
	spec := Spec{
		Name: "convert",
		Parameters: map[string]Param{
			"amount": {Type: "number"},
			"count":  {Type: "integer"},
			"from":   {Type: "string"},
			"loud":   {Type: "boolean"},
		},
	}

	require.NoError(t, ValidateParams(map[string]any{
		"amount": 12.5, "count": float64(3), "from": "EUR", "loud": true,
	}, spec))

	err := ValidateParams(map[string]any{"from": 7}, spec)
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "from", vErr.Field)

	err = ValidateParams(map[string]any{"count": 3.5}, spec)
	require.ErrorAs(t, err, &vErr)

	err = ValidateParams(map[string]any{"undeclared": "x"}, spec)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "undeclared", vErr.Field)
}
