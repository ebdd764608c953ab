package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a lightweight in-memory Provider useful for tests & examples.
// Canned responses are matched by exact prompt; unmatched prompts receive a
// generic echo. A scripted error sequence can simulate failing attempts.
type MockProvider struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	models    []string
	errScript []error // consumed one per Generate call before responses apply
	listErr   error
	calls     int
	lastModel string
}

// NewMockProvider constructs a MockProvider with the given name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		info:      Info{Name: name},
		responses: make(map[string]string),
		models:    []string{"mock-model"},
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockProvider) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// ScriptErrors queues errors returned by successive Generate calls. A nil
// entry means that call succeeds.
func (m *MockProvider) ScriptErrors(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errScript = append(m.errScript, errs...)
}

// SetModels sets the identifiers returned by ListModels.
func (m *MockProvider) SetModels(models ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = models
}

// SetListError makes ListModels fail with err.
func (m *MockProvider) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// Calls returns the number of Generate calls made so far.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastModel returns the model identifier of the most recent Generate call.
func (m *MockProvider) LastModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastModel
}

// Generate implements Provider.
func (m *MockProvider) Generate(_ context.Context, prompt, model string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastModel = model
	if len(m.errScript) > 0 {
		err := m.errScript[0]
		m.errScript = m.errScript[1:]
		if err != nil {
			return "", err
		}
	}
	if resp, ok := m.responses[prompt]; ok {
		return resp, nil
	}
	return fmt.Sprintf("Mock response to: %s", prompt), nil
}

// ListModels implements Provider.
func (m *MockProvider) ListModels(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.models...), nil
}

// Info implements Provider.
func (m *MockProvider) Info() Info { return m.info }

var _ Provider = (*MockProvider)(nil)
