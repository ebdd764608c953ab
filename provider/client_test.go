package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockRegistry(mock *MockProvider) *Registry {
	reg := NewRegistry()
	reg.Register("mock", func(Config) (Provider, error) { return mock, nil })
	return reg
}

func fastClient(t *testing.T, mock *MockProvider, cfg Config) *Client {
	t.Helper()
	if cfg.Provider == "" {
		cfg.Provider = "mock"
	}
	client, err := NewClient(mockRegistry(mock), cfg, func(o *ClientOptions) {
		o.RetryPause = time.Millisecond
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(NewRegistry(), Config{Provider: "nope"})
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "nope", cfgErr.Provider)
}

func TestNewClient_MissingCredentialIsFatal(t *testing.T) {
	reg := NewRegistry()
	reg.Register("hosted", func(cfg Config) (Provider, error) {
		if cfg.APIKey == "" {
			return nil, NewConfigurationError("hosted", "api_key", "API key required")
		}
		return NewMockProvider("hosted"), nil
	})

	_, err := NewClient(reg, Config{Provider: "hosted"})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "api_key", cfgErr.Param)
}

func TestGenerate_Success(t *testing.T) {
	mock := NewMockProvider("mock")
	mock.AddResponse("hello", "world")

	client := fastClient(t, mock, Config{Model: "m1"})
	text, err := client.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "world", text)
	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, "m1", mock.LastModel())
}

func TestGenerate_TimeoutRetriesExactlyRetryCount(t *testing.T) {
	mock := NewMockProvider("mock")
	mock.ScriptErrors(context.DeadlineExceeded, context.DeadlineExceeded, context.DeadlineExceeded)

	client := fastClient(t, mock, Config{RetryCount: 3})
	text, err := client.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, DegradedTimeoutReply, text)
	assert.Equal(t, 3, mock.Calls())
}

func TestGenerate_TimeoutThenSuccess(t *testing.T) {
	mock := NewMockProvider("mock")
	mock.AddResponse("hi", "recovered")
	mock.ScriptErrors(context.DeadlineExceeded, nil)

	client := fastClient(t, mock, Config{RetryCount: 3})
	text, err := client.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, mock.Calls())
}

func TestGenerate_PermanentFailureNotRetried(t *testing.T) {
	mock := NewMockProvider("mock")
	mock.ScriptErrors(errors.New("400 bad request"))

	client := fastClient(t, mock, Config{RetryCount: 3})
	text, err := client.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, DegradedErrorReply, text)
	assert.Equal(t, 1, mock.Calls())
}

func TestGenerate_CancelledTurnSurfacesError(t *testing.T) {
	mock := NewMockProvider("mock")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock.ScriptErrors(ctx.Err())

	client := fastClient(t, mock, Config{RetryCount: 3})
	_, err := client.Generate(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListModels_BestEffort(t *testing.T) {
	mock := NewMockProvider("mock")
	mock.SetModels("a", "b")

	client := fastClient(t, mock, Config{})
	assert.Equal(t, []string{"a", "b"}, client.ListModels(context.Background()))

	mock.SetListError(errors.New("backend down"))
	models := client.ListModels(context.Background())
	require.NotNil(t, models)
	assert.Empty(t, models)
}

func TestMutators_TakeEffectOnNextCall(t *testing.T) {
	mock := NewMockProvider("mock")
	client := fastClient(t, mock, Config{Model: "before"})

	_, err := client.Generate(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, "before", mock.LastModel())

	client.SetModel("after")
	client.SetTimeout(42 * time.Second)

	_, err = client.Generate(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, "after", mock.LastModel())
	assert.Equal(t, 42*time.Second, client.Config().Timeout)
}

func TestSetProvider_ReplacesWholesale(t *testing.T) {
	first := NewMockProvider("first")
	second := NewMockProvider("second")
	second.AddResponse("hi", "from second")

	reg := NewRegistry()
	reg.Register("first", func(Config) (Provider, error) { return first, nil })
	reg.Register("second", func(Config) (Provider, error) { return second, nil })

	client, err := NewClient(reg, Config{Provider: "first"}, func(o *ClientOptions) {
		o.RetryPause = time.Millisecond
	})
	require.NoError(t, err)

	require.NoError(t, client.SetProvider(Config{Provider: "second", Model: "m2"}))
	text, err := client.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "from second", text)
	assert.Zero(t, first.Calls())

	// A failing reconfiguration leaves the client on the current backend.
	err = client.SetProvider(Config{Provider: "missing"})
	require.Error(t, err)
	assert.Equal(t, "second", client.Config().Provider)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(&timeoutError{}))
	assert.False(t, IsTransient(errors.New("rejected")))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(nil))
}

// timeoutError mimics a net.Error with Timeout() == true.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
