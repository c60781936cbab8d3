package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/reqalign/model"
)

// echoProvider is a minimal wire format for tests: the response body is
// the completion content, verbatim.
type echoProvider struct{}

func (echoProvider) Name() string                { return "echo" }
func (echoProvider) BuildURL(base string) string { return base }
func (echoProvider) SetHeaders(*http.Request)    {}
func (echoProvider) BuildRequestBody(m string, msgs []Message, _ *float64, _ int) ([]byte, error) {
	return []byte(`{"model":"` + m + `"}`), nil
}
func (echoProvider) ParseResponse(body []byte, m string) (*Response, error) {
	return &Response{Content: string(body), Model: m}, nil
}

func init() {
	RegisterProvider(echoProvider{})
}

// fastRetry keeps backoff out of test wall time.
func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Millisecond,
	}
}

func testRegistry(models map[string]string) *model.Registry {
	endpoints := make(map[string]*model.EndpointConfig, len(models))
	for name, url := range models {
		endpoints[name] = &model.EndpointConfig{Provider: "echo", URL: url, Model: name}
	}
	return model.NewRegistry(nil, endpoints)
}

func chatRequest() Request {
	return Request{
		Capability: "chat",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	}
}

func TestComplete_Validation(t *testing.T) {
	c := NewClient(testRegistry(nil))

	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	assert.Error(t, err)

	_, err = c.Complete(context.Background(), Request{Capability: "chat"})
	assert.Error(t, err)
}

func TestComplete_NoModelsConfigured(t *testing.T) {
	c := NewClient(testRegistry(nil))

	_, err := c.Complete(context.Background(), chatRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no models configured")
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte("hello there"))
	}))
	defer server.Close()

	registry := testRegistry(map[string]string{"m1": server.URL})
	registry.SetDefaultModel("m1")
	c := NewClient(registry, WithRetryConfig(fastRetry()))

	resp, err := c.Complete(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, "m1", resp.Model)
	assert.NotEmpty(t, resp.RequestID)
}

func TestComplete_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	registry := testRegistry(map[string]string{"m1": server.URL})
	registry.SetDefaultModel("m1")
	c := NewClient(registry, WithRetryConfig(fastRetry()))

	resp, err := c.Complete(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_FatalErrorSkipsRetryAndFallback(t *testing.T) {
	var primaryCalls, fallbackCalls atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackCalls.Add(1)
		_, _ = w.Write([]byte("should not be reached"))
	}))
	defer fallback.Close()

	registry := testRegistry(map[string]string{"m1": primary.URL, "m2": fallback.URL})
	registry.SetCapability(model.CapabilityChat, &model.CapabilityConfig{
		Preferred: []string{"m1"},
		Fallback:  []string{"m2"},
	})
	c := NewClient(registry, WithRetryConfig(fastRetry()))

	_, err := c.Complete(context.Background(), chatRequest())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, int32(1), primaryCalls.Load(), "fatal errors must not retry")
	assert.Zero(t, fallbackCalls.Load(), "fatal errors must not fall back")
}

func TestComplete_FallsBackAfterTransientExhaustion(t *testing.T) {
	var primaryCalls atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fallback answer"))
	}))
	defer fallback.Close()

	registry := testRegistry(map[string]string{"m1": primary.URL, "m2": fallback.URL})
	registry.SetCapability(model.CapabilityChat, &model.CapabilityConfig{
		Preferred: []string{"m1"},
		Fallback:  []string{"m2"},
	})
	c := NewClient(registry, WithRetryConfig(fastRetry()))

	resp, err := c.Complete(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "fallback answer", resp.Content)
	assert.Equal(t, "m2", resp.Model)
	assert.Equal(t, int32(3), primaryCalls.Load(), "primary should exhaust its retries first")
}

func TestComplete_AllEndpointsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := testRegistry(map[string]string{"m1": server.URL})
	registry.SetDefaultModel("m1")
	c := NewClient(registry, WithRetryConfig(fastRetry()))

	_, err := c.Complete(context.Background(), chatRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all endpoints failed")
	assert.True(t, IsTransient(err))
}

func TestComplete_ContextCancellationStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := testRegistry(map[string]string{"m1": server.URL})
	registry.SetDefaultModel("m1")
	c := NewClient(registry, WithRetryConfig(RetryConfig{
		MaxAttempts:       5,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        time.Second,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Complete(ctx, chatRequest())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "cancellation must cut the backoff wait short")
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusTeapot, false},
	}

	for _, tt := range tests {
		err := classifyHTTPError(tt.status, []byte("body"))
		require.Error(t, err)
		if tt.transient {
			assert.True(t, IsTransient(err), "status %d should be transient", tt.status)
		} else {
			assert.True(t, IsFatal(err), "status %d should be fatal", tt.status)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	c := NewClient(testRegistry(nil), WithRetryConfig(RetryConfig{
		MaxAttempts:       5,
		BackoffBase:       100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        300 * time.Millisecond,
	}))

	for i := 0; i < 50; i++ {
		// Attempt 1: 100ms +/- 25% jitter.
		b := c.calculateBackoff(1)
		assert.GreaterOrEqual(t, b, 75*time.Millisecond)
		assert.LessOrEqual(t, b, 125*time.Millisecond)

		// Attempt 3 would be 400ms; capped to 300ms before jitter.
		b = c.calculateBackoff(3)
		assert.LessOrEqual(t, b, 375*time.Millisecond)
	}
}
