package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquira/kgraph/internal/config"
)

func TestCompleteSendsDeterministicTemperature(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	endpoint := config.NewEndpointWithOptions(
		config.WithBaseURL(srv.URL),
		config.WithAPIKey("test-key"),
		config.WithModel("test-model"),
	)
	completer := NewOpenAICompleter(endpoint, nil)

	out, err := completer.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)

	// A zero temperature is dropped from the wire by omitempty, which
	// would leave the provider on its default. The request must carry an
	// explicit near-zero value instead.
	temp, ok := captured["temperature"]
	require.True(t, ok, "temperature missing from request body")
	assert.InDelta(t, 0.0, temp, 1e-6)
	assert.NotZero(t, temp)
}

func TestCompleteReturnsErrNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	endpoint := config.NewEndpointWithOptions(
		config.WithBaseURL(srv.URL),
		config.WithAPIKey("test-key"),
		config.WithModel("test-model"),
	)
	completer := NewOpenAICompleter(endpoint, nil)

	_, err := completer.Complete(context.Background(), "system", "user")
	assert.ErrorIs(t, err, ErrNoChoices)
}
