package augment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService mimics an OpenAI-compatible chat-completions endpoint
// returning a fixed completion.
func fakeService(t *testing.T, completion string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{
				{Message: chatMessage{Role: "assistant", Content: completion}},
			},
		})
	}))
}

func TestClient_ExplainQuery(t *testing.T) {
	srv := fakeService(t, "1. Look at the students table.\n\n2. Keep rows with marks over 80.\n", http.StatusOK)
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Model: "test-model"})

	steps, err := c.ExplainQuery(context.Background(), "SELECT * FROM students WHERE marks > 80")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"1. Look at the students table.",
		"2. Keep rows with marks over 80.",
	}, steps)
}

func TestClient_ExplainError(t *testing.T) {
	completion := `Meaning:
- The table does not exist.

Reason:
- You misspelled the name.

How to Fix:
- Check the table name.
- List the datasets.`

	srv := fakeService(t, completion, http.StatusOK)
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Model: "test-model"})

	exp, err := c.ExplainError(context.Background(), "no such table: ghosts")
	require.NoError(t, err)
	assert.Equal(t, []string{"The table does not exist."}, exp.Meaning)
	assert.Equal(t, []string{"You misspelled the name."}, exp.Reason)
	assert.Equal(t, []string{"Check the table name.", "List the datasets."}, exp.Fix)
}

// A completion without the expected sections is malformed and must be
// reported as an error so callers fall back to rule-based output.
func TestClient_ExplainError_Malformed(t *testing.T) {
	srv := fakeService(t, "I cannot help with that.", http.StatusOK)
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Model: "test-model"})

	_, err := c.ExplainError(context.Background(), "whatever")
	require.Error(t, err)
}

func TestClient_ServiceError(t *testing.T) {
	srv := fakeService(t, "", http.StatusInternalServerError)
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Model: "test-model"})

	_, err := c.ExplainQuery(context.Background(), "SELECT 1")
	require.Error(t, err)
}

func TestClient_ServiceUnreachable(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1", Model: "test-model"})

	_, err := c.ExplainQuery(context.Background(), "SELECT 1")
	require.Error(t, err)
}

func TestNoop(t *testing.T) {
	var n Noop

	_, err := n.ExplainQuery(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = n.ExplainError(context.Background(), "boom")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestParseSections(t *testing.T) {
	exp := parseSections(`Meaning:
- one
- two
Reason:
- three
How to Fix:
- four`)
	assert.Equal(t, []string{"one", "two"}, exp.Meaning)
	assert.Equal(t, []string{"three"}, exp.Reason)
	assert.Equal(t, []string{"four"}, exp.Fix)

	// Bullets before any section header are dropped.
	exp = parseSections("- stray bullet\nMeaning:\n- kept")
	assert.Equal(t, []string{"kept"}, exp.Meaning)
}
