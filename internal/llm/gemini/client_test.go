package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/candidate-search/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)
	return c
}

func TestExtractFields(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": " {\"name\": \"Jane\", \"skills\": [\"python\"]}\n"}]},
				"finishReason": "STOP"
			}]
		}`))
	})

	content, err := c.ExtractFields(context.Background(), llm.ExtractRequest{Text: "Jane Doe, analyst", Filename: "jane.pdf"})
	require.NoError(t, err)
	assert.Equal(t, `{"name": "Jane", "skills": ["python"]}`, content)

	rec, err := llm.ParseRaw(content)
	require.NoError(t, err)
	assert.Equal(t, "Jane", rec["name"])

	assert.NotNil(t, got["contents"])
	assert.NotNil(t, got["systemInstruction"])
	genCfg, ok := got["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	assert.NotNil(t, genCfg["responseSchema"])
}

func TestExtractFieldsErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{
			name:   "api error",
			status: http.StatusBadRequest,
			body:   `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`,
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates": []}`,
		},
		{
			name:   "candidate without parts",
			status: http.StatusOK,
			body:   `{"candidates": [{"finishReason": "SAFETY"}]}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.ExtractFields(context.Background(), llm.ExtractRequest{Text: "x", Filename: "x.pdf"})
			require.Error(t, err)
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(context.Background(), Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", c.cfg.Model)
	assert.Positive(t, c.cfg.Timeout)
}
