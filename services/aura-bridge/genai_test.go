package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGeminiStub vrací generátor napojený na lokální server místo Gemini API.
func newGeminiStub(t *testing.T, handler http.HandlerFunc) *GeminiGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gen, err := NewGeminiGenerator(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-test",
		Timeout: 2 * time.Second,
		BaseURL: srv.URL,
	})
	require.NoError(t, err)
	return gen
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestGeminiGenerator_Generate(t *testing.T) {
	var gotPath, gotBody string
	gen := newGeminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"  Keep calm "},{"text":"and carry on."}]}}]}`)
	})

	text, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "hello there", MaxTokens: 30, Temperature: 0.7})
	require.NoError(t, err)

	assert.Equal(t, "Keep calm and carry on.", text)
	assert.True(t, strings.HasSuffix(gotPath, "models/gemini-test:generateContent"), gotPath)

	var req map[string]any
	require.NoError(t, json.Unmarshal([]byte(gotBody), &req))
	assert.Contains(t, gotBody, "hello there")
	assert.Contains(t, req, "generationConfig")
}

func TestGeminiGenerator_BadResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"no parts", http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[]}}]}`},
		{"blank text", http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"   "}]}}]}`},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`},
		{"quota", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newGeminiStub(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			text, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "p"})
			assert.Error(t, err)
			assert.Empty(t, text)
		})
	}
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}
