package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientGenerate(t *testing.T) {
	var captured openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  SUBJECT: Hi\n\nBody  "}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1/", Model: "test-model"})
	text, err := client.Generate(context.Background(), Request{
		System:      "be brief",
		Prompt:      "write",
		Temperature: 0.7,
		MaxTokens:   800,
	})
	require.NoError(t, err)
	assert.Equal(t, "SUBJECT: Hi\n\nBody", text)

	assert.Equal(t, "test-model", captured.Model)
	assert.Equal(t, 800, captured.MaxTokens)
	assert.InDelta(t, 0.7, captured.Temperature, 0.0001)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "openai:test-model", client.Name())
}

func TestOpenAIClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `boom`},
		{name: "api error payload", status: http.StatusOK, body: `{"error":{"message":"quota"}}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: ErrEmptyCompletion},
		{name: "blank content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"   "}}]}`, wantErr: ErrEmptyCompletion},
		{name: "malformed json", status: http.StatusOK, body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
			_, err := client.Generate(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOpenAIClientRequiresKey(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	gen, err := New(ctx, Options{})
	require.NoError(t, err)
	assert.Nil(t, gen, "no credentials means no backend")

	gen, err = New(ctx, Options{OpenAIKey: "k"})
	require.NoError(t, err)
	assert.Nil(t, gen, "key without endpoint means no backend")

	gen, err = New(ctx, Options{OpenAIKey: "k", OpenAIBaseURL: "http://localhost", OpenAIModel: "m"})
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, "openai:m", gen.Name())

	gen, err = New(ctx, Options{GeminiKey: "g", GeminiModel: "gemini-test"})
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, "genai:gemini-test", gen.Name())
}
