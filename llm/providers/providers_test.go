package providers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/reqalign/llm"
)

func TestProvidersRegistered(t *testing.T) {
	assert.NotNil(t, llm.GetProvider("ollama"))
	assert.NotNil(t, llm.GetProvider("openai"))
	assert.Nil(t, llm.GetProvider("unknown"))
}

func TestOllamaBuildURL(t *testing.T) {
	p := &OllamaProvider{}

	tests := []struct {
		base string
		want string
	}{
		{"", "http://localhost:11434/v1/chat/completions"},
		{"http://models:8080/v1", "http://models:8080/v1/chat/completions"},
		{"http://models:8080/v1/", "http://models:8080/v1/chat/completions"},
		{"http://models:8080/v1/chat/completions", "http://models:8080/v1/chat/completions"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.BuildURL(tt.base))
	}
}

func TestOpenAIBuildURL_Default(t *testing.T) {
	p := &OpenAIProvider{}
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", p.BuildURL(""))
}

func TestOpenAISetHeaders(t *testing.T) {
	p := &OpenAIProvider{}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	req, err := http.NewRequest(http.MethodPost, "http://example", nil)
	require.NoError(t, err)
	p.SetHeaders(req)
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))

	t.Setenv("OPENAI_API_KEY", "")
	req2, err := http.NewRequest(http.MethodPost, "http://example", nil)
	require.NoError(t, err)
	p.SetHeaders(req2)
	assert.Empty(t, req2.Header.Get("Authorization"))
}

func TestBuildRequestBody(t *testing.T) {
	p := &OllamaProvider{}
	messages := []llm.Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hi"},
	}

	t.Run("defaults omitted", func(t *testing.T) {
		body, err := p.BuildRequestBody("m1", messages, nil, 0)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, "m1", decoded["model"])
		assert.NotContains(t, decoded, "temperature")
		assert.NotContains(t, decoded, "max_tokens")
		assert.Len(t, decoded["messages"], 2)
	})

	t.Run("explicit knobs included", func(t *testing.T) {
		temp := 0.0
		body, err := p.BuildRequestBody("m1", messages, &temp, 512)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(body, &decoded))
		// Zero temperature is deterministic sampling, not "unset".
		assert.Contains(t, decoded, "temperature")
		assert.EqualValues(t, 512, decoded["max_tokens"])
	})
}

func TestParseResponse(t *testing.T) {
	p := &OllamaProvider{}

	t.Run("well-formed", func(t *testing.T) {
		body := []byte(`{
			"model": "qwen2.5:14b",
			"choices": [{"index":0,"message":{"role":"assistant","content":"the answer"},"finish_reason":"stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)

		resp, err := p.ParseResponse(body, "qwen2.5:14b")
		require.NoError(t, err)
		assert.Equal(t, "the answer", resp.Content)
		assert.Equal(t, "qwen2.5:14b", resp.Model)
		assert.Equal(t, "stop", resp.FinishReason)
		assert.Equal(t, 15, resp.Usage.TotalTokens)
	})

	t.Run("no choices", func(t *testing.T) {
		_, err := p.ParseResponse([]byte(`{"model":"m","choices":[]}`), "m")
		assert.Error(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := p.ParseResponse([]byte("not json"), "m")
		assert.Error(t, err)
	})
}
