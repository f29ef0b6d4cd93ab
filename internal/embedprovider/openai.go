package embedprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAICompatible calls an OpenAI-compatible /embeddings endpoint. It
// reads its configuration from the environment variables the design
// names: OPENAI_API_KEY, OPENAI_BASE_URL, EMBEDDING_MODEL,
// EMBEDDING_DIMENSIONS.
type OpenAICompatible struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewOpenAICompatibleFromEnv builds a provider from the environment, or
// returns (nil, false) when OPENAI_API_KEY is unset, signaling the
// caller to fall back to a mock provider for that call.
func NewOpenAICompatibleFromEnv() (*OpenAICompatible, bool) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, false
	}
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "text-embedding-3-small"
	}
	dims := 1536
	if raw := os.Getenv("EMBEDDING_DIMENSIONS"); raw != "" {
		var parsed int
		if _, err := fmt.Sscanf(raw, "%d", &parsed); err == nil && parsed > 0 {
			dims = parsed
		}
	}

	return &OpenAICompatible{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		dimensions: dims,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, true
}

type embeddingsRequest struct {
	Model      string `json:"model"`
	Input      []string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed posts texts to the embeddings endpoint. mode is accepted for
// interface parity with the mock/local providers; OpenAI's embeddings
// endpoint has no query/passage distinction.
func (o *OpenAICompatible) Embed(ctx context.Context, texts []string, _ string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: o.model, Input: texts, Dimensions: o.dimensions})
	if err != nil {
		return nil, fmt.Errorf("embedprovider: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedprovider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedprovider: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedprovider: unexpected status %d", resp.StatusCode)
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedprovider: decode response: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (o *OpenAICompatible) Dimensions() int { return o.dimensions }
