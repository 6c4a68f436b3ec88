// Package embeddings provides the Embedder contract used throughout the
// store: a pure function, from the core's viewpoint, from text to a
// fixed-length float32 vector, backed by a remote embedding service.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Embedder generates vector representations for text. A single call may
// batch many texts; implementations that call out to a remote service
// should do so in one round trip per call where the provider allows it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type remoteEmbedder struct {
	endpoint  string
	apiKey    string
	model     string
	dimension int
	client    *http.Client
}

type remoteRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type remoteResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewRemoteEmbedder constructs an Embedder backed by a remote HTTP
// embedding API: one POST per call, bearer-token authenticated, batching
// every text in texts into a single request body.
func NewRemoteEmbedder(endpoint, apiKey, model string, dimension int, timeout time.Duration) Embedder {
	return &remoteEmbedder{
		endpoint:  strings.TrimRight(endpoint, "/"),
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		client:    &http.Client{Timeout: timeout},
	}
}

func (e *remoteEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(remoteRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var payload remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	if len(payload.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(payload.Embeddings), len(texts))
	}

	if e.dimension > 0 {
		for i, vec := range payload.Embeddings {
			if len(vec) != e.dimension {
				return nil, fmt.Errorf("embedding dimension mismatch at index %d: expected %d, got %d", i, e.dimension, len(vec))
			}
		}
	}

	return payload.Embeddings, nil
}
