package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// geminiEmbeddingProvider implements embedding.Provider against the
// Google Generative Language API's embedContent endpoint. The wire
// format of the external embedding provider is explicitly out of scope
// (§1 Non-goals: "the external LLM and embedding providers... treated
// as black-box RPCs"), and no example repo in the corpus actually calls
// a generative-embeddings SDK from its own code (the one occurrence,
// google/generative-ai-go in jordigilh-kubernaut's go.mod, is an
// indirect, unused transitive dependency) — so this is a direct
// net/http call rather than a borrowed SDK, kept as small as the
// contract requires. See DESIGN.md.
type geminiEmbeddingProvider struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func newGeminiEmbeddingProvider(apiKey string) *geminiEmbeddingProvider {
	return &geminiEmbeddingProvider{
		apiKey:     apiKey,
		model:      "models/text-embedding-004",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type embedContentRequest struct {
	Model   string `json:"model"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (p *geminiEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedContentRequest{Model: p.model}
	reqBody.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: text}}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/%s:embedContent?key=%s",
		p.model, url.QueryEscape(p.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: provider returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed embedContentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("embed: unmarshal response: %w", err)
	}
	return parsed.Embedding.Values, nil
}
