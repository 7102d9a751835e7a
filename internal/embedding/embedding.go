// Package embedding provides the query/document embedding client
// consumed by the vector search path: an Ollama-backed implementation
// behind an EmbedOne/EmbedBatch/Dimensions interface.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/corpusforge/hybridcore/internal/searcherr"
)

// Client produces embedding vectors for text, used both to embed
// queries at search time and documents at ingest time.
type Client interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// OllamaClient talks to a local Ollama server's /api/embed endpoint.
type OllamaClient struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewOllamaClient constructs a client for the given Ollama base URL and
// model. dimensions is the caller-configured embedding.dimensions value;
// it is authoritative even before the first request completes.
func NewOllamaClient(baseURL, model string, dimensions int) *OllamaClient {
	return &OllamaClient{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// ollamaEmbedRequest's Input field accepts either a bare string (single
// embed) or a []string (batch embed) — Ollama dispatches on the JSON
// type, so EmbedOne and EmbedBatch share one request/response path
// instead of EmbedOne wrapping its text in a one-element slice.
type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// EmbedOne embeds a single text, sending it as a bare string input.
func (o *OllamaClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := o.embed(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds multiple texts in one request.
func (o *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return o.embed(ctx, texts, len(texts))
}

// embed posts input (a string or []string) to /api/embed and validates
// that wantCount embeddings came back, caching the discovered dimension
// on the client as a side effect of the first successful call.
func (o *OllamaClient) embed(ctx context.Context, input any, wantCount int) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Input: input})
	if err != nil {
		return nil, searcherr.Json(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, searcherr.Embedding("creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, searcherr.Http(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, searcherr.Io(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, searcherr.Embedding("ollama error: "+ollamaErrorMessage(respBody), nil)
	}

	var embedResp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, searcherr.Json(err)
	}
	if len(embedResp.Embeddings) != wantCount {
		return nil, searcherr.Embedding("embedding count mismatch", nil)
	}

	if o.dimensions == 0 && len(embedResp.Embeddings) > 0 {
		o.dimensions = len(embedResp.Embeddings[0])
	}

	return embedResp.Embeddings, nil
}

// ollamaErrorMessage pulls the "error" field out of a non-200 response
// body, falling back to a generic message when the body isn't the
// expected shape.
func ollamaErrorMessage(body []byte) string {
	var errResp ollamaErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return errResp.Error
	}
	return "ollama returned a non-200 status"
}

// Dimensions returns the configured or discovered embedding length.
func (o *OllamaClient) Dimensions() int {
	return o.dimensions
}
