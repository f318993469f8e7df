// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/logger"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768
)

// errBatchUnsupported is returned by servers older than the /api/embed endpoint.
var errBatchUnsupported = errors.New("ollama: batch endpoint not available")

// Config configures an EmbeddingService. Zero fields take the defaults above.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService talks to the Ollama HTTP API.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type batchRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type batchResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewEmbeddingService returns a service for cfg. It does not contact the server.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	svc := &EmbeddingService{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
	if svc.baseURL == "" {
		svc.baseURL = DefaultBaseURL
	}
	if svc.model == "" {
		svc.model = DefaultModel
	}
	if svc.dimensions <= 0 {
		svc.dimensions = DefaultDimensions
	}
	if svc.client.Timeout <= 0 {
		svc.client.Timeout = DefaultTimeout
	}
	return svc
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	if err := s.call(ctx, http.MethodPost, "/api/embeddings", embedRequest{Model: s.model, Prompt: text}, &out); err != nil {
		return nil, err
	}
	return toFloat32(out.Embedding), nil
}

// EmbedBatch uses /api/embed and drops to one /api/embeddings call per text
// when the server answers 404 for it.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out batchResponse
	err := s.call(ctx, http.MethodPost, "/api/embed", batchRequest{Model: s.model, Input: texts}, &out)
	if errors.Is(err, errBatchUnsupported) {
		logger.Debug("ollama: /api/embed not found, embedding %d texts individually", len(texts))
		return s.embedEach(ctx, texts)
	}
	if err != nil {
		return nil, err
	}
	if got := len(out.Embeddings); got != len(texts) {
		return nil, fmt.Errorf("ollama: %d embeddings returned for %d inputs", got, len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i := range out.Embeddings {
		vectors[i] = toFloat32(out.Embeddings[i])
	}
	return vectors, nil
}

func (s *EmbeddingService) embedEach(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i := range texts {
		v, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, fmt.Errorf("ollama: input %d: %w", i, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// call sends payload (nil for none) and decodes a 200 body into out (nil to
// discard). Connection failures and 5xx responses wrap
// domain.ErrEmbeddingUnavailable.
func (s *EmbeddingService) call(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("ollama: encode %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("ollama: build %s: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("ollama: decode %s: %w", path, err)
		}
		return nil
	}

	if resp.StatusCode == http.StatusNotFound && path == "/api/embed" {
		return errBatchUnsupported
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("ollama: %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return err
}

func (s *EmbeddingService) Dimensions() int { return s.dimensions }

func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists installed models via /api/tags, which needs no inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.call(ctx, http.MethodGet, "/api/tags", nil, nil)
}

func (s *EmbeddingService) Close() error { return nil }

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
