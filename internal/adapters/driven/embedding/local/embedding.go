// Package local provides an offline embedding service based on feature hashing.
// Vectors are deterministic for a given dimension, so indexes built with it
// stay valid across restarts and machines.
package local

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "hash-bigram-384"
	DefaultDimensions = 384

	unigramWeight = 1.0
	bigramWeight  = 0.5
)

// Config holds configuration for the local embedding service.
type Config struct {
	// Model is the name reported by ModelName (default: hash-bigram-384).
	Model string

	// Dimensions is the embedding vector size (default: 384).
	Dimensions int
}

// EmbeddingService hashes word unigrams and bigrams into a fixed-size,
// L2-normalised vector.
type EmbeddingService struct {
	model      string
	dimensions int
}

// NewEmbeddingService creates a new local embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a vector embedding for the given text.
// Text without words maps to the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, s.dimensions)
	tokens := tokenize(text)
	for i, tok := range tokens {
		s.add(vec, "u:"+tok, unigramWeight)
		if i > 0 {
			s.add(vec, "b:"+tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var norm2 float64
	for _, v := range vec {
		norm2 += v * v
	}
	out := make([]float32, s.dimensions)
	if norm2 == 0 {
		return out, nil
	}
	scale := 1 / math.Sqrt(norm2)
	for i, v := range vec {
		out[i] = float32(v * scale)
	}
	return out, nil
}

// add hashes feature into a bucket with a hash-derived sign.
func (s *EmbeddingService) add(vec []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(s.dimensions)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds; there is nothing to reach.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// tokenize lower-cases NFKC-normalised text and splits it into runs of
// letters and digits.
func tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
