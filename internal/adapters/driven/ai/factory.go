// Package ai builds the configured embedding service and checks that it answers.
package ai

import (
	"context"
	"fmt"
	"time"

	cacheembed "github.com/custodia-labs/mailmind/internal/adapters/driven/embedding/cache"
	localembed "github.com/custodia-labs/mailmind/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/mailmind/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/mailmind/internal/adapters/driven/embedding/openai"
	ratelimitembed "github.com/custodia-labs/mailmind/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
	"github.com/custodia-labs/mailmind/internal/logger"
)

const pingTimeout = 5 * time.Second

const fixHint = "Run 'mailmind settings embedding' to fix"

type builder func(*domain.EmbeddingSettings) (driven.EmbeddingService, error)

var builders = map[domain.AIProvider]builder{
	domain.AIProviderLocal: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return localembed.NewEmbeddingService(localembed.Config{
			Model:      s.ResolvedModel(),
			Dimensions: s.ResolvedDimensions(),
		}), nil
	},
	domain.AIProviderOllama: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    s.BaseURL,
			Model:      s.ResolvedModel(),
			Dimensions: s.ResolvedDimensions(),
		}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.ResolvedModel(),
			Dimensions: s.ResolvedDimensions(),
		})
	},
}

// CreateEmbeddingService builds the provider named in settings. A configured
// query cache wraps the provider, and a request rate limit wraps both.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no embedding settings", domain.ErrInvalidInput)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("embedding provider %q is not configured", settings.Provider)
	}
	build, ok := builders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, settings.Provider)
	}

	svc, err := build(settings)
	if err != nil {
		return nil, err
	}
	return decorate(svc, settings)
}

func decorate(svc driven.EmbeddingService, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if n := settings.CacheSize; n > 0 {
		cached, err := cacheembed.New(svc, n)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		logger.Debug("Embedding cache enabled (%d entries)", n)
		svc = cached
	}
	if rps := settings.RequestsPerSecond; rps > 0 {
		logger.Debug("Embedding requests paced at %.2f/s", rps)
		svc = ratelimitembed.New(svc, ratelimitembed.Config{RequestsPerSecond: rps, BurstSize: 1})
	}
	return svc, nil
}

func ping(ctx context.Context, svc driven.EmbeddingService) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateAndValidateEmbeddingService builds the service and pings it. Every
// failure wraps domain.ErrEmbeddingUnavailable and says how to fix it.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if err := ping(ctx, svc); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return svc, nil
}

// ValidateEmbeddingConfig pings the configured provider once. Unconfigured
// settings are not an error here.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()
	return ping(context.Background(), svc)
}
