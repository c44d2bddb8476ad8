package backend

import (
	"bizledger/internal/cache"
	"bizledger/internal/config"
	"bizledger/internal/log"
	"bizledger/internal/suggest"
)

// NewSuggester picks the OpenAI-compatible client when an API key or base
// URL is configured, else keyword matching. Remote results are cached and
// the cache is registered with manager for periodic cleanup.
func NewSuggester(cfg *config.Config, manager *cache.Manager, logger *log.Logger) suggest.Suggester {
	logger = logger.WithComponent(log.ComponentSuggest)

	if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
		logger.Info("No OpenAI endpoint configured, using keyword category suggestions")
		return suggest.NewKeywords()
	}

	remote := suggest.NewOpenAI(suggest.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.SuggestTimeout,
	}, logger)

	lru := cache.NewLRUCache[[]string](cfg.SuggestCacheSize, cfg.SuggestCacheTTL)
	if manager != nil {
		manager.Register(lru)
	}
	logger.Info("Using OpenAI category suggestions",
		"model", cfg.OpenAIModel, "cache_size", cfg.SuggestCacheSize)
	return suggest.NewCached(remote, lru, suggest.WithSharedTimeout(cfg.SuggestTimeout))
}
