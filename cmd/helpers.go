package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/coinwatch/newsrag/internal/config"
	"github.com/coinwatch/newsrag/internal/db"
	"github.com/coinwatch/newsrag/internal/embeddings"
	"github.com/coinwatch/newsrag/internal/hybrid"
	"github.com/coinwatch/newsrag/internal/llm"
	"github.com/coinwatch/newsrag/internal/newsstore"
	"github.com/coinwatch/newsrag/internal/personalize"
	"github.com/coinwatch/newsrag/internal/rag"
)

// services bundles everything a command needs after wiring.
type services struct {
	cfg      *config.Config
	store    newsstore.Store
	embedder embeddings.Embedder
	provider llm.Provider // nil when no API key is configured
	users    *personalize.Engine
	rag      *rag.Service
	database *db.DB // nil for the remote backend
}

// Close releases held resources.
func (s *services) Close() {
	if s.database != nil {
		s.database.Close()
	}
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `newsrag init` to create a config file", err)
	}
	return cfg, nil
}

// buildServices wires the full service graph from the config file:
// embedder, LLM provider, document store (with failover when both a remote
// URL and a local path are configured), personalisation engine, answer
// cache, and the RAG service on top.
func buildServices(ctx context.Context) (*services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	embedder := createEmbedderFromConfig(cfg)
	provider := createProviderFromConfig(cfg)

	if verbose {
		fmt.Fprintf(os.Stderr, "Embedder: %s\n", embedder.Name())
		if provider == nil {
			fmt.Fprintf(os.Stderr, "No OpenAI API key configured; answers will be extractive\n")
		}
	}

	var (
		database *db.DB
		store    newsstore.Store
		users    *personalize.Engine
	)

	switch cfg.Store.Backend {
	case config.BackendLocal:
		database, err = db.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database %s: %w", cfg.Store.Path, err)
		}
		local, err := newsstore.NewLocalStore(ctx, database)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("loading local store: %w", err)
		}
		store = local
		if cfg.Store.RemoteURL != "" {
			// Remote primary, local failover.
			store = newsstore.NewFailoverStore(newsstore.NewRemoteStore(cfg.Store.RemoteURL), local, 0)
		}
		users, err = personalize.NewEngineWithDB(ctx, personalConfig(cfg), database)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("loading user profiles: %w", err)
		}
	case config.BackendRemote:
		store = newsstore.NewRemoteStore(cfg.Store.RemoteURL)
		users = personalize.NewEngine(personalConfig(cfg))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	cache, err := rag.NewCache(embedder, cfg.CacheTTLDuration())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: answer cache disabled: %v\n", err)
		cache = nil
	}

	svc := rag.NewService(rag.Deps{
		Store:        store,
		Embedder:     embedder,
		Provider:     provider,
		Personalizer: users,
		Cache:        cache,
	})

	return &services{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		provider: provider,
		users:    users,
		rag:      svc,
		database: database,
	}, nil
}

// createEmbedderFromConfig picks the OpenAI embedder when a key is present,
// otherwise the deterministic offline fallback.
func createEmbedderFromConfig(cfg *config.Config) embeddings.Embedder {
	if cfg.OpenAI.APIKey != "" {
		return embeddings.NewOpenAIEmbedder(cfg.OpenAI.APIKey, embeddings.OpenAIModel(cfg.OpenAI.EmbeddingModel))
	}
	return embeddings.NewFallbackEmbedder(0)
}

// createProviderFromConfig returns nil without an API key; generation then
// degrades to extractive answers.
func createProviderFromConfig(cfg *config.Config) llm.Provider {
	if cfg.OpenAI.APIKey == "" {
		return nil
	}
	var provider llm.Provider = llm.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	if cfg.OpenAI.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.OpenAI.RequestsPerMinute)
	}
	return provider
}

func personalConfig(cfg *config.Config) personalize.Config {
	return personalize.Config{
		MaxHistorySize:      cfg.Personal.MaxHistorySize,
		InterestDecayPerDay: cfg.Personal.InterestDecayPerDay,
		InterestBoost:       cfg.Personal.InterestBoost,
		SourceBoost:         cfg.Personal.SourceBoost,
		MutedPenalty:        cfg.Personal.MutedPenalty,
	}
}

// askOptionsFromConfig applies config-level retrieval and rerank settings
// on top of a preset.
func askOptionsFromConfig(cfg *config.Config, preset string) rag.AskOptions {
	var opts rag.AskOptions
	if preset == "complete" {
		opts = rag.CompleteOptions()
	} else {
		opts = rag.FastOptions()
	}
	if cfg.Search.TopK > 0 {
		opts.TopK = cfg.Search.TopK
	}
	opts.SimilarityThreshold = cfg.Search.SimilarityThreshold
	opts.SemanticWeight = cfg.Search.SemanticWeight
	if cfg.Search.FusionMethod == "rrf" {
		opts.Fusion = hybrid.FusionRRF
	}
	opts.Rerank.TimeDecay = cfg.Rerank.TimeDecay
	opts.Rerank.SourceCredibility = cfg.Rerank.SourceCredibility
	opts.Rerank.Diversity = cfg.Rerank.Diversity
	opts.Rerank.MaxPerSource = cfg.Rerank.MaxPerSource
	opts.Rerank.HalfLife = cfg.HalfLifeDuration()
	if cfg.Rerank.LLMJudge {
		opts.Rerank.LLMJudge = true
	}
	opts.UseRerank = opts.Rerank.TimeDecay || opts.Rerank.SourceCredibility ||
		opts.Rerank.Diversity || opts.Rerank.LLMJudge
	return opts
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
