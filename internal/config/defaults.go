package config

// DefaultConfigFile is the conventional config file name.
const DefaultConfigFile = ".newsrag.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendLocal,
			Path:    "newsrag.db",
		},
		OpenAI: OpenAIConfig{
			Model:             "gpt-4o-mini",
			EmbeddingModel:    "text-embedding-3-small",
			RequestsPerMinute: 60,
		},
		Search: SearchConfig{
			TopK:                5,
			SimilarityThreshold: 0.5,
			SemanticWeight:      0.7,
			FusionMethod:        "weighted",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		CacheTTL: "15m",
		Rerank: RerankConfig{
			TimeDecay:         true,
			HalfLife:          "168h",
			SourceCredibility: true,
			Diversity:         true,
			MaxPerSource:      2,
		},
		Personal: PersonalConfig{
			MaxHistorySize:      200,
			InterestDecayPerDay: 0.02,
			InterestBoost:       1.3,
			SourceBoost:         1.2,
			MutedPenalty:        0.5,
		},
	}
}
