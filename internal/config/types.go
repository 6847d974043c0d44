package config

// StoreBackend selects where documents are persisted.
type StoreBackend string

const (
	// BackendLocal keeps documents in memory with a sqlite mirror.
	BackendLocal StoreBackend = "local"
	// BackendRemote talks to a remote document store over HTTP.
	BackendRemote StoreBackend = "remote"
)

// Config is the top-level newsrag configuration, corresponding to
// .newsrag.yml.
type Config struct {
	Store    StoreConfig    `yaml:"store" koanf:"store"`
	OpenAI   OpenAIConfig   `yaml:"openai" koanf:"openai"`
	Search   SearchConfig   `yaml:"search" koanf:"search"`
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	CacheTTL string         `yaml:"cache_ttl" koanf:"cache_ttl"`
	Rerank   RerankConfig   `yaml:"rerank" koanf:"rerank"`
	Personal PersonalConfig `yaml:"personalization" koanf:"personalization"`
}

// StoreConfig selects and tunes the document store backend.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend" koanf:"backend"`
	// Path is the sqlite file for the local backend.
	Path string `yaml:"path" koanf:"path"`
	// RemoteURL is the base URL for the remote backend. When set together
	// with the local backend, the remote store is primary and the local
	// store is the failover.
	RemoteURL string `yaml:"remote_url" koanf:"remote_url"`
}

// OpenAIConfig holds provider credentials and model choices. An empty API
// key disables generation and switches embeddings to the deterministic
// offline fallback.
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key" koanf:"api_key"`
	Model          string `yaml:"model" koanf:"model"`
	EmbeddingModel string `yaml:"embedding_model" koanf:"embedding_model"`
	// RequestsPerMinute rate-limits provider calls. 0 disables limiting.
	RequestsPerMinute int `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// SearchConfig tunes retrieval defaults.
type SearchConfig struct {
	TopK                int     `yaml:"top_k" koanf:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" koanf:"similarity_threshold"`
	SemanticWeight      float64 `yaml:"semantic_weight" koanf:"semantic_weight"`
	FusionMethod        string  `yaml:"fusion_method" koanf:"fusion_method"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" koanf:"host"`
	Port int    `yaml:"port" koanf:"port"`
}

// RerankConfig toggles reranking signals.
type RerankConfig struct {
	TimeDecay         bool   `yaml:"time_decay" koanf:"time_decay"`
	HalfLife          string `yaml:"half_life" koanf:"half_life"`
	SourceCredibility bool   `yaml:"source_credibility" koanf:"source_credibility"`
	Diversity         bool   `yaml:"diversity" koanf:"diversity"`
	MaxPerSource      int    `yaml:"max_per_source" koanf:"max_per_source"`
	LLMJudge          bool   `yaml:"llm_judge" koanf:"llm_judge"`
}

// PersonalConfig tunes the personalisation engine.
type PersonalConfig struct {
	MaxHistorySize      int     `yaml:"max_history_size" koanf:"max_history_size"`
	InterestDecayPerDay float64 `yaml:"interest_decay_per_day" koanf:"interest_decay_per_day"`
	InterestBoost       float64 `yaml:"interest_boost" koanf:"interest_boost"`
	SourceBoost         float64 `yaml:"source_boost" koanf:"source_boost"`
	MutedPenalty        float64 `yaml:"muted_penalty" koanf:"muted_penalty"`
}
