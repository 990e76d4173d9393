// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Embedding     EmbeddingConfig         `mapstructure:"embedding"`
	Recommender   RecommenderConfig       `mapstructure:"recommender"`
	Training      TrainingConfig          `mapstructure:"training"`
	ModelStore    ModelStoreConfig        `mapstructure:"model_store"`
	Cache         CacheConfig             `mapstructure:"cache"`
	Indexer       IndexerConfig           `mapstructure:"indexer"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
	Registry      RegistryConfig          `mapstructure:"registry"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Server        ServerConfig            `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"`
	Index      string   `mapstructure:"index"`
	VectorDims int      `mapstructure:"vector_dims"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// GetAddresses returns Addresses, falling back to URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Recommender Configuration ---

// EmbeddingConfig points at the text embedding service.
type EmbeddingConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// FieldWeights controls how often each profile field is repeated in the
// weighted query text.
type FieldWeights struct {
	Skills      float64 `mapstructure:"skills" json:"skills"`
	Title       float64 `mapstructure:"title" json:"title"`
	Description float64 `mapstructure:"description" json:"description"`
}

// RecommenderConfig carries the scoring and blending policy constants.
type RecommenderConfig struct {
	TopN                int          `mapstructure:"top_n"`
	FieldWeights        FieldWeights `mapstructure:"field_weights"`
	SkillWeight         float64      `mapstructure:"skill_weight"`
	MinThreshold        float64      `mapstructure:"min_threshold"`
	RetrievalMultiplier int          `mapstructure:"retrieval_multiplier"`
	ZeroOverlapPenalty  float64      `mapstructure:"zero_overlap_penalty"`
	TitleBoostPerToken  float64      `mapstructure:"title_boost_per_token"`
	TitleBoostCap       float64      `mapstructure:"title_boost_cap"`
	ContentHeadroom     int          `mapstructure:"content_headroom"`
	ContentWeight       float64      `mapstructure:"content_weight"`
	CFWeight            float64      `mapstructure:"cf_weight"`
	ActiveStatuses      []string     `mapstructure:"active_statuses"`
	CollaboratorTimeout int          `mapstructure:"collaborator_timeout"` // milliseconds

	// FeedbackWeights maps feedback type names to implicit weights. It is
	// shared by the trainer and the memory-based fallback.
	FeedbackWeights map[string]float64 `mapstructure:"feedback_weights"`

	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures circuit breakers around remote collaborators.
type BreakerConfig struct {
	MaxRequests         uint32 `mapstructure:"max_requests"`
	Interval            int    `mapstructure:"interval"` // milliseconds
	Timeout             int    `mapstructure:"timeout"`  // milliseconds
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

// TrainingConfig holds BPR hyperparameter defaults.
type TrainingConfig struct {
	EmbeddingSize   int     `mapstructure:"embedding_size"`
	LearningRate    float64 `mapstructure:"learning_rate"`
	Epochs          int     `mapstructure:"epochs"`
	Regularization  float64 `mapstructure:"regularization"`
	Seed            int64   `mapstructure:"seed"`
	NegativeSamples int     `mapstructure:"negative_samples"`
	Validate        bool    `mapstructure:"validate"`
	EvalK           int     `mapstructure:"eval_k"`
}

// ModelStoreConfig locates persisted model bundles.
type ModelStoreConfig struct {
	Dir  string `mapstructure:"dir"`
	Name string `mapstructure:"name"`
	Keep int    `mapstructure:"keep"`
	// ReloadInterval in milliseconds; 0 disables polling for new bundles.
	ReloadInterval int `mapstructure:"reload_interval"`
}

// CacheConfig controls the per-entity embedding cache.
type CacheConfig struct {
	TTL       int    `mapstructure:"ttl"` // seconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

// IndexerConfig controls vector index synchronisation.
type IndexerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	BatchLimit  int `mapstructure:"batch_limit"`
}

// NotificationConfig holds settings for training notifications.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
		Region   string `mapstructure:"region"`
	} `mapstructure:"sns"`
}

// TracingConfig enables span export.
type TracingConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// RegistryConfig locates the activity registry.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
