// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// applies APP_* environment overrides and fills defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

// Defaults returns a configuration holding only default values. It does not
// validate connection settings.
func Defaults() *Config {
	cfg := &Config{}
	for _, d := range policyDefaults {
		*d.field(&cfg.Recommender) = d.value
	}
	applyDefaults(cfg)
	return cfg
}

// policyDefaults are scoring constants for which 0 is a meaningful setting.
// They are registered as viper defaults so an explicit 0 in the file or
// environment is kept.
var policyDefaults = []struct {
	key   string
	value float64
	field func(r *RecommenderConfig) *float64
}{
	{"recommender.skill_weight", 0.3, func(r *RecommenderConfig) *float64 { return &r.SkillWeight }},
	{"recommender.min_threshold", 0.15, func(r *RecommenderConfig) *float64 { return &r.MinThreshold }},
	{"recommender.zero_overlap_penalty", 0.5, func(r *RecommenderConfig) *float64 { return &r.ZeroOverlapPenalty }},
	{"recommender.title_boost_per_token", 0.02, func(r *RecommenderConfig) *float64 { return &r.TitleBoostPerToken }},
	{"recommender.title_boost_cap", 0.05, func(r *RecommenderConfig) *float64 { return &r.TitleBoostCap }},
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, d := range policyDefaults {
		v.SetDefault(d.key, d.value)
	}
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up towards the project root.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests in test/e2e/
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from well-known environment variables.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	setIfEmpty(&cfg.Database.Elasticsearch.Password, "ELASTICSEARCH_PASSWORD")
	setIfEmpty(&cfg.Embedding.APIKey, "EMBEDDING_API_KEY")
	setIfEmpty(&cfg.Notifications.SNS.TopicARN, "TRAINING_SNS_TOPIC_ARN")
}

func setIfEmpty(dst *string, envKey string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*dst = val
	}
}

// DefaultFeedbackWeights is the implicit-feedback weight table.
func DefaultFeedbackWeights() map[string]float64 {
	return map[string]float64{
		"apply":   5.0,
		"save":    3.0,
		"like":    1.0,
		"view":    1.0,
		"dislike": 0.0,
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "job-recommender"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "job_postings"
	}
	if cfg.Database.Elasticsearch.VectorDims == 0 {
		cfg.Database.Elasticsearch.VectorDims = 768
	}

	// Embedding defaults
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 10000
	}

	// Recommender policy defaults
	r := &cfg.Recommender
	if r.TopN == 0 {
		r.TopN = 10
	}
	if r.FieldWeights == (FieldWeights{}) {
		r.FieldWeights = FieldWeights{Skills: 0.4, Title: 0.4, Description: 0.2}
	}
	if r.RetrievalMultiplier == 0 {
		r.RetrievalMultiplier = 5
	}
	if r.ContentHeadroom == 0 {
		r.ContentHeadroom = 2
	}
	if r.ContentWeight == 0 && r.CFWeight == 0 {
		r.ContentWeight = 0.8
		r.CFWeight = 0.2
	}
	if len(r.ActiveStatuses) == 0 {
		r.ActiveStatuses = []string{"ACTIVE", "APPROVED"}
	}
	if r.CollaboratorTimeout == 0 {
		r.CollaboratorTimeout = 5000
	}
	if len(r.FeedbackWeights) == 0 {
		r.FeedbackWeights = DefaultFeedbackWeights()
	}
	if r.Breaker.MaxRequests == 0 {
		r.Breaker.MaxRequests = 3
	}
	if r.Breaker.Interval == 0 {
		r.Breaker.Interval = 60000
	}
	if r.Breaker.Timeout == 0 {
		r.Breaker.Timeout = 30000
	}
	if r.Breaker.ConsecutiveFailures == 0 {
		r.Breaker.ConsecutiveFailures = 5
	}

	// Training defaults
	t := &cfg.Training
	if t.EmbeddingSize == 0 {
		t.EmbeddingSize = 64
	}
	if t.LearningRate == 0 {
		t.LearningRate = 0.001
	}
	if t.Epochs == 0 {
		t.Epochs = 30
	}
	if t.Regularization == 0 {
		t.Regularization = 0.01
	}
	if t.Seed == 0 {
		t.Seed = 42
	}
	if t.NegativeSamples == 0 {
		t.NegativeSamples = 100
	}
	if t.EvalK == 0 {
		t.EvalK = 10
	}

	if cfg.ModelStore.Dir == "" {
		cfg.ModelStore.Dir = "./models"
	}
	if cfg.ModelStore.Name == "" {
		cfg.ModelStore.Name = "bpr"
	}
	if cfg.ModelStore.Keep == 0 {
		cfg.ModelStore.Keep = 3
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 3600
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "recommender:cf"
	}

	if cfg.Indexer.Concurrency == 0 {
		cfg.Indexer.Concurrency = 4
	}
	if cfg.Indexer.BatchLimit == 0 {
		cfg.Indexer.BatchLimit = 500
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1.0
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}

	if cfg.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}

	return ValidateRecommender(cfg.Recommender)
}

// ValidateRecommender checks the scoring policy for values the scorers reject.
func ValidateRecommender(r RecommenderConfig) error {
	fw := r.FieldWeights
	if fw.Skills < 0 || fw.Title < 0 || fw.Description < 0 {
		return fmt.Errorf("recommender.field_weights must be non-negative")
	}
	if r.SkillWeight < 0 || r.SkillWeight > 1 {
		return fmt.Errorf("recommender.skill_weight must be within [0,1], got %v", r.SkillWeight)
	}
	if r.RetrievalMultiplier < 3 {
		return fmt.Errorf("recommender.retrieval_multiplier must be at least 3, got %d", r.RetrievalMultiplier)
	}
	if r.ContentWeight < 0 || r.ContentWeight > 1 || r.CFWeight < 0 || r.CFWeight > 1 {
		return fmt.Errorf("recommender.content_weight and cf_weight must be within [0,1]")
	}
	if r.ZeroOverlapPenalty < 0 || r.ZeroOverlapPenalty > 1 {
		return fmt.Errorf("recommender.zero_overlap_penalty must be within [0,1]")
	}
	for name, w := range r.FeedbackWeights {
		if w < 0 {
			return fmt.Errorf("recommender.feedback_weights.%s must be non-negative", name)
		}
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}
