package recommendcf

import (
	"fmt"
	"time"

	"job-recommender/internal/common/config"
)

type Config struct {
	Timeout     time.Duration
	DefaultTopN int
	MaxTopN     int
	InputSchema map[string]interface{}
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:     10 * time.Second,
		DefaultTopN: 10,
		MaxTopN:     100,
	}
}

// ConfigFromApp builds the worker config from the application config.
func ConfigFromApp(cfg *config.Config, inputSchema map[string]interface{}) *Config {
	c := DefaultConfig()
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	if cfg.Recommender.TopN > 0 {
		c.DefaultTopN = cfg.Recommender.TopN
	}
	c.InputSchema = inputSchema
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxTopN <= 0 {
		return fmt.Errorf("max top_n must be positive")
	}
	if c.DefaultTopN <= 0 || c.DefaultTopN > c.MaxTopN {
		return fmt.Errorf("default top_n must be between 1 and %d", c.MaxTopN)
	}
	return nil
}
