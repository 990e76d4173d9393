package rankjobs

import (
	"fmt"
	"time"

	"job-recommender/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	MaxTopN int
	// InputSchema overrides the built-in schema, usually from the activity registry.
	InputSchema map[string]interface{}
}

func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		MaxTopN: 100,
	}
}

// ConfigFromApp builds the worker config from the application config.
func ConfigFromApp(cfg *config.Config, inputSchema map[string]interface{}) *Config {
	c := DefaultConfig()
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
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
	return nil
}
