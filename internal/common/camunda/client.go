// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"job-recommender/internal/common/config"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/resilience"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client with connection retry and health checks.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig defines how often the initial connection is attempted.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
}

// ConfigFromApp builds a ClientConfig from the camunda section.
func ConfigFromApp(cfg config.CamundaConfig) *ClientConfig {
	return &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.RequestTimeout),
		RetryConfig:            DefaultRetryConfig,
	}
}

// NewClientWithConfig connects to the gateway, retrying transient failures
// until the broker answers a topology request.
func NewClientWithConfig(ctx context.Context, cfg *ClientConfig, log logger.Logger) (*Client, error) {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	var zeebeClient zbc.Client
	err := resilience.RetryWithBackoff(ctx, "zeebe connection", cfg.RetryConfig.MaxRetries, cfg.RetryConfig.BaseDelay, log,
		func(ctx context.Context) error {
			c, err := zbc.NewClient(&zbc.ClientConfig{
				GatewayAddress:         cfg.GatewayAddress,
				UsePlaintextConnection: cfg.UsePlaintextConnection,
			})
			if err != nil {
				return fmt.Errorf("failed to create Zeebe client: %w", err)
			}

			pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
			defer cancel()
			if _, err := c.NewTopologyCommand().Send(pingCtx); err != nil {
				_ = c.Close()
				return fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.GatewayAddress, err)
			}
			zeebeClient = c
			return nil
		})
	if err != nil {
		return nil, err
	}

	return &Client{client: zeebeClient, config: cfg}, nil
}

// Zeebe returns the raw Zeebe client used to open job workers.
func (c *Client) Zeebe() zbc.Client {
	return c.client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck performs a topology request against the broker.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
