// Package embedding talks to the text embedding service.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"job-recommender/internal/common/config"
	commonhttp "job-recommender/internal/common/http"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/resilience"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Client embeds text via POST {base_url}/api/embed.
type Client struct {
	http    *commonhttp.Client
	baseURL string
	model   string
	apiKey  string
	breaker *gobreaker.CircuitBreaker[[]float32]
	logger  logger.Logger
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewClient creates an embedding client. The HTTP timeout is a backstop;
// callers bound each call with their own context deadline.
func NewClient(cfg config.EmbeddingConfig, breaker config.BreakerConfig, log logger.Logger) *Client {
	log = log.WithFields(map[string]interface{}{"component": "embedding"})
	return &Client{
		http:    commonhttp.NewClient(2 * config.GetDuration(cfg.Timeout)),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		breaker: resilience.NewBreaker[[]float32]("embedding", breaker, log),
		logger:  log,
	}
}

// Embed returns the vector for text, or nil for blank input.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	start := time.Now()
	vec, err := c.breaker.Execute(func() ([]float32, error) {
		return c.embed(ctx, text)
	})
	if err != nil {
		c.logger.Warn("embedding request failed", map[string]interface{}{
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return nil, err
	}
	return vec, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp embedResponse
	err := c.http.PostJSON(ctx, c.baseURL+"/api/embed", headers, embedRequest{Model: c.model, Input: text}, &resp)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("embed: empty response")
	}
	return resp.Embeddings[0], nil
}
