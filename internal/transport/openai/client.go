// Package openai implements embedding and answering providers on the OpenAI-compatible API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ClientConfig holds connection settings shared by the embedder and the answerer.
// A non-empty APIVersion selects Azure OpenAI: BaseURL is the resource endpoint and
// Deployment names the model deployment (the model name is used when empty).
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	APIVersion  string
	Deployment  string
	HTTPTimeout time.Duration
}

func newClient(cfg ClientConfig) *openai.Client {
	var clientCfg openai.ClientConfig
	if cfg.APIVersion != "" {
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		clientCfg.APIVersion = cfg.APIVersion
		if cfg.Deployment != "" {
			deployment := cfg.Deployment
			clientCfg.AzureModelMapperFunc = func(string) string { return deployment }
		}
	} else {
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
	}
	if cfg.HTTPTimeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return openai.NewClientWithConfig(clientCfg)
}

func listModels(ctx context.Context, c *openai.Client) error {
	if _, err := c.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
