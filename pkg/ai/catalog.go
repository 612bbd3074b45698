package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const modelCacheFilename = "models_cache.json"

// ModelInfo describes a model offered by a provider.
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	ContextLength int64  `json:"context_length,omitempty"`
}

// ModelCache stores a provider's model list with a timestamp.
type ModelCache struct {
	Provider  ProviderType `json:"provider"`
	UpdatedAt time.Time    `json:"updated_at"`
	Models    []ModelInfo  `json:"models"`
}

// CatalogRequest identifies the listing endpoint of a provider.
type CatalogRequest struct {
	Provider ProviderType
	APIURL   string
	APIKey   string
}

// DefaultModelCachePath returns the cache file for a provider's model list.
func DefaultModelCachePath(provider ProviderType) string {
	name := string(provider) + "_" + modelCacheFilename
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".chatkit", name)
	}
	return filepath.Join(homeDir, ".chatkit", name)
}

// FetchModels lists the models a provider serves. OpenAI-compatible
// providers are read from {api_url}/models and Ollama from {api_url}/api/tags.
func FetchModels(ctx context.Context, client *http.Client, req CatalogRequest) ([]ModelInfo, error) {
	listURL, err := buildModelsURL(req.Provider, req.APIURL)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create models request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if key := strings.TrimSpace(req.APIKey); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read models response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("models request failed (%d): %s", resp.StatusCode, strings.TrimSpace(truncate(string(body), 2048)))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode models response: invalid JSON")
	}

	models := parseModelList(req.Provider, body)
	sort.Slice(models, func(i, j int) bool {
		return models[i].ID < models[j].ID
	})
	return models, nil
}

func parseModelList(provider ProviderType, body []byte) []ModelInfo {
	var models []ModelInfo
	if provider == ProviderOllama {
		gjson.GetBytes(body, "models").ForEach(func(_, m gjson.Result) bool {
			if id := m.Get("name").String(); id != "" {
				models = append(models, ModelInfo{ID: id, Name: m.Get("model").String()})
			}
			return true
		})
		return models
	}

	gjson.GetBytes(body, "data").ForEach(func(_, m gjson.Result) bool {
		if id := m.Get("id").String(); id != "" {
			models = append(models, ModelInfo{
				ID:            id,
				Name:          m.Get("name").String(),
				ContextLength: m.Get("context_length").Int(),
			})
		}
		return true
	})
	return models
}

// RefreshModelCache fetches models and writes the cache to disk.
func RefreshModelCache(ctx context.Context, client *http.Client, req CatalogRequest, cachePath string) (ModelCache, error) {
	models, err := FetchModels(ctx, client, req)
	if err != nil {
		return ModelCache{}, err
	}

	cache := ModelCache{
		Provider:  req.Provider,
		UpdatedAt: time.Now().UTC(),
		Models:    models,
	}
	if err := SaveModelCache(cachePath, cache); err != nil {
		return ModelCache{}, err
	}

	return cache, nil
}

// LoadModelCache loads the model cache from disk.
func LoadModelCache(path string) (ModelCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelCache{}, err
	}

	var cache ModelCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return ModelCache{}, fmt.Errorf("parse model cache: %w", err)
	}

	return cache, nil
}

// SaveModelCache writes the model cache to disk.
func SaveModelCache(path string, cache ModelCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create model cache directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write model cache: %w", err)
	}

	return nil
}

func buildModelsURL(provider ProviderType, apiURL string) (string, error) {
	switch provider {
	case ProviderOpenAI, ProviderOpenRouter, ProviderOllama:
	default:
		return "", fmt.Errorf("model listing is not supported for provider %q", provider)
	}

	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		return "", fmt.Errorf("api_url is required")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid api_url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("api_url must include scheme and host")
	}

	basePath := strings.TrimRight(parsed.Path, "/")
	if provider == ProviderOllama {
		parsed.Path = basePath + "/api/tags"
	} else {
		parsed.Path = basePath + "/models"
	}

	return parsed.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
