package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const modelsTimeout = 5 * time.Second

// LocalModel describes a model installed on the local backend.
type LocalModel struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// LocalModels lists the models available on the local backend.
func (a *Adapter) LocalModels(ctx context.Context) ([]LocalModel, error) {
	base := strings.TrimSpace(a.cfg.OllamaBaseURL)
	if base == "" {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, modelsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build models request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, ProviderLocal, modelsTimeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newBackendError(ProviderLocal, resp)
	}

	var payload struct {
		Models []LocalModel `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}
	if payload.Models == nil {
		payload.Models = []LocalModel{}
	}
	return payload.Models, nil
}
