// Package qdrant provides a vector backend backed by the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorBackend = (*Store)(nil)

// textKey holds the chunk text in each point's payload.
const textKey = "text"

// Config configures the Qdrant client.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Store is a minimal REST client to Qdrant.
// Collections always use cosine distance.
type Store struct {
	url    string
	apiKey string
	client *http.Client
}

// New creates a Qdrant store. It does not contact the server; call Ping for that.
func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns the backend name.
func (s *Store) Name() string { return "qdrant" }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Ping checks the server answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/collections", nil, nil)
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection creates the collection if it does not exist.
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int, _ domain.Metric) error {
	if name == "" || dim <= 0 {
		return domain.ErrInvalidInput
	}

	var info collectionInfo
	err := s.do(ctx, http.MethodGet, collectionPath(name), nil, &info)
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != dim {
			return fmt.Errorf("collection %s has %d dimensions, want %d: %w", name, size, dim, domain.ErrDimensionMismatch)
		}
		return nil
	case !errors.Is(err, domain.ErrCollectionNotFound):
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, collectionPath(name), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// CollectionExists reports whether the collection has been created.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	err := s.do(ctx, http.MethodGet, collectionPath(name), nil, nil)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Upsert writes all points in a single request and waits for it to be applied.
func (s *Store) Upsert(ctx context.Context, name string, points []domain.IndexedPoint) error {
	if len(points) == 0 {
		return nil
	}
	body := make([]map[string]any, len(points))
	for i, p := range points {
		payload := make(map[string]any, len(p.Metadata)+1)
		for k, v := range p.Metadata {
			payload[k] = v
		}
		payload[textKey] = p.Text
		body[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": payload,
		}
	}
	return s.do(ctx, http.MethodPut, collectionPath(name)+"/points?wait=true", map[string]any{"points": body}, nil)
}

// Search returns up to topK points ordered by descending score.
func (s *Store) Search(
	ctx context.Context, name string, vector []float32, topK int, filter domain.Filter,
) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, collectionPath(name)+"/points/search", req, &resp); err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		text, _ := r.Payload[textKey].(string)
		meta := make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			if k != textKey {
				meta[k] = v
			}
		}
		hits = append(hits, domain.SearchHit{Text: text, Score: r.Score, Metadata: meta})
	}
	return hits, nil
}

// DeleteByField removes every point whose payload[field] equals value.
func (s *Store) DeleteByField(ctx context.Context, name, field string, value any) error {
	body := map[string]any{"filter": buildFilter(domain.Filter{field: value})}
	return s.do(ctx, http.MethodPost, collectionPath(name)+"/points/delete?wait=true", body, nil)
}

// buildFilter converts equality conditions to a Qdrant "must" filter.
func buildFilter(filter domain.Filter) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": v},
		})
	}
	return map[string]any{"must": must}
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// do sends a JSON request and decodes the response into out when non-nil.
// Transport failures and 5xx map to ErrVectorIndexUnavailable, 404 to ErrCollectionNotFound.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w: %w", method, path, domain.ErrVectorIndexUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("qdrant %s: %w", path, domain.ErrCollectionNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("qdrant %s %s: %s: %w", method, path, resp.Status, domain.ErrVectorIndexUnavailable)
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
