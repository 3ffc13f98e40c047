package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches extraction to the highest-priority extractor for a MIME type.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.TextExtractor
}

// NewRegistry creates a registry holding the given extractors.
func NewRegistry(extractors ...driven.TextExtractor) *Registry {
	r := &Registry{}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor to the registry.
func (r *Registry) Register(extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, extractor)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() > r.extractors[j].Priority()
	})
}

// Extract runs the best matching extractor.
func (r *Registry) Extract(ctx context.Context, mimeType string, content []byte) ([]domain.Page, error) {
	extractor := r.find(baseType(mimeType))
	if extractor == nil {
		return nil, fmt.Errorf("no extractor for %q: %w", mimeType, domain.ErrUnsupportedFormat)
	}
	return extractor.Extract(ctx, content)
}

// SupportedMIMETypes returns all MIME types that can be extracted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, e := range r.extractors {
		for _, t := range e.SupportedMIMETypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

func (r *Registry) find(mimeType string) driven.TextExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.extractors {
		for _, t := range e.SupportedMIMETypes() {
			if t == mimeType {
				return e
			}
		}
	}
	return nil
}

// extensionTypes covers extensions the system mime table often lacks.
var extensionTypes = map[string]string{
	".pdf":      "application/pdf",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
}

// DetectMIMEType guesses a content type from the file extension, falling
// back to sniffing the first bytes.
func DetectMIMEType(filename string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return baseType(t)
	}
	return baseType(http.DetectContentType(content))
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
