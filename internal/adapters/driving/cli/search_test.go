package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/core/services"
)

const solarText = `Solar panels convert sunlight into electricity using photovoltaic cells.
Panel efficiency drops slightly as the temperature rises during summer.
Inverters turn the direct current from the panels into alternating current.`

// seedDocument ingests content for owner through the installed services.
func seedDocument(t *testing.T, svc Services, owner, filename, category, content string) *domain.Document {
	t.Helper()
	result, err := svc.Documents.Ingest(context.Background(), driving.IngestRequest{
		OwnerID:  owner,
		Filename: filename,
		MIMEType: "text/plain",
		Category: category,
		Content:  []byte(content),
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Message)
	return result.Document
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Short(t *testing.T) {
	assert.Equal(t, "Search indexed documents", searchCmd.Short)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestSearchCmd_NoResults(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "search", "solar panels")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	svc := setupTestServices(t)
	seedDocument(t, svc, services.DefaultOwner, "solar.txt", "", solarText)

	out, err := execute(t, "search", "solar panel efficiency")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] solar.txt")
}

func TestSearchCmd_ScopedByOwner(t *testing.T) {
	svc := setupTestServices(t)
	seedDocument(t, svc, "alice", "solar.txt", "", solarText)

	out, err := execute(t, "search", "--owner", "bob", "solar")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")

	out, err = execute(t, "search", "--owner", "alice", "solar")
	require.NoError(t, err)
	assert.Contains(t, out, "solar.txt")
}

func TestSearchCmd_JSON(t *testing.T) {
	svc := setupTestServices(t)
	seedDocument(t, svc, services.DefaultOwner, "solar.txt", "energy", solarText)

	out, err := execute(t, "search", "--json", "--limit", "1", "inverters")
	require.NoError(t, err)

	var results []searchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "solar.txt", results[0].Filename)
	assert.NotEmpty(t, results[0].Text)
}

func TestSearchCmd_CategoryFilter(t *testing.T) {
	svc := setupTestServices(t)
	seedDocument(t, svc, services.DefaultOwner, "solar.txt", "energy", solarText)

	out, err := execute(t, "search", "--category", "finance", "solar")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_NotConfigured(t *testing.T) {
	clearServices(t)

	_, err := execute(t, "search", "anything")

	assert.ErrorIs(t, err, errNotConfigured)
}

func TestDescribeHit(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		expected string
	}{
		{"filename and page", map[string]any{domain.MetaFilename: "a.pdf", domain.MetaPage: 2}, "a.pdf, page 2"},
		{"filename only", map[string]any{domain.MetaFilename: "b.md"}, "b.md"},
		{"nothing", map[string]any{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, describeHit(domain.SearchHit{Metadata: tt.metadata}))
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("  a\n b\t c "))

	long := strings.Repeat("x", snippetRunes+10)
	got := snippet(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, []rune(got), snippetRunes+3)
}

func TestCategoryFilter(t *testing.T) {
	assert.Nil(t, categoryFilter(""))
	assert.Equal(t, domain.Filter{domain.MetaCategory: "hr"}, categoryFilter("hr"))
}
