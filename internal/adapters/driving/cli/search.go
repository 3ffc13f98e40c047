package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

const snippetRunes = 160

var (
	searchLimit    int
	searchJSON     bool
	searchCategory string
	searchPublic   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and returns the closest chunks from your documents.
Use --public to include the shared collection.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "only search this category")
	searchCmd.Flags().BoolVar(&searchPublic, "public", false, "include the shared collection")
	rootCmd.AddCommand(searchCmd)
}

// searchResult is the JSON shape of one hit.
type searchResult struct {
	Filename string  `json:"filename,omitempty"`
	Page     *int    `json:"page,omitempty"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return notConfigured("search")
	}

	opts := domain.RetrievalOptions{
		TopK:          searchLimit,
		Filter:        categoryFilter(searchCategory),
		IncludePublic: searchPublic,
	}

	hits, err := searchService.Search(cmd.Context(), ownerID, args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits)
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.SearchHit) error {
	results := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		r := searchResult{Score: h.Score, Text: h.Text}
		r.Filename, _ = h.Filename()
		if page, ok := h.Page(); ok {
			r.Page = &page
		}
		results = append(results, r)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, h := range hits {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, describeHit(h), h.Score)
		cmd.Printf("      %s\n", snippet(h.Text))
		cmd.Println()
	}
	return nil
}

// describeHit renders "file, page N" with the same fallbacks as the context blocks.
func describeHit(h domain.SearchHit) string {
	name, ok := h.Filename()
	if !ok {
		name = "unknown"
	}
	if page, ok := h.Page(); ok {
		return fmt.Sprintf("%s, page %d", name, page)
	}
	return name
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= snippetRunes {
		return text
	}
	return string(r[:snippetRunes]) + "..."
}

func categoryFilter(category string) domain.Filter {
	if category == "" {
		return nil
	}
	return domain.Filter{domain.MetaCategory: category}
}
