package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
)

var (
	ingestCategory string
	ingestPublic   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Index documents",
	Long: `Extracts text from each file, splits it into chunks and stores the
embedded chunks in the vector index.

Supported formats are PDF, Markdown and plain text. Ingesting a file with the
same name again replaces the earlier version.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCategory, "category", "c", "", "category stored with every chunk")
	ingestCmd.Flags().BoolVar(&ingestPublic, "public", false, "store in the shared collection")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return notConfigured("document")
	}

	failed := 0
	for _, path := range args {
		result, err := ingestFile(cmd.Context(), path)
		if err != nil {
			return err
		}
		if !result.Success {
			failed++
			cmd.Printf("  FAILED  %s\n", result.Message)
			continue
		}
		cmd.Printf("  OK      %s\n", result.Message)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(args))
	}
	return nil
}

func ingestFile(ctx context.Context, path string) (*domain.IngestResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	result, err := documentService.Ingest(ctx, driving.IngestRequest{
		OwnerID:  ownerID,
		Filename: filepath.Base(path),
		MIMEType: normalisers.DetectMIMEType(path, content),
		Category: ingestCategory,
		Public:   ingestPublic,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}
	return result, nil
}
