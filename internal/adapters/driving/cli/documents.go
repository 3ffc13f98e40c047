package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	documentsCategory string
	deleteByName      bool
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage indexed documents",
	Long:    `List, inspect or remove indexed documents.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document from the index",
	Long: `Removes the document's chunks from the vector index, its stored file
and its record. With --name the argument is a filename and every document
with that name is removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsDelete,
}

func init() {
	documentsListCmd.Flags().StringVarP(&documentsCategory, "category", "c", "", "only list this category")
	documentsDeleteCmd.Flags().BoolVar(&deleteByName, "name", false, "treat the argument as a filename")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return notConfigured("document")
	}

	docs, err := documentService.List(cmd.Context(), ownerID, documentsCategory)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File:   %s\n", docs[i].Filename)
		cmd.Printf("    Status: %s (%d chunks)\n", docs[i].Status, docs[i].ChunkCount)
		if docs[i].Category != "" {
			cmd.Printf("    Category: %s\n", docs[i].Category)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return notConfigured("document")
	}

	doc, err := documentService.Get(cmd.Context(), ownerID, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  File:       %s\n", doc.Filename)
	cmd.Printf("  Type:       %s\n", doc.MIMEType)
	cmd.Printf("  Size:       %d bytes\n", doc.Size)
	cmd.Printf("  Collection: %s\n", doc.Collection)
	cmd.Printf("  Status:     %s\n", doc.Status)
	cmd.Printf("  Chunks:     %d\n", doc.ChunkCount)
	if doc.Category != "" {
		cmd.Printf("  Category:   %s\n", doc.Category)
	}
	if doc.Error != "" {
		cmd.Printf("  Error:      %s\n", doc.Error)
	}
	cmd.Printf("  Created:    %s\n", doc.CreatedAt.Format(timeLayout))
	cmd.Printf("  Updated:    %s\n", doc.UpdatedAt.Format(timeLayout))
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return notConfigured("document")
	}

	if deleteByName {
		if err := documentService.DeleteByFilename(cmd.Context(), ownerID, args[0]); err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
		cmd.Printf("Documents named %s removed.\n", args[0])
		return nil
	}

	if err := documentService.Delete(cmd.Context(), ownerID, args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Document %s removed.\n", args[0])
	return nil
}
