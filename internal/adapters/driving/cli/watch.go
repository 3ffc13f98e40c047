package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/watcher"
)

var (
	watchInclude  []string
	watchExclude  []string
	watchCategory string
	watchPublic   bool
	watchNoScan   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory indexed",
	Long: `Ingests the matching files in a directory, then watches it and ingests
files as they are created or changed. Removing a file removes its document.

Patterns are doublestar globs relative to the directory.

Examples:
  ragdesk watch ~/Documents/manuals
  ragdesk watch --include '**/*.pdf' --exclude '**/drafts/**' ./papers`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchInclude, "include", watcher.DefaultInclude, "globs of files to index")
	watchCmd.Flags().StringSliceVar(&watchExclude, "exclude", watcher.DefaultExclude, "globs of files to skip")
	watchCmd.Flags().StringVarP(&watchCategory, "category", "c", "", "category stored with every chunk")
	watchCmd.Flags().BoolVar(&watchPublic, "public", false, "store in the shared collection")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "skip indexing existing files at startup")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return notConfigured("document")
	}

	w, err := watcher.New(documentService, args[0], watcher.Options{
		OwnerID:  ownerID,
		Category: watchCategory,
		Public:   watchPublic,
		Include:  watchInclude,
		Exclude:  watchExclude,
		Report:   func(r watcher.Result) { printWatchResult(cmd, r) },
	})
	if err != nil {
		return err
	}

	if !watchNoScan {
		n, err := w.Scan(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Indexed %d existing files.\n", n)
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Root())
	if err := w.Start(cmd.Context()); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

func printWatchResult(cmd *cobra.Command, r watcher.Result) {
	switch r.Action {
	case watcher.ActionFailed:
		if r.Err != nil {
			cmd.Printf("  FAILED  %s: %v\n", r.Message, r.Err)
			return
		}
		cmd.Printf("  FAILED  %s\n", r.Message)
	case watcher.ActionRemoved:
		cmd.Printf("  REMOVED %s\n", r.Message)
	default:
		cmd.Printf("  OK      %s\n", r.Message)
	}
}
