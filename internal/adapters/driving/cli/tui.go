package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui"
)

// tuiCmd represents the interactive chat command.
var tuiCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive chat",
	Long: `Launch the interactive terminal chat for ragdesk.

Answers stream in as they are generated and cite the files and pages they
were drawn from. Past conversations can be resumed from the menu, and
ingested documents can be reviewed or removed.

Controls:
  Enter    - Send / Select
  Ctrl+N   - New conversation
  PgUp/Dn  - Scroll the transcript
  d        - Delete (lists)
  Esc      - Back
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if chatService == nil || sessionService == nil {
		return notConfigured("chat")
	}

	app, err := tui.NewApp(&tui.Ports{
		Chat:      chatService,
		Sessions:  sessionService,
		Documents: documentService,
	}, ownerID)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
