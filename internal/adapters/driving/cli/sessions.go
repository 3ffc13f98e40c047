package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversations",
	Long:  `List, show, rename or delete stored conversations.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename [session-id] [title]",
	Short: "Rename a conversation",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSessionsRename,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return notConfigured("session")
	}

	summaries, err := sessionService.List(cmd.Context(), ownerID)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(summaries) == 0 {
		cmd.Println("No sessions found.")
		return nil
	}

	cmd.Println("Sessions:")
	cmd.Println()
	for _, s := range summaries {
		cmd.Printf("  %s  %s\n", s.ID, s.Title)
		cmd.Printf("    %d messages, updated %s\n", s.MessageCount, s.UpdatedAt.Format(timeLayout))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return notConfigured("session")
	}

	session, err := sessionService.Get(cmd.Context(), ownerID, args[0])
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	cmd.Printf("%s\n", session.Title)
	cmd.Printf("%s\n\n", strings.Repeat("=", len([]rune(session.Title))))
	for _, m := range session.Messages {
		cmd.Printf("[%s]\n%s\n\n", m.Role, m.Content)
	}
	cmd.Printf("%d turns, started %s\n", session.Turns(), session.CreatedAt.Format(timeLayout))
	return nil
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return notConfigured("session")
	}

	title := strings.Join(args[1:], " ")
	if err := sessionService.Rename(cmd.Context(), ownerID, args[0], title); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	cmd.Printf("Session %s renamed.\n", args[0])
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return notConfigured("session")
	}

	if err := sessionService.Delete(cmd.Context(), ownerID, args[0]); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	cmd.Printf("Session %s deleted.\n", args[0])
	return nil
}
