package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

var (
	askSession  string
	askStream   bool
	askCategory string
	askTopK     int
	askJSON     bool
	askPublic   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the chunks closest to the question and asks the language model
to answer from them. The exchange is stored as a session; pass --session to
continue an earlier one.

Examples:
  ragdesk ask "What does the warranty cover?"
  ragdesk ask --stream --category manuals "How do I reset the device?"
  ragdesk ask --session 3f1c... "And for the older model?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "continue this session")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer as it is generated")
	askCmd.Flags().StringVarP(&askCategory, "category", "c", "", "only retrieve from this category")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (0 = configured default)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askPublic, "public", false, "include the shared collection")
	rootCmd.AddCommand(askCmd)
}

// askOutput is the JSON shape of an answer.
type askOutput struct {
	SessionID string          `json:"session_id"`
	State     string          `json:"state"`
	Title     string          `json:"title"`
	Answer    string          `json:"answer"`
	Sources   []domain.Source `json:"sources"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return notConfigured("chat")
	}

	req := driving.ChatRequest{
		OwnerID:       ownerID,
		SessionID:     askSession,
		Question:      args[0],
		Category:      askCategory,
		IncludePublic: askPublic,
		TopK:          askTopK,
	}

	var (
		answer *domain.Answer
		err    error
	)
	streaming := askStream && !askJSON
	if streaming {
		out := cmd.OutOrStdout()
		answer, err = chatService.AskStream(cmd.Context(), req, func(fragment string) error {
			_, werr := io.WriteString(out, fragment)
			return werr
		})
		if answer != nil {
			cmd.Println()
		}
	} else {
		answer, err = chatService.Ask(cmd.Context(), req)
	}

	if answer == nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		if jerr := outputAnswerJSON(cmd, answer); jerr != nil {
			return jerr
		}
	} else {
		outputAnswer(cmd, answer, !streaming)
	}

	if err != nil {
		if errors.Is(err, domain.ErrPersistenceFailed) {
			return fmt.Errorf("answer was not saved: %w", err)
		}
		return err
	}
	return nil
}

func outputAnswer(cmd *cobra.Command, answer *domain.Answer, withText bool) {
	if withText {
		cmd.Println(answer.Answer)
	}
	cmd.Println()

	if len(answer.Sources) > 0 {
		cmd.Println("Sources:")
		for i, src := range answer.Sources {
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, describeSource(src), src.Score)
		}
		cmd.Println()
	}

	cmd.Printf("Session: %s (%s)\n", answer.SessionID, answer.Title)
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	data, err := json.MarshalIndent(askOutput{
		SessionID: answer.SessionID,
		State:     answer.State.String(),
		Title:     answer.Title,
		Answer:    answer.Answer,
		Sources:   sources,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func describeSource(src domain.Source) string {
	name := "unknown"
	if src.Filename != nil {
		name = *src.Filename
	}
	if src.Page != nil {
		return fmt.Sprintf("%s, page %d", name, *src.Page)
	}
	return name
}
