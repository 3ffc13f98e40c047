// Package cli implements the ragdesk command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// annotationStandalone marks commands that run without the document pipeline.
const annotationStandalone = "ragdesk/standalone"

var (
	version = "dev"
	verbose bool
	logJSON bool
	ownerID string
)

// Services injected by SetServices or built by the bootstrap function.
var (
	documentService driving.DocumentService
	searchService   driving.SearchService
	chatService     driving.ChatService
	sessionService  driving.SessionService
	settingsService driving.SettingsService
	appMetrics      *metrics.Metrics
)

// Services groups the core services the commands drive.
type Services struct {
	Documents driving.DocumentService
	Search    driving.SearchService
	Chat      driving.ChatService
	Sessions  driving.SessionService
	Settings  driving.SettingsService
	Metrics   *metrics.Metrics
}

// BootstrapFunc builds the services from stored settings.
// The returned closer releases them after the command finishes.
type BootstrapFunc func(ctx context.Context) (Services, func(), error)

var (
	bootstrap BootstrapFunc
	closer    func()
)

var rootCmd = &cobra.Command{
	Use:   "ragdesk",
	Short: "Chat with your documents",
	Long: `ragdesk indexes PDF, Markdown and text files into a vector store and
answers questions about them with a language model.

Documents are split into chunks, embedded and stored per owner. Questions
retrieve the closest chunks and the answer cites the files and pages it used.
Conversations are kept as sessions that can be continued later.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", services.DefaultOwner, "owner scoping documents and sessions")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetSettingsService installs the settings service, which every command may use.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetBootstrap installs the function that builds the pipeline on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs ready-made services and skips bootstrapping.
func SetServices(s Services) {
	documentService = s.Documents
	searchService = s.Search
	chatService = s.Chat
	sessionService = s.Sessions
	if s.Settings != nil {
		settingsService = s.Settings
	}
	appMetrics = s.Metrics
}

// Execute runs the root command and releases bootstrapped services.
func Execute(ctx context.Context) error {
	defer func() {
		if closer != nil {
			closer()
			closer = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetJSON(logJSON)

	if standalone(cmd) || bootstrap == nil || documentService != nil {
		return nil
	}

	svc, release, err := bootstrap(cmd.Context())
	if err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	SetServices(svc)
	closer = release
	return nil
}

// standalone reports whether cmd or one of its parents skips bootstrapping.
func standalone(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationStandalone] == "true" {
			return true
		}
	}
	return false
}

func standaloneAnnotation() map[string]string {
	return map[string]string{annotationStandalone: "true"}
}

var errNotConfigured = errors.New("not configured")

func notConfigured(name string) error {
	return fmt.Errorf("%s service %w", name, errNotConfigured)
}
