package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

var (
	serveAddr      string
	serveMaxUpload int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves documents, search, chat and sessions over HTTP with JSON
responses, plus server-sent events for streamed answers.

The caller is identified by the X-Owner-ID header. It scopes documents and
sessions but is not authentication; put the API behind a proxy that sets it.

Endpoints:
  GET    /health
  GET    /metrics
  POST   /api/documents          multipart upload (file, category, public)
  GET    /api/documents
  GET    /api/documents/:id
  DELETE /api/documents/:id
  GET    /api/search?q=
  POST   /api/chat
  POST   /api/chat/stream
  GET    /api/sessions
  GET    /api/sessions/:id
  PATCH  /api/sessions/:id
  DELETE /api/sessions/:id`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings, then "+domain.DefaultServerAddr+")")
	serveCmd.Flags().Int64Var(&serveMaxUpload, "max-upload", httpapi.DefaultMaxUploadBytes, "largest accepted upload in bytes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if documentService == nil || searchService == nil || chatService == nil || sessionService == nil {
		return notConfigured("chat")
	}

	server, err := httpapi.New(listenAddr(), httpapi.Ports{
		Documents: documentService,
		Search:    searchService,
		Chat:      chatService,
		Sessions:  sessionService,
	}, appMetrics, httpapi.WithMaxUploadBytes(serveMaxUpload))
	if err != nil {
		return err
	}

	cmd.Printf("Serving on %s (Ctrl+C to stop)\n", server.Addr())
	if err := server.Run(cmd.Context()); err != nil {
		return fmt.Errorf("serve failed: %w", err)
	}
	return nil
}

// listenAddr picks --addr, then the stored setting, then the default.
func listenAddr() string {
	if serveAddr != "" {
		return serveAddr
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil && settings.Server.Addr != "" {
			return settings.Server.Addr
		}
	}
	return domain.DefaultServerAddr
}
