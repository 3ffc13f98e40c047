package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for ragdesk resources.
	uriScheme = "ragdesk://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Documents != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "documents",
			Name:        "documents",
			Description: "Indexed documents with their status and chunk counts",
			MIMEType:    "application/json",
		}, s.handleDocumentsResource)
	}

	if s.ports.Sessions == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sessions",
		Name:        "sessions",
		Description: "Stored conversations, most recent first",
		MIMEType:    "application/json",
	}, s.handleSessionsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sessions/{sessionId}",
		Name:        "session-transcript",
		Description: "Transcript of a stored conversation",
		MIMEType:    "text/markdown",
	}, s.handleSessionResource)
}

// handleDocumentsResource returns the owner's documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Documents.List(ctx, s.ownerID, "")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return jsonResource(req.Params.URI, documentInfos(docs))
}

// handleSessionsResource returns the owner's session summaries.
func (s *Server) handleSessionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	summaries, err := s.ports.Sessions.List(ctx, s.ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	type sessionInfo struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Messages  int       `json:"messages"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	infos := make([]sessionInfo, len(summaries))
	for i, sum := range summaries {
		infos[i] = sessionInfo{
			ID:        sum.ID,
			Title:     sum.Title,
			Messages:  sum.MessageCount,
			UpdatedAt: sum.UpdatedAt,
		}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleSessionResource renders one session as a Markdown transcript.
func (s *Server) handleSessionResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sessionID := extractSessionID(req.Params.URI)
	if sessionID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	session, err := s.ports.Sessions.Get(ctx, s.ownerID, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     transcript(session),
		}},
	}, nil
}

func transcript(session *domain.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", session.Title)
	for _, m := range session.Messages {
		fmt.Fprintf(&b, "\n**%s:** %s\n", m.Role, m.Content)
	}
	return b.String()
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSessionID extracts the session ID from a URI like ragdesk://sessions/{sessionId}.
func extractSessionID(uri string) string {
	const prefix = uriScheme + "sessions/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
