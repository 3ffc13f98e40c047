package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query         string `json:"query" jsonschema:"the search query to find passages"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	Category      string `json:"category,omitempty" jsonschema:"only return passages from documents with this category"`
	IncludePublic bool   `json:"include_public,omitempty" jsonschema:"also search documents shared with every owner"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved passage.
type SearchResultOutput struct {
	Filename string  `json:"filename,omitempty"`
	Page     int     `json:"page,omitempty"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question      string `json:"question" jsonschema:"the question to answer from the documents"`
	SessionID     string `json:"session_id,omitempty" jsonschema:"continue this conversation; omit to start a new one"`
	Category      string `json:"category,omitempty" jsonschema:"only use documents with this category"`
	IncludePublic bool   `json:"include_public,omitempty" jsonschema:"also use documents shared with every owner"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	SessionID string          `json:"session_id"`
	State     string          `json:"state"`
	Title     string          `json:"title"`
	Answer    string          `json:"answer"`
	Sources   []domain.Source `json:"sources"`
	Persisted bool            `json:"persisted"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Filename string `json:"filename" jsonschema:"display name; the extension selects the format (.md or .txt)"`
	Content  string `json:"content" jsonschema:"the document text"`
	Category string `json:"category,omitempty" jsonschema:"label stored with every chunk"`
	Public   bool   `json:"public,omitempty" jsonschema:"share the document with every owner"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	DocumentID string `json:"document_id,omitempty"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Chunks     int    `json:"chunks"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Category string `json:"category,omitempty" jsonschema:"only list documents with this category"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []documentInfo `json:"documents"`
	Count     int            `json:"count"`
}

type documentInfo struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the passages of the indexed documents closest to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documents and record it in a conversation",
	}, s.handleAsk)

	if s.ports.Documents == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Index a text or Markdown document so it can be searched",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the indexed documents",
	}, s.handleListDocuments)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.RetrievalOptions{
		TopK:          input.Limit,
		IncludePublic: input.IncludePublic,
	}
	if input.Category != "" {
		opts.Filter = domain.Filter{domain.MetaCategory: input.Category}
	}

	hits, err := s.ports.Search.Search(ctx, s.ownerID, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i, h := range hits {
		out := SearchResultOutput{Score: h.Score, Text: h.Text}
		out.Filename, _ = h.Filename()
		out.Page, _ = h.Page()
		if category, ok := h.Metadata[domain.MetaCategory].(string); ok {
			out.Category = category
		}
		output.Results[i] = out
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Chat.Ask(ctx, driving.ChatRequest{
		OwnerID:       s.ownerID,
		SessionID:     input.SessionID,
		Question:      input.Question,
		Category:      input.Category,
		IncludePublic: input.IncludePublic,
	})
	if answer == nil || (err != nil && !errors.Is(err, domain.ErrPersistenceFailed)) {
		if err == nil {
			err = errors.New("no answer produced")
		}
		return nil, AskOutput{}, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return nil, AskOutput{
		SessionID: answer.SessionID,
		State:     answer.State.String(),
		Title:     answer.Title,
		Answer:    answer.Answer,
		Sources:   sources,
		Persisted: err == nil,
	}, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	content := []byte(input.Content)
	result, err := s.ports.Documents.Ingest(ctx, driving.IngestRequest{
		OwnerID:  s.ownerID,
		Filename: input.Filename,
		MIMEType: normalisers.DetectMIMEType(input.Filename, content),
		Category: input.Category,
		Public:   input.Public,
		Content:  content,
	})
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("ingesting %s: %w", input.Filename, err)
	}

	output := IngestOutput{Success: result.Success, Message: result.Message}
	if result.Document != nil {
		output.DocumentID = result.Document.ID
		output.Chunks = result.Document.ChunkCount
	}
	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Documents.List(ctx, s.ownerID, input.Category)
	if err != nil {
		return nil, ListDocumentsOutput{}, fmt.Errorf("listing documents: %w", err)
	}

	infos := documentInfos(docs)
	return nil, ListDocumentsOutput{Documents: infos, Count: len(infos)}, nil
}

func documentInfos(docs []domain.Document) []documentInfo {
	infos := make([]documentInfo, len(docs))
	for i := range docs {
		infos[i] = documentInfo{
			ID:       docs[i].ID,
			Filename: docs[i].Filename,
			Category: docs[i].Category,
			Status:   docs[i].Status.String(),
			Chunks:   docs[i].ChunkCount,
		}
	}
	return infos
}
