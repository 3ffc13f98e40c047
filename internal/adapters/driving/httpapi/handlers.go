package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
)

// uploadDocument ingests a multipart "file" field.
// Optional form fields: category, public.
func (s *Server) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			fail(c, http.StatusRequestEntityTooLarge, "too_large",
				fmt.Sprintf("upload exceeds %d bytes", s.maxUpload))
			return
		}
		fail(c, http.StatusBadRequest, "bad_request", "multipart field \"file\" is required")
		return
	}

	f, err := header.Open()
	if err != nil {
		failErr(c, err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		failErr(c, err)
		return
	}

	public, _ := strconv.ParseBool(c.PostForm("public"))
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalisers.DetectMIMEType(header.Filename, content)
	}

	result, err := s.ports.Documents.Ingest(c.Request.Context(), driving.IngestRequest{
		OwnerID:  ownerFrom(c),
		Filename: header.Filename,
		MIMEType: mimeType,
		Category: c.PostForm("category"),
		Public:   public,
		Content:  content,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	if !result.Success {
		fail(c, http.StatusUnprocessableEntity, "ingest_failed", result.Message)
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"message":  result.Message,
		"document": toDocumentView(result.Document),
	})
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.ports.Documents.List(c.Request.Context(), ownerFrom(c), c.Query("category"))
	if err != nil {
		failErr(c, err)
		return
	}

	views := make([]documentView, 0, len(docs))
	for i := range docs {
		views = append(views, toDocumentView(&docs[i]))
	}
	respond(c, http.StatusOK, views)
}

func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.ports.Documents.Get(c.Request.Context(), ownerFrom(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, toDocumentView(doc))
}

func (s *Server) deleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := s.ports.Documents.Delete(c.Request.Context(), ownerFrom(c), id); err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// search returns raw hits for ?q=, with optional top_k, category and public.
func (s *Server) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		fail(c, http.StatusBadRequest, "bad_request", "query parameter \"q\" is required")
		return
	}
	topK, _ := strconv.Atoi(c.Query("top_k"))
	public, _ := strconv.ParseBool(c.Query("public"))

	opts := domain.RetrievalOptions{TopK: topK, IncludePublic: public}
	if category := c.Query("category"); category != "" {
		opts.Filter = domain.Filter{domain.MetaCategory: category}
	}

	hits, err := s.ports.Search.Search(c.Request.Context(), ownerFrom(c), query, opts)
	if err != nil {
		failErr(c, err)
		return
	}

	views := make([]hitView, 0, len(hits))
	for _, h := range hits {
		views = append(views, hitView{Text: h.Text, Score: h.Score, Metadata: h.Metadata})
	}
	respond(c, http.StatusOK, views)
}

type chatRequest struct {
	Question      string `json:"question"`
	SessionID     string `json:"session_id"`
	Category      string `json:"category"`
	IncludePublic bool   `json:"include_public"`
	TopK          int    `json:"top_k"`
}

func (r chatRequest) toDriving(owner string) driving.ChatRequest {
	return driving.ChatRequest{
		OwnerID:       owner,
		SessionID:     r.SessionID,
		Question:      r.Question,
		Category:      r.Category,
		IncludePublic: r.IncludePublic,
		TopK:          r.TopK,
	}
}

func bindChat(c *gin.Context) (chatRequest, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", err.Error())
		return req, false
	}
	if req.Question == "" {
		fail(c, http.StatusBadRequest, "bad_request", "question is required")
		return req, false
	}
	return req, true
}

func (s *Server) chat(c *gin.Context) {
	req, ok := bindChat(c)
	if !ok {
		return
	}

	answer, err := s.ports.Chat.Ask(c.Request.Context(), req.toDriving(ownerFrom(c)))
	if answer != nil && (err == nil || errors.Is(err, domain.ErrPersistenceFailed)) {
		respond(c, http.StatusOK, toAnswerView(answer, err == nil))
		return
	}
	failErr(c, err)
}

// chatStream answers over server-sent events: one "token" event per
// fragment, then a "done" event with the session and sources, or an
// "error" event if generation fails after the stream started.
func (s *Server) chatStream(c *gin.Context) {
	req, ok := bindChat(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	answer, err := s.ports.Chat.AskStream(ctx, req.toDriving(ownerFrom(c)), func(fragment string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.SSEvent("token", gin.H{"text": fragment})
		c.Writer.Flush()
		return nil
	})

	if answer != nil && (err == nil || errors.Is(err, domain.ErrPersistenceFailed)) {
		view := toAnswerView(answer, err == nil)
		view.Answer = ""
		c.SSEvent("done", view)
		c.Writer.Flush()
		return
	}

	if ctx.Err() != nil {
		return
	}
	_, code := statusFor(err)
	c.SSEvent("error", apiError{Code: code, Message: err.Error()})
	c.Writer.Flush()
}

func (s *Server) listSessions(c *gin.Context) {
	summaries, err := s.ports.Sessions.List(c.Request.Context(), ownerFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}

	views := make([]sessionSummaryView, 0, len(summaries))
	for _, sum := range summaries {
		views = append(views, sessionSummaryView{
			ID:           sum.ID,
			Title:        sum.Title,
			MessageCount: sum.MessageCount,
			CreatedAt:    sum.CreatedAt,
			UpdatedAt:    sum.UpdatedAt,
		})
	}
	respond(c, http.StatusOK, views)
}

func (s *Server) getSession(c *gin.Context) {
	session, err := s.ports.Sessions.Get(c.Request.Context(), ownerFrom(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, toSessionView(session))
}

func (s *Server) renameSession(c *gin.Context) {
	var body struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	id := c.Param("id")
	if err := s.ports.Sessions.Rename(c.Request.Context(), ownerFrom(c), id, body.Title); err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "title": body.Title})
}

func (s *Server) deleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.ports.Sessions.Delete(c.Request.Context(), ownerFrom(c), id); err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
