// Package pdf extracts page text from PDF files using poppler's pdftotext.
//
// Every document is read twice: once with -layout, which keeps column
// alignment, and once in reading order. Per page, the layout text is used
// when it looks tabular and the reading-order text otherwise.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// pdfMagic opens every PDF file.
var pdfMagic = []byte("%PDF-")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor handles PDF documents.
type Extractor struct {
	runner CommandRunner
}

// New creates a PDF extractor that shells out to pdftotext.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates a PDF extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install pdftotext per platform.
func InstallInstructions() string {
	return `pdftotext is provided by poppler:
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract returns the text of every page in physical order.
func (e *Extractor) Extract(ctx context.Context, content []byte) ([]domain.Page, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(content, " \t\r\n"), pdfMagic) {
		return nil, fmt.Errorf("missing PDF header: %w", domain.ErrUnsupportedFormat)
	}

	tmp, err := os.CreateTemp("", "ragdesk-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	layoutOut, layoutErr := e.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	plainOut, plainErr := e.runner.Run(ctx, toolName, "-enc", "UTF-8", tmp.Name(), "-")
	if layoutErr != nil && plainErr != nil {
		if errors.Is(plainErr, ErrPDFToolNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, ErrPDFToolNotFound)
		}
		return nil, fmt.Errorf("pdftotext failed: %w: %w", domain.ErrExtractionFailed, plainErr)
	}

	var layoutPages, plainPages []string
	if layoutErr == nil {
		layoutPages = splitPages(string(layoutOut))
	}
	if plainErr == nil {
		plainPages = splitPages(string(plainOut))
	}

	count := max(len(layoutPages), len(plainPages))
	if count == 0 {
		return nil, fmt.Errorf("no pages: %w", domain.ErrExtractionFailed)
	}

	pages := make([]domain.Page, count)
	for i := range pages {
		pages[i] = domain.Page{
			Index: i + 1,
			Text:  normalisers.CleanText(choosePageText(pageAt(layoutPages, i), pageAt(plainPages, i))),
		}
	}
	return pages, nil
}

// choosePageText prefers the layout rendering for tables and the reading-order
// rendering for prose. Either side may be missing for a page.
func choosePageText(layout, plain string) string {
	if looksTabular(layout) {
		return layout
	}
	if strings.TrimSpace(plain) == "" {
		return layout
	}
	return plain
}

// columnGap is a run of two or more spaces between two non-space characters.
var columnGap = regexp.MustCompile(`\S {2,}\S`)

// minTableRows is how many multi-column lines make a page tabular.
const minTableRows = 2

// looksTabular reports whether several lines hold three or more columns.
func looksTabular(text string) bool {
	rows := 0
	for _, line := range strings.Split(text, "\n") {
		if len(columnGap.FindAllStringIndex(strings.TrimSpace(line), -1)) >= 2 {
			rows++
			if rows >= minTableRows {
				return true
			}
		}
	}
	return false
}

// splitPages splits pdftotext output on form feeds. pdftotext ends every
// page, including the last, with one.
func splitPages(out string) []string {
	if out == "" {
		return nil
	}
	pages := strings.Split(out, "\f")
	if strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

func pageAt(pages []string, i int) string {
	if i < len(pages) {
		return pages[i]
	}
	return ""
}
