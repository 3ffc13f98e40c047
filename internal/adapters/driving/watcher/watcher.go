// Package watcher keeps the index in step with a directory on disk.
//
// Created and modified files matching the include globs are ingested; removed
// files have their documents deleted. Bursts of events for one file are
// collapsed into a single action once the file has been quiet for the
// debounce interval.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
)

// DefaultDebounce is how long a file must be quiet before it is processed.
const DefaultDebounce = 500 * time.Millisecond

var (
	// DefaultInclude matches every supported document format.
	DefaultInclude = []string{"**/*.{pdf,md,markdown,txt}"}

	// DefaultExclude skips hidden files and directories.
	DefaultExclude = []string{"**/.*", "**/.*/**"}
)

// ErrInvalidPattern indicates a malformed include or exclude glob.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// Action is what the watcher did with a file.
type Action string

const (
	ActionIngested Action = "ingested"
	ActionRemoved  Action = "removed"
	ActionFailed   Action = "failed"
)

// Result reports one processed file.
type Result struct {
	Path    string
	Action  Action
	Message string
	Err     error
}

// Options configures a Watcher.
type Options struct {
	// OwnerID owns every ingested document.
	OwnerID string

	// Category is stored with every chunk.
	Category string

	// Public ingests into the shared collection.
	Public bool

	// Include and Exclude are doublestar globs relative to the root.
	// An empty Include uses DefaultInclude; a nil Exclude uses DefaultExclude.
	Include []string
	Exclude []string

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	// Report is called after each file is processed. It may be nil.
	Report func(Result)
}

// Watcher mirrors a directory into the document index.
type Watcher struct {
	docs driving.DocumentService
	root string
	opts Options

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	pending map[string]*time.Timer
	ready   chan string
	wg      sync.WaitGroup
}

// New creates a watcher for root. Patterns are validated up front.
func New(docs driving.DocumentService, root string, opts Options) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: %w: not a directory", root, domain.ErrInvalidInput)
	}

	if len(opts.Include) == 0 {
		opts.Include = DefaultInclude
	}
	if opts.Exclude == nil {
		opts.Exclude = DefaultExclude
	}
	for _, p := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	return &Watcher{
		docs:    docs,
		root:    abs,
		opts:    opts,
		pending: make(map[string]*time.Timer),
		ready:   make(chan string),
	}, nil
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Matches reports whether a slash-separated path relative to the root is watched.
func (w *Watcher) Matches(rel string) bool {
	if !matchAny(w.opts.Include, rel) {
		return false
	}
	return !matchAny(w.opts.Exclude, rel)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Scan ingests every matching file already under the root.
// It returns the number of files processed.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	var paths []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && w.Matches(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", w.root, err)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		w.apply(ctx, path)
	}
	return len(paths), nil
}

// Start watches the root until ctx is done or Stop is called.
// It blocks; calling it on a running watcher returns immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create watcher: %w", err)
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	w.mu.Unlock()

	defer w.wg.Done()
	defer w.halt()
	defer fsw.Close()

	if err := addTree(fsw, w.root); err != nil {
		return err
	}
	logger.Info("watching %s", w.root)

	return w.run(ctx, fsw)
}

// Stop ends a running watcher and waits for the current file to finish.
func (w *Watcher) Stop() error {
	w.halt()
	w.wg.Wait()
	return nil
}

func (w *Watcher) halt() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.running = false
		close(w.stopCh)
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) error {
	w.mu.Lock()
	stop := w.stopCh
	w.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, event)
		case path := <-w.ready:
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
			w.apply(ctx, path)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addDir(fsw, event.Name)
			return
		}
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	rel, ok := w.relative(event.Name)
	if !ok || !w.Matches(rel) {
		return
	}
	w.schedule(event.Name)
}

// addDir watches a directory created after startup and queues the files
// already inside it, since they produce no events of their own.
func (w *Watcher) addDir(fsw *fsnotify.Watcher, dir string) {
	if hidden(filepath.Base(dir)) {
		return
	}
	if err := addTree(fsw, dir); err != nil {
		logger.Warn("watcher: %v", err)
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && w.Matches(rel) {
			w.schedule(path)
		}
		return nil
	})
}

// schedule (re)starts the quiet period for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	stop := w.stopCh
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		select {
		case w.ready <- path:
		case <-stop:
		}
	})
}

// apply ingests path if it exists and removes its documents otherwise.
func (w *Watcher) apply(ctx context.Context, path string) {
	name := filepath.Base(path)

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		err = w.docs.DeleteByFilename(ctx, w.opts.OwnerID, name)
		if errors.Is(err, domain.ErrNotFound) {
			return
		}
		if err != nil {
			w.report(Result{Path: path, Action: ActionFailed, Message: "remove " + name, Err: err})
			return
		}
		w.report(Result{Path: path, Action: ActionRemoved, Message: "Removed " + name})
		return
	}
	if err != nil {
		w.report(Result{Path: path, Action: ActionFailed, Message: "read " + name, Err: err})
		return
	}

	result, err := w.docs.Ingest(ctx, driving.IngestRequest{
		OwnerID:  w.opts.OwnerID,
		Filename: name,
		MIMEType: normalisers.DetectMIMEType(path, content),
		Category: w.opts.Category,
		Public:   w.opts.Public,
		Content:  content,
	})
	switch {
	case err != nil:
		w.report(Result{Path: path, Action: ActionFailed, Message: "ingest " + name, Err: err})
	case !result.Success:
		w.report(Result{Path: path, Action: ActionFailed, Message: result.Message})
	default:
		w.report(Result{Path: path, Action: ActionIngested, Message: result.Message})
	}
}

func (w *Watcher) report(r Result) {
	log := logger.With("path", r.Path).With("action", string(r.Action))
	if r.Err != nil {
		log.Error(r.Err, "%s", r.Message)
	} else {
		log.Debug("%s", r.Message)
	}
	if w.opts.Report != nil {
		w.opts.Report(r)
	}
}

// relative returns path relative to the root with forward slashes.
func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// addTree watches dir and every directory below it.
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
