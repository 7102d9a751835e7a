package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corpusforge/hybridcore/internal/chunk"
	"github.com/corpusforge/hybridcore/internal/embedding"
	"github.com/corpusforge/hybridcore/internal/events"
	"github.com/corpusforge/hybridcore/internal/metastore"
	"github.com/corpusforge/hybridcore/internal/searcherr"
	"github.com/corpusforge/hybridcore/internal/vectorstore"
)

// defaultIgnore is the directory name skip list applied when no
// explicit ignore list is configured.
var defaultIgnore = []string{".git", "node_modules", ".obsidian"}

// Watcher monitors configured markdown directories for changes,
// debounces bursts of fs events, and keeps the vector store and event
// bus in sync. Uses the familiar debounce-loop structure for a
// filesystem watcher, extended to commit to metastore before emitting,
// and to push chunks into vectorstore.Store/embedding.Client.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     []string
	ignore    []string
	debounce  time.Duration

	meta     *metastore.Store
	bus      *events.Bus
	store    vectorstore.Store
	embedder embedding.Client

	mu      sync.Mutex
	pending map[string]time.Time
	done    chan struct{}
}

// NewWatcher constructs a Watcher over paths, wiring commits to meta
// and notifications to bus. store/embedder may be nil, in which case
// the watcher only tracks metastore state and emits events without
// touching the vector index (useful for tests and for a "watch-only"
// CLI mode).
func NewWatcher(paths, ignore []string, meta *metastore.Store, bus *events.Bus, store vectorstore.Store, embedder embedding.Client) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, searcherr.Io(err)
	}
	if len(ignore) == 0 {
		ignore = defaultIgnore
	}
	return &Watcher{
		fsWatcher: fsw,
		paths:     paths,
		ignore:    ignore,
		debounce:  500 * time.Millisecond,
		meta:      meta,
		bus:       bus,
		store:     store,
		embedder:  embedder,
		pending:   make(map[string]time.Time),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching for filesystem changes. Blocks until ctx is
// cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, p := range w.paths {
		path := expandPath(p)
		if err := w.addRecursive(path); err != nil {
			log.Printf("warning: watching %s: %v", path, err)
		}
	}

	go w.debounceLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			close(w.done)
			return w.fsWatcher.Close()

		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !strings.HasSuffix(ev.Name, ".md") {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && ev.Op&fsnotify.Create != 0 {
			w.addRecursive(ev.Name)
		}
		return
	}

	w.mu.Lock()
	w.pending[ev.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	for _, path := range ready {
		if err := w.settle(ctx, path); err != nil {
			log.Printf("processing %s: %v", path, err)
		}
	}
}

// settle resolves one settled path: computes its hash (or detects
// deletion), commits the new state to metastore, updates the vector
// store, and emits the resulting DocEvent.
func (w *Watcher) settle(ctx context.Context, path string) error {
	relPath := path
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return w.handleDelete(ctx, relPath)
		}
		return searcherr.Io(err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	changed, isNew, err := w.meta.Classify(ctx, relPath, hash)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return searcherr.Io(err)
	}

	if err := w.meta.Upsert(ctx, metastore.Record{
		Path:        relPath,
		ContentHash: hash,
		ModTime:     info.ModTime(),
		Size:        info.Size(),
	}); err != nil {
		return err
	}

	if w.store != nil && w.embedder != nil {
		if err := w.reindex(ctx, relPath, string(data)); err != nil {
			return err
		}
	}

	kind := events.DocUpdated
	if isNew {
		kind = events.DocCreated
	}
	w.bus.EmitDoc(events.DocEvent{Kind: kind, RelPath: relPath})
	return nil
}

func (w *Watcher) handleDelete(ctx context.Context, relPath string) error {
	if _, err := w.meta.Get(ctx, relPath); err != nil {
		return nil // never tracked, nothing to delete
	}
	if err := w.meta.Delete(ctx, relPath); err != nil {
		return err
	}
	if w.store != nil {
		chunks, err := w.store.GetAllChunks()
		if err == nil {
			for _, c := range chunks {
				if c.FilePath == relPath {
					w.store.Delete(chunk.Key(c.FilePath, c.LineStartOrZero()))
				}
			}
		}
	}
	w.bus.EmitDoc(events.DocEvent{Kind: events.DocDeleted, RelPath: relPath})
	return nil
}

// reindex re-chunks a changed file, embeds each chunk, and replaces its
// entries in the vector store.
func (w *Watcher) reindex(ctx context.Context, relPath, content string) error {
	// Chunk keys carry the line number, so entries for lines that moved
	// would survive a plain re-add; drop every old entry of the file first.
	if existing, err := w.store.GetAllChunks(); err == nil {
		for _, c := range existing {
			if c.FilePath == relPath {
				w.store.Delete(c.Key())
			}
		}
	}

	chunks := ChunkFile(relPath, content, chunk.DocTypeDoc)
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	keys := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = strings.Join([]string{c.HeadingPath, c.Content}, "\n")
		keys[i] = c.Key()
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	return w.store.AddBatch(keys, vectors, chunks)
}

func (w *Watcher) addRecursive(path string) error {
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			for _, ig := range w.ignore {
				if name == ig {
					return filepath.SkipDir
				}
			}
			return w.fsWatcher.Add(p)
		}
		return nil
	})
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
