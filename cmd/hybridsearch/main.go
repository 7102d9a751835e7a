// Command hybridsearch is the CLI front end over the hybrid search
// core: it indexes markdown directories, answers one-off queries, and
// watches configured paths for changes. Structure (flag.NewFlagSet
// subcommand dispatch, no cobra). No TUI is carried (see DESIGN.md).
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/corpusforge/hybridcore/internal/aggregate"
	"github.com/corpusforge/hybridcore/internal/chunk"
	"github.com/corpusforge/hybridcore/internal/config"
	"github.com/corpusforge/hybridcore/internal/embedding"
	"github.com/corpusforge/hybridcore/internal/events"
	"github.com/corpusforge/hybridcore/internal/ingest"
	"github.com/corpusforge/hybridcore/internal/metastore"
	"github.com/corpusforge/hybridcore/internal/searcher"
	"github.com/corpusforge/hybridcore/internal/vectorstore"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return nil
	}

	switch os.Args[1] {
	case "index":
		fs := flag.NewFlagSet("index", flag.ExitOnError)
		paths := fs.String("paths", "", "Comma-separated paths to index (overrides config)")
		fs.Parse(os.Args[2:])
		return runIndex(*paths)
	case "search":
		fs := flag.NewFlagSet("search", flag.ExitOnError)
		mode := fs.String("mode", "hybrid", "Search mode: vector, keyword, hybrid")
		limit := fs.Int("limit", 10, "Maximum results")
		aggBy := fs.String("aggregate", "content", "Aggregation: content, doc, folder")
		docType := fs.String("doc-type", "", "Filter by doc_type")
		fs.Parse(os.Args[2:])
		queryStr := strings.Join(fs.Args(), " ")
		if queryStr == "" {
			return fmt.Errorf("usage: hybridsearch search [--mode hybrid|vector|keyword] [--limit N] [--aggregate content|doc|folder] [--doc-type idea|doc] \"query\"")
		}
		return runSearch(queryStr, *mode, *limit, *aggBy, *docType)
	case "watch":
		return runWatch()
	case "config":
		return runConfigInit()
	case "version", "-v", "--version":
		fmt.Printf("hybridsearch %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func printUsage() {
	fmt.Println(`hybridsearch - hybrid BM25+vector search over local markdown notes

Usage:
  hybridsearch index                   Index configured paths
  hybridsearch index -paths p1,p2      Index specific paths
  hybridsearch search "query"          Search and print results
  hybridsearch watch                   Watch configured paths for changes
  hybridsearch config                  Write a default config file
  hybridsearch version                 Show version info

Search options:
  -mode string        vector, keyword, or hybrid (default "hybrid")
  -limit int           Maximum results (default 10)
  -aggregate string    content, doc, or folder (default "content")
  -doc-type string     Filter by doc_type (e.g. "idea")`)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newEmbedder builds the configured embedding client, wrapped in the
// LRU cache, or nil if the provider isn't supported yet.
func newEmbedder(cfg *config.Config) embedding.Client {
	if cfg.Embedding.Provider != "ollama" {
		return nil
	}
	ollama := embedding.NewOllamaClient(cfg.Embedding.OllamaURL, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	return embedding.NewCachedClient(ollama, cfg.Embedding.CacheSize)
}

func runIndex(pathsOverride string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if pathsOverride != "" {
		cfg.Ingest.Paths = strings.Split(pathsOverride, ",")
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	metaPath, err := cfg.MetastorePath()
	if err != nil {
		return err
	}

	meta, err := metastore.Open(metaPath)
	if err != nil {
		return fmt.Errorf("opening metastore: %w", err)
	}
	defer meta.Close()

	store := vectorstore.New(cfg.Storage.VectorPath)
	if err := store.Initialize(); err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer store.Close()

	embedder := newEmbedder(cfg)
	if embedder == nil {
		return fmt.Errorf("no usable embedding provider configured")
	}

	ctx := context.Background()
	stats, err := indexAll(ctx, cfg.Ingest.Paths, meta, store, embedder)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Printf("Indexing complete:\n")
	fmt.Printf("  Files scanned: %d\n", stats.scanned)
	fmt.Printf("  Chunks added:  %d\n", stats.chunks)
	fmt.Printf("  Errors:        %d\n", stats.errors)
	_ = dataDir
	return nil
}

type indexStats struct {
	scanned int
	chunks  int
	errors  int
}

// indexAll walks every configured path for markdown files, chunks and
// embeds each one, and commits the resulting state to the metastore
// and vector store. Not watched: a one-shot pass, the non-watching
// counterpart to ingest.Watcher.
func indexAll(ctx context.Context, paths []string, meta *metastore.Store, store vectorstore.Store, embedder embedding.Client) (indexStats, error) {
	var stats indexStats

	for _, root := range paths {
		root = expandHome(root)
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() || !strings.HasSuffix(path, ".md") {
				return nil
			}
			stats.scanned++

			data, readErr := os.ReadFile(path)
			if readErr != nil {
				stats.errors++
				return nil
			}

			sum := sha256.Sum256(data)
			hash := hex.EncodeToString(sum[:])
			changed, _, classifyErr := meta.Classify(ctx, path, hash)
			if classifyErr != nil || !changed {
				return nil
			}

			chunks := ingest.ChunkFile(path, string(data), chunk.DocTypeDoc)
			if len(chunks) == 0 {
				return nil
			}

			texts := make([]string, len(chunks))
			keys := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = strings.Join([]string{c.HeadingPath, c.Content}, "\n")
				keys[i] = c.Key()
			}

			vectors, embedErr := embedder.EmbedBatch(ctx, texts)
			if embedErr != nil {
				stats.errors++
				return nil
			}
			if err := store.AddBatch(keys, vectors, chunks); err != nil {
				stats.errors++
				return nil
			}

			meta.Upsert(ctx, metastore.Record{
				Path:        path,
				ContentHash: hash,
				ModTime:     info.ModTime(),
				Size:        info.Size(),
			})
			stats.chunks += len(chunks)
			return nil
		})
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func runSearch(queryStr, mode string, limit int, aggBy string, docType string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := vectorstore.New(cfg.Storage.VectorPath)
	embedder := newEmbedder(cfg)
	if embedder == nil {
		return fmt.Errorf("no usable embedding provider configured")
	}

	s, err := searcher.New(store, embedder)
	if err != nil {
		return fmt.Errorf("initializing searcher: %w", err)
	}
	defer store.Close()

	resp, err := s.Search(context.Background(), searcher.Options{
		Query:       queryStr,
		Mode:        searcher.Mode(mode),
		Limit:       limit,
		AggregateBy: aggregate.By(aggBy),
		DocType:     docType,
	})
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if resp.IndexMissing {
		fmt.Println("No index built yet. Run: hybridsearch index")
		return nil
	}
	if resp.Count == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range resp.Results {
		fmt.Printf("%d. %s (score: %.4f, matched_by: %s)\n", i+1, r.FilePath, r.Score, r.MatchedBy)
		if r.SectionTitle != "" {
			fmt.Printf("   %s\n", r.SectionTitle)
		}
		preview := r.Content
		if len(preview) > 160 {
			preview = preview[:160] + "..."
		}
		fmt.Printf("   %s\n\n", preview)
	}

	return nil
}

func runWatch() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	metaPath, err := cfg.MetastorePath()
	if err != nil {
		return err
	}
	meta, err := metastore.Open(metaPath)
	if err != nil {
		return fmt.Errorf("opening metastore: %w", err)
	}
	defer meta.Close()

	store := vectorstore.New(cfg.Storage.VectorPath)
	if err := store.Initialize(); err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer store.Close()

	embedder := newEmbedder(cfg)

	s, err := searcher.New(store, embedder)
	if err != nil {
		return fmt.Errorf("initializing searcher: %w", err)
	}

	bus := events.New()
	sub, subID := bus.Subscribe()
	defer bus.Unsubscribe(subID)

	w, err := ingest.NewWatcher(cfg.Ingest.Paths, cfg.Ingest.Ignore, meta, bus, store, embedder)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	fmt.Printf("Watching %d path(s) for changes (Ctrl+C to stop)...\n", len(cfg.Ingest.Paths))
	for _, p := range cfg.Ingest.Paths {
		fmt.Printf("  %s\n", p)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStopping watcher...")
		cancel()
	}()

	// A doc event means the vector store's corpus just changed underfoot;
	// refresh the searcher's BM25 index so the next search sees it.
	go func() {
		for ev := range sub.Events() {
			if ev.Kind != events.EventDoc {
				continue
			}
			fmt.Printf("[%s] %s\n", ev.Doc.Kind, ev.Doc.RelPath)
			if refreshErr := s.Refresh(); refreshErr != nil {
				fmt.Fprintf(os.Stderr, "warning: refreshing search index: %v\n", refreshErr)
			}
		}
	}()

	return w.Start(ctx)
}

func runConfigInit() error {
	cfg := config.Default()
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	path, _ := config.ConfigPath()
	fmt.Printf("Config written to: %s\n", path)
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
