// Package main is the semloc CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/semloc/semloc/internal/browser"
	"github.com/semloc/semloc/internal/bundle"
	"github.com/semloc/semloc/internal/cli"
	"github.com/semloc/semloc/internal/config"
	"github.com/semloc/semloc/internal/embedding"
	"github.com/semloc/semloc/internal/feature"
	"github.com/semloc/semloc/internal/kb"
	"github.com/semloc/semloc/internal/keyword"
	"github.com/semloc/semloc/internal/models"
	"github.com/semloc/semloc/internal/ranking"
	"github.com/semloc/semloc/internal/resolve"
	"github.com/semloc/semloc/internal/selector"
	"github.com/semloc/semloc/internal/server"
	"github.com/semloc/semloc/internal/targets"
	"github.com/semloc/semloc/internal/vector"
	"github.com/semloc/semloc/internal/verify"
	"github.com/semloc/semloc/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/semloc/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "semloc server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "resolve":
		runResolve()
	case "discover":
		runDiscover()
	case "annotate":
		runAnnotate()
	case "correct":
		runCorrect()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("semloc version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (page captures, per-key scoring, etc.)")
	static := fs.Bool("static", false, "capture pages without a browser (no JavaScript rendering)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, *static)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if cfg.TargetsPath != "" {
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		targetWatcher := targets.NewWatcher(components.Registry, cfg.TargetsPath, logger)
		if err := targetWatcher.Start(watchCtx); err != nil {
			logger.Warn("targets watcher failed to start", zap.String("path", cfg.TargetsPath), zap.Error(err))
		} else {
			defer targetWatcher.Stop()
		}
	}

	srv := server.NewServer(
		components.Engine,
		components.Store,
		components.Keywords,
		components.Spell,
		components.Registry,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" && components.VectorIndex != nil {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runResolve() {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	pageURL := fs.String("url", "", "target page URL (http(s)://, file://, or a local path)")
	buildID := fs.String("build", "", "build identifier for this run")
	keysFlag := fs.String("keys", "", "comma-separated semantic keys (default: every key in the target registry)")
	outPath := fs.String("out", "artifacts/locator-bundle.json", "path to write the JSON bundle")
	serverURL := fs.String("server", "", "server URL (empty = resolve locally without a server)")
	static := fs.Bool("static", false, "capture the page without a browser (no JavaScript rendering)")
	updatePlaywright := fs.Bool("update-playwright", false, "generate Playwright helper assets from the bundle")
	playwrightTS := fs.String("playwright-ts", "playwright/locators.generated.ts", "path to the generated Playwright helper")
	playwrightSpec := fs.String("playwright-spec", "playwright/tests/login.generated.spec.ts", "path to the generated Playwright spec")
	outputFormat := fs.String("output", "json", "stdout format: json (the bundle) or text (human-readable summary)")
	_ = fs.Parse(os.Args[2:])

	if *pageURL == "" || *buildID == "" {
		fmt.Println("Usage: semloc resolve --url <page-url> --build <build-id> [flags]")
		os.Exit(1)
	}
	var keys []string
	if *keysFlag != "" {
		for _, k := range strings.Split(*keysFlag, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}

	var b *bundle.Bundle
	if *serverURL != "" {
		res, err := resolveViaHTTP(*serverURL, *pageURL, *buildID, keys)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Resolve failed: %v\n", err)
			os.Exit(1)
		}
		b = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, *static)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		results, err := components.Engine.Resolve(context.Background(), resolve.Request{
			URL:     *pageURL,
			BuildID: *buildID,
			Keys:    keys,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Resolve failed: %v\n", err)
			os.Exit(1)
		}
		b = bundle.New(*pageURL, *buildID, results)
		if cfg.Storage.VectorIndexPath != "" && components.VectorIndex != nil {
			if saveErr := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); saveErr != nil {
				logger.Warn("vector index save failed", zap.Error(saveErr))
			}
		}
	}

	if err := b.Write(*outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write bundle: %v\n", err)
		os.Exit(1)
	}
	if *updatePlaywright {
		if err := bundle.WritePlaywrightAssets(b, *playwrightTS, *playwrightSpec); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write Playwright assets: %v\n", err)
			os.Exit(1)
		}
	}
	format := cli.OutputJSON
	if *outputFormat == "text" {
		format = cli.OutputText
	}
	if err := cli.WriteBundle(os.Stdout, b, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func resolveViaHTTP(serverURL, pageURL, buildID string, keys []string) (*bundle.Bundle, error) {
	body, err := json.Marshal(map[string]interface{}{
		"url":      pageURL,
		"build_id": buildID,
		"keys":     keys,
	})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/resolve", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var b bundle.Bundle
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &b, nil
}

func runDiscover() {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	pageURL := fs.String("url", "", "target page URL (http(s)://, file://, or a local path)")
	outPath := fs.String("out", "", "path to write discoveries as JSON (default: stdout)")
	static := fs.Bool("static", false, "capture the page without a browser (no JavaScript rendering)")
	_ = fs.Parse(os.Args[2:])

	if *pageURL == "" {
		fmt.Println("Usage: semloc discover --url <page-url> [flags]")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, *static)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	discoveries, err := components.Engine.Discover(context.Background(), *pageURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Discover failed: %v\n", err)
		os.Exit(1)
	}
	data, err := json.MarshalIndent(map[string]interface{}{
		"url":         *pageURL,
		"discoveries": discoveries,
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode discoveries: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')
	if *outPath != "" {
		if err := os.WriteFile(*outPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
			os.Exit(1)
		}
		return
	}
	os.Stdout.Write(data)
}

func runAnnotate() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: semloc annotate <add|revoke> ...")
		fmt.Println("  semloc annotate add <key> --kind <never_use_strategy|boost_keyword> --value <value>")
		fmt.Println("  semloc annotate revoke <annotation-id>")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	kind := fs.String("kind", "", "annotation kind: never_use_strategy or boost_keyword")
	value := fs.String("value", "", "annotation value (a strategy name or a keyword)")
	_ = fs.Parse(annotateArgsReorder(os.Args[3:]))

	switch sub {
	case "add":
		if fs.NArg() < 1 || *kind == "" || *value == "" {
			fmt.Println("Usage: semloc annotate add <key> --kind <kind> --value <value>")
			os.Exit(1)
		}
		key := fs.Arg(0)
		body, _ := json.Marshal(map[string]string{"kind": *kind, "value": *value})
		resp, err := http.Post(*serverURL+"/api/v1/keys/"+key+"/annotations", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Annotate failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Annotated %s: %s=%s\n", key, *kind, *value)
	case "revoke":
		if fs.NArg() < 1 {
			fmt.Println("Usage: semloc annotate revoke <annotation-id>")
			os.Exit(1)
		}
		id := fs.Arg(0)
		// The server routes annotation IDs under their key, but IDs are globally
		// unique so any key segment works; "-" is the conventional placeholder.
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/keys/-/annotations/"+id, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Revoke failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Revoked: %s\n", id)
	default:
		fmt.Printf("Unknown annotate subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// annotateArgsReorder moves flags (and their values) that appear after the
// positional key to the front so flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "semloc annotate add login.user
// --kind boost_keyword" would otherwise leave --kind unparsed.
func annotateArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runCorrect() {
	fs := flag.NewFlagSet("correct", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	buildID := fs.String("build", "", "build identifier the correction applies to")
	pageURL := fs.String("url", "", "page URL to verify the selector against")
	sel := fs.String("selector", "", "the correct selector (css=..., role=..., or text=...)")
	blockStrategy := fs.String("block-strategy", "", "also block this strategy for the key")
	boostKeyword := fs.String("boost-keyword", "", "also boost this keyword for the key")
	_ = fs.Parse(annotateArgsReorder(os.Args[2:]))

	if fs.NArg() < 1 || *buildID == "" || *pageURL == "" || *sel == "" {
		fmt.Println("Usage: semloc correct <key> --build <build-id> --url <page-url> --selector <selector> [flags]")
		os.Exit(1)
	}
	key := fs.Arg(0)
	body, _ := json.Marshal(map[string]string{
		"build_id":       *buildID,
		"url":            *pageURL,
		"selector":       *sel,
		"block_strategy": *blockStrategy,
		"boost_keyword":  *boostKeyword,
	})
	resp, err := http.Post(*serverURL+"/api/v1/keys/"+key+"/corrections", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		fmt.Printf("Correction failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var rec models.SemanticRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		fmt.Printf("Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Corrected %s for build %s (version %d)\n", rec.SemanticKey, rec.BuildID, rec.Version)
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Records        int64  `json:"records"`
	Keys           int    `json:"keys"`
	Targets        int    `json:"targets"`
	IndexedRecords uint64 `json:"indexed_records,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		records, err := components.Store.Count(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count records failed: %v\n", err)
			os.Exit(1)
		}
		keys, err := components.Store.ListKeys(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List keys failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Records: records,
			Keys:    len(keys),
			Targets: components.Registry.Len(),
		}
		if docs, err := components.Keywords.DocCount(); err == nil {
			status.IndexedRecords = docs
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("records:          %d   # stored resolution records\n", status.Records)
		fmt.Printf("keys:             %d   # distinct semantic keys with history\n", status.Keys)
		fmt.Printf("targets:          %d   # semantic targets in the registry\n", status.Targets)
		fmt.Printf("indexed_records:  %d   # records in the keyword index\n", status.IndexedRecords)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Store       *kb.SQLiteStore
	Embedder    embedding.Embedder
	VectorIndex *vector.MemoryIndex
	Keywords    keyword.KeywordIndex
	Spell       *keyword.SpellChecker
	Registry    *targets.Registry
	Automation  browser.Automation
	Engine      *resolve.Engine
}

func (c *Components) Close() {
	if c.Automation != nil {
		_ = c.Automation.Close()
	}
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, forceStatic bool) (*Components, error) {
	vectorIndex, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	vectorLoaded := false
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr == nil {
			vectorLoaded = true
		}
	}

	store, err := kb.NewSQLiteStore(cfg.Storage.DatabasePath, vectorIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize knowledge base: %w", err)
	}
	if !vectorLoaded {
		if rebuildErr := store.RebuildVectorIndex(context.Background()); rebuildErr != nil {
			logger.Warn("vector index rebuild failed", zap.Error(rebuildErr))
		}
	}
	logger.Info("vector index ready",
		zap.Int("vectors", vectorIndex.Size()),
		zap.Bool("loaded_from_disk", vectorLoaded))

	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("embedding model unavailable, using mock embedder", zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	bleveIndex, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	spell := keyword.NewSpellChecker(bleveIndex)

	registry := targets.NewRegistry()
	if cfg.TargetsPath != "" {
		if loadErr := registry.Load(cfg.TargetsPath); loadErr != nil {
			logger.Warn("targets file load failed, using built-in targets",
				zap.String("path", cfg.TargetsPath), zap.Error(loadErr))
		}
	}

	automation := newAutomation(cfg, forceStatic, logger)

	engine := resolve.NewEngine(resolve.Deps{
		Automation: automation,
		Store:      store,
		Keywords:   bleveIndex,
		Extractor:  feature.NewExtractor(embedder),
		Cache:      feature.NewCache(cfg.Resolve.FeatureCacheSize),
		Generator:  selector.NewGenerator(),
		Ranker:     ranking.NewRanker(&cfg.Ranking),
		Verifier: verify.NewVerifier(
			automation,
			time.Duration(cfg.Resolve.VerifyTimeoutMS)*time.Millisecond,
			cfg.Resolve.FallbackLimit,
			cfg.Resolve.VerifyWorkers,
			logger,
		),
		Registry: registry,
		Logger:   logger,
	}, resolve.Options{
		Workers:       cfg.Resolve.Workers,
		PutRetries:    cfg.Resolve.PutRetries,
		NodeShortlist: cfg.Resolve.NodeShortlist,
	})

	return &Components{
		Store:       store,
		Embedder:    embedder,
		VectorIndex: vectorIndex,
		Keywords:    bleveIndex,
		Spell:       spell,
		Registry:    registry,
		Automation:  automation,
		Engine:      engine,
	}, nil
}

// newAutomation picks the page capture adapter. Playwright is the default;
// when it cannot start (no browsers installed) or static mode is requested,
// pages are fetched and parsed without a browser.
func newAutomation(cfg *config.Config, forceStatic bool, logger *zap.Logger) browser.Automation {
	if !forceStatic && cfg.Browser.Mode != "static" {
		auto, err := browser.NewPlaywrightAutomation(cfg.Browser.HeadlessOrDefault(), cfg.Browser.NavigationTimeoutMS)
		if err == nil {
			return auto
		}
		logger.Warn("playwright unavailable, falling back to static capture", zap.Error(err))
	}
	httpFetch := browser.HTTPFetcher(nil)
	fileFetch := browser.FileFetcher()
	return browser.NewStaticAutomation(func(ctx context.Context, rawURL string) (io.ReadCloser, error) {
		if strings.HasPrefix(rawURL, "file:") || !strings.Contains(rawURL, "://") {
			return fileFetch(ctx, rawURL)
		}
		return httpFetch(ctx, rawURL)
	})
}

func printUsage() {
	fmt.Println(`semloc - Semantic locator resolution engine

Usage:
  semloc server [flags]            Start the HTTP server
  semloc resolve [flags]           Resolve semantic keys against a page and write a bundle
  semloc discover [flags]          Discover interactive elements and suggest semantic keys
  semloc annotate <add|revoke>     Manage key annotations (strategy blocks, keyword boosts)
  semloc correct <key> [flags]     Record an operator-corrected selector for a key
  semloc status [flags]            Show knowledge base and index status
  semloc version                   Show version
  semloc help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/semloc/config.yaml)
  --debug            Enable debug logging (page captures, per-key scoring, etc.)
  --static           Capture pages without a browser (no JavaScript rendering)

Resolve Flags:
  --config string           Config file path
  --url string              Target page URL (http(s)://, file://, or a local path)
  --build string            Build identifier for this run
  --keys string             Comma-separated semantic keys (default: every registry key)
  --out string              Bundle output path (default: artifacts/locator-bundle.json)
  --server string           Server URL. Empty (default) resolves locally without a server.
  --static                  Capture the page without a browser
  --update-playwright       Also generate Playwright helper assets
  --playwright-ts string    Generated helper path (default: playwright/locators.generated.ts)
  --playwright-spec string  Generated spec path (default: playwright/tests/login.generated.spec.ts)
  --output string           Stdout format: json (the bundle) or text (default: json)

Discover Flags:
  --config string    Config file path
  --url string       Target page URL
  --out string       Output path (default: stdout)
  --static           Capture the page without a browser

Correct Flags:
  --server string          Server URL (default: http://localhost:8080)
  --build string           Build identifier the correction applies to
  --url string             Page URL to verify the selector against
  --selector string        The correct selector (css=..., role=..., or text=...)
  --block-strategy string  Also block this strategy for the key
  --boost-keyword string   Also boost this keyword for the key

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  semloc server
  semloc resolve --url https://example.com/login --build 2026-08-29 --update-playwright
  semloc resolve --url file://./fixtures/login.html --build local --static --keys login.username,login.password
  semloc discover --url https://example.com/login
  semloc annotate add login.username --kind boost_keyword --value email
  semloc annotate revoke 6f1c2a3e-...
  semloc correct login.submit --build 2026-08-29 --url https://example.com/login --selector "css=#signin"
  semloc status
  semloc status --output json`)
}
