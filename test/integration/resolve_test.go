package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/semloc/semloc/internal/browser"
	"github.com/semloc/semloc/internal/embedding"
	"github.com/semloc/semloc/internal/feature"
	"github.com/semloc/semloc/internal/kb"
	"github.com/semloc/semloc/internal/keyword"
	"github.com/semloc/semloc/internal/models"
	"github.com/semloc/semloc/internal/ranking"
	"github.com/semloc/semloc/internal/resolve"
	"github.com/semloc/semloc/internal/selector"
	"github.com/semloc/semloc/internal/targets"
	"github.com/semloc/semloc/internal/vector"
	"github.com/semloc/semloc/internal/verify"
)

const loginHTML = `<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<form action="/login">
  <label for="username">Email</label>
  <input type="email" id="username" name="username" data-testid="login-user">
  <label for="password">Password</label>
  <input type="password" id="password" name="password">
  <button type="submit">Sign in</button>
</form>
</body>
</html>`

// TestResolveOverHTTP runs the pipeline against a page served over real HTTP,
// exercising the fetch path the static capture mode uses in production.
func TestResolveOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(loginHTML))
	}))
	defer srv.Close()

	dir := t.TempDir()
	index, err := vector.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	store, err := kb.NewSQLiteStore(filepath.Join(dir, "kb.db"), index)
	if err != nil {
		t.Fatal(err)
	}
	keywords, err := keyword.NewBleveIndex(filepath.Join(dir, "keywords"))
	if err != nil {
		t.Fatal(err)
	}
	auto := browser.NewStaticAutomation(browser.HTTPFetcher(srv.Client()))
	t.Cleanup(func() {
		auto.Close()
		keywords.Close()
		store.Close()
		index.Close()
	})

	logger := zap.NewNop()
	engine := resolve.NewEngine(resolve.Deps{
		Automation: auto,
		Store:      store,
		Keywords:   keywords,
		Extractor:  feature.NewExtractor(embedding.NewMockEmbedder(8)),
		Cache:      feature.NewCache(8),
		Generator:  selector.NewGenerator(),
		Ranker:     ranking.NewRanker(nil),
		Verifier:   verify.NewVerifier(auto, time.Second, 3, 2, logger),
		Registry:   targets.NewRegistry(),
		Logger:     logger,
	}, resolve.Options{Workers: 2})

	ctx := context.Background()
	pageURL := srv.URL + "/login"

	first, err := engine.Resolve(ctx, resolve.Request{URL: pageURL, BuildID: "b1"})
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	for key, result := range first {
		if result.Primary == nil {
			t.Errorf("b1 %s: no primary selector", key)
		}
	}

	second, err := engine.Resolve(ctx, resolve.Request{URL: pageURL, BuildID: "b2"})
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	for key, result := range second {
		if result.Status != models.StatusResolved {
			t.Errorf("b2 %s: status = %s (confidence %.4f), want %s",
				key, result.Status, result.Confidence, models.StatusResolved)
		}
	}

	// Both builds persisted; history is newest first.
	history, err := store.History(ctx, "login.username", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].BuildID != "b2" {
		t.Errorf("newest history build = %s, want b2", history[0].BuildID)
	}
}
