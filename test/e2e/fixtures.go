// Package e2e exercises the full resolution stack, from page capture to the
// knowledge base, against fixture login pages.
package e2e

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/semloc/semloc/internal/browser"
)

// LoginPage is a stable login form: trusted data attributes, ids, and labels
// all present.
const LoginPage = `<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<main>
  <form id="login-form" action="/login">
    <div class="form-row">
      <label for="username">Email</label>
      <input type="email" id="username" name="username" data-testid="login-user" placeholder="Email address">
    </div>
    <div class="form-row">
      <label for="password">Password</label>
      <input type="password" id="password" name="password" data-testid="login-pass">
    </div>
    <button type="submit" data-testid="login-submit">Sign in</button>
  </form>
</main>
</body>
</html>`

// LoginPageDrifted is the same form after a frontend rework: ids renamed,
// data-testid attributes dropped, only the control names and labels preserved.
const LoginPageDrifted = `<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<main>
  <form class="auth-form" action="/account/login">
    <div class="field">
      <label for="field-email">Email</label>
      <input type="email" id="field-email" name="username" placeholder="Email address">
    </div>
    <div class="field">
      <label for="field-password">Password</label>
      <input type="password" id="field-password" name="password">
    </div>
    <button type="submit" class="btn-primary">Sign in</button>
  </form>
</main>
</body>
</html>`

// PageFetcher serves pages from an in-memory map keyed by URL.
func PageFetcher(pages map[string]string) browser.FetchFunc {
	return func(_ context.Context, url string) (io.ReadCloser, error) {
		html, ok := pages[url]
		if !ok {
			return nil, fmt.Errorf("no fixture page for %s", url)
		}
		return io.NopCloser(strings.NewReader(html)), nil
	}
}
