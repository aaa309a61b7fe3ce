package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// captureScript harvests the interactive elements of the current page with
// the context needed to identify them again: attributes, associated labels,
// an ancestor summary, sibling texts and position among same-tag siblings.
const captureScript = `
() => {
	const clean = (s) => (s || '').replace(/\s+/g, ' ').trim();

	const labelsFor = (el) => {
		const labels = [];
		if (el.id) {
			document.querySelectorAll('label[for="' + CSS.escape(el.id) + '"]').forEach(l => {
				const t = clean(l.textContent);
				if (t) labels.push(t);
			});
		}
		const wrapping = el.closest('label');
		if (wrapping) {
			const t = clean(wrapping.textContent);
			if (t && !labels.includes(t)) labels.push(t);
		}
		return labels;
	};

	const ancestorsOf = (el) => {
		const out = [];
		let cur = el.parentElement;
		let depth = 1;
		while (cur && cur.tagName !== 'HTML' && depth <= 4) {
			out.push({
				depth: depth,
				tag: cur.tagName.toLowerCase(),
				text: clean(cur.textContent).substring(0, 120),
				classes: Array.from(cur.classList),
			});
			cur = cur.parentElement;
			depth++;
		}
		return out;
	};

	const siblingsOf = (el) => {
		const out = [];
		const prev = el.previousElementSibling;
		const next = el.nextElementSibling;
		if (prev) {
			const t = clean(prev.textContent).substring(0, 120);
			if (t) out.push({position: 'prev', text: t});
		}
		if (next) {
			const t = clean(next.textContent).substring(0, 120);
			if (t) out.push({position: 'next', text: t});
		}
		return out;
	};

	const nodes = [];
	document.querySelectorAll('input, button, textarea, select').forEach(el => {
		const tag = el.tagName.toLowerCase();
		if (tag === 'input' && el.type === 'hidden') return;

		const attrs = {};
		Array.from(el.attributes).forEach(a => { attrs[a.name] = a.value; });

		let nthOfType = 1;
		let sameTagCount = 0;
		let siblingIndex = 0;
		if (el.parentElement) {
			const siblings = Array.from(el.parentElement.children);
			siblingIndex = siblings.indexOf(el);
			const sameTag = siblings.filter(s => s.tagName === el.tagName);
			sameTagCount = sameTag.length;
			nthOfType = sameTag.indexOf(el) + 1;
		}

		const form = el.closest('form');
		const rect = el.getBoundingClientRect();

		nodes.push({
			tag: tag,
			type: el.type || attrs['type'] || '',
			attrs: attrs,
			labels: labelsFor(el),
			role: el.getAttribute('role') || '',
			aria_label: el.getAttribute('aria-label') || '',
			inner_text: clean(el.innerText).substring(0, 200),
			text_content: clean(el.textContent).substring(0, 200),
			ancestors: ancestorsOf(el),
			siblings: siblingsOf(el),
			form_id: form ? (form.id || '') : '',
			form_action: form ? (form.getAttribute('action') || '') : '',
			form_classes: form ? Array.from(form.classList) : [],
			nth_of_type: nthOfType,
			same_tag_count: sameTagCount,
			sibling_index: siblingIndex,
			box: {x: rect.x, y: rect.y, width: rect.width, height: rect.height},
		});
	});
	return nodes;
}
`

// PlaywrightAutomation drives a real Chromium instance via Playwright.
// Pages are cached per URL so verifying many selectors against one page
// navigates only once.
type PlaywrightAutomation struct {
	pw                *playwright.Playwright
	browser           playwright.Browser
	navigationTimeout float64

	mu    sync.Mutex
	pages map[string]playwright.Page
}

// NewPlaywrightAutomation starts Playwright and launches a Chromium browser.
func NewPlaywrightAutomation(headless bool, navigationTimeoutMS int) (*PlaywrightAutomation, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &PlaywrightAutomation{
		pw:                pw,
		browser:           browser,
		navigationTimeout: float64(navigationTimeoutMS),
		pages:             make(map[string]playwright.Page),
	}, nil
}

// pageFor returns a loaded page for url, navigating on first use.
func (p *PlaywrightAutomation) pageFor(url string) (playwright.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if page, ok := p.pages[url]; ok {
		return page, nil
	}
	page, err := p.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(p.navigationTimeout),
	}); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	p.pages[url] = page
	return page, nil
}

// CaptureSnapshot navigates to url and harvests its interactive elements.
func (p *PlaywrightAutomation) CaptureSnapshot(ctx context.Context, url string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := p.pageFor(url)
	if err != nil {
		return nil, err
	}

	result, err := page.Evaluate(captureScript)
	if err != nil {
		return nil, fmt.Errorf("failed to capture elements: %w", err)
	}

	// Round-trip through JSON to decode the evaluate result into descriptors.
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode capture result: %w", err)
	}
	snapshot := &Snapshot{URL: url}
	if err := json.Unmarshal(raw, &snapshot.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode capture result: %w", err)
	}
	if title, err := page.Title(); err == nil {
		snapshot.Title = title
	}
	return snapshot, nil
}

// CountMatches counts elements matching selector on the page at url. The
// css=, text= and role= engines are passed to Playwright directly.
func (p *PlaywrightAutomation) CountMatches(ctx context.Context, url, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := parseSelector(selector); err != nil {
		return 0, err
	}
	page, err := p.pageFor(url)
	if err != nil {
		return 0, err
	}
	count, err := page.Locator(selector).Count()
	if err != nil {
		return 0, fmt.Errorf("failed to count matches for %s: %w", selector, err)
	}
	return count, nil
}

// Close closes every cached page, the browser and the Playwright driver.
func (p *PlaywrightAutomation) Close() error {
	p.mu.Lock()
	for _, page := range p.pages {
		_ = page.Close()
	}
	p.pages = make(map[string]playwright.Page)
	p.mu.Unlock()

	var closeErr error
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
	}
	if p.pw != nil {
		if err := p.pw.Stop(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	return closeErr
}
