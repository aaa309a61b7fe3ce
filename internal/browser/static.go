package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/semloc/semloc/internal/models"
)

// FetchFunc retrieves the HTML for a page URL.
type FetchFunc func(ctx context.Context, url string) (io.ReadCloser, error)

// HTTPFetcher fetches pages over HTTP with the given client. A nil client
// uses http.DefaultClient.
func HTTPFetcher(client *http.Client) FetchFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, url string) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		}
		return resp.Body, nil
	}
}

// FileFetcher treats page URLs as local file paths, for resolving saved
// page dumps.
func FileFetcher() FetchFunc {
	return func(ctx context.Context, url string) (io.ReadCloser, error) {
		return os.Open(strings.TrimPrefix(url, "file://"))
	}
}

// StaticAutomation parses fetched HTML without a browser. It sees no
// JavaScript-rendered content and no layout, so captured nodes carry no
// bounding box; everything else matches the live capture.
type StaticAutomation struct {
	fetch FetchFunc

	mu   sync.Mutex
	docs map[string]*goquery.Document
}

// NewStaticAutomation creates a StaticAutomation using fetch for page HTML.
func NewStaticAutomation(fetch FetchFunc) *StaticAutomation {
	return &StaticAutomation{
		fetch: fetch,
		docs:  make(map[string]*goquery.Document),
	}
}

func (s *StaticAutomation) docFor(ctx context.Context, url string) (*goquery.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[url]; ok {
		return doc, nil
	}
	body, err := s.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer body.Close()
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	s.docs[url] = doc
	return doc, nil
}

// CaptureSnapshot fetches url and harvests its interactive elements.
func (s *StaticAutomation) CaptureSnapshot(ctx context.Context, url string) (*Snapshot, error) {
	doc, err := s.docFor(ctx, url)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		URL:   url,
		Title: cleanText(doc.Find("title").First().Text()),
	}
	doc.Find("input, button, textarea, select").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "input" {
			if t, _ := sel.Attr("type"); t == "hidden" {
				return
			}
		}
		snapshot.Nodes = append(snapshot.Nodes, describeNode(doc, sel))
	})
	return snapshot, nil
}

// CountMatches counts elements matching selector in the parsed page.
func (s *StaticAutomation) CountMatches(ctx context.Context, url, selector string) (int, error) {
	doc, err := s.docFor(ctx, url)
	if err != nil {
		return 0, err
	}
	parsed, err := parseSelector(selector)
	if err != nil {
		return 0, err
	}
	switch parsed.engine {
	case "css":
		matcher, err := cascadia.Compile(parsed.value)
		if err != nil {
			return 0, fmt.Errorf("invalid css selector %q: %w", parsed.value, err)
		}
		return doc.FindMatcher(matcher).Length(), nil
	case "text":
		return countTextMatches(doc, parsed.value), nil
	case "role":
		return countRoleMatches(doc, parsed.role, parsed.name), nil
	default:
		return 0, fmt.Errorf("unknown selector engine: %s", parsed.engine)
	}
}

// Close drops the parsed page cache.
func (s *StaticAutomation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]*goquery.Document)
	return nil
}

// countTextMatches counts the innermost elements whose text contains value,
// matching the browser text engine's smallest-element semantics.
func countTextMatches(doc *goquery.Document, value string) int {
	needle := strings.ToLower(cleanText(value))
	if needle == "" {
		return 0
	}
	count := 0
	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		if !strings.Contains(strings.ToLower(cleanText(sel.Text())), needle) {
			return
		}
		childHasIt := false
		sel.Children().Each(func(_ int, child *goquery.Selection) {
			if strings.Contains(strings.ToLower(cleanText(child.Text())), needle) {
				childHasIt = true
			}
		})
		if !childHasIt {
			count++
		}
	})
	return count
}

// roleSelectors maps an ARIA role to the css selecting its implicit and
// explicit carriers.
var roleSelectors = map[string]string{
	"button":   `button, input[type="submit"], input[type="button"], input[type="reset"], [role="button"]`,
	"link":     `a[href], [role="link"]`,
	"textbox":  `textarea, input:not([type]), input[type="text"], input[type="email"], input[type="password"], input[type="search"], input[type="tel"], input[type="url"], [role="textbox"]`,
	"combobox": `select, [role="combobox"]`,
	"checkbox": `input[type="checkbox"], [role="checkbox"]`,
	"radio":    `input[type="radio"], [role="radio"]`,
}

// countRoleMatches counts elements carrying the role whose accessible name
// equals name, compared case-insensitively after whitespace normalization.
func countRoleMatches(doc *goquery.Document, role, name string) int {
	css, ok := roleSelectors[role]
	if !ok {
		css = fmt.Sprintf(`[role=%q]`, role)
	}
	want := strings.ToLower(cleanText(name))
	count := 0
	doc.Find(css).Each(func(_ int, sel *goquery.Selection) {
		if strings.ToLower(staticAccessibleName(doc, sel)) == want {
			count++
		}
	})
	return count
}

// staticAccessibleName approximates the accessible name computation:
// aria-label, then associated label, then visible text, then value.
func staticAccessibleName(doc *goquery.Document, sel *goquery.Selection) string {
	if v, ok := sel.Attr("aria-label"); ok && v != "" {
		return cleanText(v)
	}
	if labels := labelsFor(doc, sel); len(labels) > 0 {
		return labels[0]
	}
	if text := cleanText(sel.Text()); text != "" {
		return text
	}
	if v, ok := sel.Attr("value"); ok {
		return cleanText(v)
	}
	return ""
}

func describeNode(doc *goquery.Document, sel *goquery.Selection) *models.NodeDescriptor {
	node := &models.NodeDescriptor{
		Tag:   goquery.NodeName(sel),
		Attrs: make(map[string]string),
	}
	if n := sel.Get(0); n != nil {
		for _, attr := range n.Attr {
			node.Attrs[attr.Key] = attr.Val
		}
	}
	node.Type = node.Attrs["type"]
	node.Role = node.Attrs["role"]
	node.AriaLabel = node.Attrs["aria-label"]
	node.Labels = labelsFor(doc, sel)
	node.InnerText = truncate(cleanText(sel.Text()), 200)
	node.TextContent = node.InnerText

	for parent, depth := sel.Parent(), 1; parent.Length() > 0 && depth <= 4; parent, depth = parent.Parent(), depth+1 {
		tag := goquery.NodeName(parent)
		if tag == "html" || tag == "#document" {
			break
		}
		node.Ancestors = append(node.Ancestors, models.AncestorSummary{
			Depth:   depth,
			Tag:     tag,
			Text:    truncate(cleanText(parent.Text()), 120),
			Classes: classList(parent),
		})
	}

	if prev := sel.Prev(); prev.Length() > 0 {
		if text := truncate(cleanText(prev.Text()), 120); text != "" {
			node.Siblings = append(node.Siblings, models.SiblingText{Position: "prev", Text: text})
		}
	}
	if next := sel.Next(); next.Length() > 0 {
		if text := truncate(cleanText(next.Text()), 120); text != "" {
			node.Siblings = append(node.Siblings, models.SiblingText{Position: "next", Text: text})
		}
	}

	if form := sel.Closest("form"); form.Length() > 0 {
		node.FormID, _ = form.Attr("id")
		node.FormAction, _ = form.Attr("action")
		node.FormClasses = classList(form)
	}

	node.SiblingIndex = sel.Index()
	node.NthOfType = 1
	if parent := sel.Parent(); parent.Length() > 0 {
		sameTag := parent.ChildrenFiltered(node.Tag)
		node.SameTagCount = sameTag.Length()
		self := sel.Get(0)
		sameTag.EachWithBreak(func(i int, candidate *goquery.Selection) bool {
			if candidate.Get(0) == self {
				node.NthOfType = i + 1
				return false
			}
			return true
		})
	}
	return node
}

// labelsFor collects the texts of label elements tied to sel, by for= or by
// wrapping.
func labelsFor(doc *goquery.Document, sel *goquery.Selection) []string {
	var labels []string
	if id, ok := sel.Attr("id"); ok && id != "" {
		doc.Find("label").Each(func(_ int, label *goquery.Selection) {
			if forAttr, ok := label.Attr("for"); ok && forAttr == id {
				if text := cleanText(label.Text()); text != "" {
					labels = append(labels, text)
				}
			}
		})
	}
	if wrapping := sel.Closest("label"); wrapping.Length() > 0 {
		if text := cleanText(wrapping.Text()); text != "" {
			found := false
			for _, existing := range labels {
				if existing == text {
					found = true
					break
				}
			}
			if !found {
				labels = append(labels, text)
			}
		}
	}
	return labels
}

func classList(sel *goquery.Selection) []string {
	class, ok := sel.Attr("class")
	if !ok {
		return nil
	}
	return strings.Fields(class)
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
