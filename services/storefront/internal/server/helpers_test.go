package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/html"

	"storefront/internal/ratelimit"
	"storefront/pkg/catalog"
	"storefront/pkg/domain"
	"storefront/pkg/store"
	"storefront/services/storefront/internal/app"
	"storefront/services/storefront/internal/view"
)

const testSecret = "test-visitor-secret-0123456789"

var testCatalog = []domain.Product{
	{ID: 1, Title: "Fjallraven Backpack", Price: 109.95, Description: "Your perfect pack", Category: "men's clothing", Image: "https://img.example/1.jpg", Rating: domain.Rating{Rate: 3.9, Count: 120}},
	{ID: 2, Title: "WD 2TB Elements", Price: 64, Description: "USB 3.0", Category: "electronics", Image: "https://img.example/2.jpg", Rating: domain.Rating{Rate: 3.3, Count: 203}},
	{ID: 3, Title: "Silver Ring", Price: 9.99, Description: "Classic", Category: "jewelery", Image: "https://img.example/3.jpg", Rating: domain.Rating{Rate: 4.1, Count: 400}},
	{ID: 4, Title: "SanDisk SSD", Price: 109, Description: "Fast", Category: "electronics", Image: "https://img.example/4.jpg", Rating: domain.Rating{Rate: 2.9, Count: 470}},
}

// fakeUpstream serves the catalog, or a failure while failing is set.
type fakeUpstream struct {
	mu      sync.Mutex
	failing bool
	calls   int
	srv     *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		u.mu.Lock()
		failing := u.failing
		u.calls++
		u.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"upstream exploded"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(testCatalog)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *fakeUpstream) setFailing(v bool) {
	u.mu.Lock()
	u.failing = v
	u.mu.Unlock()
}

type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	upstream *fakeUpstream
	prefs    store.PreferenceStore
}

type envOption func(*Config, *app.Config)

func withLimiter(l ratelimit.Limiter) envOption {
	return func(cfg *Config, _ *app.Config) { cfg.Limiter = l }
}

func withPreferences(p store.PreferenceStore) envOption {
	return func(_ *Config, cfg *app.Config) { cfg.Preferences = p }
}

func newTestEnv(t *testing.T, upstream *fakeUpstream, opts ...envOption) *testEnv {
	t.Helper()
	appCfg := app.Config{
		Catalog:     catalog.NewClient(upstream.srv.URL, 0),
		Preferences: store.NewMemoryPreferenceStore(),
	}
	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	visitors, err := NewVisitorIssuer(testSecret, false)
	if err != nil {
		t.Fatalf("new visitor issuer: %v", err)
	}
	limiter, err := ratelimit.NewTokenBucketLimiter(1000)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close() })
	cfg := Config{Renderer: renderer, Visitors: visitors, Limiter: limiter}
	for _, opt := range opts {
		opt(&cfg, &appCfg)
	}
	core, err := app.New(appCfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	cfg.App = core
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, client: newClient(t), upstream: upstream, prefs: appCfg.Preferences}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func parseDoc(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func productCards(t *testing.T, body string) []*html.Node {
	t.Helper()
	return findAll(parseDoc(t, body), func(n *html.Node) bool {
		return n.Data == "article" && hasClass(n, "product-card")
	})
}

func bodyTheme(t *testing.T, body string) string {
	t.Helper()
	bodies := findAll(parseDoc(t, body), func(n *html.Node) bool { return n.Data == "body" })
	if len(bodies) != 1 {
		t.Fatalf("expected one body element, got %d", len(bodies))
	}
	return attr(bodies[0], "class")
}

func countCategory(products []domain.Product, category string) int {
	n := 0
	for _, p := range products {
		if p.Category == category {
			n++
		}
	}
	return n
}
