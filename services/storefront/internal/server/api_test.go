package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"storefront/pkg/domain"
)

func decodeJSON(t *testing.T, body string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
}

func (e *testEnv) putJSON(t *testing.T, path, payload string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, e.srv.URL+path, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("PUT %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func TestAPIProducts(t *testing.T) {
	env := newTestEnv(t, newFakeUpstream(t))

	resp, body := env.get(t, "/api/products")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var all productsResponse
	decodeJSON(t, body, &all)
	if all.Category != domain.CategoryAll || len(all.Products) != len(testCatalog) || all.Status != domain.FetchSucceeded {
		t.Fatalf("unexpected payload %+v", all)
	}

	_, body = env.get(t, "/api/products?category=electronics")
	var filtered productsResponse
	decodeJSON(t, body, &filtered)
	if len(filtered.Products) != countCategory(testCatalog, "electronics") {
		t.Fatalf("expected electronics only, got %d products", len(filtered.Products))
	}
	for _, p := range filtered.Products {
		if p.Category != "electronics" {
			t.Fatalf("unexpected category %q", p.Category)
		}
	}
}

func TestAPIProductByID(t *testing.T) {
	env := newTestEnv(t, newFakeUpstream(t))

	resp, body := env.get(t, "/api/products/3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var p domain.Product
	decodeJSON(t, body, &p)
	if p.ID != 3 || p.Title != "Silver Ring" {
		t.Fatalf("unexpected product %+v", p)
	}

	for _, path := range []string{"/api/products/99", "/api/products/abc"} {
		resp, body := env.get(t, path)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
		var payload map[string]string
		decodeJSON(t, body, &payload)
		if payload["error"] != "product not found" {
			t.Fatalf("%s: unexpected error %q", path, payload["error"])
		}
	}
}

func TestAPICategories(t *testing.T) {
	env := newTestEnv(t, newFakeUpstream(t))

	_, body := env.get(t, "/api/categories")
	var payload map[string][]string
	decodeJSON(t, body, &payload)
	want := []string{"all", "men's clothing", "electronics", "jewelery"}
	got := payload["categories"]
	if len(got) != len(want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("categories = %v, want %v", got, want)
		}
	}
}

func TestAPIUpstreamFailureIsBadGateway(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.setFailing(true)
	env := newTestEnv(t, upstream)

	resp, body := env.get(t, "/api/products")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var payload map[string]string
	decodeJSON(t, body, &payload)
	if payload["error"] != "upstream exploded" {
		t.Fatalf("unexpected error %q", payload["error"])
	}
}

func TestAPITheme(t *testing.T) {
	env := newTestEnv(t, newFakeUpstream(t))

	_, body := env.get(t, "/api/theme")
	var got themeResponse
	decodeJSON(t, body, &got)
	if got.Theme != domain.DefaultTheme {
		t.Fatalf("expected default theme, got %q", got.Theme)
	}

	resp, body := env.putJSON(t, "/api/theme", `{"theme":"theme-3"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	_, body = env.get(t, "/api/theme")
	decodeJSON(t, body, &got)
	if got.Theme != domain.ThemeColorful {
		t.Fatalf("expected theme-3, got %q", got.Theme)
	}
	_, page := env.get(t, "/contact")
	if bodyTheme(t, page) != "theme-3" {
		t.Fatalf("api theme change must apply to pages")
	}

	resp, _ = env.putJSON(t, "/api/theme", `{"theme":"neon"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown theme, got %d", resp.StatusCode)
	}
	resp, _ = env.putJSON(t, "/api/theme", `{`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestAPICORSPreflight(t *testing.T) {
	env := newTestEnv(t, newFakeUpstream(t))

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/theme", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	// No allowed origins are configured in the test env.
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow-origin %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}
