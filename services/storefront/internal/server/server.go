package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/ratelimit"
	"storefront/internal/util"
	"storefront/pkg/domain"
	"storefront/services/storefront/internal/app"
	"storefront/services/storefront/internal/view"
)

const (
	maxFormBytes      = 64 << 10
	retryAfterSeconds = "60"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Renderer       *view.Renderer
	Visitors       *VisitorIssuer
	Limiter        ratelimit.Limiter
	TrustedProxies *util.TrustedProxies
	CORSOrigins    []string
}

// Server serves the storefront pages, form actions and JSON API.
type Server struct {
	app         *app.App
	renderer    *view.Renderer
	visitors    *VisitorIssuer
	limiter     ratelimit.Limiter
	trusted     *util.TrustedProxies
	corsOrigins []string
	stylesheet  []byte
	mux         *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.App == nil:
		return nil, errors.New("server: app is required")
	case cfg.Renderer == nil:
		return nil, errors.New("server: renderer is required")
	case cfg.Visitors == nil:
		return nil, errors.New("server: visitor issuer is required")
	case cfg.Limiter == nil:
		return nil, errors.New("server: rate limiter is required")
	}
	s := &Server{
		app:         cfg.App,
		renderer:    cfg.Renderer,
		visitors:    cfg.Visitors,
		limiter:     cfg.Limiter,
		trusted:     cfg.TrustedProxies,
		corsOrigins: cfg.CORSOrigins,
		stylesheet:  view.Stylesheet(),
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(s.trusted, util.WithSecurityHeaders(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/static/theme.css", s.handleStylesheet)

	// pages
	s.mux.HandleFunc("/", s.handleHome)
	s.mux.HandleFunc("/about", s.handleAbout)
	s.mux.HandleFunc("/contact", s.handleContact)
	s.mux.HandleFunc("/product/", s.handleProduct)

	// form actions
	s.mux.HandleFunc("/theme", s.handleSetTheme)
	s.mux.HandleFunc("/catalog/refresh", s.handleRefresh)

	// json api
	s.mux.Handle("/api/theme", s.api(s.handleAPITheme))
	s.mux.Handle("/api/products", s.api(s.handleAPIProducts))
	s.mux.Handle("/api/products/", s.api(s.handleAPIProductByID))
	s.mux.Handle("/api/categories", s.api(s.handleAPICategories))
}

func (s *Server) api(h http.HandlerFunc) http.Handler {
	return util.WithCORS(s.corsOrigins, h)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"catalog": string(s.app.Products.Snapshot().Status),
	})
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(s.stylesheet)
}

// pages

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.renderNotFound(w, r, view.MissingPage())
		return
	}
	if !allowRead(w, r) {
		return
	}
	theme := s.theme(w, r)
	snap := s.app.Products.EnsureLoaded(r.Context())
	content := view.Home(snap, r.URL.Query().Get("category"))
	s.render(w, r, http.StatusOK, view.NewPage(view.PageHome, "Home", "/", r.URL.RequestURI(), theme, content))
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	theme := s.theme(w, r)
	s.render(w, r, http.StatusOK, view.NewPage(view.PageAbout, "About", "/about", "/about", theme, view.About()))
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		theme := s.theme(w, r)
		s.render(w, r, http.StatusOK, view.NewPage(view.PageContact, "Contact", "/contact", "/contact", theme,
			view.Contact(domain.ContactMessage{}, false, "")))
	case http.MethodPost:
		s.submitContact(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodHead, http.MethodPost)
	}
}

func (s *Server) submitContact(w http.ResponseWriter, r *http.Request) {
	theme := s.theme(w, r)
	page := func(status int, content view.ContactContent) {
		s.render(w, r, status, view.NewPage(view.PageContact, "Contact", "/contact", "/contact", theme, content))
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		page(http.StatusBadRequest, view.Contact(domain.ContactMessage{}, false, "Your message could not be read. Please try again."))
		return
	}
	msg := domain.ContactMessage{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Subject: strings.TrimSpace(r.PostFormValue("subject")),
		Message: strings.TrimSpace(r.PostFormValue("message")),
	}
	if s.rateLimited(r, "contact") {
		w.Header().Set("Retry-After", retryAfterSeconds)
		page(http.StatusTooManyRequests, view.Contact(msg, false, "Too many messages. Please wait a minute and try again."))
		return
	}
	err := s.app.Contact.Submit(r.Context(), msg)
	switch {
	case err == nil:
		s.audit(r, "storefront.contact.submit", "success")
		page(http.StatusOK, view.Contact(msg, true, ""))
	case errors.Is(err, app.ErrIncompleteContact):
		s.audit(r, "storefront.contact.submit", "fail", "reason", "incomplete")
		page(http.StatusBadRequest, view.Contact(msg, false, "Please fill in every field."))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		util.LoggerFromContext(r.Context()).Info("contact submission abandoned", "err", err)
	default:
		util.LoggerFromContext(r.Context()).Error("contact submission failed", "err", err)
		page(http.StatusInternalServerError, view.Contact(msg, false, "Something went wrong. Please try again."))
	}
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/product/")
	if raw == "" || strings.Contains(raw, "/") {
		s.renderNotFound(w, r, view.MissingPage())
		return
	}
	theme := s.theme(w, r)
	snap := s.app.Products.Snapshot()
	if snap.Loading() {
		s.render(w, r, http.StatusOK, view.NewPage(view.PageLoading, "Loading", r.URL.Path, r.URL.RequestURI(), theme, nil))
		return
	}
	product, err := lookupProduct(snap, raw)
	if err != nil {
		s.render(w, r, http.StatusNotFound, view.NewPage(view.PageNotFound, "Product not found", r.URL.Path, "/", theme, view.ProductNotFound()))
		return
	}
	q := r.URL.Query()
	content := view.Detail(product, domain.ParseQuantity(q.Get("qty")), q.Get("op"))
	content.Added = q.Get("added") != ""
	redirect := fmt.Sprintf("/product/%d?qty=%d", product.ID, content.Quantity)
	s.render(w, r, http.StatusOK, view.NewPage(view.PageDetail, product.Title, r.URL.Path, redirect, theme, content))
}

// form actions

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.renderNotice(w, r, http.StatusBadRequest, view.Notice("Theme not changed", "The theme form could not be read.", "/"))
		return
	}
	back := safeRedirect(r.PostFormValue("redirect"))
	if !s.allowFormRate(w, r, "theme", back) {
		return
	}
	theme, err := domain.ParseTheme(r.PostFormValue("theme"))
	if err != nil {
		s.audit(r, "storefront.theme.set", "fail", "reason", "invalid_theme")
		s.renderNotice(w, r, http.StatusBadRequest, view.Notice("Theme not changed", "That theme is not available. Choose one of the themes in the header.", back))
		return
	}
	visitorID, ok := s.visitor(w, r)
	if !ok {
		s.renderNotice(w, r, http.StatusInternalServerError, view.Notice("Theme not changed", "Something went wrong. Please try again.", back))
		return
	}
	if err := s.app.Themes.SetTheme(r.Context(), visitorID, theme); err != nil {
		s.renderNotice(w, r, http.StatusBadRequest, view.Notice("Theme not changed", "That theme is not available.", back))
		return
	}
	s.audit(r, "storefront.theme.set", "success", "theme", theme)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.allowFormRate(w, r, "refresh", "/") {
		return
	}
	if err := s.app.Products.Fetch(context.WithoutCancel(r.Context())); err != nil {
		s.audit(r, "storefront.catalog.refresh", "fail", "err", err)
	} else {
		s.audit(r, "storefront.catalog.refresh", "success")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// json api

type themeRequest struct {
	Theme string `json:"theme"`
}

type themeResponse struct {
	Theme domain.Theme `json:"theme"`
}

type productsResponse struct {
	Category string             `json:"category"`
	Products []domain.Product   `json:"products"`
	Status   domain.FetchStatus `json:"status"`
}

func (s *Server) handleAPITheme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, themeResponse{Theme: s.theme(w, r)})
	case http.MethodPut:
		if !s.allowRate(w, r, "theme") {
			return
		}
		var req themeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		theme, err := domain.ParseTheme(req.Theme)
		if err != nil {
			s.audit(r, "storefront.theme.set", "fail", "reason", "invalid_theme")
			writeError(w, http.StatusBadRequest, "invalid theme")
			return
		}
		visitorID, ok := s.visitor(w, r)
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := s.app.Themes.SetTheme(r.Context(), visitorID, theme); err != nil {
			writeError(w, http.StatusBadRequest, "invalid theme")
			return
		}
		s.audit(r, "storefront.theme.set", "success", "theme", theme)
		writeJSON(w, http.StatusOK, themeResponse{Theme: theme})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) handleAPIProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	snap, ok := s.loadedCatalog(w, r)
	if !ok {
		return
	}
	category := app.NormalizeCategory(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, productsResponse{
		Category: category,
		Products: app.FilterByCategory(snap.Products, category),
		Status:   snap.Status,
	})
}

func (s *Server) handleAPIProductByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	snap, ok := s.loadedCatalog(w, r)
	if !ok {
		return
	}
	product, err := lookupProduct(snap, strings.TrimPrefix(r.URL.Path, "/api/products/"))
	if err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	snap, ok := s.loadedCatalog(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": app.Categories(snap.Products)})
}

// loadedCatalog makes sure a fetch has been issued and maps pending and
// failed states onto 503 and 502.
func (s *Server) loadedCatalog(w http.ResponseWriter, r *http.Request) (domain.CatalogSnapshot, bool) {
	snap := s.app.Products.EnsureLoaded(r.Context())
	switch snap.Status {
	case domain.FetchPending:
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "catalog is loading")
		return snap, false
	case domain.FetchFailed:
		writeError(w, http.StatusBadGateway, snap.Error())
		return snap, false
	}
	return snap, true
}

// helpers

func lookupProduct(snap domain.CatalogSnapshot, raw string) (domain.Product, error) {
	id, err := app.ParseProductID(raw)
	if err != nil {
		return domain.Product{}, err
	}
	return app.FindProduct(snap.Products, id)
}

// visitor resolves (or issues) the visitor id for this request.
func (s *Server) visitor(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := s.visitors.Resolve(w, r)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("issue visitor cookie failed", "err", err)
		return "", false
	}
	return id, true
}

func (s *Server) theme(w http.ResponseWriter, r *http.Request) domain.Theme {
	visitorID, ok := s.visitor(w, r)
	if !ok {
		return domain.DefaultTheme
	}
	return s.app.Themes.Theme(r.Context(), visitorID)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page view.Page) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, page); err != nil {
		util.LoggerFromContext(r.Context()).Error("render page failed", "page", page.Name, "err", err)
		http.Error(w, "internal error (request "+util.RequestIDFromRequest(r)+")", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request, content view.NotFoundContent) {
	theme := s.theme(w, r)
	s.render(w, r, http.StatusNotFound, view.NewPage(view.PageNotFound, content.Heading, r.URL.Path, "/", theme, content))
}

func (s *Server) renderNotice(w http.ResponseWriter, r *http.Request, status int, content view.NoticeContent) {
	theme := s.theme(w, r)
	s.render(w, r, status, view.NewPage(view.PageNotice, content.Heading, r.URL.Path, content.Back, theme, content))
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("audit_event", logAttrs...)
		return
	}
	logger.Warn("audit_event", logAttrs...)
}

// rateLimited consumes one unit of the action quota for the client IP and
// reports whether the quota was already exhausted.
func (s *Server) rateLimited(r *http.Request, action string) bool {
	key := action + "|" + util.ClientIP(r, s.trusted)
	if s.limiter.Allow(r.Context(), key) {
		return false
	}
	s.audit(r, "storefront."+action, "rate_limited")
	return true
}

// allowRate answers limited API calls with a JSON 429.
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, action string) bool {
	if !s.rateLimited(r, action) {
		return true
	}
	w.Header().Set("Retry-After", retryAfterSeconds)
	writeError(w, http.StatusTooManyRequests, "too many requests")
	return false
}

// allowFormRate answers limited form posts with a themed 429 page linking to back.
func (s *Server) allowFormRate(w http.ResponseWriter, r *http.Request, action, back string) bool {
	if !s.rateLimited(r, action) {
		return true
	}
	w.Header().Set("Retry-After", retryAfterSeconds)
	s.renderNotice(w, r, http.StatusTooManyRequests, view.Notice("Slow down", "Too many requests. Please wait a minute and try again.", back))
	return false
}

// safeRedirect keeps redirects on this origin: only absolute paths without
// a host are accepted.
func safeRedirect(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return u.RequestURI()
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	methodNotAllowed(w, http.MethodGet, http.MethodHead)
	return false
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
