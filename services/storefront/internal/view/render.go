package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"storefront/pkg/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/base.css
var baseCSS []byte

// Page names accepted by Renderer.Render.
const (
	PageHome     = "home"
	PageDetail   = "detail"
	PageLoading  = "loading"
	PageNotFound = "notfound"
	PageAbout    = "about"
	PageContact  = "contact"
	PageNotice   = "notice"
)

var pageNames = []string{PageHome, PageDetail, PageLoading, PageNotFound, PageAbout, PageContact, PageNotice}

var funcs = template.FuncMap{
	"price":    domain.FormatPrice,
	"truncate": truncate,
	"stars":    stars,
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the layout together with every page template.
func NewRenderer() (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render writes the page named by p.Name to w. On error w may hold partial
// output, so callers render into a buffer.
func (r *Renderer) Render(w io.Writer, p Page) error {
	tmpl, ok := r.pages[p.Name]
	if !ok {
		return fmt.Errorf("unknown page %q", p.Name)
	}
	if err := tmpl.ExecuteTemplate(w, "layout", p); err != nil {
		return fmt.Errorf("render %s: %w", p.Name, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

// stars renders a five-star bar with the rounded rating filled.
func stars(rate float64) string {
	filled := int(math.Round(rate))
	if filled < 0 {
		filled = 0
	}
	if filled > 5 {
		filled = 5
	}
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}
