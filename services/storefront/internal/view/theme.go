package view

import (
	"fmt"
	"strings"

	"storefront/pkg/domain"
)

// Layout selects the structural arrangement of a page.
type Layout string

const (
	LayoutInline  Layout = "inline"
	LayoutSidebar Layout = "sidebar"
)

// Palette holds the four color slots every theme defines.
type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Text      string
}

// Bundle is everything a template needs to style a page for one theme.
type Bundle struct {
	Theme       domain.Theme
	Label       string
	Description string
	Palette     Palette
	Layout      Layout
	BodyFont    string
	HeadingFont string
	Radius      string
	GridColumns int
}

// Sidebar reports whether pages render a persistent sidebar.
func (b Bundle) Sidebar() bool { return b.Layout == LayoutSidebar }

var bundles = map[domain.Theme]Bundle{
	domain.ThemeMinimal: {
		Theme:       domain.ThemeMinimal,
		Label:       "Theme 1",
		Description: "Minimalist",
		Palette:     Palette{Primary: "#f8fafc", Secondary: "#e2e8f0", Accent: "#2563eb", Text: "#1e293b"},
		Layout:      LayoutInline,
		BodyFont:    "Inter, sans-serif",
		HeadingFont: "Inter, sans-serif",
		Radius:      "0.5rem",
		GridColumns: 4,
	},
	domain.ThemeDark: {
		Theme:       domain.ThemeDark,
		Label:       "Theme 2",
		Description: "Dark Mode",
		Palette:     Palette{Primary: "#0f172a", Secondary: "#1e293b", Accent: "#3b82f6", Text: "#f1f5f9"},
		Layout:      LayoutSidebar,
		BodyFont:    "Georgia, serif",
		HeadingFont: "Georgia, serif",
		Radius:      "0.75rem",
		GridColumns: 3,
	},
	domain.ThemeColorful: {
		Theme:       domain.ThemeColorful,
		Label:       "Theme 3",
		Description: "Colorful",
		Palette:     Palette{Primary: "#fef3c7", Secondary: "#fbbf24", Accent: "#ef4444", Text: "#92400e"},
		Layout:      LayoutInline,
		BodyFont:    "Inter, sans-serif",
		HeadingFont: "Pacifico, cursive",
		Radius:      "1rem",
		GridColumns: 4,
	},
}

// BundleFor returns the bundle of theme, or the default theme's bundle for
// values outside the enum.
func BundleFor(theme domain.Theme) Bundle {
	if b, ok := bundles[theme]; ok {
		return b
	}
	return bundles[domain.DefaultTheme]
}

// Bundles lists every bundle in theme display order.
func Bundles() []Bundle {
	themes := domain.Themes()
	out := make([]Bundle, 0, len(themes))
	for _, t := range themes {
		out = append(out, bundles[t])
	}
	return out
}

// Stylesheet renders the shared stylesheet: one custom-property block per
// theme followed by the base rules, which only reference the properties.
func Stylesheet() []byte {
	var b strings.Builder
	for _, bundle := range Bundles() {
		p := bundle.Palette
		fmt.Fprintf(&b, "body.%s {\n", bundle.Theme)
		fmt.Fprintf(&b, "  --primary: %s;\n  --secondary: %s;\n  --accent: %s;\n  --text: %s;\n", p.Primary, p.Secondary, p.Accent, p.Text)
		fmt.Fprintf(&b, "  --font-body: %s;\n  --font-heading: %s;\n  --radius: %s;\n  --grid-columns: %d;\n", bundle.BodyFont, bundle.HeadingFont, bundle.Radius, bundle.GridColumns)
		b.WriteString("}\n")
	}
	b.Write(baseCSS)
	return []byte(b.String())
}
