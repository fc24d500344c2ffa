package view

import (
	"storefront/pkg/domain"
	"storefront/services/storefront/internal/app"
)

// NavItem is one header navigation link.
type NavItem struct {
	Path   string
	Label  string
	Active bool
}

var navItems = []NavItem{
	{Path: "/", Label: "Home"},
	{Path: "/about", Label: "About"},
	{Path: "/contact", Label: "Contact"},
}

// Page is the root value handed to every template.
type Page struct {
	Name     string
	Title    string
	Bundle   Bundle
	Themes   []Bundle
	Nav      []NavItem
	Redirect string
	Content  any
}

// NewPage builds the shell for a page rendered at path with the given theme.
// redirect is where the theme switcher returns after a change.
func NewPage(name, title, path, redirect string, theme domain.Theme, content any) Page {
	nav := make([]NavItem, len(navItems))
	for i, item := range navItems {
		item.Active = item.Path == path
		nav[i] = item
	}
	return Page{
		Name:     name,
		Title:    title,
		Bundle:   BundleFor(theme),
		Themes:   Bundles(),
		Nav:      nav,
		Redirect: redirect,
		Content:  content,
	}
}

// CategoryLink is one entry of the category filter.
type CategoryLink struct {
	Name     string
	Label    string
	Selected bool
}

type HomeContent struct {
	Loading    bool
	Error      string
	Categories []CategoryLink
	Filtered   bool
	Products   []domain.Product
}

// Home derives the home page from a catalog snapshot and the requested category.
func Home(snap domain.CatalogSnapshot, category string) HomeContent {
	category = app.NormalizeCategory(category)
	names := app.Categories(snap.Products)
	links := make([]CategoryLink, 0, len(names))
	for _, name := range names {
		label := name
		if name == domain.CategoryAll {
			label = "All"
		}
		links = append(links, CategoryLink{Name: name, Label: label, Selected: name == category})
	}
	return HomeContent{
		Loading:    snap.Loading(),
		Error:      snap.Error(),
		Categories: links,
		Filtered:   category != domain.CategoryAll,
		Products:   app.FilterByCategory(snap.Products, category),
	}
}

type DetailContent struct {
	Product   domain.Product
	Quantity  domain.Quantity
	LineTotal string
	// Added is set after the add-to-cart form was submitted.
	Added bool
}

// Detail applies an optional inc/dec step to qty and prices the line.
func Detail(p domain.Product, qty domain.Quantity, op string) DetailContent {
	switch op {
	case "inc":
		qty = qty.Increment()
	case "dec":
		qty = qty.Decrement()
	}
	return DetailContent{
		Product:   p,
		Quantity:  qty,
		LineTotal: domain.LineTotal(p.Price, qty),
	}
}

type NotFoundContent struct {
	Heading string
	Detail  string
}

func ProductNotFound() NotFoundContent {
	return NotFoundContent{Heading: "Product not found"}
}

func MissingPage() NotFoundContent {
	return NotFoundContent{Heading: "Page not found", Detail: "The page you are looking for does not exist."}
}

// NoticeContent explains why a form action was not applied.
type NoticeContent struct {
	Heading string
	Message string
	Back    string
}

func Notice(heading, message, back string) NoticeContent {
	if back == "" {
		back = "/"
	}
	return NoticeContent{Heading: heading, Message: message, Back: back}
}

type QuickLink struct {
	Anchor string
	Label  string
}

type TeamMember struct {
	Name        string
	Role        string
	Image       string
	Description string
}

type AboutContent struct {
	QuickLinks []QuickLink
	Values     []string
	Team       []TeamMember
}

func About() AboutContent {
	return AboutContent{
		QuickLinks: []QuickLink{
			{Anchor: "story", Label: "Our Story"},
			{Anchor: "team", Label: "Team"},
			{Anchor: "mission", Label: "Mission"},
			{Anchor: "values", Label: "Values"},
		},
		Values: []string{"Innovation", "Quality", "User-Centric", "Collaboration"},
		Team: []TeamMember{
			{
				Name:        "John Doe",
				Role:        "CEO & Founder",
				Image:       "https://images.unsplash.com/photo-1568602471122-7832951cc4c5?w=500&auto=format&fit=crop&q=60",
				Description: "Passionate about creating amazing user experiences.",
			},
			{
				Name:        "Jane Smith",
				Role:        "Lead Designer",
				Image:       "https://images.unsplash.com/photo-1557862921-37829c790f19?w=500&auto=format&fit=crop&q=60",
				Description: "Expert in creating beautiful and functional designs.",
			},
			{
				Name:        "Mike Johnson",
				Role:        "Senior Developer",
				Image:       "https://images.unsplash.com/photo-1615109398623-88346a601842?w=500&auto=format&fit=crop&q=60",
				Description: "Full-stack developer with years of experience.",
			},
		},
	}
}

type ContactInfo struct {
	Title   string
	Content string
}

type ContactContent struct {
	Form  domain.ContactMessage
	Sent  bool
	Error string
	Info  []ContactInfo
}

var contactInfo = []ContactInfo{
	{Title: "Address", Content: "123 Main Street, City, State 12345"},
	{Title: "Email", Content: "contact@themeapp.com"},
	{Title: "Phone", Content: "+1 (555) 123-4567"},
}

// Contact builds the contact page. A sent form is rendered cleared.
func Contact(form domain.ContactMessage, sent bool, errMsg string) ContactContent {
	if sent {
		form = domain.ContactMessage{}
	}
	return ContactContent{Form: form, Sent: sent, Error: errMsg, Info: contactInfo}
}
