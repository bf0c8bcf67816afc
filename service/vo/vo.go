package vo

import "time"

type Markdown string

type ContentSummary struct {
	Title       string   `json:"title"`       // Page title
	Description string   `json:"description"` // 2-3 sentence abstract
	Keywords    []string `json:"keywords"`    // Keywords
}

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type HeroConfig struct {
	Title      string `json:"title,omitempty"`
	Subtitle   string `json:"subtitle,omitempty"`
	Image      string `json:"image,omitempty"`
	Background string `json:"background,omitempty"`
}

type LayoutConfig struct {
	Template string `json:"template,omitempty"` // e.g. "article", "grid"
	Columns  int    `json:"columns,omitempty"`
	Sidebar  bool   `json:"sidebar,omitempty"`
}

type Page struct {
	ID          string       `json:"id"`
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Hero        HeroConfig   `json:"hero"`
	Layout      LayoutConfig `json:"layout"`
	IsPublished bool         `json:"is_published"`
	ShowInNav   bool         `json:"show_in_nav"`
	NavOrder    int          `json:"nav_order"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

type Post struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt,omitempty"`
	Content   string    `json:"content"` // HTML from the rich text editor
	Order     int       `json:"order_index"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// PublishedPage is the response of GET /pages/:slug.
type PublishedPage struct {
	Page  Page   `json:"page"`
	Posts []Post `json:"posts"`
}

// PageListing is one published page offered to the menu by GET /navigation.
type PageListing struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Label     string `json:"label"`
	Order     int    `json:"order_index"`
	ShowInNav *bool  `json:"show_in_nav,omitempty"` // nil means shown
}

func (l PageListing) Shown() bool {
	return l.ShowInNav == nil || *l.ShowInNav
}

type NavigationType string

const (
	NavigationSection  NavigationType = "section"
	NavigationRoute    NavigationType = "route"
	NavigationExternal NavigationType = "external"
)

type NavigationItem struct {
	ID      string         `json:"id,omitempty"`
	Label   string         `json:"label"`
	Type    NavigationType `json:"type"`
	Section string         `json:"section,omitempty"` // in-page anchor
	Path    string         `json:"path,omitempty"`    // internal route
	Href    string         `json:"href,omitempty"`    // external target
}

type Tutorial struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Topics      []string  `json:"topics"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type Comment struct {
	ID         string    `json:"id"`
	TutorialID string    `json:"tutorial_id"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

type PostDocument struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Markdown Markdown `json:"markdown,omitempty"`
}

// PageDocument is a published page rendered for machine consumption.
type PageDocument struct {
	Slug           string `json:"slug"`
	ContentSummary `json:"contentSummary"`
	Stale          bool           `json:"stale,omitempty"`
	Posts          []PostDocument `json:"posts,omitempty"`
}
