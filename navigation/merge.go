package navigation

import (
	"sort"
	"strconv"

	"github.com/foomo/contentsite/sanitize"
	"github.com/foomo/contentsite/service/vo"
)

const pagesPrefix = "/pages/"

// Merge returns the static items in declaration order followed by the
// dynamic listings, which are filtered to those with a slug that are flagged
// for the menu and stable-sorted by their order index.
func Merge(static []vo.NavigationItem, dynamic []vo.PageListing) []vo.NavigationItem {
	items := make([]vo.NavigationItem, 0, len(static)+len(dynamic))
	for i, item := range static {
		if item.ID == "" {
			item.ID = fallbackID(item, i)
		}
		items = append(items, item)
	}

	pages := make([]vo.PageListing, 0, len(dynamic))
	for _, listing := range dynamic {
		listing.Slug = sanitize.NormalizeSlug(listing.Slug)
		if listing.Slug == "" || !listing.Shown() {
			continue
		}
		pages = append(pages, listing)
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Order < pages[j].Order
	})

	for _, page := range pages {
		label := page.Label
		if label == "" {
			label = page.Slug
		}
		items = append(items, vo.NavigationItem{
			ID:    "page-" + page.Slug,
			Label: label,
			Type:  vo.NavigationRoute,
			Path:  pagesPrefix + page.Slug,
		})
	}
	return items
}

func fallbackID(item vo.NavigationItem, index int) string {
	var prefix, target string
	switch {
	case item.Section != "":
		prefix, target = "section-", item.Section
	case item.Path != "":
		prefix, target = "route-", item.Path
	case item.Href != "":
		prefix, target = "external-", item.Href
	}
	if slug := sanitize.SanitizeSlug(target); slug != "" {
		return prefix + slug
	}
	if target == "/" {
		return prefix + "root"
	}
	return "static-" + strconv.Itoa(index)
}
