package navigation

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/foomo/contentsite/metrics"
	"github.com/foomo/contentsite/service/vo"
	"go.uber.org/zap"
)

// Menu memoizes Merge over its two inputs. The merged list is only
// recomputed after an input actually changed.
type Menu struct {
	mu       sync.Mutex
	static   []vo.NavigationItem
	dynamic  []vo.PageListing
	merged   []vo.NavigationItem
	dirty    bool
	computed int
}

func NewMenu() *Menu {
	return &Menu{dirty: true}
}

func (m *Menu) SetStatic(items []vo.NavigationItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.Equal(m.static, items) {
		return
	}
	m.static = slices.Clone(items)
	m.dirty = true
}

func (m *Menu) SetDynamic(listings []vo.PageListing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.EqualFunc(m.dynamic, listings, sameListing) {
		return
	}
	m.dynamic = slices.Clone(listings)
	m.dirty = true
}

func sameListing(a, b vo.PageListing) bool {
	return a.ID == b.ID && a.Slug == b.Slug && a.Label == b.Label && a.Order == b.Order && a.Shown() == b.Shown()
}

// Items returns the merged navigation. The slice is shared; do not modify it.
func (m *Menu) Items() []vo.NavigationItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirty {
		m.merged = Merge(m.static, m.dynamic)
		m.dirty = false
		m.computed++
	}
	return m.merged
}

type Lister interface {
	GetNavigation(ctx context.Context) ([]vo.PageListing, error)
}

// Loader feeds the dynamic half of a Menu from the published page listing.
type Loader struct {
	lister  Lister
	menu    *Menu
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewLoader(lister Lister, menu *Menu, logger *zap.Logger, m *metrics.Metrics) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{lister: lister, menu: menu, logger: logger, metrics: m}
}

// Refresh replaces the dynamic items. A canceled or failed refresh leaves
// the menu as it was.
func (l *Loader) Refresh(ctx context.Context) error {
	start := time.Now()
	listings, err := l.lister.GetNavigation(ctx)
	l.metrics.ObserveFetch("navigation", time.Since(start).Seconds())
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		l.metrics.LoadAttempt("navigation", "error")
		return fmt.Errorf("failed to load navigation: %w", err)
	}
	l.metrics.LoadAttempt("navigation", "ok")
	l.menu.SetDynamic(listings)
	l.logger.Debug("navigation refreshed", zap.Int("pages", len(listings)))
	return nil
}
