package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/foomo/contentsite/content"
	"github.com/foomo/contentsite/markup"
	"github.com/foomo/contentsite/metrics"
	"github.com/foomo/contentsite/navigation"
	"github.com/foomo/contentsite/pagecache"
	"github.com/foomo/contentsite/service/vo"
	"github.com/foomo/contentsite/tutorials"
	"github.com/golang/groupcache/lru"
	"go.uber.org/zap"
)

// ErrSuperseded is returned by OpenPage when a newer OpenPage replaced it.
var ErrSuperseded = fmt.Errorf("superseded by a newer page open: %w", context.Canceled)

// PageSource provides published pages and the page listing for the menu.
type PageSource interface {
	pagecache.Fetcher
	navigation.Lister
}

// API is the REST surface the site needs. *api.Client implements it.
type API interface {
	PageSource
	content.Client
	tutorials.Client
	SearchTutorials(ctx context.Context, q, topic string) ([]vo.Tutorial, error)
	CreatePage(ctx context.Context, page vo.Page) (*vo.Page, error)
	UpdatePage(ctx context.Context, page vo.Page) (*vo.Page, error)
	DeletePage(ctx context.Context, id string) error
	CreatePost(ctx context.Context, post vo.Post) (*vo.Post, error)
	UpdatePost(ctx context.Context, post vo.Post) (*vo.Post, error)
	DeletePost(ctx context.Context, id string) error
}

type EventKind string

const (
	EventPageFetched     EventKind = "page_fetched"
	EventPageStale       EventKind = "page_stale"
	EventPageInvalidated EventKind = "page_invalidated"
	EventSectionUpdated  EventKind = "section_updated"
)

type Event struct {
	Kind    EventKind `json:"kind"`
	Slug    string    `json:"slug,omitempty"`
	Section string    `json:"section,omitempty"`
}

type settings struct {
	logger    *zap.Logger
	metrics   *metrics.Metrics
	source    PageSource
	cacheSize int
	baseDelay time.Duration
	observer  func(Event)
}

type Option func(*settings)

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithPageSource serves pages and the menu listing from source instead of
// the API.
func WithPageSource(source PageSource) Option {
	return func(s *settings) {
		s.source = source
	}
}

func WithCacheSize(size int) Option {
	return func(s *settings) {
		s.cacheSize = size
	}
}

func WithRetryBaseDelay(d time.Duration) Option {
	return func(s *settings) {
		s.baseDelay = d
	}
}

func WithObserver(fn func(Event)) Option {
	return func(s *settings) {
		s.observer = fn
	}
}

// Site is the application state of one process. It is safe for concurrent
// use.
type Site struct {
	api       API
	logger    *zap.Logger
	observer  func(Event)
	pages     *pagecache.Cache
	content   *content.Store
	menu      *navigation.Menu
	navLoader *navigation.Loader
	tutorials *tutorials.List

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	views *lru.Cache        // viewer -> *pageView
	slugs map[string]string // page id -> slug
}

// pageView is the page state of one viewer.
type pageView struct {
	seq     uint64
	cancel  context.CancelFunc
	current *pagecache.Result
}

// maxViewers bounds the remembered viewers; the least recently active one
// is forgotten first.
const maxViewers = 1024

type viewerKey struct{}

// WithViewer names the viewer a page open belongs to. Opens of the same
// viewer replace each other, opens of different viewers are independent.
// Without a viewer the open belongs to the default viewer "".
func WithViewer(ctx context.Context, viewer string) context.Context {
	return context.WithValue(ctx, viewerKey{}, viewer)
}

func viewerFromContext(ctx context.Context) string {
	viewer, _ := ctx.Value(viewerKey{}).(string)
	return viewer
}

func New(client API, opts ...Option) *Site {
	cfg := settings{
		logger:    zap.NewNop(),
		source:    client,
		cacheSize: pagecache.DefaultSize,
		baseDelay: tutorials.DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Site{
		api:      client,
		logger:   cfg.logger,
		observer: cfg.observer,
		menu:     navigation.NewMenu(),
		views:    lru.New(maxViewers),
		slugs:    map[string]string{},
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.pages = pagecache.New(cfg.source,
		pagecache.WithLogger(cfg.logger.Named("pages")),
		pagecache.WithMetrics(cfg.metrics),
		pagecache.WithSize(cfg.cacheSize),
		pagecache.WithObserver(s.onCacheEvent),
	)
	s.content = content.NewStore(client,
		content.WithLogger(cfg.logger.Named("content")),
		content.WithMetrics(cfg.metrics),
		content.WithUpdateHook(s.onSectionUpdate),
	)
	s.menu.SetStatic(s.content.Sections().Header.Navigation)
	s.navLoader = navigation.NewLoader(cfg.source, s.menu, cfg.logger.Named("navigation"), cfg.metrics)
	s.tutorials = tutorials.New(client,
		tutorials.WithLogger(cfg.logger.Named("tutorials")),
		tutorials.WithMetrics(cfg.metrics),
		tutorials.WithBaseDelay(cfg.baseDelay),
	)
	return s
}

// Start loads content, navigation and tutorials. Failures leave the defaults
// in place and are returned joined; the site stays usable.
func (s *Site) Start(ctx context.Context) error {
	ctx, stop := s.bind(ctx)
	defer stop()

	var errs []error
	if err := s.content.Load(ctx); err != nil {
		s.logger.Warn("using default content", zap.Error(err))
		errs = append(errs, err)
	}
	s.menu.SetStatic(s.content.Sections().Header.Navigation)
	if err := s.navLoader.Refresh(ctx); err != nil {
		s.logger.Warn("navigation without pages", zap.Error(err))
		errs = append(errs, err)
	}
	s.tutorials.Load(ctx)
	return errors.Join(errs...)
}

// Close cancels all in-flight work.
func (s *Site) Close() {
	s.cancel()
}

// bind derives a context that is also canceled by Close.
func (s *Site) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// OpenPage makes slug the current page of the viewer in ctx (see
// WithViewer). It cancels that viewer's previous OpenPage, so a late
// response never replaces a newer page.
func (s *Site) OpenPage(ctx context.Context, slug string, force bool) (*pagecache.Result, error) {
	viewer := viewerFromContext(ctx)
	ctx, stop := s.bind(ctx)
	defer stop()

	s.mu.Lock()
	v := s.view(viewer)
	if v.cancel != nil {
		v.cancel()
	}
	v.seq++
	seq := v.seq
	v.cancel = stop
	s.mu.Unlock()

	res, err := s.pages.Fetch(ctx, slug, pagecache.Options{Force: force})

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != v.seq {
		return nil, ErrSuperseded
	}
	v.cancel = nil
	if err != nil {
		return nil, err
	}
	v.current = res
	s.slugs[res.Page.Page.ID] = res.Slug
	return res, nil
}

// view returns the state of viewer, creating it if needed. s.mu must be held.
func (s *Site) view(viewer string) *pageView {
	if v, ok := s.views.Get(viewer); ok {
		return v.(*pageView)
	}
	v := &pageView{}
	s.views.Add(viewer, v)
	return v
}

// CurrentPage returns the current page of the default viewer.
func (s *Site) CurrentPage() *pagecache.Result {
	return s.CurrentPageOf("")
}

func (s *Site) CurrentPageOf(viewer string) *pagecache.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views.Get(viewer); ok {
		return v.(*pageView).current
	}
	return nil
}

// Document opens slug for the viewer in ctx and renders its posts as Markdown in display order.
func (s *Site) Document(ctx context.Context, slug string, force bool) (*vo.PageDocument, error) {
	res, err := s.OpenPage(ctx, slug, force)
	if err != nil {
		return nil, err
	}
	posts := make([]vo.Post, len(res.Page.Posts))
	copy(posts, res.Page.Posts)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Order < posts[j].Order
	})

	doc := &vo.PageDocument{
		Slug: res.Slug,
		ContentSummary: vo.ContentSummary{
			Title:       res.Page.Page.Title,
			Description: res.Page.Page.Description,
		},
		Stale: res.Stale,
	}
	for _, post := range posts {
		md, err := markup.ToMarkdown(post.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to render post %q: %w", post.ID, err)
		}
		doc.Posts = append(doc.Posts, vo.PostDocument{ID: post.ID, Title: post.Title, Markdown: md})
		if doc.Description == "" {
			doc.Description = markup.Summarize(post.Content).Description
		}
	}
	return doc, nil
}

// InvalidatePage drops slug from the page cache, or every page if slug is
// empty.
func (s *Site) InvalidatePage(slug string) {
	if slug == "" {
		s.pages.InvalidateAll()
		return
	}
	s.pages.Invalidate(slug)
}

// SavePage creates or updates page, drops its cached versions and
// refreshes the menu.
func (s *Site) SavePage(ctx context.Context, page vo.Page) (*vo.Page, error) {
	var (
		saved *vo.Page
		err   error
	)
	if page.ID == "" {
		saved, err = s.api.CreatePage(ctx, page)
	} else {
		saved, err = s.api.UpdatePage(ctx, page)
	}
	if err != nil {
		return nil, err
	}
	s.forgetPage(saved.ID, page.Slug, saved.Slug)
	s.refreshNavigation(ctx)
	return saved, nil
}

func (s *Site) DeletePage(ctx context.Context, page vo.Page) error {
	if err := s.api.DeletePage(ctx, page.ID); err != nil {
		return err
	}
	s.forgetPage(page.ID, page.Slug)
	s.refreshNavigation(ctx)
	return nil
}

func (s *Site) SavePost(ctx context.Context, post vo.Post) (*vo.Post, error) {
	var (
		saved *vo.Post
		err   error
	)
	if post.ID == "" {
		saved, err = s.api.CreatePost(ctx, post)
	} else {
		saved, err = s.api.UpdatePost(ctx, post)
	}
	if err != nil {
		return nil, err
	}
	s.invalidatePageOf(post.PageID)
	return saved, nil
}

func (s *Site) DeletePost(ctx context.Context, post vo.Post) error {
	if err := s.api.DeletePost(ctx, post.ID); err != nil {
		return err
	}
	s.invalidatePageOf(post.PageID)
	return nil
}

// forgetPage invalidates every slug the page is or was known under.
func (s *Site) forgetPage(id string, slugs ...string) {
	s.mu.Lock()
	if known, ok := s.slugs[id]; ok {
		slugs = append(slugs, known)
	}
	delete(s.slugs, id)
	s.mu.Unlock()
	for _, slug := range slugs {
		if slug != "" {
			s.pages.Invalidate(slug)
		}
	}
}

// invalidatePageOf drops the page a post belongs to. Without a known slug
// every page goes.
func (s *Site) invalidatePageOf(pageID string) {
	s.mu.Lock()
	slug, ok := s.slugs[pageID]
	s.mu.Unlock()
	if !ok {
		s.pages.InvalidateAll()
		return
	}
	s.pages.Invalidate(slug)
}

func (s *Site) refreshNavigation(ctx context.Context) {
	if err := s.navLoader.Refresh(ctx); err != nil {
		s.logger.Warn("navigation refresh after page write failed", zap.Error(err))
	}
}

func (s *Site) Sections() content.Sections {
	return s.content.Sections()
}

// UpdateSection stores raw as section key. Updating the header re-seeds the
// static menu items.
func (s *Site) UpdateSection(ctx context.Context, key content.Key, raw string) (content.Sections, error) {
	ctx, stop := s.bind(ctx)
	defer stop()
	return s.content.Update(ctx, key, raw)
}

func (s *Site) Navigation() []vo.NavigationItem {
	return s.menu.Items()
}

func (s *Site) RefreshNavigation(ctx context.Context) error {
	ctx, stop := s.bind(ctx)
	defer stop()
	return s.navLoader.Refresh(ctx)
}

func (s *Site) Tutorials() *tutorials.List {
	return s.tutorials
}

func (s *Site) LoadTutorials(ctx context.Context) tutorials.Snapshot {
	ctx, stop := s.bind(ctx)
	defer stop()
	s.tutorials.Load(ctx)
	return s.tutorials.Snapshot()
}

func (s *Site) SearchTutorials(ctx context.Context, q, topic string) ([]vo.Tutorial, error) {
	return s.api.SearchTutorials(ctx, q, topic)
}

func (s *Site) onSectionUpdate(key content.Key, sections content.Sections) {
	if key == content.KeyHeader {
		s.menu.SetStatic(sections.Header.Navigation)
	}
	s.emit(Event{Kind: EventSectionUpdated, Section: string(key)})
}

func (s *Site) onCacheEvent(e pagecache.Event) {
	switch e.Kind {
	case pagecache.EventFetched:
		s.emit(Event{Kind: EventPageFetched, Slug: e.Slug})
	case pagecache.EventStale:
		s.emit(Event{Kind: EventPageStale, Slug: e.Slug})
	case pagecache.EventInvalidated, pagecache.EventCleared:
		s.emit(Event{Kind: EventPageInvalidated, Slug: e.Slug})
	}
}

func (s *Site) emit(e Event) {
	if s.observer != nil {
		s.observer(e)
	}
}
