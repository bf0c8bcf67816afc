// Package contentserver serves published pages and the navigation listing
// from a foomo contentserver instead of the REST API.
package contentserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/foomo/contentsite/api"
	"github.com/foomo/contentsite/sanitize"
	"github.com/foomo/contentsite/service/vo"
	contentserverclient "github.com/foomo/contentserver/client"
	"github.com/foomo/contentserver/content"
	"github.com/foomo/contentserver/requests"
	"go.uber.org/zap"
)

const PagesPrefix = "/pages/"

// Client is the subset of *contentserverclient.Client the Source uses.
type Client interface {
	GetContent(ctx context.Context, cmd *requests.Content) (*content.SiteContent, error)
	GetNodes(ctx context.Context, env *requests.Env, nodes map[string]*requests.Node) (map[string]*content.Node, error)
}

type Settings struct {
	Env       *requests.Env
	RootID    string
	MimeTypes []string
}

type Source struct {
	client   Client
	settings Settings
	logger   *zap.Logger
}

// NewHTTPClient connects to a contentserver over its HTTP transport.
func NewHTTPClient(url string, httpClient *http.Client) *contentserverclient.Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: api.DefaultTimeout}
	}
	return contentserverclient.New(
		contentserverclient.NewHTTPTransport(
			url,
			contentserverclient.HTTPTransportWithHTTPClient(httpClient),
		))
}

func New(client Client, settings Settings, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.Env == nil {
		settings.Env = &requests.Env{}
	}
	return &Source{client: client, settings: settings, logger: logger}
}

// itemData is the shape pages are stored with in the contentserver item data.
type itemData struct {
	Description string          `json:"description"`
	Hero        vo.HeroConfig   `json:"hero"`
	Layout      vo.LayoutConfig `json:"layout"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Posts       []vo.Post       `json:"posts"`
}

// FetchPublishedPage resolves /pages/<slug> on the contentserver.
func (s *Source) FetchPublishedPage(ctx context.Context, slug string) (*vo.PublishedPage, error) {
	uri := PagesPrefix + slug
	siteContent, err := s.client.GetContent(ctx, &requests.Content{
		URI:   uri,
		Env:   s.settings.Env,
		Nodes: map[string]*requests.Node{},
	})
	if err != nil {
		return nil, err
	}
	if siteContent.Status != content.StatusOk {
		return nil, &api.Error{
			Status:  int(siteContent.Status),
			Method:  http.MethodGet,
			Path:    uri,
			Message: "contentserver",
		}
	}
	if siteContent.Item == nil {
		return nil, &api.Error{Status: http.StatusNotFound, Method: http.MethodGet, Path: uri}
	}

	var data itemData
	if err := decodeItemData(siteContent.Item.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode item data of %q: %w", uri, err)
	}
	page := vo.Page{
		ID:          siteContent.Item.ID,
		Slug:        slug,
		Title:       siteContent.Item.Name,
		Description: data.Description,
		Hero:        data.Hero,
		Layout:      data.Layout,
		IsPublished: true,
		ShowInNav:   !siteContent.Item.Hidden,
		UpdatedAt:   data.UpdatedAt,
	}
	posts := data.Posts
	if posts == nil {
		posts = []vo.Post{}
	}
	for i := range posts {
		posts[i].PageID = page.ID
	}
	return &vo.PublishedPage{Page: page, Posts: posts}, nil
}

// GetNavigation lists the visible children of the root node. The node index
// order becomes the order index.
func (s *Source) GetNavigation(ctx context.Context) ([]vo.PageListing, error) {
	if s.settings.RootID == "" {
		return nil, errors.New("no contentserver root node configured")
	}
	nodes, err := s.client.GetNodes(ctx, s.settings.Env, map[string]*requests.Node{
		s.settings.RootID: {
			ID:        s.settings.RootID,
			MimeTypes: s.settings.MimeTypes,
		},
	})
	if err != nil {
		return nil, err
	}
	root, ok := nodes[s.settings.RootID]
	if !ok {
		return nil, errors.New("root node not found")
	}

	listings := make([]vo.PageListing, 0, len(root.Index))
	for i, id := range root.Index {
		child, ok := root.Nodes[id]
		if !ok || child.Item == nil {
			s.logger.Warn("child node not found", zap.String("id", id))
			continue
		}
		if child.Item.Hidden {
			continue
		}
		slug := slugFromURI(child.Item.URI)
		if slug == "" {
			continue
		}
		listings = append(listings, vo.PageListing{
			ID:    child.Item.ID,
			Slug:  slug,
			Label: child.Item.Name,
			Order: i,
		})
	}
	return listings, nil
}

func slugFromURI(uri string) string {
	uri = strings.TrimSuffix(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		uri = uri[i+1:]
	}
	return sanitize.NormalizeSlug(uri)
}

func decodeItemData(data map[string]interface{}, v any) error {
	if len(data) == 0 {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
