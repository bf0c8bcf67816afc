package contentserver

import (
	"context"
	"errors"
	"testing"

	"github.com/foomo/contentsite/api"
	"github.com/foomo/contentserver/content"
	"github.com/foomo/contentserver/requests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	siteContent *content.SiteContent
	nodes       map[string]*content.Node
	err         error

	lastContent *requests.Content
	lastNodes   map[string]*requests.Node
}

func (f *fakeClient) GetContent(ctx context.Context, cmd *requests.Content) (*content.SiteContent, error) {
	f.lastContent = cmd
	return f.siteContent, f.err
}

func (f *fakeClient) GetNodes(ctx context.Context, env *requests.Env, nodes map[string]*requests.Node) (map[string]*content.Node, error) {
	f.lastNodes = nodes
	return f.nodes, f.err
}

func TestFetchPublishedPage(t *testing.T) {
	client := &fakeClient{siteContent: &content.SiteContent{
		Status: content.StatusOk,
		Item: &content.Item{
			ID:   "p1",
			Name: "Docker Grundlagen",
			URI:  "/pages/docker",
			Data: map[string]interface{}{
				"description": "Container ohne Magie",
				"hero":        map[string]interface{}{"title": "Docker"},
				"posts": []interface{}{
					map[string]interface{}{"id": "a", "title": "Images", "content": "<p>x</p>", "order_index": 1},
				},
			},
		},
	}}
	s := New(client, Settings{}, nil)

	page, err := s.FetchPublishedPage(context.Background(), "docker")
	require.NoError(t, err)
	assert.Equal(t, "/pages/docker", client.lastContent.URI)
	assert.Equal(t, "p1", page.Page.ID)
	assert.Equal(t, "docker", page.Page.Slug)
	assert.Equal(t, "Docker Grundlagen", page.Page.Title)
	assert.Equal(t, "Container ohne Magie", page.Page.Description)
	assert.Equal(t, "Docker", page.Page.Hero.Title)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "p1", page.Posts[0].PageID)
	assert.Equal(t, 1, page.Posts[0].Order)
}

func TestFetchPublishedPageNotFound(t *testing.T) {
	s := New(&fakeClient{siteContent: &content.SiteContent{Status: content.StatusNotFound}}, Settings{}, nil)
	_, err := s.FetchPublishedPage(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.False(t, api.IsTransient(err))
}

func TestFetchPublishedPageTransportError(t *testing.T) {
	s := New(&fakeClient{err: errors.New("connection reset")}, Settings{}, nil)
	_, err := s.FetchPublishedPage(context.Background(), "docker")
	require.Error(t, err)
	assert.True(t, api.IsTransient(err))
}

func TestGetNavigation(t *testing.T) {
	client := &fakeClient{nodes: map[string]*content.Node{
		"root": {
			Index: []string{"b", "hidden", "a", "missing"},
			Nodes: map[string]*content.Node{
				"a":      {Item: &content.Item{ID: "a", Name: "Go", URI: "/pages/go"}},
				"b":      {Item: &content.Item{ID: "b", Name: "Docker", URI: "/pages/Docker/"}},
				"hidden": {Item: &content.Item{ID: "hidden", Name: "Draft", URI: "/pages/draft", Hidden: true}},
			},
		},
	}}
	s := New(client, Settings{RootID: "root", MimeTypes: []string{"page"}}, nil)

	listings, err := s.GetNavigation(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "docker", listings[0].Slug)
	assert.Equal(t, 0, listings[0].Order)
	assert.Equal(t, "go", listings[1].Slug)
	assert.Equal(t, 2, listings[1].Order)
	assert.Equal(t, []string{"page"}, client.lastNodes["root"].MimeTypes)
}

func TestGetNavigationWithoutRoot(t *testing.T) {
	_, err := New(&fakeClient{}, Settings{}, nil).GetNavigation(context.Background())
	assert.Error(t, err)

	_, err = New(&fakeClient{nodes: map[string]*content.Node{}}, Settings{RootID: "root"}, nil).GetNavigation(context.Background())
	assert.Error(t, err)
}
