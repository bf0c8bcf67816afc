package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/foomo/contentsite/service/vo"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string  `json:"token"`
	User  vo.User `json:"user"`
}

// Login authenticates and stores the returned session token.
func (c *Client) Login(ctx context.Context, email, password string) (*vo.User, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.setToken(resp.Token)
	return &resp.User, nil
}

func (c *Client) Me(ctx context.Context) (*vo.User, error) {
	var user vo.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Tutorials

func (c *Client) ListTutorials(ctx context.Context) ([]vo.Tutorial, error) {
	var tutorials []vo.Tutorial
	if err := c.do(ctx, http.MethodGet, "/tutorials", nil, nil, &tutorials); err != nil {
		return nil, err
	}
	return tutorials, nil
}

func (c *Client) GetTutorial(ctx context.Context, id string) (*vo.Tutorial, error) {
	var tutorial vo.Tutorial
	if err := c.do(ctx, http.MethodGet, "/tutorials/"+url.PathEscape(id), nil, nil, &tutorial); err != nil {
		return nil, err
	}
	return &tutorial, nil
}

func (c *Client) CreateTutorial(ctx context.Context, tutorial vo.Tutorial) (*vo.Tutorial, error) {
	var created vo.Tutorial
	if err := c.do(ctx, http.MethodPost, "/tutorials", nil, tutorial, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateTutorial(ctx context.Context, tutorial vo.Tutorial) (*vo.Tutorial, error) {
	var updated vo.Tutorial
	if err := c.do(ctx, http.MethodPut, "/tutorials/"+url.PathEscape(tutorial.ID), nil, tutorial, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteTutorial(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tutorials/"+url.PathEscape(id), nil, nil, nil)
}

// Pages

func (c *Client) ListPages(ctx context.Context) ([]vo.Page, error) {
	var pages []vo.Page
	if err := c.do(ctx, http.MethodGet, "/pages", nil, nil, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// FetchPublishedPage returns a published page and its posts by slug.
func (c *Client) FetchPublishedPage(ctx context.Context, slug string) (*vo.PublishedPage, error) {
	var page vo.PublishedPage
	if err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(slug), nil, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreatePage(ctx context.Context, page vo.Page) (*vo.Page, error) {
	var created vo.Page
	if err := c.do(ctx, http.MethodPost, "/pages", nil, page, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdatePage(ctx context.Context, page vo.Page) (*vo.Page, error) {
	var updated vo.Page
	if err := c.do(ctx, http.MethodPut, "/pages/"+url.PathEscape(page.ID), nil, page, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeletePage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/pages/"+url.PathEscape(id), nil, nil, nil)
}

// Posts

func (c *Client) ListPosts(ctx context.Context, pageID string) ([]vo.Post, error) {
	var posts []vo.Post
	if err := c.do(ctx, http.MethodGet, "/posts", url.Values{"page_id": {pageID}}, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) CreatePost(ctx context.Context, post vo.Post) (*vo.Post, error) {
	var created vo.Post
	if err := c.do(ctx, http.MethodPost, "/posts", nil, post, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdatePost(ctx context.Context, post vo.Post) (*vo.Post, error) {
	var updated vo.Post
	if err := c.do(ctx, http.MethodPut, "/posts/"+url.PathEscape(post.ID), nil, post, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil, nil)
}

// Site content and navigation

// GetSiteContent returns the raw JSON of every stored section keyed by name.
func (c *Client) GetSiteContent(ctx context.Context) (map[string]json.RawMessage, error) {
	var sections map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/site-content", nil, nil, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

type sectionPayload struct {
	Section string          `json:"section,omitempty"`
	Content json.RawMessage `json:"content"`
}

// UpdateSiteContent stores one section and returns the value the server kept.
func (c *Client) UpdateSiteContent(ctx context.Context, section string, value json.RawMessage) (json.RawMessage, error) {
	var resp sectionPayload
	if err := c.do(ctx, http.MethodPut, "/site-content/"+url.PathEscape(section), nil, sectionPayload{Content: value}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return value, nil
	}
	return resp.Content, nil
}

// GetNavigation lists the published pages that may appear in the menu.
func (c *Client) GetNavigation(ctx context.Context) ([]vo.PageListing, error) {
	var listings []vo.PageListing
	if err := c.do(ctx, http.MethodGet, "/navigation", nil, nil, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// Search

func (c *Client) SearchTutorials(ctx context.Context, q, topic string) ([]vo.Tutorial, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	if topic != "" {
		query.Set("topic", topic)
	}
	var tutorials []vo.Tutorial
	if err := c.do(ctx, http.MethodGet, "/search/tutorials", query, nil, &tutorials); err != nil {
		return nil, err
	}
	return tutorials, nil
}

func (c *Client) SearchTopics(ctx context.Context) ([]string, error) {
	var topics []string
	if err := c.do(ctx, http.MethodGet, "/search/topics", nil, nil, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// Comments

func (c *Client) ListComments(ctx context.Context, tutorialID string) ([]vo.Comment, error) {
	var comments []vo.Comment
	if err := c.do(ctx, http.MethodGet, "/tutorials/"+url.PathEscape(tutorialID)+"/comments", nil, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, comment vo.Comment) (*vo.Comment, error) {
	var created vo.Comment
	if err := c.do(ctx, http.MethodPost, "/tutorials/"+url.PathEscape(comment.TutorialID)+"/comments", nil, comment, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/comments/"+url.PathEscape(id), nil, nil, nil)
}

// UploadImage sends an image as multipart form data and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", nil, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.send(req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}
