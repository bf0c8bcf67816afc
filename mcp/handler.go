package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/foomo/contentsite/sanitize"
	"github.com/foomo/contentsite/service"
	"github.com/foomo/contentsite/service/vo"
	"github.com/foomo/contentsite/tutorials"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const Version = "0.1.0"

// Site is the part of *service.Site the tools use.
type Site interface {
	Document(ctx context.Context, slug string, force bool) (*vo.PageDocument, error)
	InvalidatePage(slug string)
	Navigation() []vo.NavigationItem
	Tutorials() *tutorials.List
	LoadTutorials(ctx context.Context) tutorials.Snapshot
	SearchTutorials(ctx context.Context, q, topic string) ([]vo.Tutorial, error)
}

type GetPageRequest struct {
	Slug  string `json:"slug"`
	Force bool   `json:"force"`
}

type GetPageResponse struct {
	Document *vo.PageDocument `json:"document"`
}

type InvalidatePageRequest struct {
	Slug string `json:"slug"`
}

type InvalidatePageResponse struct {
	Invalidated string `json:"invalidated"` // slug or "*"
}

type NavigationRequest struct{}

type NavigationResponse struct {
	Items []vo.NavigationItem `json:"items"`
}

type ListTutorialsRequest struct {
	Topic string `json:"topic"`
}

type SearchTutorialsRequest struct {
	Q     string `json:"q"`
	Topic string `json:"topic"`
}

type TutorialsResponse struct {
	State     tutorials.State `json:"state,omitempty"`
	Tutorials []vo.Tutorial   `json:"tutorials"`
	Topics    []string        `json:"topics,omitempty"`
}

type SanitizeRequest struct {
	Value string `json:"value"`
}

type SanitizeResponse struct {
	Value string `json:"value"`
}

// NewServer creates a new MCP server with the site tools
func NewServer(site Site) *server.MCPServer {
	s := server.NewMCPServer(
		"Content Site MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("getPage",
		mcp.WithDescription("Get a published page with its posts converted to markdown"),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("The page slug, e.g. 'docker-grundlagen'"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Bypass the page cache"),
		),
	), mcp.NewTypedToolHandler(getPageHandler(site)))

	s.AddTool(mcp.NewTool("invalidatePage",
		mcp.WithDescription("Drop a page from the cache, or every page if no slug is given"),
		mcp.WithString("slug",
			mcp.Description("The page slug"),
		),
	), mcp.NewTypedToolHandler(invalidatePageHandler(site)))

	s.AddTool(mcp.NewTool("navigation",
		mcp.WithDescription("Get the site navigation: configured items followed by published pages"),
	), mcp.NewTypedToolHandler(navigationHandler(site)))

	s.AddTool(mcp.NewTool("listTutorials",
		mcp.WithDescription("List tutorials, optionally filtered by topic"),
		mcp.WithString("topic",
			mcp.Description("Only tutorials tagged with this topic"),
		),
	), mcp.NewTypedToolHandler(listTutorialsHandler(site)))

	s.AddTool(mcp.NewTool("searchTutorials",
		mcp.WithDescription("Full text search over tutorials"),
		mcp.WithString("q",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithString("topic",
			mcp.Description("Restrict the search to a topic"),
		),
	), mcp.NewTypedToolHandler(searchTutorialsHandler(site)))

	s.AddTool(mcp.NewTool("sanitizeSlug",
		mcp.WithDescription("Turn a title into a URL slug"),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Raw title or slug"),
		),
	), mcp.NewTypedToolHandler(sanitizeSlugHandler))

	s.AddTool(mcp.NewTool("sanitizeUrl",
		mcp.WithDescription("Check a link target against the allowed schemes (http, https, mailto, tel)"),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Link target"),
		),
	), mcp.NewTypedToolHandler(sanitizeURLHandler))

	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	responseBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseBytes)), nil
}

func getPageHandler(site Site) func(ctx context.Context, request mcp.CallToolRequest, args GetPageRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetPageRequest) (*mcp.CallToolResult, error) {
		if args.Slug == "" {
			return mcp.NewToolResultError("slug is required"), nil
		}
		force := args.Force
		if req, ok := httpRequestFromContext(ctx); ok && req.Header.Get("Cache-Control") == "no-cache" {
			force = true
		}
		doc, err := site.Document(service.WithViewer(ctx, sessionViewer(ctx)), args.Slug, force)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get page: %v", err)), nil
		}
		return jsonResult(GetPageResponse{Document: doc})
	}
}

// sessionViewer scopes page switching to one MCP session, so sessions never
// cancel each other's opens.
func sessionViewer(ctx context.Context) string {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		return "mcp:" + session.SessionID()
	}
	return "mcp:" + uuid.NewString()
}

func invalidatePageHandler(site Site) func(ctx context.Context, request mcp.CallToolRequest, args InvalidatePageRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args InvalidatePageRequest) (*mcp.CallToolResult, error) {
		site.InvalidatePage(args.Slug)
		invalidated := sanitize.NormalizeSlug(args.Slug)
		if invalidated == "" {
			invalidated = "*"
		}
		return jsonResult(InvalidatePageResponse{Invalidated: invalidated})
	}
}

func navigationHandler(site Site) func(ctx context.Context, request mcp.CallToolRequest, args NavigationRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args NavigationRequest) (*mcp.CallToolResult, error) {
		return jsonResult(NavigationResponse{Items: site.Navigation()})
	}
}

func listTutorialsHandler(site Site) func(ctx context.Context, request mcp.CallToolRequest, args ListTutorialsRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ListTutorialsRequest) (*mcp.CallToolResult, error) {
		list := site.Tutorials()
		snapshot := list.Snapshot()
		if snapshot.State != tutorials.StateSuccess {
			snapshot = site.LoadTutorials(ctx)
		}
		if snapshot.State == tutorials.StateFailed {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load tutorials: %v", snapshot.Err)), nil
		}
		found := list.Filter(args.Topic)
		if found == nil {
			found = []vo.Tutorial{}
		}
		return jsonResult(TutorialsResponse{
			State:     snapshot.State,
			Tutorials: found,
			Topics:    list.Topics(),
		})
	}
}

func searchTutorialsHandler(site Site) func(ctx context.Context, request mcp.CallToolRequest, args SearchTutorialsRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args SearchTutorialsRequest) (*mcp.CallToolResult, error) {
		if args.Q == "" {
			return mcp.NewToolResultError("q is required"), nil
		}
		found, err := site.SearchTutorials(ctx, args.Q, args.Topic)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to search tutorials: %v", err)), nil
		}
		if found == nil {
			found = []vo.Tutorial{}
		}
		return jsonResult(TutorialsResponse{Tutorials: found})
	}
}

func sanitizeSlugHandler(ctx context.Context, request mcp.CallToolRequest, args SanitizeRequest) (*mcp.CallToolResult, error) {
	slug := sanitize.SanitizeSlug(args.Value)
	if slug == "" {
		return mcp.NewToolResultError(fmt.Sprintf("no slug can be made from %q", args.Value)), nil
	}
	return jsonResult(SanitizeResponse{Value: slug})
}

func sanitizeURLHandler(ctx context.Context, request mcp.CallToolRequest, args SanitizeRequest) (*mcp.CallToolResult, error) {
	u, ok := sanitize.SanitizeExternalURL(args.Value)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("url %q is not allowed", args.Value)), nil
	}
	return jsonResult(SanitizeResponse{Value: u})
}
