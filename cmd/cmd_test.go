package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foomo/contentsite/service/vo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(v))
	}
	mux.HandleFunc("GET /pages/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("slug") != "docker" {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]string{"error": "page not found"})
			return
		}
		writeJSON(w, vo.PublishedPage{
			Page:  vo.Page{ID: "1", Slug: "docker", Title: "Docker"},
			Posts: []vo.Post{{ID: "p", Title: "Images", Content: "<p><strong>Images</strong> sind Vorlagen</p>"}},
		})
	})
	mux.HandleFunc("GET /site-content", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"hero": map[string]any{"title": "Hallo"}})
	})
	mux.HandleFunc("PUT /site-content/{section}", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	mux.HandleFunc("GET /navigation", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []vo.PageListing{{Slug: "docker", Label: "Docker", Order: 1}})
	})
	mux.HandleFunc("GET /tutorials", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []vo.Tutorial{
			{ID: "1", Title: "Go", Topics: []string{"go"}},
			{ID: "2", Title: "Docker", Topics: []string{"devops"}},
		})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSlugCmd(t *testing.T) {
	out, err := run(t, "slug", "Übung", "für", "Anfänger")
	require.NoError(t, err)
	assert.Equal(t, "uebung-fuer-anfaenger\n", out)

	_, err = run(t, "slug", "???")
	assert.Error(t, err)
}

func TestURLCmd(t *testing.T) {
	out, err := run(t, "url", "mailto:team@example.com")
	require.NoError(t, err)
	assert.Equal(t, "mailto:team@example.com\n", out)

	_, err = run(t, "url", "javascript:alert(1)")
	assert.Error(t, err)
}

func TestPageCmd(t *testing.T) {
	ts := fakeAPI(t)
	out, err := run(t, "page", "Docker", "--api-url", ts.URL)
	require.NoError(t, err)

	var doc vo.PageDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "docker", doc.Slug)
	require.Len(t, doc.Posts, 1)
	assert.Contains(t, string(doc.Posts[0].Markdown), "**Images**")

	_, err = run(t, "page", "nope", "--api-url", ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page not found")
}

func TestPageCmdDump(t *testing.T) {
	ts := fakeAPI(t)
	out, err := run(t, "page", "docker", "--dump", "--api-url", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "(*vo.PageDocument)")
}

func TestNavCmd(t *testing.T) {
	ts := fakeAPI(t)
	out, err := run(t, "nav", "--api-url", ts.URL)
	require.NoError(t, err)

	var items []vo.NavigationItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.NotEmpty(t, items)
	assert.Equal(t, "page-docker", items[len(items)-1].ID)
}

func TestTutorialsCmd(t *testing.T) {
	ts := fakeAPI(t)
	out, err := run(t, "tutorials", "--topic", "devops", "--api-url", ts.URL)
	require.NoError(t, err)

	var list []vo.Tutorial
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].ID)
}

func TestContentCmd(t *testing.T) {
	ts := fakeAPI(t)
	out, err := run(t, "content", "hero", "--api-url", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Hallo"`)

	out, err = run(t, "content", "footer", "--set", `{"text":"Bis bald"}`, "--api-url", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"text": "Bis bald"`)

	_, err = run(t, "content", "footer", "--set", `{"text":`, "--api-url", ts.URL)
	assert.Error(t, err)

	_, err = run(t, "content", "sidebar", "--api-url", ts.URL)
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, "nav", "--api-url", "not a url")
	assert.Error(t, err)
}
