package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body loginRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "admin@example.com", body.Email)
			fmt.Fprint(w, `{"token":"t0k3n","user":{"id":"1","email":"admin@example.com","role":"admin"}}`)
		case "/api/auth/me":
			assert.Equal(t, "Bearer t0k3n", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"id":"1","email":"admin@example.com","role":"admin"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	user, err := c.Login(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)
	assert.Equal(t, "t0k3n", c.Token())

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", me.ID)
}

func TestUnauthorizedClearsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"token expired"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("stale"))
	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsTransient(err))
	assert.Empty(t, c.Token())

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "token expired", apiErr.Message)
	assert.Equal(t, "/auth/me", apiErr.Path)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		status    int
	}{
		{"network", errors.New("connection refused"), true, 0},
		{"server", &Error{Status: 503}, true, 503},
		{"wrapped server", fmt.Errorf("load: %w", &Error{Status: 500}), true, 500},
		{"bad request", &Error{Status: 400}, false, 400},
		{"not found", &Error{Status: 404}, false, 404},
		{"canceled", fmt.Errorf("get: %w", context.Canceled), false, 0},
		{"deadline", context.DeadlineExceeded, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
			assert.Equal(t, tt.status, StatusOf(tt.err))
		})
	}
	assert.True(t, IsNotFound(&Error{Status: 404}))
	assert.True(t, IsUnauthorized(&Error{Status: 403}))
}

func TestErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "nope", errorMessage(strings.NewReader(`{"message":"nope"}`)))
	assert.Equal(t, "first", errorMessage(strings.NewReader(`{"error":"first","message":"second"}`)))
	assert.Equal(t, "", errorMessage(strings.NewReader(`<html>502</html>`)))
	assert.Equal(t, "GET /x: 502 Bad Gateway", (&Error{Status: 502, Method: "GET", Path: "/x"}).Error())
}

func TestFetchPublishedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pages/grundlagen", r.URL.Path)
		fmt.Fprint(w, `{"page":{"id":"p1","slug":"grundlagen","title":"Grundlagen"},"posts":[{"id":"a","title":"Intro","content":"<p>hi</p>"}]}`)
	}))
	defer srv.Close()

	page, err := New(srv.URL).FetchPublishedPage(context.Background(), "grundlagen")
	require.NoError(t, err)
	assert.Equal(t, "Grundlagen", page.Page.Title)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Intro", page.Posts[0].Title)
}

func TestSearchTutorialsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tutorials", r.URL.Path)
		assert.Equal(t, "docker", r.URL.Query().Get("q"))
		assert.Equal(t, "devops", r.URL.Query().Get("topic"))
		fmt.Fprint(w, `[{"id":"1","title":"Docker basics","topics":["devops"]}]`)
	}))
	defer srv.Close()

	tutorials, err := New(srv.URL).SearchTutorials(context.Background(), "docker", "devops")
	require.NoError(t, err)
	require.Len(t, tutorials, 1)
	assert.Equal(t, []string{"devops"}, tutorials[0].Topics)
}

func TestUpdateSiteContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/site-content/hero", r.URL.Path)
		var body sectionPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprintf(w, `{"section":"hero","content":%s}`, body.Content)
	}))
	defer srv.Close()

	out, err := New(srv.URL).UpdateSiteContent(context.Background(), "hero", json.RawMessage(`{"title":"Neu"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Neu"}`, string(out))
}

func TestUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		b, _ := io.ReadAll(file)
		assert.Equal(t, "logo.png", header.Filename)
		assert.Equal(t, "PNGDATA", string(b))
		fmt.Fprint(w, `{"url":"/uploads/logo.png"}`)
	}))
	defer srv.Close()

	u, err := New(srv.URL).UploadImage(context.Background(), "logo.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/logo.png", u)
}

func TestDeleteNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL).DeleteTutorial(context.Background(), "42"))
}
