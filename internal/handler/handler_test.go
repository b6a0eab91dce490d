package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CageChen/inlineh/internal/markdown"
	"github.com/CageChen/inlineh/internal/site"
	"github.com/CageChen/inlineh/internal/watcher"
)

type fakeSite struct {
	pages   []site.Page
	results map[string]*markdown.ParseResult
}

func (f *fakeSite) Pages() []site.Page { return f.pages }

func (f *fakeSite) Render(p string) (*markdown.ParseResult, error) {
	if p == "broken.md" {
		return nil, errors.New("liquid: great sadness")
	}
	r, ok := f.results[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return r, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *WSHandler, string) {
	t.Helper()

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "index.html"), []byte("<h1>home</h1>"), 0o644))

	fs := &fakeSite{
		pages: []site.Page{
			{Path: "index.md", URL: "index.html", Title: "Home"},
			{Path: "patterns/observer.md", URL: "patterns/observer.html", Title: "Observer"},
			{Path: "patterns/adapter.md", URL: "patterns/adapter.html", Title: "Adapter"},
		},
		results: map[string]*markdown.ParseResult{
			"index.md": {HTML: "<h1>Home</h1>", Title: "Home"},
		},
	}

	ws := NewWSHandler()
	srv := httptest.NewServer(NewRouter(NewPageHandler(fs), ws, dest))
	t.Cleanup(srv.Close)
	return srv, ws, dest
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestGetPage(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var page PageResponse
	status := getJSON(t, srv.URL+"/api/render/index.md", &page)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Home", page.Title)
	assert.Equal(t, "<h1>Home</h1>", page.HTML)

	tests := []struct {
		path string
		want int
	}{
		{"/api/render/missing.md", http.StatusNotFound},
		{"/api/render/broken.md", http.StatusInternalServerError},
		{"/api/render/a/..%2F..%2Fsecret.md", http.StatusForbidden},
	}
	for _, tt := range tests {
		var body map[string]string
		assert.Equal(t, tt.want, getJSON(t, srv.URL+tt.path, &body), tt.path)
		assert.NotEmpty(t, body["error"], tt.path)
	}
}

func TestGetPages(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var body struct {
		Pages []site.Page `json:"pages"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/pages", &body))
	assert.Len(t, body.Pages, 3)
}

func TestGetTree(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var root TreeNode
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/tree", &root))

	require.Len(t, root.Children, 2)
	dir := root.Children[0]
	assert.Equal(t, "patterns", dir.Name)
	assert.Equal(t, "directory", dir.Type)
	require.Len(t, dir.Children, 2)
	assert.Equal(t, "adapter.md", dir.Children[0].Name)
	assert.Equal(t, "patterns/observer.html", dir.Children[1].URL)
	assert.Equal(t, "index.md", root.Children[1].Name)
}

func TestStaticFiles(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWSHandler_OnRebuild(t *testing.T) {
	srv, ws, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ws.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	events := []watcher.Event{{Type: watcher.EventWrite, Path: "html/observer.py"}}
	ws.OnRebuild(events, &site.Result{Pages: 3}, nil)
	ws.OnRebuild(events, nil, errors.New("render index.md: liquid: boom"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg struct {
		Type    string         `json:"type"`
		Payload RebuildPayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "rebuild", msg.Type)
	assert.Equal(t, 3, msg.Payload.Pages)
	assert.Equal(t, []string{"update html/observer.py"}, msg.Payload.Changed)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "buildError", msg.Type)
	assert.Contains(t, msg.Payload.Error, "boom")
}
