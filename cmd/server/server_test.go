package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codr1/releaseboard/internal/app"
	"github.com/codr1/releaseboard/internal/config"
	"github.com/codr1/releaseboard/internal/ratelimit"
	"github.com/codr1/releaseboard/internal/testutil"
)

func TestServerRoutes(t *testing.T) {
	cfg, err := config.Parse([]byte(`
app:
  name: Release board
  port: 8080
database:
  filename: unused.db
assistant:
  model: gpt-4o-mini
tracker:
  base_url: https://jira.example.com
source_control:
  owner: example-org
`))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	ctx := context.Background()
	database := testutil.NewTestDB(t)
	themes, err := app.NewTheme(ctx, cfg, database.Queries)
	if err != nil {
		t.Fatalf("NewTheme() error = %v", err)
	}
	releases, err := app.NewReleaseService(ctx, cfg, database.Queries)
	if err != nil {
		t.Fatalf("NewReleaseService() error = %v", err)
	}
	limiter := ratelimit.New(nil)
	t.Cleanup(limiter.Close)

	server := newServer(cfg, dependencies{
		database: database,
		themes:   themes,
		releases: releases,
		chat:     app.NewAssistant(cfg, themes.Manager),
		limiter:  limiter,
	})
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK, wantBody: "OK"},
		{name: "page", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "<title>Release board</title>"},
		{name: "unknown_page", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
		{name: "stylesheet", method: http.MethodGet, path: "/theme.css", wantStatus: http.StatusOK, wantBody: ":root{"},
		{name: "theme", method: http.MethodGet, path: "/api/v1/theme", wantStatus: http.StatusOK, wantBody: `"colors"`},
		{
			name:       "apply_theme",
			method:     http.MethodPost,
			path:       "/api/v1/theme",
			body:       `{"colors":{"primary":"#336699"}}`,
			wantStatus: http.StatusOK,
			wantBody:   "#336699",
		},
		{name: "wrong_method", method: http.MethodGet, path: "/api/v1/theme/reset", wantStatus: http.StatusMethodNotAllowed},
		{
			name:       "create_project",
			method:     http.MethodPost,
			path:       "/api/v1/projects",
			body:       `{"name":"Core","trackerKey":"CORE","repositories":["api"]}`,
			wantStatus: http.StatusCreated,
			wantBody:   `"trackerKey":"CORE"`,
		},
		{name: "list_projects", method: http.MethodGet, path: "/api/v1/projects", wantStatus: http.StatusOK, wantBody: `"name":"Core"`},
		{name: "revert_without_turn", method: http.MethodPost, path: "/api/v1/assistant/revert", wantStatus: http.StatusConflict},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req, err := http.NewRequest(test.method, ts.URL+test.path, strings.NewReader(test.body))
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			resp, err := ts.Client().Do(req)
			if err != nil {
				t.Fatalf("do request: %v", err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}

			if resp.StatusCode != test.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", resp.StatusCode, test.wantStatus, body)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Fatalf("missing X-Request-ID header")
			}
			if test.wantBody != "" && !strings.Contains(string(body), test.wantBody) {
				t.Fatalf("body %s does not contain %q", body, test.wantBody)
			}
		})
	}
}
