package scm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codr1/releaseboard/internal/upstream"
)

func commitJSON(sha, message, date string) map[string]any {
	return map[string]any{
		"sha":      sha,
		"html_url": "https://github.example.com/commit/" + sha,
		"commit": map[string]any{
			"message": message,
			"author":  map[string]any{"name": "dev", "date": date},
		},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = strings.TrimPrefix(r.URL.Path, "/api/v3")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := New(context.Background(), Config{BaseURL: server.URL + "/", Owner: "acme", Token: "token"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestReleasePullRequests(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/api/pulls":
			if got := r.URL.Query().Get("head"); got != "acme:release/2.4.0" {
				t.Errorf("head = %q", got)
			}
			writeJSON(w, []map[string]any{{
				"number":   7,
				"title":    "Release 2.4.0",
				"state":    "open",
				"html_url": "https://github.example.com/acme/api/pull/7",
				"head":     map[string]any{"ref": "release/2.4.0"},
				"base":     map[string]any{"ref": "main"},
			}})
		case "/repos/acme/api/pulls/7/commits":
			writeJSON(w, []map[string]any{
				commitJSON("a1", "DASH-1 add endpoint", "2026-01-01T10:00:00Z"),
				commitJSON("a2", "Revert DASH-1", "2026-01-02T10:00:00Z"),
			})
		case "/repos/acme/web/pulls", "/repos/acme/docs/pulls":
			writeJSON(w, []map[string]any{})
		case "/repos/acme/web/branches/release/2.4.0":
			writeJSON(w, map[string]any{"name": "release/2.4.0"})
		case "/repos/acme/web/commits":
			if got := r.URL.Query().Get("sha"); got != "release/2.4.0" {
				t.Errorf("sha = %q", got)
			}
			writeJSON(w, []map[string]any{commitJSON("w1", "DASH-1 web", "2026-01-01T09:00:00Z")})
		default:
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]any{"message": "Not Found"})
		}
	})

	data, err := client.ReleasePullRequests(context.Background(), "release/2.4.0", []string{"api", "web", "docs"})
	if err != nil {
		t.Fatalf("ReleasePullRequests() error = %v", err)
	}

	api := data["api"]
	if !api.Exists || api.PullRequest == nil || api.PullRequest.Number != 7 || api.PullRequest.Base != "main" {
		t.Fatalf("api = %+v", api)
	}
	if len(api.Commits) != 2 || api.Commits[0].SHA != "a2" {
		t.Fatalf("api commits not newest first: %+v", api.Commits)
	}

	web := data["web"]
	if !web.Exists || web.PullRequest != nil || len(web.Commits) != 1 {
		t.Fatalf("web = %+v", web)
	}

	if docs := data["docs"]; docs.Exists {
		t.Fatalf("docs = %+v, want missing branch", docs)
	}
}

func TestReleasePullRequests_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusForbidden)
		writeJSON(w, map[string]any{
			"message":           "You have exceeded a secondary rate limit.",
			"documentation_url": "https://docs.github.com/rest/overview/rate-limits-for-the-rest-api#about-secondary-rate-limits",
		})
	})

	_, err := client.ReleasePullRequests(context.Background(), "release/1.0", []string{"api"})
	var upstreamErr *upstream.Error
	if !errors.As(err, &upstreamErr) || !upstreamErr.RateLimited {
		t.Fatalf("error = %v, want rate-limited upstream error", err)
	}
	if upstreamErr.Service != "GitHub" {
		t.Fatalf("service = %q", upstreamErr.Service)
	}
}

func TestReleasePullRequests_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]any{"message": "boom"})
	})

	_, err := client.ReleasePullRequests(context.Background(), "release/1.0", []string{"api"})
	if err == nil || upstream.IsRateLimited(err) {
		t.Fatalf("error = %v, want plain upstream error", err)
	}
	if !strings.Contains(err.Error(), "api") {
		t.Fatalf("error %q does not name the repository", err)
	}
}

func TestReleasePullRequests_MissingBranch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/acme/docs/pulls" {
			writeJSON(w, []map[string]any{})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"message": "Branch not found"})
	})

	data, err := client.ReleasePullRequests(context.Background(), "release/9.9", []string{"docs"})
	if err != nil {
		t.Fatalf("ReleasePullRequests() error = %v", err)
	}
	docs, ok := data["docs"]
	if !ok {
		t.Fatalf("data = %+v, want docs entry", data)
	}
	if docs.Exists || docs.PullRequest != nil || len(docs.Commits) != 0 {
		t.Fatalf("docs = %+v, want missing branch", docs)
	}
}

func TestReleasePullRequests_BranchLookupStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		header      map[string]string
		wantLimited bool
		wantRetry   string
	}{
		{name: "too_many_requests", status: http.StatusTooManyRequests, header: map[string]string{"Retry-After": "30"}, wantLimited: true, wantRetry: "30s"},
		{name: "primary_limit_exhausted", status: http.StatusForbidden, header: map[string]string{"X-RateLimit-Remaining": "0"}, wantLimited: true},
		{name: "forbidden", status: http.StatusForbidden, wantLimited: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/repos/acme/docs/pulls" {
					writeJSON(w, []map[string]any{})
					return
				}
				for key, value := range test.header {
					w.Header().Set(key, value)
				}
				w.WriteHeader(test.status)
				writeJSON(w, map[string]any{"message": "nope"})
			})

			_, err := client.ReleasePullRequests(context.Background(), "release/1.0", []string{"docs"})
			if err == nil {
				t.Fatalf("ReleasePullRequests() error = nil")
			}
			var upstreamErr *upstream.Error
			if !errors.As(err, &upstreamErr) {
				t.Fatalf("error = %v, want upstream error", err)
			}
			if upstreamErr.RateLimited != test.wantLimited {
				t.Fatalf("RateLimited = %v, want %v", upstreamErr.RateLimited, test.wantLimited)
			}
			if test.wantRetry != "" && upstreamErr.RetryAfter.String() != test.wantRetry {
				t.Fatalf("RetryAfter = %v, want %s", upstreamErr.RetryAfter, test.wantRetry)
			}
		})
	}
}
