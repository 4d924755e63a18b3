// Package tracker lists release issues from Jira.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/rs/zerolog/log"

	"github.com/codr1/releaseboard/internal/release"
	"github.com/codr1/releaseboard/internal/upstream"
)

const (
	serviceName = "Jira"
	pageSize    = 100
)

var searchFields = []string{"summary", "description", "status", "labels"}

type Config struct {
	BaseURL  string
	User     string
	APIToken string
	Timeout  time.Duration
}

type Client struct {
	jira *jira.Client
}

// New builds a Jira client using basic auth with an API token.
func New(cfg Config) (*Client, error) {
	transport := jira.BasicAuthTransport{
		Username: cfg.User,
		Password: cfg.APIToken,
	}
	httpClient := transport.Client()
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	client, err := jira.NewClient(httpClient, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}
	return &Client{jira: client}, nil
}

// ReleaseIssues returns every issue whose fix version is versionName in the project.
func (c *Client) ReleaseIssues(ctx context.Context, projectKey, versionName string) ([]release.Issue, error) {
	jql := ReleaseJQL(projectKey, versionName)

	var issues []release.Issue
	startAt := 0
	for {
		page, resp, err := c.jira.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
			StartAt:    startAt,
			MaxResults: pageSize,
			Fields:     searchFields,
		})
		if err != nil {
			return nil, classify(resp, err)
		}

		for _, issue := range page {
			issues = append(issues, toIssue(issue))
		}

		startAt += len(page)
		if len(page) == 0 || resp == nil || startAt >= resp.Total {
			break
		}
	}

	log.Ctx(ctx).Debug().
		Str("project", projectKey).
		Str("version", versionName).
		Int("issues", len(issues)).
		Msg("Loaded release issues")
	return issues, nil
}

// ReleaseJQL selects the issues of one fix version.
func ReleaseJQL(projectKey, versionName string) string {
	return fmt.Sprintf(`project = %s AND fixVersion = "%s" ORDER BY key ASC`, quoteKey(projectKey), escapeJQL(versionName))
}

func quoteKey(key string) string {
	if strings.ContainsAny(key, " \"") {
		return `"` + escapeJQL(key) + `"`
	}
	return key
}

func escapeJQL(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

func toIssue(issue jira.Issue) release.Issue {
	out := release.Issue{
		ID:             issue.ID,
		Key:            issue.Key,
		StatusCategory: release.StatusCategoryUnknown,
	}
	if issue.Fields == nil {
		return out
	}
	out.Summary = issue.Fields.Summary
	out.Description = issue.Fields.Description
	out.Labels = issue.Fields.Labels
	if issue.Fields.Status != nil {
		out.StatusName = issue.Fields.Status.Name
		out.StatusCategory = statusCategory(issue.Fields.Status.StatusCategory.Key)
	}
	return out
}

func statusCategory(key string) release.StatusCategory {
	switch release.StatusCategory(key) {
	case release.StatusCategoryToDo, release.StatusCategoryInProgress, release.StatusCategoryDone:
		return release.StatusCategory(key)
	default:
		return release.StatusCategoryUnknown
	}
}

func classify(resp *jira.Response, err error) error {
	upstreamErr := &upstream.Error{Service: serviceName, Err: err}
	if resp == nil || resp.Response == nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return upstreamErr
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		upstreamErr.RateLimited = true
		if seconds, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && seconds > 0 {
			upstreamErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return upstreamErr
}
