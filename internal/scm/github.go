// Package scm reads release branches, pull requests and commits from GitHub.
package scm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/releaseboard/internal/release"
	"github.com/codr1/releaseboard/internal/upstream"
)

const (
	serviceName    = "GitHub"
	maxCommitPages = 5
	perPage        = 100
	maxConcurrent  = 4
)

type Config struct {
	// BaseURL points at a GitHub Enterprise API. Empty means github.com.
	BaseURL string
	Owner   string
	Token   string
	Timeout time.Duration
}

type Client struct {
	gh    *github.Client
	owner string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	httpClient := &http.Client{}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.Token},
		)
		httpClient = oauth2.NewClient(ctx, src)
	}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	gh := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("configure github base url: %w", err)
		}
	}
	return &Client{gh: gh, owner: cfg.Owner}, nil
}

// ReleasePullRequests reports, per repository, whether the release branch exists,
// the newest pull request opened from it and the commits it carries.
func (c *Client) ReleasePullRequests(ctx context.Context, branch string, repositories []string) (map[string]release.PullRequestData, error) {
	results := make([]release.PullRequestData, len(repositories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, repo := range repositories {
		g.Go(func() error {
			data, err := c.repositoryData(gctx, repo, branch)
			if err != nil {
				return fmt.Errorf("%s: %w", repo, err)
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]release.PullRequestData, len(repositories))
	for i, repo := range repositories {
		out[repo] = results[i]
	}
	return out, nil
}

func (c *Client) repositoryData(ctx context.Context, repo, branch string) (release.PullRequestData, error) {
	pulls, _, err := c.gh.PullRequests.List(ctx, c.owner, repo, &github.PullRequestListOptions{
		State:       "all",
		Head:        c.owner + ":" + branch,
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return release.PullRequestData{}, classify(err)
	}

	if len(pulls) > 0 {
		pr := pulls[0]
		commits, err := c.pullRequestCommits(ctx, repo, pr.GetNumber())
		if err != nil {
			return release.PullRequestData{}, err
		}
		return release.PullRequestData{
			Exists:      true,
			PullRequest: toPullRequest(pr),
			Commits:     commits,
		}, nil
	}

	if _, resp, err := c.gh.Repositories.GetBranch(ctx, c.owner, repo, branch, 1); err != nil {
		// GetBranch reports non-200 answers as a plain error next to the response.
		if isNotFound(resp, err) {
			log.Ctx(ctx).Debug().Str("repository", repo).Str("branch", branch).Msg("Release branch not found")
			return release.PullRequestData{Exists: false}, nil
		}
		if limited := rateLimitedResponse(resp, err); limited != nil {
			return release.PullRequestData{}, limited
		}
		return release.PullRequestData{}, classify(err)
	}

	commits, err := c.branchCommits(ctx, repo, branch)
	if err != nil {
		return release.PullRequestData{}, err
	}
	return release.PullRequestData{Exists: true, Commits: commits}, nil
}

func (c *Client) pullRequestCommits(ctx context.Context, repo string, number int) ([]release.Commit, error) {
	opts := &github.ListOptions{PerPage: perPage}
	var commits []release.Commit
	for page := 0; page < maxCommitPages; page++ {
		batch, resp, err := c.gh.PullRequests.ListCommits(ctx, c.owner, repo, number, opts)
		if err != nil {
			return nil, classify(err)
		}
		commits = appendCommits(commits, batch)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return sortNewestFirst(commits), nil
}

func (c *Client) branchCommits(ctx context.Context, repo, branch string) ([]release.Commit, error) {
	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var commits []release.Commit
	for page := 0; page < maxCommitPages; page++ {
		batch, resp, err := c.gh.Repositories.ListCommits(ctx, c.owner, repo, opts)
		if err != nil {
			return nil, classify(err)
		}
		commits = appendCommits(commits, batch)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return sortNewestFirst(commits), nil
}

func appendCommits(dst []release.Commit, batch []*github.RepositoryCommit) []release.Commit {
	for _, rc := range batch {
		author := rc.GetCommit().GetAuthor()
		dst = append(dst, release.Commit{
			SHA:        rc.GetSHA(),
			Message:    rc.GetCommit().GetMessage(),
			AuthorName: author.GetName(),
			AuthorDate: author.GetDate().Time,
			URL:        rc.GetHTMLURL(),
		})
	}
	return dst
}

func sortNewestFirst(commits []release.Commit) []release.Commit {
	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].AuthorDate.After(commits[j].AuthorDate)
	})
	return commits
}

func toPullRequest(pr *github.PullRequest) *release.PullRequest {
	return &release.PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		State:  pr.GetState(),
		URL:    pr.GetHTMLURL(),
		Head:   pr.GetHead().GetRef(),
		Base:   pr.GetBase().GetRef(),
	}
}

func isNotFound(resp *github.Response, err error) bool {
	if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var errResp *github.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}

// rateLimitedResponse reads throttling off the raw response of calls that bypass go-github's error checks.
func rateLimitedResponse(resp *github.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return nil
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusForbidden {
		return nil
	}
	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("Retry-After") == "" && resp.Header.Get("X-RateLimit-Remaining") != "0" {
		return nil
	}
	limited := &upstream.Error{Service: serviceName, RateLimited: true, Err: err}
	if seconds, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && seconds > 0 {
		limited.RetryAfter = time.Duration(seconds) * time.Second
	} else if !resp.Rate.Reset.Time.IsZero() {
		if retry := time.Until(resp.Rate.Reset.Time); retry > 0 {
			limited.RetryAfter = retry
		}
	}
	return limited
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		retry := time.Until(rateErr.Rate.Reset.Time)
		if retry < 0 {
			retry = 0
		}
		return &upstream.Error{Service: serviceName, RateLimited: true, RetryAfter: retry, Err: err}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &upstream.Error{Service: serviceName, RateLimited: true, RetryAfter: abuseErr.GetRetryAfter(), Err: err}
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusTooManyRequests {
		return &upstream.Error{Service: serviceName, RateLimited: true, Err: err}
	}

	return &upstream.Error{Service: serviceName, Err: err}
}
