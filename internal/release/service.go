package release

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Tracker lists the issues linked to a release.
type Tracker interface {
	ReleaseIssues(ctx context.Context, projectKey, versionName string) ([]Issue, error)
}

// SourceControl reports the release pull request and commits per repository.
type SourceControl interface {
	ReleasePullRequests(ctx context.Context, branch string, repositories []string) (map[string]PullRequestData, error)
}

// Store holds projects, versions and manual build-status overrides.
type Store interface {
	GetProject(ctx context.Context, id int64) (Project, error)
	GetVersion(ctx context.Context, id int64) (Version, error)
	ListVersionIssues(ctx context.Context, versionID int64) ([]VersionIssue, error)
	UpsertVersionIssue(ctx context.Context, vi VersionIssue) error
	ClearVersionIssueStatus(ctx context.Context, versionID int64, issueKey string) (int64, error)
}

type Service struct {
	store        Store
	tracker      Tracker
	scm          SourceControl
	inScopeLabel string
	now          func() time.Time
}

func NewService(store Store, tracker Tracker, scm SourceControl, inScopeLabel string) *Service {
	return &Service{
		store:        store,
		tracker:      tracker,
		scm:          scm,
		inScopeLabel: inScopeLabel,
		now:          time.Now,
	}
}

// Report is the annotated issue list for one version.
type Report struct {
	Version  Version                 `json:"version"`
	Project  Project                 `json:"project"`
	Issues   []IssueStatus           `json:"issues"`
	Summary  map[BuildStatus]int     `json:"summary"`
	Branches map[string]bool         `json:"branches"`
	Pulls    map[string]*PullRequest `json:"pullRequests,omitempty"`
}

// BuildStatus loads the tracker issues, stored overrides and source-control data
// for a version in parallel and reconciles them.
func (s *Service) BuildStatus(ctx context.Context, versionID int64) (Report, error) {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return Report{}, fmt.Errorf("load version %d: %w", versionID, err)
	}
	project, err := s.store.GetProject(ctx, version.ProjectID)
	if err != nil {
		return Report{}, fmt.Errorf("load project %d: %w", version.ProjectID, err)
	}

	var (
		issues    []Issue
		overrides []VersionIssue
		prData    map[string]PullRequestData
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issues, err = s.tracker.ReleaseIssues(gctx, project.TrackerKey, version.Name)
		if err != nil {
			return fmt.Errorf("list release issues: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		overrides, err = s.store.ListVersionIssues(gctx, versionID)
		if err != nil {
			return fmt.Errorf("list version issues: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if len(project.Repositories) == 0 || strings.TrimSpace(version.ReleaseBranch) == "" {
			return nil
		}
		var err error
		prData, err = s.scm.ReleasePullRequests(gctx, version.ReleaseBranch, project.Repositories)
		if err != nil {
			return fmt.Errorf("load release pull requests: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	byKey := make(map[string]VersionIssue, len(overrides))
	for _, vi := range overrides {
		byKey[vi.IssueKey] = vi
	}

	statuses := Reconcile(issues, byKey, prData, s.inScopeLabel)
	report := Report{
		Version:  version,
		Project:  project,
		Issues:   statuses,
		Summary:  Summarize(statuses),
		Branches: map[string]bool{},
		Pulls:    map[string]*PullRequest{},
	}
	for repo, data := range prData {
		report.Branches[repo] = data.Exists
		if data.PullRequest != nil {
			report.Pulls[repo] = data.PullRequest
		}
	}

	log.Ctx(ctx).Debug().
		Int64("version_id", versionID).
		Int("issues", len(statuses)).
		Int("repositories", len(prData)).
		Msg("Build status reconciled")
	return report, nil
}

// SetOverride records a manual build status for an issue of a version.
func (s *Service) SetOverride(ctx context.Context, versionID int64, issueKey string, status BuildStatus, setBy string) (VersionIssue, error) {
	issueKey = strings.TrimSpace(issueKey)
	if issueKey == "" {
		return VersionIssue{}, fmt.Errorf("issue key is required")
	}
	if _, err := ParseBuildStatus(string(status)); err != nil {
		return VersionIssue{}, err
	}
	now := s.now().UTC()
	vi := VersionIssue{
		VersionID:   versionID,
		IssueKey:    issueKey,
		BuildStatus: &status,
		SetBy:       setBy,
		SetAt:       &now,
	}
	if err := s.store.UpsertVersionIssue(ctx, vi); err != nil {
		return VersionIssue{}, fmt.Errorf("save override: %w", err)
	}
	return vi, nil
}

// ClearOverride removes a manual build status so the computed value applies again.
// It reports whether an override existed.
func (s *Service) ClearOverride(ctx context.Context, versionID int64, issueKey string) (bool, error) {
	cleared, err := s.store.ClearVersionIssueStatus(ctx, versionID, strings.TrimSpace(issueKey))
	if err != nil {
		return false, fmt.Errorf("clear override: %w", err)
	}
	return cleared > 0, nil
}
