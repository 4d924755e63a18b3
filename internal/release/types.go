// internal/release/types.go
package release

import (
	"fmt"
	"time"
)

type BuildStatus string

const (
	BuildStatusUnknown          BuildStatus = "unknown"
	BuildStatusNotInBuild       BuildStatus = "not-in-build"
	BuildStatusPartiallyInBuild BuildStatus = "partially-in-build"
	BuildStatusInBuild          BuildStatus = "in-build"
	BuildStatusRemoved          BuildStatus = "removed"
)

func ParseBuildStatus(raw string) (BuildStatus, error) {
	switch status := BuildStatus(raw); status {
	case BuildStatusUnknown, BuildStatusNotInBuild, BuildStatusPartiallyInBuild, BuildStatusInBuild, BuildStatusRemoved:
		return status, nil
	default:
		return "", fmt.Errorf("unknown build status %q", raw)
	}
}

// StatusCategory is the tracker's coarse status grouping used for coloring and progress.
type StatusCategory string

const (
	StatusCategoryToDo       StatusCategory = "new"
	StatusCategoryInProgress StatusCategory = "indeterminate"
	StatusCategoryDone       StatusCategory = "done"
	StatusCategoryUnknown    StatusCategory = "undefined"
)

type Issue struct {
	ID             string         `json:"id"`
	Key            string         `json:"key"`
	Summary        string         `json:"summary"`
	Description    string         `json:"description,omitempty"`
	StatusName     string         `json:"statusName"`
	StatusCategory StatusCategory `json:"statusCategory"`
	Labels         []string       `json:"labels,omitempty"`
}

func (i Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// VersionIssue links a release to an issue and carries an optional manual status.
type VersionIssue struct {
	VersionID   int64        `json:"versionId"`
	IssueKey    string       `json:"issueKey"`
	BuildStatus *BuildStatus `json:"buildStatus,omitempty"`
	SetBy       string       `json:"setBy,omitempty"`
	SetAt       *time.Time   `json:"setAt,omitempty"`
}

type Commit struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	AuthorName string    `json:"authorName"`
	AuthorDate time.Time `json:"authorDate"`
	URL        string    `json:"url"`
}

type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	URL    string `json:"url"`
	Head   string `json:"head"`
	Base   string `json:"base"`
}

// PullRequestData is what source control reports for one repository of a release.
type PullRequestData struct {
	Exists      bool         `json:"exists"`
	PullRequest *PullRequest `json:"pullRequest,omitempty"`
	Commits     []Commit     `json:"commits,omitempty"`
}

type IssueStatus struct {
	Issue            Issue       `json:"issue"`
	BuildStatus      BuildStatus `json:"buildStatus"`
	StatusOverridden bool        `json:"statusOverridden"`
}

type Project struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	TrackerKey   string    `json:"trackerKey"`
	Repositories []string  `json:"repositories"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Version struct {
	ID            int64      `json:"id"`
	ProjectID     int64      `json:"projectId"`
	Name          string     `json:"name"`
	ReleaseBranch string     `json:"releaseBranch"`
	ReleaseDate   *time.Time `json:"releaseDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
