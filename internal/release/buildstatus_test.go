package release

import (
	"testing"
	"time"
)

const inScope = "release-tracked"

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func commitAt(hours int, message string) Commit {
	return Commit{SHA: message, Message: message, AuthorDate: base.Add(time.Duration(hours) * time.Hour)}
}

func statusPtr(status BuildStatus) *BuildStatus {
	return &status
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name           string
		issue          Issue
		overrides      map[string]VersionIssue
		prData         map[string]PullRequestData
		wantStatus     BuildStatus
		wantOverridden bool
	}{
		{
			name:  "manual_override_wins",
			issue: Issue{Key: "X-1"},
			overrides: map[string]VersionIssue{
				"X-1": {IssueKey: "X-1", BuildStatus: statusPtr(BuildStatusInBuild)},
			},
			prData: map[string]PullRequestData{
				"api": {Exists: true, Commits: []Commit{commitAt(1, "Revert X-1")}},
			},
			wantStatus:     BuildStatusInBuild,
			wantOverridden: true,
		},
		{
			name:  "partial_when_one_repo_missing",
			issue: Issue{Key: "Y-2", Labels: []string{inScope}},
			prData: map[string]PullRequestData{
				"api": {Exists: true, Commits: []Commit{commitAt(1, "Y-2: add endpoint")}},
				"web": {Exists: true, Commits: []Commit{commitAt(2, "OTHER-9: unrelated")}},
			},
			wantStatus: BuildStatusPartiallyInBuild,
		},
		{
			name:  "newer_revert_removes",
			issue: Issue{Key: "Z-3", Labels: []string{inScope}},
			prData: map[string]PullRequestData{
				"api": {Exists: true, Commits: []Commit{
					commitAt(1, "Z-3 land feature"),
					commitAt(5, `Revert "Z-3 land feature"`),
				}},
				"web": {Exists: true, Commits: []Commit{commitAt(2, "Z-3 ui")}},
			},
			wantStatus: BuildStatusRemoved,
		},
		{
			name:  "older_revert_is_ignored",
			issue: Issue{Key: "Z-4", Labels: []string{inScope}},
			prData: map[string]PullRequestData{
				"api": {Exists: true, Commits: []Commit{
					commitAt(5, "Z-4 reland feature"),
					commitAt(1, `Revert "Z-4 land feature"`),
				}},
			},
			wantStatus: BuildStatusInBuild,
		},
		{
			name:  "missing_label_is_unknown",
			issue: Issue{Key: "W-5"},
			prData: map[string]PullRequestData{
				"api": {Exists: true, Commits: []Commit{commitAt(1, "W-5 done")}},
			},
			wantStatus: BuildStatusUnknown,
		},
		{
			name:  "no_mentions_is_not_in_build",
			issue: Issue{Key: "V-6", Labels: []string{inScope}},
			prData: map[string]PullRequestData{
				"api": {Exists: true, Commits: []Commit{commitAt(1, "Bump dependencies")}},
				"web": {Exists: true},
			},
			wantStatus: BuildStatusNotInBuild,
		},
		{
			// Substring matching is part of the heuristic: V-6 matches V-60.
			name:  "key_prefix_counts_as_mention",
			issue: Issue{Key: "V-6", Labels: []string{inScope}},
			prData: map[string]PullRequestData{
				"api": {Exists: true, Commits: []Commit{commitAt(1, "V-60 something else")}},
			},
			wantStatus: BuildStatusInBuild,
		},
		{
			name:  "case_insensitive_match",
			issue: Issue{Key: "abc-7", Labels: []string{inScope}},
			prData: map[string]PullRequestData{
				"api": {Exists: true, Commits: []Commit{commitAt(1, "ABC-7 fix")}},
				"web": {Exists: true, Commits: []Commit{commitAt(1, "abc-7 fix ui")}},
			},
			wantStatus: BuildStatusInBuild,
		},
		{
			name:  "missing_branch_not_counted",
			issue: Issue{Key: "U-8", Labels: []string{inScope}},
			prData: map[string]PullRequestData{
				"api": {Exists: true, Commits: []Commit{commitAt(1, "U-8 fix")}},
				"web": {Exists: false},
			},
			wantStatus: BuildStatusInBuild,
		},
		{
			name:  "no_repositories_is_unknown",
			issue: Issue{Key: "T-9", Labels: []string{inScope}},
			overrides: map[string]VersionIssue{
				"T-9": {IssueKey: "T-9", BuildStatus: statusPtr(BuildStatusInBuild)},
			},
			prData:     map[string]PullRequestData{"web": {Exists: false}},
			wantStatus: BuildStatusUnknown,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Reconcile([]Issue{test.issue}, test.overrides, test.prData, inScope)
			if len(got) != 1 {
				t.Fatalf("Reconcile() returned %d results, want 1", len(got))
			}
			if got[0].BuildStatus != test.wantStatus {
				t.Fatalf("BuildStatus = %s, want %s", got[0].BuildStatus, test.wantStatus)
			}
			if got[0].StatusOverridden != test.wantOverridden {
				t.Fatalf("StatusOverridden = %t, want %t", got[0].StatusOverridden, test.wantOverridden)
			}
		})
	}
}

func TestReconcile_NoCommitData(t *testing.T) {
	issues := []Issue{
		{Key: "A-1", Labels: []string{inScope}},
		{Key: "A-2"},
	}
	overrides := map[string]VersionIssue{"A-2": {IssueKey: "A-2", BuildStatus: statusPtr(BuildStatusRemoved)}}

	got := Reconcile(issues, overrides, nil, inScope)
	if len(got) != 2 {
		t.Fatalf("Reconcile() returned %d results, want 2", len(got))
	}
	for _, status := range got {
		if status.BuildStatus != BuildStatusUnknown || status.StatusOverridden {
			t.Fatalf("%s = %s/%t, want unknown/false", status.Issue.Key, status.BuildStatus, status.StatusOverridden)
		}
	}

	if got := Reconcile(nil, nil, map[string]PullRequestData{"api": {Exists: true}}, inScope); len(got) != 0 {
		t.Fatalf("Reconcile(nil issues) = %v", got)
	}
}

func TestReconcile_PreservesIssueOrder(t *testing.T) {
	issues := []Issue{{Key: "B-3"}, {Key: "B-1"}, {Key: "B-2"}}
	got := Reconcile(issues, nil, map[string]PullRequestData{"api": {Exists: true}}, inScope)
	for i, status := range got {
		if status.Issue.Key != issues[i].Key {
			t.Fatalf("result %d = %s, want %s", i, status.Issue.Key, issues[i].Key)
		}
	}
}

func TestSummarize(t *testing.T) {
	counts := Summarize([]IssueStatus{
		{BuildStatus: BuildStatusInBuild},
		{BuildStatus: BuildStatusInBuild},
		{BuildStatus: BuildStatusRemoved},
	})
	if counts[BuildStatusInBuild] != 2 || counts[BuildStatusRemoved] != 1 {
		t.Fatalf("Summarize() = %v", counts)
	}
}

func TestParseBuildStatus(t *testing.T) {
	if status, err := ParseBuildStatus("partially-in-build"); err != nil || status != BuildStatusPartiallyInBuild {
		t.Fatalf("ParseBuildStatus() = %s, %v", status, err)
	}
	if _, err := ParseBuildStatus("shipped"); err == nil {
		t.Fatalf("ParseBuildStatus(shipped) error = nil")
	}
}
