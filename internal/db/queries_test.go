package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/codr1/releaseboard/internal/db"
	"github.com/codr1/releaseboard/internal/release"
	"github.com/codr1/releaseboard/internal/testutil"
	"github.com/codr1/releaseboard/internal/theme"
)

func TestThemeSlots(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	q := database.Queries

	if _, err := q.GetThemeSlot(ctx, "theme"); !errors.Is(err, theme.ErrSlotNotFound) {
		t.Fatalf("GetThemeSlot(missing) error = %v, want ErrSlotNotFound", err)
	}

	if err := q.PutThemeSlot(ctx, "theme", `{"colors":{"primary":"#111111"}}`); err != nil {
		t.Fatalf("PutThemeSlot() error = %v", err)
	}
	if err := q.PutThemeSlot(ctx, "theme", `{"colors":{"primary":"#222222"}}`); err != nil {
		t.Fatalf("PutThemeSlot(overwrite) error = %v", err)
	}

	got, err := q.GetThemeSlot(ctx, "theme")
	if err != nil {
		t.Fatalf("GetThemeSlot() error = %v", err)
	}
	if got != `{"colors":{"primary":"#222222"}}` {
		t.Fatalf("GetThemeSlot() = %q", got)
	}
}

func TestProjectsAndVersions(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	q := database.Queries

	project, err := q.CreateProject(ctx, db.CreateProjectParams{
		Name:         "Dashboard",
		TrackerKey:   "DASH",
		Repositories: []string{"api", "web"},
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if project.ID == 0 || len(project.Repositories) != 2 || project.Repositories[1] != "web" {
		t.Fatalf("CreateProject() = %+v", project)
	}

	if _, err := q.CreateProject(ctx, db.CreateProjectParams{Name: "Dashboard", TrackerKey: "OTHER"}); !db.IsUniqueViolation(err) {
		t.Fatalf("duplicate CreateProject() error = %v, want unique violation", err)
	}

	projects, err := q.ListProjects(ctx)
	if err != nil || len(projects) != 1 {
		t.Fatalf("ListProjects() = %+v, %v", projects, err)
	}

	releaseDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	version, err := q.CreateVersion(ctx, db.CreateVersionParams{
		ProjectID:     project.ID,
		Name:          "2.4.0",
		ReleaseBranch: "release/2.4.0",
		ReleaseDate:   &releaseDate,
	})
	if err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}
	if version.ReleaseDate == nil || !version.ReleaseDate.Equal(releaseDate) {
		t.Fatalf("CreateVersion() release date = %v", version.ReleaseDate)
	}

	if _, err := q.CreateVersion(ctx, db.CreateVersionParams{ProjectID: 999, Name: "x"}); !db.IsForeignKeyViolation(err) {
		t.Fatalf("CreateVersion(unknown project) error = %v, want foreign key violation", err)
	}

	versions, err := q.ListVersions(ctx, project.ID)
	if err != nil || len(versions) != 1 || versions[0].Name != "2.4.0" {
		t.Fatalf("ListVersions() = %+v, %v", versions, err)
	}

	if _, err := q.GetVersion(ctx, 12345); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("GetVersion(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestVersionIssueOverrides(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	q := database.Queries

	project, err := q.CreateProject(ctx, db.CreateProjectParams{Name: "Dashboard", TrackerKey: "DASH"})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	version, err := q.CreateVersion(ctx, db.CreateVersionParams{ProjectID: project.ID, Name: "1.0.0"})
	if err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}

	setAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	removed := release.BuildStatusRemoved
	if err := q.UpsertVersionIssue(ctx, release.VersionIssue{
		VersionID:   version.ID,
		IssueKey:    "DASH-1",
		BuildStatus: &removed,
		SetBy:       "release-manager",
		SetAt:       &setAt,
	}); err != nil {
		t.Fatalf("UpsertVersionIssue() error = %v", err)
	}

	inBuild := release.BuildStatusInBuild
	if err := q.UpsertVersionIssue(ctx, release.VersionIssue{
		VersionID:   version.ID,
		IssueKey:    "DASH-1",
		BuildStatus: &inBuild,
		SetBy:       "qa",
		SetAt:       &setAt,
	}); err != nil {
		t.Fatalf("UpsertVersionIssue(update) error = %v", err)
	}

	issues, err := q.ListVersionIssues(ctx, version.ID)
	if err != nil {
		t.Fatalf("ListVersionIssues() error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("ListVersionIssues() len = %d, want 1", len(issues))
	}
	got := issues[0]
	if got.BuildStatus == nil || *got.BuildStatus != release.BuildStatusInBuild || got.SetBy != "qa" {
		t.Fatalf("ListVersionIssues()[0] = %+v", got)
	}
	if got.SetAt == nil || !got.SetAt.Equal(setAt) {
		t.Fatalf("SetAt = %v, want %v", got.SetAt, setAt)
	}

	cleared, err := q.ClearVersionIssueStatus(ctx, version.ID, "DASH-1")
	if err != nil || cleared != 1 {
		t.Fatalf("ClearVersionIssueStatus() = %d, %v", cleared, err)
	}
	cleared, err = q.ClearVersionIssueStatus(ctx, version.ID, "DASH-1")
	if err != nil || cleared != 0 {
		t.Fatalf("second ClearVersionIssueStatus() = %d, %v", cleared, err)
	}

	issues, err = q.ListVersionIssues(ctx, version.ID)
	if err != nil {
		t.Fatalf("ListVersionIssues() error = %v", err)
	}
	if len(issues) != 1 || issues[0].BuildStatus != nil {
		t.Fatalf("issues after clear = %+v", issues)
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := database.RunInTx(ctx, func(tx *db.DB) error {
		if err := tx.Queries.PutThemeSlot(ctx, "scratch", "{}"); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("RunInTx() error = %v, want sentinel", err)
	}
	if _, err := database.Queries.GetThemeSlot(ctx, "scratch"); !errors.Is(err, theme.ErrSlotNotFound) {
		t.Fatalf("slot survived rollback: %v", err)
	}
}

func TestMigrateVersion(t *testing.T) {
	out, err := db.Migrate(t.TempDir()+"/fresh.db", "version")
	if err != nil {
		t.Fatalf("Migrate(version) error = %v", err)
	}
	if out != "No migrations applied" {
		t.Fatalf("Migrate(version) = %q", out)
	}
	if _, err := db.Migrate(t.TempDir()+"/fresh.db", "sideways"); err == nil {
		t.Fatalf("Migrate(unknown) error = nil")
	}
}

func TestMigrationsApplied(t *testing.T) {
	database := testutil.NewTestDB(t)

	expectedTables := []string{
		"projects",
		"versions",
		"version_issues",
		"theme_slots",
	}

	for _, table := range expectedTables {
		var name string
		err := database.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?",
			table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			t.Fatalf("missing expected table %q after migrations", table)
		}
		if err != nil {
			t.Fatalf("query table %q existence: %v", table, err)
		}
	}
}

func TestForeignKeyIntegrity(t *testing.T) {
	database := testutil.NewTestDB(t)

	var foreignKeysEnabled int
	if err := database.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeysEnabled); err != nil {
		t.Fatalf("query foreign_keys pragma: %v", err)
	}
	if foreignKeysEnabled != 1 {
		t.Fatalf("expected foreign_keys pragma enabled, got %d", foreignKeysEnabled)
	}

	_, err := database.Queries.CreateVersion(context.Background(), db.CreateVersionParams{
		ProjectID: 9999,
		Name:      "1.0.0",
	})
	if !db.IsForeignKeyViolation(err) {
		t.Fatalf("expected foreign key violation for unknown project, got %v", err)
	}
}
