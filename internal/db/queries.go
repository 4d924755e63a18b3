package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/codr1/releaseboard/internal/release"
	"github.com/codr1/releaseboard/internal/theme"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db      DBTX
	builder squirrel.StatementBuilderType
}

func NewQueries(db DBTX) *Queries {
	return &Queries{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

type CreateProjectParams struct {
	Name         string
	TrackerKey   string
	Repositories []string
}

type CreateVersionParams struct {
	ProjectID     int64
	Name          string
	ReleaseBranch string
	ReleaseDate   *time.Time
}

func wrapDBError(err error, context string) error {
	return fmt.Errorf("database: %s: %w", context, err)
}

var projectColumns = []string{"id", "name", "tracker_key", "repositories", "created_at"}
var versionColumns = []string{"id", "project_id", "name", "release_branch", "release_date", "created_at"}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (release.Project, error) {
	repos := arg.Repositories
	if repos == nil {
		repos = []string{}
	}
	encoded, err := json.Marshal(repos)
	if err != nil {
		return release.Project{}, wrapDBError(err, "CreateProject: encode repositories")
	}

	query, args, err := q.builder.
		Insert("projects").
		Columns("name", "tracker_key", "repositories").
		Values(arg.Name, arg.TrackerKey, string(encoded)).
		ToSql()
	if err != nil {
		return release.Project{}, wrapDBError(err, "CreateProject: build query")
	}

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return release.Project{}, wrapDBError(err, "CreateProject: execute query")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return release.Project{}, wrapDBError(err, "CreateProject: last insert id")
	}
	return q.GetProject(ctx, id)
}

func (q *Queries) GetProject(ctx context.Context, id int64) (release.Project, error) {
	query, args, err := q.builder.
		Select(projectColumns...).
		From("projects").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return release.Project{}, wrapDBError(err, "GetProject: build query")
	}
	return scanProject(q.db.QueryRowContext(ctx, query, args...))
}

func (q *Queries) ListProjects(ctx context.Context) ([]release.Project, error) {
	query, args, err := q.builder.
		Select(projectColumns...).
		From("projects").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, wrapDBError(err, "ListProjects: build query")
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "ListProjects: execute query")
	}
	defer rows.Close()

	projects := []release.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "ListProjects: iterate rows")
	}
	return projects, nil
}

func (q *Queries) CreateVersion(ctx context.Context, arg CreateVersionParams) (release.Version, error) {
	query, args, err := q.builder.
		Insert("versions").
		Columns("project_id", "name", "release_branch", "release_date").
		Values(arg.ProjectID, arg.Name, arg.ReleaseBranch, nullTime(arg.ReleaseDate)).
		ToSql()
	if err != nil {
		return release.Version{}, wrapDBError(err, "CreateVersion: build query")
	}

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return release.Version{}, wrapDBError(err, "CreateVersion: execute query")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return release.Version{}, wrapDBError(err, "CreateVersion: last insert id")
	}
	return q.GetVersion(ctx, id)
}

func (q *Queries) GetVersion(ctx context.Context, id int64) (release.Version, error) {
	query, args, err := q.builder.
		Select(versionColumns...).
		From("versions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return release.Version{}, wrapDBError(err, "GetVersion: build query")
	}
	return scanVersion(q.db.QueryRowContext(ctx, query, args...))
}

func (q *Queries) ListVersions(ctx context.Context, projectID int64) ([]release.Version, error) {
	query, args, err := q.builder.
		Select(versionColumns...).
		From("versions").
		Where(squirrel.Eq{"project_id": projectID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, wrapDBError(err, "ListVersions: build query")
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "ListVersions: execute query")
	}
	defer rows.Close()

	versions := []release.Version{}
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "ListVersions: iterate rows")
	}
	return versions, nil
}

func (q *Queries) ListVersionIssues(ctx context.Context, versionID int64) ([]release.VersionIssue, error) {
	query, args, err := q.builder.
		Select("version_id", "issue_key", "build_status", "set_by", "set_at").
		From("version_issues").
		Where(squirrel.Eq{"version_id": versionID}).
		OrderBy("issue_key").
		ToSql()
	if err != nil {
		return nil, wrapDBError(err, "ListVersionIssues: build query")
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "ListVersionIssues: execute query")
	}
	defer rows.Close()

	issues := []release.VersionIssue{}
	for rows.Next() {
		var (
			vi     release.VersionIssue
			status sql.NullString
			setBy  sql.NullString
			setAt  sql.NullTime
		)
		if err := rows.Scan(&vi.VersionID, &vi.IssueKey, &status, &setBy, &setAt); err != nil {
			return nil, wrapDBError(err, "ListVersionIssues: scan row")
		}
		if status.Valid {
			bs := release.BuildStatus(status.String)
			vi.BuildStatus = &bs
		}
		vi.SetBy = setBy.String
		if setAt.Valid {
			t := setAt.Time.UTC()
			vi.SetAt = &t
		}
		issues = append(issues, vi)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "ListVersionIssues: iterate rows")
	}
	return issues, nil
}

func (q *Queries) UpsertVersionIssue(ctx context.Context, vi release.VersionIssue) error {
	var status any
	if vi.BuildStatus != nil {
		status = string(*vi.BuildStatus)
	}
	query, args, err := q.builder.
		Insert("version_issues").
		Columns("version_id", "issue_key", "build_status", "set_by", "set_at").
		Values(vi.VersionID, vi.IssueKey, status, vi.SetBy, nullTime(vi.SetAt)).
		Suffix("ON CONFLICT(version_id, issue_key) DO UPDATE SET build_status = excluded.build_status, set_by = excluded.set_by, set_at = excluded.set_at").
		ToSql()
	if err != nil {
		return wrapDBError(err, "UpsertVersionIssue: build query")
	}
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return wrapDBError(err, "UpsertVersionIssue: execute query")
	}
	return nil
}

func (q *Queries) ClearVersionIssueStatus(ctx context.Context, versionID int64, issueKey string) (int64, error) {
	query, args, err := q.builder.
		Update("version_issues").
		Set("build_status", nil).
		Set("set_by", nil).
		Set("set_at", nil).
		Where(squirrel.Eq{"version_id": versionID, "issue_key": issueKey}).
		Where(squirrel.NotEq{"build_status": nil}).
		ToSql()
	if err != nil {
		return 0, wrapDBError(err, "ClearVersionIssueStatus: build query")
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapDBError(err, "ClearVersionIssueStatus: execute query")
	}
	return res.RowsAffected()
}

func (q *Queries) GetThemeSlot(ctx context.Context, key string) (string, error) {
	query, args, err := q.builder.
		Select("value").
		From("theme_slots").
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", wrapDBError(err, "GetThemeSlot: build query")
	}

	var value string
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", theme.ErrSlotNotFound
		}
		return "", wrapDBError(err, "GetThemeSlot: scan row")
	}
	return value, nil
}

func (q *Queries) PutThemeSlot(ctx context.Context, key, value string) error {
	query, args, err := q.builder.
		Insert("theme_slots").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return wrapDBError(err, "PutThemeSlot: build query")
	}
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return wrapDBError(err, "PutThemeSlot: execute query")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (release.Project, error) {
	var (
		project release.Project
		repos   string
	)
	if err := row.Scan(&project.ID, &project.Name, &project.TrackerKey, &repos, &project.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return release.Project{}, err
		}
		return release.Project{}, wrapDBError(err, "scan project")
	}
	if err := json.Unmarshal([]byte(repos), &project.Repositories); err != nil {
		return release.Project{}, wrapDBError(err, "decode project repositories")
	}
	return project, nil
}

func scanVersion(row rowScanner) (release.Version, error) {
	var (
		version     release.Version
		releaseDate sql.NullTime
	)
	if err := row.Scan(&version.ID, &version.ProjectID, &version.Name, &version.ReleaseBranch, &releaseDate, &version.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return release.Version{}, err
		}
		return release.Version{}, wrapDBError(err, "scan version")
	}
	if releaseDate.Valid {
		t := releaseDate.Time.UTC()
		version.ReleaseDate = &t
	}
	return version, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// IsUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a SQLite FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
