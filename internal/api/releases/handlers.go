// internal/api/releases/handlers.go
package releases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/releaseboard/internal/api/apiutil"
	"github.com/codr1/releaseboard/internal/db"
	"github.com/codr1/releaseboard/internal/ratelimit"
	"github.com/codr1/releaseboard/internal/release"
)

const (
	releaseQueryTimeout = 5 * time.Second
	buildStatusTimeout  = 60 * time.Second
	idParam             = "id"
	issueKeyParam       = "key"
	defaultSetBy        = "api"
	setByHeader         = "X-Release-User"
)

var (
	queries      releaseQueries
	service      releaseService
	options      Options
	handlersOnce sync.Once

	trackerKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)
	issueKeyPattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]+-[0-9]+$`)
	repoNamePattern   = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

type releaseQueries interface {
	CreateProject(ctx context.Context, arg db.CreateProjectParams) (release.Project, error)
	GetProject(ctx context.Context, id int64) (release.Project, error)
	ListProjects(ctx context.Context) ([]release.Project, error)
	CreateVersion(ctx context.Context, arg db.CreateVersionParams) (release.Version, error)
	GetVersion(ctx context.Context, id int64) (release.Version, error)
	ListVersions(ctx context.Context, projectID int64) ([]release.Version, error)
}

type releaseService interface {
	BuildStatus(ctx context.Context, versionID int64) (release.Report, error)
	SetOverride(ctx context.Context, versionID int64, issueKey string, status release.BuildStatus, setBy string) (release.VersionIssue, error)
	ClearOverride(ctx context.Context, versionID int64, issueKey string) (bool, error)
}

type refreshLimiter interface {
	CheckRefresh(ip string) ratelimit.LimitResult
	RecordRefresh(ip string)
}

// Options carries the settings the handlers need beyond storage and the release service.
type Options struct {
	// ReleaseBranch names the default branch of a new version.
	ReleaseBranch func(versionName string) string
	Limiter       refreshLimiter
	TrustProxy    bool
}

type projectRequest struct {
	Name         string   `json:"name"`
	TrackerKey   string   `json:"trackerKey"`
	Repositories []string `json:"repositories"`
}

type versionRequest struct {
	Name          string `json:"name"`
	ReleaseBranch string `json:"releaseBranch"`
	ReleaseDate   string `json:"releaseDate"`
}

type overrideRequest struct {
	Status string `json:"status"`
	SetBy  string `json:"setBy"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q releaseQueries, svc releaseService, opts Options) {
	if q == nil || svc == nil {
		return
	}
	handlersOnce.Do(func() {
		queries = q
		service = svc
		options = opts
	})
}

// GET /api/v1/projects
func HandleProjectList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q, ok := requireQueries(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), releaseQueryTimeout)
	defer cancel()

	projects, err := q.ListProjects(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list projects")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to load projects")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"projects": projects}); err != nil {
		logger.Error().Err(err).Msg("Failed to write projects list response")
	}
}

// POST /api/v1/projects
func HandleProjectCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q, ok := requireQueries(w, r)
	if !ok {
		return
	}

	var req projectRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	params, err := validateProject(req)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), releaseQueryTimeout)
	defer cancel()

	project, err := q.CreateProject(ctx, params)
	if err != nil {
		if db.IsUniqueViolation(err) {
			apiutil.WriteError(w, r, http.StatusConflict, "A project with that name already exists")
			return
		}
		logger.Error().Err(err).Str("name", params.Name).Msg("Failed to create project")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to create project")
		return
	}

	logger.Info().Int64("project_id", project.ID).Str("tracker_key", project.TrackerKey).Msg("Project created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, project); err != nil {
		logger.Error().Err(err).Int64("project_id", project.ID).Msg("Failed to write project create response")
	}
}

// GET /api/v1/projects/{id}
func HandleProjectDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q, ok := requireQueries(w, r)
	if !ok {
		return
	}
	projectID, err := apiutil.PathID(r, idParam)
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid project ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), releaseQueryTimeout)
	defer cancel()

	project, err := q.GetProject(ctx, projectID)
	if err != nil {
		writeLookupError(w, r, err, "Project not found", "project_id", projectID)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, project); err != nil {
		logger.Error().Err(err).Int64("project_id", projectID).Msg("Failed to write project response")
	}
}

// GET /api/v1/projects/{id}/versions
func HandleVersionList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q, ok := requireQueries(w, r)
	if !ok {
		return
	}
	projectID, err := apiutil.PathID(r, idParam)
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid project ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), releaseQueryTimeout)
	defer cancel()

	if _, err := q.GetProject(ctx, projectID); err != nil {
		writeLookupError(w, r, err, "Project not found", "project_id", projectID)
		return
	}
	versions, err := q.ListVersions(ctx, projectID)
	if err != nil {
		logger.Error().Err(err).Int64("project_id", projectID).Msg("Failed to list versions")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to load versions")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"versions": versions}); err != nil {
		logger.Error().Err(err).Int64("project_id", projectID).Msg("Failed to write versions list response")
	}
}

// POST /api/v1/projects/{id}/versions
func HandleVersionCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q, ok := requireQueries(w, r)
	if !ok {
		return
	}
	projectID, err := apiutil.PathID(r, idParam)
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var req versionRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	params, err := validateVersion(projectID, req)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), releaseQueryTimeout)
	defer cancel()

	if _, err := q.GetProject(ctx, projectID); err != nil {
		writeLookupError(w, r, err, "Project not found", "project_id", projectID)
		return
	}
	version, err := q.CreateVersion(ctx, params)
	if err != nil {
		if db.IsUniqueViolation(err) {
			apiutil.WriteError(w, r, http.StatusConflict, "That version already exists for the project")
			return
		}
		logger.Error().Err(err).Int64("project_id", projectID).Msg("Failed to create version")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to create version")
		return
	}

	logger.Info().
		Int64("project_id", projectID).
		Int64("version_id", version.ID).
		Str("release_branch", version.ReleaseBranch).
		Msg("Version created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, version); err != nil {
		logger.Error().Err(err).Int64("version_id", version.ID).Msg("Failed to write version create response")
	}
}

// GET /api/v1/versions/{id}/build-status
func HandleBuildStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	svc, ok := requireService(w, r)
	if !ok {
		return
	}
	versionID, err := apiutil.PathID(r, idParam)
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid version ID")
		return
	}

	if l := options.Limiter; l != nil {
		ip := ratelimit.GetClientIP(r, options.TrustProxy)
		if result := l.CheckRefresh(ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded("build_status", ip, result.Reason)
			apiutil.SetRetryAfter(w, result.RetryAfter)
			apiutil.WriteError(w, r, http.StatusTooManyRequests, "Too many refreshes. Please wait before trying again.")
			return
		}
		l.RecordRefresh(ip)
	}

	ctx, cancel := context.WithTimeout(r.Context(), buildStatusTimeout)
	defer cancel()

	report, err := svc.BuildStatus(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, r, http.StatusNotFound, "Version not found")
			return
		}
		logger.Error().Err(err).Int64("version_id", versionID).Msg("Failed to compute build status")
		apiutil.WriteHandlerError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, report); err != nil {
		logger.Error().Err(err).Int64("version_id", versionID).Msg("Failed to write build status response")
	}
}

// PUT /api/v1/versions/{id}/issues/{key}/build-status
func HandleOverrideSet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	svc, ok := requireService(w, r)
	if !ok {
		return
	}
	versionID, issueKey, ok := overrideTarget(w, r)
	if !ok {
		return
	}

	var req overrideRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := release.ParseBuildStatus(strings.TrimSpace(req.Status))
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	setBy := apiutil.FirstNonEmpty(req.SetBy, r.Header.Get(setByHeader), defaultSetBy)

	ctx, cancel := context.WithTimeout(r.Context(), releaseQueryTimeout)
	defer cancel()

	if _, err := queries.GetVersion(ctx, versionID); err != nil {
		writeLookupError(w, r, err, "Version not found", "version_id", versionID)
		return
	}
	vi, err := svc.SetOverride(ctx, versionID, issueKey, status, setBy)
	if err != nil {
		logger.Error().Err(err).Int64("version_id", versionID).Str("issue_key", issueKey).Msg("Failed to set build status override")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to save build status")
		return
	}

	logger.Info().
		Int64("version_id", versionID).
		Str("issue_key", issueKey).
		Str("status", string(status)).
		Str("set_by", setBy).
		Msg("Build status override set")
	if err := apiutil.WriteJSON(w, http.StatusOK, vi); err != nil {
		logger.Error().Err(err).Int64("version_id", versionID).Msg("Failed to write override response")
	}
}

// DELETE /api/v1/versions/{id}/issues/{key}/build-status
func HandleOverrideClear(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	svc, ok := requireService(w, r)
	if !ok {
		return
	}
	versionID, issueKey, ok := overrideTarget(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), releaseQueryTimeout)
	defer cancel()

	cleared, err := svc.ClearOverride(ctx, versionID, issueKey)
	if err != nil {
		logger.Error().Err(err).Int64("version_id", versionID).Str("issue_key", issueKey).Msg("Failed to clear build status override")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Failed to clear build status")
		return
	}
	if !cleared {
		apiutil.WriteError(w, r, http.StatusNotFound, "No manual build status for that issue")
		return
	}

	logger.Info().Int64("version_id", versionID).Str("issue_key", issueKey).Msg("Build status override cleared")
	w.WriteHeader(http.StatusNoContent)
}

func validateProject(req projectRequest) (db.CreateProjectParams, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return db.CreateProjectParams{}, apiutil.FieldError{Field: "name", Reason: "is required"}
	}
	trackerKey := strings.ToUpper(strings.TrimSpace(req.TrackerKey))
	if !trackerKeyPattern.MatchString(trackerKey) {
		return db.CreateProjectParams{}, apiutil.FieldError{Field: "trackerKey", Reason: "must be a Jira project key such as CORE"}
	}

	seen := map[string]bool{}
	repos := make([]string, 0, len(req.Repositories))
	for _, repo := range req.Repositories {
		repo = strings.TrimSpace(repo)
		if !repoNamePattern.MatchString(repo) {
			return db.CreateProjectParams{}, apiutil.FieldError{Field: "repositories", Reason: fmt.Sprintf("has an invalid repository name %q", repo)}
		}
		if seen[repo] {
			continue
		}
		seen[repo] = true
		repos = append(repos, repo)
	}

	return db.CreateProjectParams{Name: name, TrackerKey: trackerKey, Repositories: repos}, nil
}

func validateVersion(projectID int64, req versionRequest) (db.CreateVersionParams, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return db.CreateVersionParams{}, apiutil.FieldError{Field: "name", Reason: "is required"}
	}
	releaseDate, err := apiutil.ParseOptionalDate(req.ReleaseDate, "releaseDate")
	if err != nil {
		return db.CreateVersionParams{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	}

	branch := strings.TrimSpace(req.ReleaseBranch)
	if branch == "" && options.ReleaseBranch != nil {
		branch = options.ReleaseBranch(name)
	}
	return db.CreateVersionParams{
		ProjectID:     projectID,
		Name:          name,
		ReleaseBranch: branch,
		ReleaseDate:   releaseDate,
	}, nil
}

func overrideTarget(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	versionID, err := apiutil.PathID(r, idParam)
	if err != nil {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid version ID")
		return 0, "", false
	}
	issueKey := strings.ToUpper(strings.TrimSpace(r.PathValue(issueKeyParam)))
	if !issueKeyPattern.MatchString(issueKey) {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid issue key")
		return 0, "", false
	}
	return versionID, issueKey, true
}

func writeLookupError(w http.ResponseWriter, r *http.Request, err error, notFound string, idField string, id int64) {
	if errors.Is(err, sql.ErrNoRows) {
		apiutil.WriteError(w, r, http.StatusNotFound, notFound)
		return
	}
	log.Ctx(r.Context()).Error().Err(err).Int64(idField, id).Msg("Lookup failed")
	apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
}

func requireQueries(w http.ResponseWriter, r *http.Request) (releaseQueries, bool) {
	q := loadQueries()
	if q == nil {
		log.Ctx(r.Context()).Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return nil, false
	}
	return q, true
}

func requireService(w http.ResponseWriter, r *http.Request) (releaseService, bool) {
	if service == nil || queries == nil {
		log.Ctx(r.Context()).Error().Msg("Release service not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return nil, false
	}
	return service, true
}

func loadQueries() releaseQueries {
	return queries
}
