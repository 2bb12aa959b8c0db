package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/utafrali/search-provisioner/internal/backup"
	"github.com/utafrali/search-provisioner/internal/provision"
	"github.com/utafrali/search-provisioner/internal/seed"
	apperrors "github.com/utafrali/search-provisioner/pkg/errors"
	"github.com/utafrali/search-provisioner/pkg/httputil"
	"github.com/utafrali/search-provisioner/pkg/logger"
)

// ProvisionRunner runs a provisioning plan.
type ProvisionRunner interface {
	Run(ctx context.Context, plan *provision.Plan) (*provision.Report, error)
}

// SeedRunner seeds the catalog into an index.
type SeedRunner interface {
	Run(ctx context.Context, indexUID string) (*seed.Report, error)
}

// BackupRunner triggers an engine dump.
type BackupRunner interface {
	CreateDump(ctx context.Context) (*backup.Report, error)
}

// AdminHandler exposes the provisioner's runs over HTTP for remote
// operation.
type AdminHandler struct {
	provisioner ProvisionRunner
	seeder      SeedRunner
	backups     BackupRunner
	indexUID    string
	logger      *slog.Logger
}

// NewAdminHandler creates the admin HTTP handler. indexUID is the default
// index for runs that do not name one.
func NewAdminHandler(
	provisioner ProvisionRunner,
	seeder SeedRunner,
	backups BackupRunner,
	indexUID string,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		provisioner: provisioner,
		seeder:      seeder,
		backups:     backups,
		indexUID:    indexUID,
		logger:      logger,
	}
}

// --- Request DTOs ---

// ProvisionRequest optionally overrides the default plan's index identity.
type ProvisionRequest struct {
	IndexUID   string `json:"index_uid"`
	PrimaryKey string `json:"primary_key"`
}

// SeedRequest optionally names the index to seed.
type SeedRequest struct {
	IndexUID string `json:"index_uid"`
}

// --- Handlers ---

// Provision handles POST /api/v1/provision. The run is synchronous so the
// caller sees the report, including a 409 when another run holds the lease.
func (h *AdminHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req ProvisionRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	plan := provision.DefaultPlan()
	if req.IndexUID != "" {
		plan.IndexUID = req.IndexUID
	}
	if req.PrimaryKey != "" {
		plan.PrimaryKey = req.PrimaryKey
	}

	report, err := h.provisioner.Run(r.Context(), plan)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"index_uid":        plan.IndexUID,
		"index_created":    report.IndexCreated,
		"settings_applied": report.SettingsApplied,
		"keys_created":     report.KeysCreated,
		"keys_skipped":     report.KeysSkipped,
		"duration":         report.Duration.String(),
	}})
}

// Seed handles POST /api/v1/seed. Seeding a large catalog takes a while, so
// the run happens in the background and the response carries a run ID to
// correlate with the logs.
func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	indexUID := req.IndexUID
	if indexUID == "" {
		indexUID = h.indexUID
	}

	runID := uuid.NewString()

	go func() {
		ctx := logger.WithRunID(context.Background(), runID)
		if _, err := h.seeder.Run(ctx, indexUID); err != nil {
			h.logger.ErrorContext(ctx, "background seed failed",
				slog.String("index_uid", indexUID),
				slog.Any("error", err),
			)
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{
		"status":    "seed started",
		"index_uid": indexUID,
		"run_id":    runID,
	}})
}

// Backup handles POST /api/v1/backup. Dumps are waited on so the caller
// learns whether the backup actually landed.
func (h *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	report, err := h.backups.CreateDump(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"task_uid": report.TaskUID,
		"duration": report.Duration.String(),
	}})
}

// decodeOptionalBody decodes a JSON body when one is present. An empty body
// leaves dst at its zero value.
func decodeOptionalBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.InvalidInput("request body must be valid JSON")
}
