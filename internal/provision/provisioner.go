package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/search-provisioner/internal/engine"
	"github.com/utafrali/search-provisioner/internal/event"
	"github.com/utafrali/search-provisioner/internal/lock"
	"github.com/utafrali/search-provisioner/internal/task"
	apperrors "github.com/utafrali/search-provisioner/pkg/errors"
)

const (
	healthStatusAvailable   = "available"
	healthStatusUnavailable = "unavailable"

	// healthHandle is the pseudo-handle used when polling engine health.
	healthHandle task.Handle = "health"
)

// EngineAPI is the slice of the engine client the provisioner needs.
type EngineAPI interface {
	Health(ctx context.Context) (string, error)
	GetIndex(ctx context.Context, uid string) (*engine.Index, error)
	CreateIndex(ctx context.Context, uid, primaryKey string) (*engine.TaskRef, error)
	UpdateSettings(ctx context.Context, uid string, s *engine.Settings) (*engine.TaskRef, error)
	ListKeys(ctx context.Context) ([]engine.Key, error)
	CreateKey(ctx context.Context, key *engine.Key) (*engine.Key, error)
}

// Config holds the poll budgets for a provisioning run.
type Config struct {
	// HealthInterval and HealthMaxWait bound the wait for the engine to
	// report itself available after startup.
	HealthInterval time.Duration
	HealthMaxWait  time.Duration

	// TaskInterval and TaskMaxWait bound the wait on each engine task
	// (index creation, settings update).
	TaskInterval time.Duration
	TaskMaxWait  time.Duration

	// LeaseTTL caps how long a crashed run can hold the provisioning lease.
	LeaseTTL time.Duration
}

// DefaultConfig returns the provisioning defaults.
func DefaultConfig() Config {
	return Config{
		HealthInterval: 2 * time.Second,
		HealthMaxWait:  60 * time.Second,
		TaskInterval:   time.Second,
		TaskMaxWait:    2 * time.Minute,
		LeaseTTL:       5 * time.Minute,
	}
}

// Report summarizes what a provisioning run did.
type Report struct {
	IndexCreated    bool
	SettingsApplied bool
	KeysCreated     []string
	KeysSkipped     []string
	Duration        time.Duration
}

// Provisioner drives the engine from empty to a configured catalog index.
type Provisioner struct {
	api      EngineAPI
	tasks    *task.Poller
	health   *task.Poller
	locks    *lock.Manager
	producer *event.Producer
	owner    string
	logger   *slog.Logger
}

// NewProvisioner creates a provisioner. The fetcher is polled for engine
// task status; normally this is the engine client's TaskFetcher.
func NewProvisioner(
	api EngineAPI,
	fetcher task.Fetcher,
	locks *lock.Manager,
	producer *event.Producer,
	cfg Config,
	logger *slog.Logger,
) *Provisioner {
	def := DefaultConfig()
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = def.HealthInterval
	}
	if cfg.HealthMaxWait <= 0 {
		cfg.HealthMaxWait = def.HealthMaxWait
	}
	if cfg.TaskInterval <= 0 {
		cfg.TaskInterval = def.TaskInterval
	}
	if cfg.TaskMaxWait <= 0 {
		cfg.TaskMaxWait = def.TaskMaxWait
	}

	p := &Provisioner{
		api:      api,
		locks:    locks,
		producer: producer,
		owner:    leaseOwner(),
		logger:   logger,
	}

	p.tasks = task.New(fetcher, task.Config{
		Interval: cfg.TaskInterval,
		MaxWait:  cfg.TaskMaxWait,
	}, logger)

	// Health is not a task, but the wait has the same shape: poll until a
	// terminal status or the budget runs out. Connection failures while the
	// engine boots count as "still starting", not transport errors.
	p.health = task.New(p.fetchHealth, task.Config{
		Interval:         cfg.HealthInterval,
		MaxWait:          cfg.HealthMaxWait,
		IsSuccess:        func(payload task.Payload) bool { return payload.Status == healthStatusAvailable },
		ProgressStatuses: []string{healthStatusUnavailable},
	}, logger)

	return p
}

// Run executes the plan: wait for the engine, ensure the index exists, apply
// settings, ensure API keys, and announce the result. A Redis lease excludes
// concurrent runs against the same index.
func (p *Provisioner) Run(ctx context.Context, plan *Plan) (*Report, error) {
	start := time.Now()

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	lease, err := p.locks.Acquire(ctx, "provision:"+plan.IndexUID, p.owner)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			p.logger.WarnContext(ctx, "failed to release provisioning lease", slog.Any("error", err))
		}
	}()

	if err := p.waitHealthy(ctx); err != nil {
		return nil, err
	}

	report := &Report{}

	report.IndexCreated, err = p.ensureIndex(ctx, plan)
	if err != nil {
		return nil, err
	}

	if err := p.applySettings(ctx, plan); err != nil {
		return nil, err
	}
	report.SettingsApplied = true

	report.KeysCreated, report.KeysSkipped, err = p.ensureKeys(ctx, plan)
	if err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)

	p.logger.InfoContext(ctx, "index provisioned",
		slog.String("index_uid", plan.IndexUID),
		slog.Bool("index_created", report.IndexCreated),
		slog.Int("keys_created", len(report.KeysCreated)),
		slog.Int("keys_skipped", len(report.KeysSkipped)),
		slog.Duration("duration", report.Duration),
	)

	if err := p.producer.PublishIndexProvisioned(ctx, event.IndexProvisionedData{
		IndexUID:    plan.IndexUID,
		PrimaryKey:  plan.PrimaryKey,
		Created:     report.IndexCreated,
		KeysCreated: report.KeysCreated,
		Duration:    report.Duration,
	}); err != nil {
		p.logger.WarnContext(ctx, "failed to publish index_provisioned event", slog.Any("error", err))
	}

	return report, nil
}

// fetchHealth adapts the health endpoint to the poller contract.
func (p *Provisioner) fetchHealth(ctx context.Context, _ task.Handle) (task.Payload, error) {
	status, err := p.api.Health(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return task.Payload{}, err
		}
		return task.Payload{Status: healthStatusUnavailable}, nil
	}
	return task.Payload{Status: status}, nil
}

func (p *Provisioner) waitHealthy(ctx context.Context) error {
	result, err := p.health.Wait(ctx, healthHandle)
	if err != nil {
		var timeoutErr *task.TimeoutError
		if errors.As(err, &timeoutErr) {
			return apperrors.EngineUnavailable(fmt.Sprintf(
				"engine not available after %s (%d polls)", timeoutErr.Waited, timeoutErr.Polls))
		}
		return fmt.Errorf("wait for engine health: %w", err)
	}
	if !result.OK {
		return apperrors.EngineUnavailable("engine reported failure during health wait")
	}
	return nil
}

// ensureIndex creates the index if it does not exist. Returns whether a
// create happened.
func (p *Provisioner) ensureIndex(ctx context.Context, plan *Plan) (bool, error) {
	_, err := p.api.GetIndex(ctx, plan.IndexUID)
	if err == nil {
		p.logger.InfoContext(ctx, "index already exists", slog.String("index_uid", plan.IndexUID))
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return false, fmt.Errorf("check index %s: %w", plan.IndexUID, err)
	}

	ref, err := p.api.CreateIndex(ctx, plan.IndexUID, plan.PrimaryKey)
	if err != nil {
		return false, fmt.Errorf("create index %s: %w", plan.IndexUID, err)
	}

	result, err := p.tasks.Wait(ctx, ref.Handle())
	if err != nil {
		return false, fmt.Errorf("create index %s: %w", plan.IndexUID, err)
	}
	if !result.OK {
		return false, failedTask("create index "+plan.IndexUID, ref.Handle(), result)
	}

	p.logger.InfoContext(ctx, "index created",
		slog.String("index_uid", plan.IndexUID),
		slog.String("primary_key", plan.PrimaryKey),
	)
	return true, nil
}

func (p *Provisioner) applySettings(ctx context.Context, plan *Plan) error {
	ref, err := p.api.UpdateSettings(ctx, plan.IndexUID, &plan.Settings)
	if err != nil {
		return fmt.Errorf("update settings %s: %w", plan.IndexUID, err)
	}

	result, err := p.tasks.Wait(ctx, ref.Handle())
	if err != nil {
		return fmt.Errorf("update settings %s: %w", plan.IndexUID, err)
	}
	if !result.OK {
		return failedTask("update settings "+plan.IndexUID, ref.Handle(), result)
	}

	return nil
}

// ensureKeys creates the plan's keys, skipping any whose name already
// exists. Key management is synchronous so there is nothing to poll.
func (p *Provisioner) ensureKeys(ctx context.Context, plan *Plan) (created, skipped []string, err error) {
	if len(plan.Keys) == 0 {
		return nil, nil, nil
	}

	existing, err := p.api.ListKeys(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list keys: %w", err)
	}

	byName := make(map[string]struct{}, len(existing))
	for _, k := range existing {
		byName[k.Name] = struct{}{}
	}

	for _, spec := range plan.Keys {
		if _, ok := byName[spec.Name]; ok {
			skipped = append(skipped, spec.Name)
			continue
		}

		if _, err := p.api.CreateKey(ctx, &engine.Key{
			Name:        spec.Name,
			Description: spec.Description,
			Actions:     spec.Actions,
			Indexes:     spec.Indexes,
		}); err != nil {
			return nil, nil, fmt.Errorf("create key %s: %w", spec.Name, err)
		}
		created = append(created, spec.Name)

		p.logger.InfoContext(ctx, "api key created", slog.String("key_name", spec.Name))
	}

	return created, skipped, nil
}

func failedTask(op string, h task.Handle, result *task.Result) error {
	if result.Cause != nil {
		return fmt.Errorf("%s: task %s failed: %s (%s)", op, h, result.Cause.Message, result.Cause.Code)
	}
	return fmt.Errorf("%s: task %s failed", op, h)
}

// leaseOwner identifies this process as a lease holder.
func leaseOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "provisioner"
	}
	return host + "-" + uuid.NewString()[:8]
}
