package provision

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/search-provisioner/internal/engine"
	"github.com/utafrali/search-provisioner/internal/event"
	"github.com/utafrali/search-provisioner/internal/lock"
	"github.com/utafrali/search-provisioner/internal/task"
	apperrors "github.com/utafrali/search-provisioner/pkg/errors"
	pkgkafka "github.com/utafrali/search-provisioner/pkg/kafka"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestLocks(t *testing.T) *lock.Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.NewManager(client, time.Minute)
}

// fakeEngine is an in-memory engine management API.
type fakeEngine struct {
	healthStatus string
	healthErr    error
	healthCalls  int

	indexes map[string]*engine.Index
	keys    []engine.Key

	createdIndexes  []string
	updatedSettings *engine.Settings
	createdKeys     []string

	nextTaskUID int64
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		healthStatus: "available",
		indexes:      map[string]*engine.Index{},
	}
}

func (f *fakeEngine) Health(_ context.Context) (string, error) {
	f.healthCalls++
	return f.healthStatus, f.healthErr
}

func (f *fakeEngine) GetIndex(_ context.Context, uid string) (*engine.Index, error) {
	if idx, ok := f.indexes[uid]; ok {
		return idx, nil
	}
	return nil, apperrors.NotFound("index", uid)
}

func (f *fakeEngine) CreateIndex(_ context.Context, uid, primaryKey string) (*engine.TaskRef, error) {
	f.indexes[uid] = &engine.Index{UID: uid, PrimaryKey: primaryKey}
	f.createdIndexes = append(f.createdIndexes, uid)
	f.nextTaskUID++
	return &engine.TaskRef{TaskUID: f.nextTaskUID, IndexUID: uid, Status: "enqueued"}, nil
}

func (f *fakeEngine) UpdateSettings(_ context.Context, _ string, s *engine.Settings) (*engine.TaskRef, error) {
	f.updatedSettings = s
	f.nextTaskUID++
	return &engine.TaskRef{TaskUID: f.nextTaskUID, Status: "enqueued"}, nil
}

func (f *fakeEngine) ListKeys(_ context.Context) ([]engine.Key, error) {
	return f.keys, nil
}

func (f *fakeEngine) CreateKey(_ context.Context, key *engine.Key) (*engine.Key, error) {
	f.keys = append(f.keys, *key)
	f.createdKeys = append(f.createdKeys, key.Name)
	return key, nil
}

// succeedAll resolves every task as succeeded on the first poll.
func succeedAll(_ context.Context, _ task.Handle) (task.Payload, error) {
	return task.Payload{Status: "succeeded"}, nil
}

func fastConfig() Config {
	return Config{
		HealthInterval: time.Millisecond,
		HealthMaxWait:  50 * time.Millisecond,
		TaskInterval:   time.Millisecond,
		TaskMaxWait:    50 * time.Millisecond,
	}
}

func newTestProvisioner(t *testing.T, api EngineAPI, fetcher task.Fetcher) *Provisioner {
	t.Helper()
	return NewProvisioner(api, fetcher, newTestLocks(t), newTestProducer(), fastConfig(), newTestLogger())
}

// --- Tests ---

func TestProvisioner_Run_FreshEngine(t *testing.T) {
	eng := newFakeEngine()
	p := newTestProvisioner(t, eng, succeedAll)

	report, err := p.Run(context.Background(), DefaultPlan())
	require.NoError(t, err)

	assert.True(t, report.IndexCreated)
	assert.True(t, report.SettingsApplied)
	assert.Equal(t, []string{"storefront-search", "catalog-indexer"}, report.KeysCreated)
	assert.Empty(t, report.KeysSkipped)

	assert.Equal(t, []string{"products"}, eng.createdIndexes)
	require.NotNil(t, eng.updatedSettings)
	assert.Contains(t, eng.updatedSettings.SearchableAttributes, "name")
	assert.Contains(t, eng.updatedSettings.FilterableAttributes, "price")
}

func TestProvisioner_Run_Rerun_IsIdempotent(t *testing.T) {
	eng := newFakeEngine()
	p := newTestProvisioner(t, eng, succeedAll)

	_, err := p.Run(context.Background(), DefaultPlan())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), DefaultPlan())
	require.NoError(t, err)

	assert.False(t, report.IndexCreated)
	assert.True(t, report.SettingsApplied)
	assert.Empty(t, report.KeysCreated)
	assert.Equal(t, []string{"storefront-search", "catalog-indexer"}, report.KeysSkipped)
	assert.Equal(t, []string{"products"}, eng.createdIndexes, "index created only once")
}

func TestProvisioner_Run_EngineNeverHealthy(t *testing.T) {
	eng := newFakeEngine()
	eng.healthStatus = "unavailable"
	p := newTestProvisioner(t, eng, succeedAll)

	_, err := p.Run(context.Background(), DefaultPlan())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEngineUnavail)
	assert.Greater(t, eng.healthCalls, 1, "health should be polled repeatedly")
	assert.Empty(t, eng.createdIndexes, "no provisioning against an unavailable engine")
}

func TestProvisioner_Run_HealthConnectionRefusedIsProgress(t *testing.T) {
	eng := newFakeEngine()
	eng.healthErr = errors.New("connection refused")
	p := newTestProvisioner(t, eng, succeedAll)

	_, err := p.Run(context.Background(), DefaultPlan())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEngineUnavail, "connection failures wait for the budget, not fail fast")
	assert.Greater(t, eng.healthCalls, 1)
}

func TestProvisioner_Run_LeaseHeld(t *testing.T) {
	eng := newFakeEngine()
	locks := newTestLocks(t)
	p := NewProvisioner(eng, succeedAll, locks, newTestProducer(), fastConfig(), newTestLogger())

	// Another run holds the lease for this index.
	_, err := locks.Acquire(context.Background(), "provision:products", "other-run")
	require.NoError(t, err)

	_, err = p.Run(context.Background(), DefaultPlan())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrLeaseHeld)
	assert.Zero(t, eng.healthCalls, "no engine calls while the lease is held")
}

func TestProvisioner_Run_LeaseReleasedAfterRun(t *testing.T) {
	eng := newFakeEngine()
	locks := newTestLocks(t)
	p := NewProvisioner(eng, succeedAll, locks, newTestProducer(), fastConfig(), newTestLogger())

	_, err := p.Run(context.Background(), DefaultPlan())
	require.NoError(t, err)

	// The lease must be free again.
	lease, err := locks.Acquire(context.Background(), "provision:products", "follow-up")
	require.NoError(t, err)
	_ = lease.Release(context.Background())
}

func TestProvisioner_Run_FailedSettingsTask(t *testing.T) {
	eng := newFakeEngine()

	// Index creation task (uid 1) succeeds, settings task (uid 2) fails.
	fetcher := func(_ context.Context, h task.Handle) (task.Payload, error) {
		if h == "2" {
			return task.Payload{
				Status: "failed",
				Cause:  &task.FailureCause{Message: "invalid ranking rule", Code: "invalid_settings_ranking_rules"},
			}, nil
		}
		return task.Payload{Status: "succeeded"}, nil
	}

	p := newTestProvisioner(t, eng, fetcher)

	_, err := p.Run(context.Background(), DefaultPlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update settings products")
	assert.Contains(t, err.Error(), "invalid ranking rule")
	assert.Empty(t, eng.createdKeys, "keys are not touched after a failed step")
}

func TestProvisioner_Run_InvalidPlan(t *testing.T) {
	eng := newFakeEngine()
	p := newTestProvisioner(t, eng, succeedAll)

	plan := DefaultPlan()
	plan.IndexUID = ""

	_, err := p.Run(context.Background(), plan)
	require.Error(t, err)
	assert.Zero(t, eng.healthCalls, "validation happens before any engine call")
}

func TestDefaultPlan_IsValid(t *testing.T) {
	require.NoError(t, DefaultPlan().Validate())
}
