package flow

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelbdd/agente-bdd/internal/jobs"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
)

func newTestRunner(crm hubspot.Client) (*Runner, *jobs.Store) {
	store := jobs.NewStore()
	return NewRunner(store, crm, time.Minute), store
}

func TestRunner_RunSyncCompletes(t *testing.T) {
	crm := newFakeCRM()
	crm.addCompany(&hubspot.Company{ID: "1"})
	runner, _ := newTestRunner(crm)
	runner.Register(jobs.TaskEnrichment, func(ctx context.Context, companyID string) (any, error) {
		return map[string]string{"company": companyID}, nil
	})

	job, err := runner.RunSync(context.Background(), jobs.TaskEnrichment, "1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Equal(t, map[string]string{"company": "1"}, job.Result)

	// Claimed synchronously, released after the flow.
	updates := crm.companyUpdates["1"]
	require.Len(t, updates, 2)
	assert.Equal(t, map[string]string{"agente": "pendiente"}, updates[0])
	assert.Equal(t, map[string]string{"agente": ""}, updates[1])
}

func TestRunner_RunSyncFlowError(t *testing.T) {
	crm := newFakeCRM()
	crm.addCompany(&hubspot.Company{ID: "1"})
	runner, _ := newTestRunner(crm)
	runner.Register(jobs.TaskEnrichment, func(ctx context.Context, companyID string) (any, error) {
		return nil, eris.New("boom")
	})

	job, err := runner.RunSync(context.Background(), jobs.TaskEnrichment, "1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "boom")

	// The agente flag is still released on failure.
	updates := crm.companyUpdates["1"]
	require.Len(t, updates, 2)
	assert.Equal(t, map[string]string{"agente": ""}, updates[1])
}

func TestRunner_UnknownTask(t *testing.T) {
	runner, _ := newTestRunner(newFakeCRM())
	_, err := runner.RunSync(context.Background(), jobs.TaskEnrichment, "1")
	assert.ErrorIs(t, err, jobs.ErrNotFound)
}

func TestRunner_ClaimFailureFailsJob(t *testing.T) {
	crm := newFakeCRM()
	crm.updateCompanyErr = eris.New("crm down")
	runner, store := newTestRunner(crm)
	runner.Register(jobs.TaskEnrichment, func(ctx context.Context, companyID string) (any, error) {
		t.Fatal("flow must not run when the claim fails")
		return nil, nil
	})

	_, err := runner.Submit(context.Background(), jobs.TaskEnrichment, "1")
	require.Error(t, err)

	// The job was registered and marked failed, so the cooldown applies.
	_, err = store.Create(jobs.TaskEnrichment, "1")
	assert.ErrorIs(t, err, jobs.ErrCooldown)
}

func TestRunner_SubmitRejectsDuplicate(t *testing.T) {
	crm := newFakeCRM()
	crm.addCompany(&hubspot.Company{ID: "1"})
	runner, store := newTestRunner(crm)

	release := make(chan struct{})
	runner.Register(jobs.TaskEnrichment, func(ctx context.Context, companyID string) (any, error) {
		<-release
		return "done", nil
	})

	job, err := runner.Submit(context.Background(), jobs.TaskEnrichment, "1")
	require.NoError(t, err)

	_, err = runner.Submit(context.Background(), jobs.TaskEnrichment, "1")
	assert.ErrorIs(t, err, jobs.ErrDuplicate)

	// A different company is not blocked.
	crm.addCompany(&hubspot.Company{ID: "2"})
	_, err = runner.Submit(context.Background(), jobs.TaskEnrichment, "2")
	assert.NoError(t, err)

	close(release)
	require.Eventually(t, func() bool {
		got, err := store.Get(job.ID)
		return err == nil && got.Status == jobs.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunner_ResolvesCompanyFromTrigger(t *testing.T) {
	crm := newFakeCRM()
	crm.addCompany(&hubspot.Company{
		ID:         "7",
		Properties: hubspot.CompanyProperties{Name: "Hotel Sol", Agente: "datos"},
	})
	runner, _ := newTestRunner(crm)

	var ranFor string
	runner.Register(jobs.TaskEnrichment, func(ctx context.Context, companyID string) (any, error) {
		ranFor = companyID
		return "ok", nil
	})

	job, err := runner.RunSync(context.Background(), jobs.TaskEnrichment, "")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Equal(t, "7", job.CompanyID)
	assert.Equal(t, "7", ranFor)
}

func TestRunner_NoPendingCompany(t *testing.T) {
	runner, _ := newTestRunner(newFakeCRM())
	runner.Register(jobs.TaskEnrichment, func(ctx context.Context, companyID string) (any, error) {
		return nil, nil
	})

	_, err := runner.RunSync(context.Background(), jobs.TaskEnrichment, "")
	assert.ErrorIs(t, err, ErrNoCompany)
}

func TestRunner_NoCompanyTaskSkipsClaim(t *testing.T) {
	crm := newFakeCRM()
	runner, _ := newTestRunner(crm)
	runner.Register(jobs.TaskHacerTareas, func(ctx context.Context, companyID string) (any, error) {
		return "swept", nil
	})

	job, err := runner.RunSync(context.Background(), jobs.TaskHacerTareas, "")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Empty(t, crm.companyUpdates)
}
