package flow

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/jobs"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
)

// agentePending marks a company as claimed by an in-flight job. The flag is
// cleared on every exit path so a crash mid-flow is the only way a company
// stays claimed.
const agentePending = "pendiente"

// ErrNoCompany is returned when a request names no company and no CRM record
// carries the task's agente trigger value.
var ErrNoCompany = eris.New("flow: no pending company for task")

// FlowFunc executes one flow for one company and returns its result payload.
type FlowFunc func(ctx context.Context, companyID string) (any, error)

// Runner ties the job registry to the flow implementations. It owns the
// job lifecycle and the company agente flag around each execution.
type Runner struct {
	store   *jobs.Store
	crm     hubspot.Client
	timeout time.Duration
	flows   map[jobs.TaskType]FlowFunc
}

// NewRunner creates a runner over the job store.
func NewRunner(store *jobs.Store, crm hubspot.Client, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Runner{
		store:   store,
		crm:     crm,
		timeout: timeout,
		flows:   map[jobs.TaskType]FlowFunc{},
	}
}

// Register binds a task type to its flow.
func (r *Runner) Register(task jobs.TaskType, fn FlowFunc) {
	r.flows[task] = fn
}

// Job returns a snapshot of the job by id.
func (r *Runner) Job(jobID string) (*jobs.Job, error) {
	return r.store.Get(jobID)
}

// Submit registers a job and runs its flow in the background. The company is
// claimed synchronously so a duplicate request arriving a moment later is
// rejected by both the registry and the CRM flag.
func (r *Runner) Submit(ctx context.Context, task jobs.TaskType, companyID string) (*jobs.Job, error) {
	job, err := r.prepare(ctx, task, companyID)
	if err != nil {
		return nil, err
	}

	go r.execute(job, task, job.CompanyID)
	return job, nil
}

// RunSync registers a job and runs its flow inline, returning the finished
// job snapshot.
func (r *Runner) RunSync(ctx context.Context, task jobs.TaskType, companyID string) (*jobs.Job, error) {
	job, err := r.prepare(ctx, task, companyID)
	if err != nil {
		return nil, err
	}

	r.execute(job, task, job.CompanyID)
	return r.store.Get(job.ID)
}

func (r *Runner) prepare(ctx context.Context, task jobs.TaskType, companyID string) (*jobs.Job, error) {
	if _, ok := r.flows[task]; !ok {
		return nil, jobs.ErrNotFound
	}

	companyID, err := r.resolveCompany(ctx, task, companyID)
	if err != nil {
		return nil, err
	}

	job, err := r.store.Create(task, companyID)
	if err != nil {
		return nil, err
	}

	if companyID != "" {
		if err := r.crm.UpdateCompany(ctx, companyID, map[string]string{"agente": agentePending}); err != nil {
			_ = r.store.MarkFailed(job.ID, "could not claim company: "+err.Error())
			return nil, err
		}
	}
	return job, nil
}

// resolveCompany falls back to the CRM trigger search when the request names
// no company: the flow runs against the first record whose agente flag holds
// the task value. The sweep task never targets a single company.
func (r *Runner) resolveCompany(ctx context.Context, task jobs.TaskType, companyID string) (string, error) {
	if companyID != "" || task == jobs.TaskHacerTareas {
		return companyID, nil
	}

	companies, err := r.crm.SearchCompanies(ctx, string(task))
	if err != nil {
		return "", eris.Wrapf(err, "search companies with agente %q", string(task))
	}
	if len(companies) == 0 {
		return "", ErrNoCompany
	}
	zap.L().Info("resolved company from agente trigger",
		zap.String("task_type", string(task)),
		zap.String("company_id", companies[0].ID),
	)
	return companies[0].ID, nil
}

// execute runs the flow detached from the request context, bounded by the
// configured job timeout.
func (r *Runner) execute(job *jobs.Job, task jobs.TaskType, companyID string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	logger := zap.L().With(
		zap.String("job_id", job.ID),
		zap.String("task_type", string(task)),
		zap.String("company_id", companyID),
	)

	if err := r.store.MarkRunning(job.ID); err != nil {
		logger.Error("could not mark job running", zap.Error(err))
		return
	}
	logger.Info("job started")

	defer r.releaseCompany(companyID, logger)

	result, err := r.flows[task](ctx, companyID)
	if err != nil {
		logger.Error("job failed", zap.Error(err))
		_ = r.store.MarkFailed(job.ID, err.Error())
		return
	}

	logger.Info("job completed")
	_ = r.store.MarkCompleted(job.ID, result)
}

// releaseCompany clears the agente flag. Best-effort: a failure here leaves
// the company claimed until someone clears it by hand, so it is logged loud.
func (r *Runner) releaseCompany(companyID string, logger *zap.Logger) {
	if companyID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.crm.UpdateCompany(ctx, companyID, map[string]string{"agente": ""}); err != nil {
		logger.Error("could not release company agente flag", zap.Error(err))
	}
}
