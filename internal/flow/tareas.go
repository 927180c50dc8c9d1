package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
)

// HacerTareasFlow sweeps NOT_STARTED agent tasks and activates their
// companies by setting the agente flag, so the next agent cycle picks them
// up. Tasks due outside the company's business calendar are skipped or
// rescheduled.
type HacerTareasFlow struct {
	crm hubspot.Client
	now func() time.Time
}

// NewHacerTareasFlow wires the task-activation sweep.
func NewHacerTareasFlow(crm hubspot.Client) *HacerTareasFlow {
	return &HacerTareasFlow{crm: crm, now: time.Now}
}

// Run processes every pending agent task once.
func (f *HacerTareasFlow) Run(ctx context.Context, _ string) (any, error) {
	tasks, err := f.crm.SearchTasks(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "tareas: search tasks")
	}

	summary := &model.HacerTareasResult{}
	for _, task := range tasks {
		subject := task.Properties["hs_task_subject"]
		agenteValue := ParseTaskAgente(subject)
		if agenteValue == "" {
			continue
		}
		summary.TotalFound++

		result := f.processTask(ctx, task, subject, agenteValue)
		summary.Results = append(summary.Results, result)
		switch result.Status {
		case "activated":
			summary.Activated++
		case "rescheduled":
			summary.Rescheduled++
		case "skipped":
			summary.Skipped++
		default:
			summary.Errors++
		}
	}

	zap.L().Info("task sweep finished",
		zap.Int("total_found", summary.TotalFound),
		zap.Int("activated", summary.Activated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("rescheduled", summary.Rescheduled),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

func (f *HacerTareasFlow) processTask(ctx context.Context, task hubspot.Task, subject, agenteValue string) model.TaskResult {
	result := model.TaskResult{
		TaskID:      task.ID,
		TaskSubject: subject,
		AgenteValue: agenteValue,
	}
	logger := zap.L().With(zap.String("task_id", task.ID), zap.String("agente", agenteValue))

	companyIDs, err := f.crm.GetTaskCompanyIDs(ctx, task.ID)
	if err != nil {
		logger.Warn("could not fetch task associations", zap.Error(err))
		result.Status = "error"
		result.Message = "could not fetch task associations"
		return result
	}
	if len(companyIDs) == 0 {
		result.Status = "skipped"
		result.Message = "no associated company"
		return result
	}
	result.CompanyID = companyIDs[0]

	company, err := f.crm.GetCompany(ctx, result.CompanyID)
	if err != nil {
		logger.Warn("could not fetch company", zap.String("company_id", result.CompanyID), zap.Error(err))
		result.Status = "error"
		result.Message = "could not fetch company"
		return result
	}
	props := company.Properties

	now := f.now()
	if !IsBusinessHour(props.Country, now) {
		// The periodic sweep will come back during business hours.
		result.Status = "skipped"
		result.Message = "outside business hours"
		return result
	}
	local := now.In(CountryLocation(props.Country))
	if !IsBusinessDay(props.Country, local) {
		due := ComputeTaskDueDate(props.Country, now)
		if err := f.crm.UpdateTask(ctx, task.ID, map[string]string{"hs_timestamp": due}); err != nil {
			logger.Warn("could not reschedule task", zap.Error(err))
			result.Status = "error"
			result.Message = "could not reschedule task"
			return result
		}
		result.Status = "rescheduled"
		result.Message = "moved to " + due
		return result
	}

	if props.Agente != "" {
		result.Status = "skipped"
		result.Message = "company already has an active agent: " + props.Agente
		return result
	}

	if err := f.crm.UpdateCompany(ctx, result.CompanyID, map[string]string{"agente": agenteValue}); err != nil {
		logger.Warn("could not activate company", zap.Error(err))
		result.Status = "error"
		result.Message = "could not set agente flag"
		return result
	}
	if err := f.crm.UpdateTask(ctx, task.ID, map[string]string{"hs_task_status": "COMPLETED"}); err != nil {
		logger.Warn("could not complete task", zap.Error(err))
		result.Status = "error"
		result.Message = "company activated but task not completed"
		return result
	}

	note := buildTareasNote(props.Name, agenteValue, subject)
	if err := f.crm.CreateNote(ctx, result.CompanyID, note); err != nil {
		logger.Warn("could not create activation note", zap.Error(err))
	}

	logger.Info("company activated", zap.String("company_id", result.CompanyID))
	result.Status = "activated"
	result.Message = "agente set to " + agenteValue
	return result
}

// buildTareasNote renders the activation audit note.
func buildTareasNote(companyName, agenteValue, subject string) string {
	name := strings.TrimSpace(companyName)
	if name == "" {
		name = "Sin nombre"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Activación de Agente - %s\n\n", name)
	fmt.Fprintf(&b, "Tarea procesada: %s\n", subject)
	fmt.Fprintf(&b, "Agente asignado: %s\n", agenteValue)
	b.WriteString("La tarea fue marcada como completada.")
	return b.String()
}
