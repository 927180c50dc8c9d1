package model

// FieldChange records one CRM field written during a merge.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value"`
}

// EnrichmentResult is the success payload of an enrichment job.
type EnrichmentResult struct {
	CompanyID   string              `json:"company_id"`
	CompanyName string              `json:"company_name,omitempty"`
	Status      string              `json:"status"` // "enriched" | "no_results"
	Message     string              `json:"message,omitempty"`
	Changes     []FieldChange       `json:"changes,omitempty"`
	Outcomes    []EnrichmentOutcome `json:"outcomes,omitempty"`
	Note        string              `json:"note,omitempty"`
}

// ProspeccionResult is the success payload of a prospección call job.
type ProspeccionResult struct {
	CompanyID     string             `json:"company_id"`
	CompanyName   string             `json:"company_name,omitempty"`
	Status        string             `json:"status"` // "completed" | "no_phone" | "all_failed"
	Message       string             `json:"message,omitempty"`
	CallAttempts  []CallAttempt      `json:"call_attempts,omitempty"`
	ExtractedData *ExtractedCallData `json:"extracted_data,omitempty"`
	Transcript    string             `json:"transcript,omitempty"`
	Note          string             `json:"note,omitempty"`
}

// LeadAction records a side effect applied to an associated lead during
// lead qualification.
type LeadAction struct {
	LeadID   string `json:"lead_id"`
	LeadName string `json:"lead_name,omitempty"`
	Action   string `json:"action"` // "stage_updated" | "task_created" | "error"
	Message  string `json:"message,omitempty"`
}

// CalificarLeadResult is the success payload of a lead-qualification job.
type CalificarLeadResult struct {
	CompanyID            string       `json:"company_id"`
	CompanyName          string       `json:"company_name,omitempty"`
	Status               string       `json:"status"` // "completed" | "error"
	Message              string       `json:"message,omitempty"`
	MarketFit            string       `json:"market_fit,omitempty"`
	Rooms                string       `json:"rooms,omitempty"`
	Reasoning            string       `json:"reasoning,omitempty"`
	TipoDeEmpresa        string       `json:"tipo_de_empresa,omitempty"`
	ResumenInteracciones string       `json:"resumen_interacciones,omitempty"`
	Lifecyclestage       string       `json:"lifecyclestage,omitempty"`
	LeadActions          []LeadAction `json:"lead_actions,omitempty"`
	Note                 string       `json:"note,omitempty"`
}

// TaskResult records the outcome for one agent-prefixed CRM task.
type TaskResult struct {
	TaskID      string `json:"task_id"`
	TaskSubject string `json:"task_subject"`
	CompanyID   string `json:"company_id,omitempty"`
	AgenteValue string `json:"agente_value"`
	Status      string `json:"status"` // "activated" | "rescheduled" | "skipped" | "error"
	Message     string `json:"message,omitempty"`
}

// HacerTareasResult is the success payload of a task-activation sweep.
type HacerTareasResult struct {
	TotalFound  int          `json:"total_found"`
	Activated   int          `json:"activated"`
	Skipped     int          `json:"skipped"`
	Rescheduled int          `json:"rescheduled"`
	Errors      int          `json:"errors"`
	Results     []TaskResult `json:"results"`
}
