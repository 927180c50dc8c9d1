// Package hubspot is a minimal HubSpot CRM v3 client covering the company,
// contact, engagement, lead, task, and file operations the flows need.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/hotelbdd/agente-bdd/internal/resilience"
)

const defaultBaseURL = "https://api.hubapi.com"

// Client performs HubSpot CRM operations.
type Client interface {
	SearchCompanies(ctx context.Context, agenteValue string) ([]Company, error)
	GetCompany(ctx context.Context, companyID string) (*Company, error)
	UpdateCompany(ctx context.Context, companyID string, properties map[string]string) error
	MergeCompanies(ctx context.Context, primaryID, mergeID string) error
	CreateNote(ctx context.Context, companyID, body string) error
	CreateContact(ctx context.Context, companyID string, properties map[string]string) (string, error)
	UpdateContact(ctx context.Context, contactID string, properties map[string]string) error
	CreateTask(ctx context.Context, companyID string, properties map[string]string) error
	UpdateTask(ctx context.Context, taskID string, properties map[string]string) error
	SearchTasks(ctx context.Context) ([]Task, error)
	GetTaskCompanyIDs(ctx context.Context, taskID string) ([]string, error)
	GetAssociatedContacts(ctx context.Context, companyID string) ([]Contact, error)
	GetAssociatedLeads(ctx context.Context, companyID string) ([]Lead, error)
	GetAssociatedNotes(ctx context.Context, companyID string) ([]Engagement, error)
	GetAssociatedEmails(ctx context.Context, companyID string) ([]Engagement, error)
	GetAssociatedCalls(ctx context.Context, companyID string) ([]Engagement, error)
	GetAssociatedCommunications(ctx context.Context, companyID string) ([]Engagement, error)
	UpdateLead(ctx context.Context, leadID string, properties map[string]string) error
	CreateCall(ctx context.Context, companyID string, properties map[string]string) error
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)
}

// ConflictError is returned when an update is rejected because a unique
// property value already belongs to another record.
type ConflictError struct {
	Property string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("hubspot: unique value conflict on %q: %s", e.Property, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRequestsPerSec overrides the client-side rate limit.
func WithRequestsPerSec(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(n), n)
		}
	}
}

// WithRetryConfig overrides the retry policy for transient failures.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a HubSpot client authenticated with a private app token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(4), 4),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do sends one authenticated request and returns the raw response body.
// Responses with 429 or 5xx status are wrapped as transient so the retry
// layer takes another pass; conflict-shaped 4xx responses become a
// ConflictError.
func (c *httpClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doOnce(ctx, method, path, payload)
	})
}

func (c *httpClient) doOnce(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "hubspot: rate limit wait")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "hubspot: marshal request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: read response")
	}

	if resp.StatusCode >= 400 {
		apiErr := eris.Errorf("hubspot: %s %s returned %d: %s", method, path, resp.StatusCode, string(respBody))
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		if conflict := parseConflict(respBody); conflict != nil {
			return nil, conflict
		}
		return nil, apiErr
	}
	return respBody, nil
}

// parseConflict detects HubSpot's unique-value validation rejection.
func parseConflict(body []byte) *ConflictError {
	var apiError struct {
		Message  string `json:"message"`
		Category string `json:"category"`
		Errors   []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &apiError); err != nil {
		return nil
	}

	messages := []string{apiError.Message}
	for _, e := range apiError.Errors {
		messages = append(messages, e.Message)
	}
	for _, msg := range messages {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "unique") || strings.Contains(lower, "already has that value") {
			property := ""
			if strings.Contains(lower, "id_hotel") {
				property = "id_hotel"
			}
			return &ConflictError{Property: property, Message: msg}
		}
	}
	return nil
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit"`
	After        string        `json:"after,omitempty"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type paging struct {
	Next *struct {
		After string `json:"after"`
	} `json:"next"`
}

// SearchCompanies returns all companies whose agente flag equals agenteValue,
// following pagination. A page failure after the first page returns the
// companies collected so far.
func (c *httpClient) SearchCompanies(ctx context.Context, agenteValue string) ([]Company, error) {
	payload := searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{
			PropertyName: "agente",
			Operator:     "EQ",
			Value:        agenteValue,
		}}}},
		Properties: companyProperties,
		Limit:      100,
	}

	var companies []Company
	for {
		respBody, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/companies/search", payload)
		if err != nil {
			if len(companies) > 0 {
				return companies, nil
			}
			return nil, err
		}

		var page struct {
			Results []Company `json:"results"`
			Paging  paging    `json:"paging"`
		}
		if err := json.Unmarshal(respBody, &page); err != nil {
			return nil, eris.Wrap(err, "hubspot: unmarshal search response")
		}
		companies = append(companies, page.Results...)

		if page.Paging.Next == nil {
			return companies, nil
		}
		payload.After = page.Paging.Next.After
	}
}

// GetCompany fetches one company with the standard property set.
func (c *httpClient) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	path := fmt.Sprintf("/crm/v3/objects/companies/%s?properties=%s",
		companyID, strings.Join(companyProperties, ","))
	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var company Company
	if err := json.Unmarshal(respBody, &company); err != nil {
		return nil, eris.Wrap(err, "hubspot: unmarshal company")
	}
	return &company, nil
}

type propertiesPayload struct {
	Properties map[string]string `json:"properties"`
}

// UpdateCompany patches the given properties. A unique-value rejection is
// returned as *ConflictError for the caller to resolve.
func (c *httpClient) UpdateCompany(ctx context.Context, companyID string, properties map[string]string) error {
	_, err := c.do(ctx, http.MethodPatch, "/crm/v3/objects/companies/"+companyID,
		propertiesPayload{Properties: properties})
	return err
}

// MergeCompanies merges mergeID into primaryID.
func (c *httpClient) MergeCompanies(ctx context.Context, primaryID, mergeID string) error {
	_, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/companies/merge", map[string]string{
		"primaryObjectId": primaryID,
		"objectIdToMerge": mergeID,
	})
	return err
}

type associationPayload struct {
	To    map[string]string `json:"to"`
	Types []associationType `json:"types"`
}

type associationType struct {
	AssociationCategory string `json:"associationCategory"`
	AssociationTypeID   int    `json:"associationTypeId"`
}

func companyAssociation(companyID string, typeID int) []associationPayload {
	return []associationPayload{{
		To: map[string]string{"id": companyID},
		Types: []associationType{{
			AssociationCategory: "HUBSPOT_DEFINED",
			AssociationTypeID:   typeID,
		}},
	}}
}

// HubSpot-defined association type ids (object → company).
const (
	assocNoteToCompany    = 190
	assocContactToCompany = 280
	assocTaskToCompany    = 192
	assocCallToCompany    = 182
)

// CreateNote creates a note engagement associated with the company.
func (c *httpClient) CreateNote(ctx context.Context, companyID, body string) error {
	payload := map[string]any{
		"properties": map[string]string{
			"hs_note_body": body,
			"hs_timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		"associations": companyAssociation(companyID, assocNoteToCompany),
	}
	_, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/notes", payload)
	return err
}

// CreateContact creates a contact associated with the company and returns
// its id.
func (c *httpClient) CreateContact(ctx context.Context, companyID string, properties map[string]string) (string, error) {
	payload := map[string]any{
		"properties":   properties,
		"associations": companyAssociation(companyID, assocContactToCompany),
	}
	respBody, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts", payload)
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", eris.Wrap(err, "hubspot: unmarshal contact")
	}
	return created.ID, nil
}

// UpdateContact patches contact properties.
func (c *httpClient) UpdateContact(ctx context.Context, contactID string, properties map[string]string) error {
	_, err := c.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+contactID,
		propertiesPayload{Properties: properties})
	return err
}

// CreateTask creates a task associated with the company.
func (c *httpClient) CreateTask(ctx context.Context, companyID string, properties map[string]string) error {
	payload := map[string]any{
		"properties":   properties,
		"associations": companyAssociation(companyID, assocTaskToCompany),
	}
	_, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/tasks", payload)
	return err
}

// UpdateTask patches task properties.
func (c *httpClient) UpdateTask(ctx context.Context, taskID string, properties map[string]string) error {
	_, err := c.do(ctx, http.MethodPatch, "/crm/v3/objects/tasks/"+taskID,
		propertiesPayload{Properties: properties})
	return err
}

// SearchTasks returns all NOT_STARTED tasks with their subject and status,
// following pagination.
func (c *httpClient) SearchTasks(ctx context.Context) ([]Task, error) {
	payload := searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{
			PropertyName: "hs_task_status",
			Operator:     "EQ",
			Value:        "NOT_STARTED",
		}}}},
		Properties: []string{"hs_task_subject", "hs_task_status", "hs_timestamp"},
		Limit:      100,
	}

	var tasks []Task
	for {
		respBody, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/tasks/search", payload)
		if err != nil {
			if len(tasks) > 0 {
				return tasks, nil
			}
			return nil, err
		}

		var page struct {
			Results []Task `json:"results"`
			Paging  paging `json:"paging"`
		}
		if err := json.Unmarshal(respBody, &page); err != nil {
			return nil, eris.Wrap(err, "hubspot: unmarshal task search")
		}
		tasks = append(tasks, page.Results...)

		if page.Paging.Next == nil {
			return tasks, nil
		}
		payload.After = page.Paging.Next.After
	}
}

// GetTaskCompanyIDs returns the ids of companies associated with a task.
func (c *httpClient) GetTaskCompanyIDs(ctx context.Context, taskID string) ([]string, error) {
	respBody, err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/crm/v4/objects/tasks/%s/associations/companies", taskID), nil)
	if err != nil {
		return nil, err
	}

	var assoc struct {
		Results []struct {
			ToObjectID int64 `json:"toObjectId"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &assoc); err != nil {
		return nil, eris.Wrap(err, "hubspot: unmarshal task associations")
	}

	ids := make([]string, 0, len(assoc.Results))
	for _, r := range assoc.Results {
		ids = append(ids, fmt.Sprintf("%d", r.ToObjectID))
	}
	return ids, nil
}

// UpdateLead patches lead properties.
func (c *httpClient) UpdateLead(ctx context.Context, leadID string, properties map[string]string) error {
	_, err := c.do(ctx, http.MethodPatch, "/crm/v3/objects/leads/"+leadID,
		propertiesPayload{Properties: properties})
	return err
}

// CreateCall creates a call engagement associated with the company.
func (c *httpClient) CreateCall(ctx context.Context, companyID string, properties map[string]string) error {
	payload := map[string]any{
		"properties":   properties,
		"associations": companyAssociation(companyID, assocCallToCompany),
	}
	_, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/calls", payload)
	return err
}
