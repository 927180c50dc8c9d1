package flow

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
)

// fakeCRM is an in-memory hubspot.Client recording every write.
type fakeCRM struct {
	mu sync.Mutex

	companies      map[string]*hubspot.Company
	tasks          []hubspot.Task
	taskCompanyIDs map[string][]string
	contacts       map[string][]hubspot.Contact
	leads          map[string][]hubspot.Lead
	notes          map[string][]hubspot.Engagement
	emails         map[string][]hubspot.Engagement
	calls          map[string][]hubspot.Engagement
	communications map[string][]hubspot.Engagement

	companyUpdates  map[string][]map[string]string
	taskUpdates     map[string][]map[string]string
	leadUpdates     map[string][]map[string]string
	contactUpdates  map[string][]map[string]string
	createdNotes    map[string][]string
	createdTasks    []map[string]string
	createdContacts []map[string]string
	createdCalls    []map[string]string
	uploadedFiles   []string

	updateCompanyErr error
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		companies:      map[string]*hubspot.Company{},
		taskCompanyIDs: map[string][]string{},
		contacts:       map[string][]hubspot.Contact{},
		leads:          map[string][]hubspot.Lead{},
		notes:          map[string][]hubspot.Engagement{},
		emails:         map[string][]hubspot.Engagement{},
		calls:          map[string][]hubspot.Engagement{},
		communications: map[string][]hubspot.Engagement{},
		companyUpdates: map[string][]map[string]string{},
		taskUpdates:    map[string][]map[string]string{},
		leadUpdates:    map[string][]map[string]string{},
		contactUpdates: map[string][]map[string]string{},
		createdNotes:   map[string][]string{},
	}
}

func (f *fakeCRM) addCompany(company *hubspot.Company) {
	f.companies[company.ID] = company
}

func (f *fakeCRM) SearchCompanies(_ context.Context, agenteValue string) ([]hubspot.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []hubspot.Company
	for _, c := range f.companies {
		if c.Properties.Agente == agenteValue {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCRM) GetCompany(_ context.Context, companyID string) (*hubspot.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	company, ok := f.companies[companyID]
	if !ok {
		return nil, eris.Errorf("company %s not found", companyID)
	}
	cp := *company
	return &cp, nil
}

func (f *fakeCRM) UpdateCompany(_ context.Context, companyID string, properties map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateCompanyErr != nil {
		return f.updateCompanyErr
	}
	f.companyUpdates[companyID] = append(f.companyUpdates[companyID], properties)
	if company, ok := f.companies[companyID]; ok {
		if agente, ok := properties["agente"]; ok {
			company.Properties.Agente = agente
		}
	}
	return nil
}

func (f *fakeCRM) MergeCompanies(_ context.Context, _, _ string) error { return nil }

func (f *fakeCRM) CreateNote(_ context.Context, companyID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdNotes[companyID] = append(f.createdNotes[companyID], body)
	return nil
}

func (f *fakeCRM) CreateContact(_ context.Context, _ string, properties map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdContacts = append(f.createdContacts, properties)
	return "contact-new", nil
}

func (f *fakeCRM) UpdateContact(_ context.Context, contactID string, properties map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contactUpdates[contactID] = append(f.contactUpdates[contactID], properties)
	return nil
}

func (f *fakeCRM) CreateTask(_ context.Context, _ string, properties map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdTasks = append(f.createdTasks, properties)
	return nil
}

func (f *fakeCRM) UpdateTask(_ context.Context, taskID string, properties map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskUpdates[taskID] = append(f.taskUpdates[taskID], properties)
	return nil
}

func (f *fakeCRM) SearchTasks(_ context.Context) ([]hubspot.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks, nil
}

func (f *fakeCRM) GetTaskCompanyIDs(_ context.Context, taskID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taskCompanyIDs[taskID], nil
}

func (f *fakeCRM) GetAssociatedContacts(_ context.Context, companyID string) ([]hubspot.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contacts[companyID], nil
}

func (f *fakeCRM) GetAssociatedLeads(_ context.Context, companyID string) ([]hubspot.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leads[companyID], nil
}

func (f *fakeCRM) GetAssociatedNotes(_ context.Context, companyID string) ([]hubspot.Engagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes[companyID], nil
}

func (f *fakeCRM) GetAssociatedEmails(_ context.Context, companyID string) ([]hubspot.Engagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emails[companyID], nil
}

func (f *fakeCRM) GetAssociatedCalls(_ context.Context, companyID string) ([]hubspot.Engagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[companyID], nil
}

func (f *fakeCRM) GetAssociatedCommunications(_ context.Context, companyID string) ([]hubspot.Engagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.communications[companyID], nil
}

func (f *fakeCRM) UpdateLead(_ context.Context, leadID string, properties map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leadUpdates[leadID] = append(f.leadUpdates[leadID], properties)
	return nil
}

func (f *fakeCRM) CreateCall(_ context.Context, _ string, properties map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdCalls = append(f.createdCalls, properties)
	return nil
}

func (f *fakeCRM) UploadFile(_ context.Context, filename string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadedFiles = append(f.uploadedFiles, filename)
	return "https://files.example/" + filename, nil
}

// updatesFor returns the flattened property writes applied to a company.
func (f *fakeCRM) updatesFor(companyID string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	merged := map[string]string{}
	for _, batch := range f.companyUpdates[companyID] {
		for k, v := range batch {
			merged[k] = v
		}
	}
	return merged
}
