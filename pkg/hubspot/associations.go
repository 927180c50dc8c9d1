package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"
)

// associatedIDs lists the ids of objects of objectType associated with a
// company.
func (c *httpClient) associatedIDs(ctx context.Context, companyID, objectType string) ([]string, error) {
	respBody, err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/crm/v4/objects/companies/%s/associations/%s", companyID, objectType), nil)
	if err != nil {
		return nil, err
	}

	var assoc struct {
		Results []struct {
			ToObjectID int64 `json:"toObjectId"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &assoc); err != nil {
		return nil, eris.Wrapf(err, "hubspot: unmarshal %s associations", objectType)
	}

	ids := make([]string, 0, len(assoc.Results))
	for _, r := range assoc.Results {
		ids = append(ids, fmt.Sprintf("%d", r.ToObjectID))
	}
	return ids, nil
}

type batchReadRequest struct {
	Inputs     []batchInput `json:"inputs"`
	Properties []string     `json:"properties,omitempty"`
}

type batchInput struct {
	ID string `json:"id"`
}

// batchRead fetches objects of objectType by id with the given properties,
// decoding into out (a pointer to a slice).
func (c *httpClient) batchRead(ctx context.Context, objectType string, ids, properties []string, out any) error {
	if len(ids) == 0 {
		return nil
	}

	inputs := make([]batchInput, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, batchInput{ID: id})
	}

	respBody, err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/crm/v3/objects/%s/batch/read", objectType),
		batchReadRequest{Inputs: inputs, Properties: properties})
	if err != nil {
		return err
	}

	var page struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(respBody, &page); err != nil {
		return eris.Wrapf(err, "hubspot: unmarshal %s batch read", objectType)
	}
	if err := json.Unmarshal(page.Results, out); err != nil {
		return eris.Wrapf(err, "hubspot: unmarshal %s results", objectType)
	}
	return nil
}

// getEngagements resolves company associations of objectType and reads the
// requested properties.
func (c *httpClient) getEngagements(ctx context.Context, companyID, objectType string, properties []string) ([]Engagement, error) {
	ids, err := c.associatedIDs(ctx, companyID, objectType)
	if err != nil {
		return nil, err
	}

	var engagements []Engagement
	if err := c.batchRead(ctx, objectType, ids, properties, &engagements); err != nil {
		return nil, err
	}
	return engagements, nil
}

// GetAssociatedContacts returns the contacts linked to the company.
func (c *httpClient) GetAssociatedContacts(ctx context.Context, companyID string) ([]Contact, error) {
	ids, err := c.associatedIDs(ctx, companyID, "contacts")
	if err != nil {
		return nil, err
	}

	var contacts []Contact
	if err := c.batchRead(ctx, "contacts", ids,
		[]string{"firstname", "lastname", "email", "phone", "mobilephone", "jobtitle"},
		&contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// GetAssociatedLeads returns the leads linked to the company.
func (c *httpClient) GetAssociatedLeads(ctx context.Context, companyID string) ([]Lead, error) {
	ids, err := c.associatedIDs(ctx, companyID, "leads")
	if err != nil {
		return nil, err
	}

	var leads []Lead
	if err := c.batchRead(ctx, "leads", ids,
		[]string{"hs_lead_name", "hs_pipeline_stage", "hubspot_owner_id"},
		&leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// GetAssociatedNotes returns the notes linked to the company.
func (c *httpClient) GetAssociatedNotes(ctx context.Context, companyID string) ([]Engagement, error) {
	return c.getEngagements(ctx, companyID, "notes",
		[]string{"hs_note_body", "hs_timestamp"})
}

// GetAssociatedEmails returns the email engagements linked to the company.
func (c *httpClient) GetAssociatedEmails(ctx context.Context, companyID string) ([]Engagement, error) {
	return c.getEngagements(ctx, companyID, "emails",
		[]string{"hs_email_subject", "hs_email_direction", "hs_timestamp"})
}

// GetAssociatedCalls returns the call engagements linked to the company.
func (c *httpClient) GetAssociatedCalls(ctx context.Context, companyID string) ([]Engagement, error) {
	return c.getEngagements(ctx, companyID, "calls",
		[]string{"hs_call_body", "hs_call_direction", "hs_call_status", "hs_timestamp"})
}

// GetAssociatedCommunications returns WhatsApp/SMS-style communications
// linked to the company.
func (c *httpClient) GetAssociatedCommunications(ctx context.Context, companyID string) ([]Engagement, error) {
	return c.getEngagements(ctx, companyID, "communications",
		[]string{"hs_communication_channel_type", "hs_communication_body", "hs_body_preview", "hs_timestamp"})
}
