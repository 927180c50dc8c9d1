package enrich

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
)

func TestExtractConflictID(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{`Property "id_hotel" has a unique value conflict with object 1234567890`, "1234567890"},
		{`another record 98765432 already has that value`, "98765432"},
		{`ya existe una empresa con ese valor: 55512345`, "55512345"},
		{"no id here", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractConflictID(tc.message), tc.message)
	}
}

func TestSameEntity(t *testing.T) {
	base := hubspot.CompanyProperties{Name: "Hotel Sol y Mar", City: "Cancún", Country: "México"}

	assert.True(t, SameEntity(base, hubspot.CompanyProperties{
		Name: "hotel sol y mar cancún", City: "cancún", Country: "méxico",
	}), "substring name with matching location")

	assert.False(t, SameEntity(base, hubspot.CompanyProperties{
		Name: "Hotel Sol y Mar", City: "Tulum", Country: "México",
	}), "different city is a different entity")

	assert.False(t, SameEntity(base, hubspot.CompanyProperties{
		Name: "Hotel Luna", City: "Cancún", Country: "México",
	}), "unrelated name")

	assert.False(t, SameEntity(base, hubspot.CompanyProperties{
		City: "Cancún", Country: "México",
	}), "empty name never matches")
}

// conflictCRM simulates a CRM where the first update hits a unique-value
// conflict pointing at another record.
type conflictCRM struct {
	hubspot.Client

	other       hubspot.Company
	updateCalls []map[string]string
	notes       []string
	failFirst   bool
	conflict    *hubspot.ConflictError // overrides the default first-call error
	merged      bool
}

func (c *conflictCRM) CreateNote(_ context.Context, _ string, body string) error {
	c.notes = append(c.notes, body)
	return nil
}

func (c *conflictCRM) UpdateCompany(_ context.Context, _ string, updates map[string]string) error {
	copied := map[string]string{}
	for k, v := range updates {
		copied[k] = v
	}
	c.updateCalls = append(c.updateCalls, copied)

	if c.failFirst && len(c.updateCalls) == 1 {
		if c.conflict != nil {
			return c.conflict
		}
		return &hubspot.ConflictError{
			Property: "id_hotel",
			Message:  "id_hotel conflict with object " + c.other.ID,
		}
	}
	return nil
}

func (c *conflictCRM) GetCompany(_ context.Context, id string) (*hubspot.Company, error) {
	if id == c.other.ID {
		return &c.other, nil
	}
	return nil, eris.Errorf("company %s not found", id)
}

func (c *conflictCRM) MergeCompanies(_ context.Context, _, _ string) error {
	c.merged = true
	return nil
}

func TestResolver_MergesDuplicateAndRetries(t *testing.T) {
	crm := &conflictCRM{
		failFirst: true,
		other: hubspot.Company{
			ID:         "2002002000",
			Properties: hubspot.CompanyProperties{Name: "Hotel Sol y Mar Cancún", City: "Cancún", Country: "México"},
		},
	}
	resolver := NewResolver(crm)

	company := hubspot.Company{
		ID:         "1001001000",
		Properties: hubspot.CompanyProperties{Name: "Hotel Sol y Mar", City: "Cancún", Country: "México"},
	}
	updates := map[string]string{"id_hotel": "ChIJabc123", "city": "Cancún"}

	merged, err := resolver.UpdateCompany(context.Background(), company, updates)
	require.NoError(t, err)
	assert.True(t, merged)
	assert.True(t, crm.merged)
	require.Len(t, crm.updateCalls, 2)
	assert.Equal(t, "ChIJabc123", crm.updateCalls[1]["id_hotel"], "retry keeps the conflicting field")
	require.Len(t, crm.notes, 1)
	assert.Contains(t, crm.notes[0], "se fusionó")
}

func TestResolver_DifferentEntityDropsField(t *testing.T) {
	crm := &conflictCRM{
		failFirst: true,
		other: hubspot.Company{
			ID:         "2002002000",
			Properties: hubspot.CompanyProperties{Name: "Hostal Luna", City: "Tulum", Country: "México"},
		},
	}
	resolver := NewResolver(crm)

	company := hubspot.Company{
		ID:         "1001001000",
		Properties: hubspot.CompanyProperties{Name: "Hotel Sol y Mar", City: "Cancún", Country: "México"},
	}
	updates := map[string]string{"id_hotel": "ChIJabc123", "city": "Cancún"}

	merged, err := resolver.UpdateCompany(context.Background(), company, updates)
	require.NoError(t, err)
	assert.False(t, merged)
	assert.False(t, crm.merged)

	last := crm.updateCalls[len(crm.updateCalls)-1]
	_, hasID := last["id_hotel"]
	assert.False(t, hasID, "conflicting field must be dropped")
	assert.Equal(t, "Cancún", last["city"])
	require.Len(t, crm.notes, 1)
	assert.Contains(t, crm.notes[0], "id_hotel")
}

func TestResolver_UnidentifiedConflictDropsPlaceID(t *testing.T) {
	crm := &conflictCRM{
		failFirst: true,
		conflict: &hubspot.ConflictError{
			Message: "Propiedad con valor único ya existe en otra empresa",
		},
	}
	resolver := NewResolver(crm)

	company := hubspot.Company{
		ID:         "1001001000",
		Properties: hubspot.CompanyProperties{Name: "Hotel Sol y Mar", City: "Cancún", Country: "México"},
	}
	updates := map[string]string{"id_hotel": "ChIJabc123", "city": "Cancún"}

	merged, err := resolver.UpdateCompany(context.Background(), company, updates)
	require.NoError(t, err)
	assert.False(t, merged)

	require.Len(t, crm.updateCalls, 2)
	_, hasID := crm.updateCalls[1]["id_hotel"]
	assert.False(t, hasID, "place id is dropped when the message names no field")
	assert.Equal(t, "Cancún", crm.updateCalls[1]["city"])
	require.Len(t, crm.notes, 1)
	assert.Contains(t, crm.notes[0], "id_hotel")
}

func TestResolver_NoUpdatesIsNoop(t *testing.T) {
	crm := &conflictCRM{}
	merged, err := NewResolver(crm).UpdateCompany(context.Background(), hubspot.Company{ID: "1"}, nil)
	require.NoError(t, err)
	assert.False(t, merged)
	assert.Empty(t, crm.updateCalls)
}
