package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
)

type fakeAnalyzer struct {
	analysis   map[string]any
	lastSystem string
	lastUser   string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	return f.analysis, nil
}

func hotelSol(bookingURL string) *hubspot.Company {
	return &hubspot.Company{
		ID: "100",
		Properties: hubspot.CompanyProperties{
			Name:       "Hotel Sol",
			City:       "Cancún",
			Country:    "Mexico",
			BookingURL: bookingURL,
		},
	}
}

func TestCalificarLead_QualifiesAsLead(t *testing.T) {
	crm := newFakeCRM()
	crm.addCompany(hotelSol("https://www.booking.com/hotel/mx/sol.html"))
	crm.notes["100"] = []hubspot.Engagement{
		{ID: "n1", Properties: map[string]string{"hs_timestamp": "2026-08-01", "hs_note_body": "<p>Tiene 15 habitaciones</p>"}},
	}
	crm.communications["100"] = []hubspot.Engagement{
		{ID: "w1", Properties: map[string]string{"hs_communication_channel_type": "WHATS_APP", "hs_communication_body": "Hola, me interesa"}},
		{ID: "s1", Properties: map[string]string{"hs_communication_channel_type": "SMS", "hs_communication_body": "ignorado"}},
	}

	claude := &fakeAnalyzer{analysis: map[string]any{
		"cantidad_de_habitaciones": "15",
		"market_fit":               "Conejo",
		"razonamiento":             "La nota indica 15 habitaciones.",
		"tipo_de_empresa":          "Hotel",
		"resumen_interacciones":    "- Mensaje de WhatsApp interesado",
	}}

	flow := NewCalificarLeadFlow(crm, claude, nil)
	result, err := flow.Run(context.Background(), "100")
	require.NoError(t, err)

	qualified := result.(*model.CalificarLeadResult)
	assert.Equal(t, "completed", qualified.Status)
	assert.Equal(t, "Conejo", qualified.MarketFit)
	assert.Equal(t, "lead", qualified.Lifecyclestage)

	updates := crm.updatesFor("100")
	assert.Equal(t, "15", updates["cantidad_de_habitaciones"])
	assert.Equal(t, "15", updates["habitaciones"])
	assert.Equal(t, "Conejo", updates["market_fit"])
	assert.Equal(t, "Hotel", updates["tipo_de_empresa"])
	assert.Equal(t, "lead", updates["lifecyclestage"])

	assert.Contains(t, claude.lastUser, "## Datos del Hotel")
	assert.Contains(t, claude.lastUser, "- Nombre: Hotel Sol")
	assert.Contains(t, claude.lastUser, "Tiene 15 habitaciones")
	assert.Contains(t, claude.lastUser, "## WhatsApp")
	assert.Contains(t, claude.lastUser, "Hola, me interesa")
	assert.NotContains(t, claude.lastUser, "ignorado", "non-WhatsApp communications are excluded")

	require.Len(t, crm.createdNotes["100"], 1)
	assert.Contains(t, crm.createdNotes["100"][0], "Calificación de Lead - Hotel Sol")
	assert.Empty(t, crm.leadUpdates, "qualified companies leave leads alone")
}

func TestCalificarLead_NoFitMovesLeadsAndCreatesTask(t *testing.T) {
	crm := newFakeCRM()
	crm.addCompany(hotelSol("https://www.booking.com/hotel/mx/sol.html"))
	crm.leads["100"] = []hubspot.Lead{
		{ID: "l1", Properties: hubspot.LeadProperties{LeadName: "Hotel Sol Lead", HubspotOwnerID: "owner-9"}},
		{ID: "l2", Properties: hubspot.LeadProperties{LeadName: "Sin dueño"}},
	}

	claude := &fakeAnalyzer{analysis: map[string]any{
		"cantidad_de_habitaciones": "3",
		"market_fit":               "No es FIT",
		"razonamiento":             "Solo 3 habitaciones.",
		"tipo_de_empresa":          "Hotel",
	}}

	flow := NewCalificarLeadFlow(crm, claude, nil)
	result, err := flow.Run(context.Background(), "100")
	require.NoError(t, err)

	qualified := result.(*model.CalificarLeadResult)
	assert.Equal(t, "No es FIT", qualified.MarketFit)
	assert.Equal(t, "subscriber", qualified.Lifecyclestage)
	assert.Equal(t, "subscriber", crm.updatesFor("100")["lifecyclestage"])

	require.Len(t, crm.leadUpdates["l1"], 1)
	assert.Equal(t, map[string]string{"hs_pipeline_stage": "1178022266"}, crm.leadUpdates["l1"][0])
	require.Len(t, crm.leadUpdates["l2"], 1)

	// Only the owned lead produces a verification task.
	require.Len(t, crm.createdTasks, 1)
	task := crm.createdTasks[0]
	assert.Equal(t, "🔎 Verificar Hotel Sol", task["hs_task_subject"])
	assert.Equal(t, "owner-9", task["hubspot_owner_id"])
	assert.Equal(t, "NOT_STARTED", task["hs_task_status"])
	assert.Equal(t, "MEDIUM", task["hs_task_priority"])
	assert.Equal(t, "TODO", task["hs_task_type"])

	actions := qualified.LeadActions
	require.Len(t, actions, 3)
	assert.Equal(t, "stage_updated", actions[0].Action)
	assert.Equal(t, "task_created", actions[1].Action)
	assert.Equal(t, "stage_updated", actions[2].Action)
}

func TestCalificarLead_NoBookingMeansNoFit(t *testing.T) {
	crm := newFakeCRM()
	crm.addCompany(hotelSol(""))

	claude := &fakeAnalyzer{analysis: map[string]any{
		"cantidad_de_habitaciones": "40",
		"market_fit":               "Elefante",
		"tipo_de_empresa":          "Hotel",
	}}

	flow := NewCalificarLeadFlow(crm, claude, nil)
	result, err := flow.Run(context.Background(), "100")
	require.NoError(t, err)

	qualified := result.(*model.CalificarLeadResult)
	assert.Equal(t, "No es FIT", qualified.MarketFit, "no Booking listing overrides the room count")
}

func TestCalificarLead_InvalidTipoDropped(t *testing.T) {
	crm := newFakeCRM()
	crm.addCompany(hotelSol("https://www.booking.com/hotel/mx/sol.html"))

	claude := &fakeAnalyzer{analysis: map[string]any{
		"cantidad_de_habitaciones": "20",
		"tipo_de_empresa":          "Hospedaje genérico",
	}}

	flow := NewCalificarLeadFlow(crm, claude, nil)
	_, err := flow.Run(context.Background(), "100")
	require.NoError(t, err)

	updates := crm.updatesFor("100")
	_, ok := updates["tipo_de_empresa"]
	assert.False(t, ok)
	assert.Equal(t, "Conejo", updates["market_fit"])
}

func TestCalificarLead_NonNumericRoomsStillUpdates(t *testing.T) {
	crm := newFakeCRM()
	crm.addCompany(hotelSol("https://www.booking.com/hotel/mx/sol.html"))

	claude := &fakeAnalyzer{analysis: map[string]any{
		"cantidad_de_habitaciones": "desconocido",
		"tipo_de_empresa":          "Hotel",
	}}

	flow := NewCalificarLeadFlow(crm, claude, nil)
	result, err := flow.Run(context.Background(), "100")
	require.NoError(t, err)

	qualified := result.(*model.CalificarLeadResult)
	assert.Equal(t, "No es FIT", qualified.MarketFit, "unparseable room count cannot qualify")
	assert.Equal(t, "desconocido", crm.updatesFor("100")["cantidad_de_habitaciones"])
}
