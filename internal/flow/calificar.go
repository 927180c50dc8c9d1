package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/call"
	"github.com/hotelbdd/agente-bdd/internal/enrich"
	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/pkg/anthropic"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
	"github.com/hotelbdd/agente-bdd/pkg/tavily"
	"github.com/hotelbdd/agente-bdd/pkg/webscrape"
)

// noFitStageID is the lead pipeline stage for disqualified hotels.
const noFitStageID = "1178022266"

const calificarSystemPrompt = "Eres un asistente de calificación de leads hoteleros. " +
	"Analiza toda la información disponible del hotel y determina:\n" +
	"1. cantidad_de_habitaciones: número estimado de habitaciones (string numérico o null si no se puede determinar)\n" +
	"2. market_fit: una de estas categorías exactas: " +
	`"No es FIT" (menos de 5 habitaciones o no es hotel), ` +
	`"Hormiga" (5-13 habitaciones), ` +
	`"Conejo" (14-27 habitaciones), ` +
	`"Elefante" (28+ habitaciones)` + "\n" +
	"3. razonamiento: breve explicación en español de por qué llegaste a esa conclusión\n" +
	"4. tipo_de_empresa: una de estas opciones exactas: " +
	`"Hotel", "Apart hotel", "Hostel", "Resort", "Boutique hotel", ` +
	`"Motel", "Bed and breakfasts", "Campamento / Glamping", ` +
	`"Cadena hotelera", "Agencia de viaje", "Otro"` + "\n" +
	"5. resumen_interacciones: resumen en bullets (uno por línea con guión) " +
	"del historial de interacciones con el hotel (llamadas, emails, WhatsApp, notas relevantes). " +
	"Si no hay interacciones significativas, devuelve null.\n\n" +
	"Responde SOLO con JSON válido, sin markdown ni explicación adicional. " +
	"Ejemplo: " +
	`{"cantidad_de_habitaciones": "15", "market_fit": "Conejo", ` +
	`"razonamiento": "Según la nota de enriquecimiento, el hotel tiene 15 habitaciones.", ` +
	`"tipo_de_empresa": "Hotel", ` +
	`"resumen_interacciones": "- Se realizó llamada el 2024-01-15, contactaron al director\n` +
	`- Email de seguimiento enviado el 2024-01-20"}`

// CalificarLeadFlow classifies a company from its full CRM history plus
// web context, writes the classification back, and routes disqualified
// leads.
type CalificarLeadFlow struct {
	crm    hubspot.Client
	claude anthropic.Client
	tavily tavily.Client // nil disables the hoteles.com context
}

// NewCalificarLeadFlow wires the lead-qualification flow.
func NewCalificarLeadFlow(crm hubspot.Client, claude anthropic.Client, tavilyClient tavily.Client) *CalificarLeadFlow {
	return &CalificarLeadFlow{crm: crm, claude: claude, tavily: tavilyClient}
}

// Run qualifies one company.
func (f *CalificarLeadFlow) Run(ctx context.Context, companyID string) (any, error) {
	company, err := f.crm.GetCompany(ctx, companyID)
	if err != nil {
		return nil, eris.Wrapf(err, "calificar: get company %s", companyID)
	}
	props := company.Properties
	logger := zap.L().With(zap.String("company_id", companyID), zap.String("company", props.Name))

	history := f.fetchHistory(ctx, companyID, logger)

	hotelesData := ""
	if f.tavily != nil && props.Name != "" {
		hotelesData, err = f.tavily.SearchHotelesData(ctx, props.Name, props.City, props.Country)
		if err != nil {
			logger.Warn("hoteles.com lookup failed", zap.Error(err))
			hotelesData = ""
		}
	}

	userPrompt := buildCalificarPrompt(props, history, hotelesData)
	analysis, err := f.claude.Analyze(ctx, calificarSystemPrompt, userPrompt)
	if err != nil {
		return nil, eris.Wrap(err, "calificar: analyze")
	}
	if analysis == nil {
		return nil, eris.New("calificar: analysis returned no parseable result")
	}

	roomsStr, _ := analysis["cantidad_de_habitaciones"].(string)
	reasoning := call.FixDoubleEncoding(stringField(analysis, "razonamiento"))
	resumen := call.FixDoubleEncoding(stringField(analysis, "resumen_interacciones"))

	tipoDeEmpresa := stringField(analysis, "tipo_de_empresa")
	if tipoDeEmpresa != "" && !enrich.ValidTipoEmpresa[tipoDeEmpresa] {
		logger.Warn("invalid tipo_de_empresa from analysis", zap.String("value", tipoDeEmpresa))
		tipoDeEmpresa = ""
	}

	var rooms *int
	if n, err := strconv.Atoi(strings.TrimSpace(roomsStr)); err == nil {
		rooms = &n
	}
	marketFit := enrich.ClassifyWithType(rooms, tipoDeEmpresa, props.BookingURL != "")
	if !enrich.ValidMarketFits[marketFit] {
		marketFit = ""
	}

	lifecyclestage := "lead"
	if marketFit == enrich.FitNone {
		lifecyclestage = "subscriber"
	}

	updates := map[string]string{"lifecyclestage": lifecyclestage}
	if roomsStr != "" {
		updates["cantidad_de_habitaciones"] = roomsStr
		updates["habitaciones"] = roomsStr
	}
	if marketFit != "" {
		updates["market_fit"] = marketFit
	}
	if tipoDeEmpresa != "" {
		updates["tipo_de_empresa"] = tipoDeEmpresa
	}
	if err := f.crm.UpdateCompany(ctx, companyID, updates); err != nil {
		return nil, eris.Wrapf(err, "calificar: update company %s", companyID)
	}

	var leadActions []model.LeadAction
	if marketFit == enrich.FitNone {
		leadActions = f.handleNoFitLeads(ctx, company, logger)
	}

	note := buildCalificarNote(props.Name, marketFit, roomsStr, reasoning, tipoDeEmpresa, resumen, lifecyclestage, leadActions)
	if err := f.crm.CreateNote(ctx, companyID, note); err != nil {
		logger.Warn("could not create qualification note", zap.Error(err))
	}

	return &model.CalificarLeadResult{
		CompanyID:            companyID,
		CompanyName:          props.Name,
		Status:               "completed",
		MarketFit:            marketFit,
		Rooms:                roomsStr,
		Reasoning:            reasoning,
		TipoDeEmpresa:        tipoDeEmpresa,
		ResumenInteracciones: resumen,
		Lifecyclestage:       lifecyclestage,
		LeadActions:          leadActions,
		Note:                 note,
	}, nil
}

func stringField(analysis map[string]any, key string) string {
	s, _ := analysis[key].(string)
	return strings.TrimSpace(s)
}

// companyHistory is everything the prompt builder needs from the CRM.
type companyHistory struct {
	notes    []hubspot.Engagement
	calls    []hubspot.Engagement
	emails   []hubspot.Engagement
	whatsapp []hubspot.Engagement
	contacts []hubspot.Contact
}

// fetchHistory pulls the company's engagement history. Each fetch is
// best-effort.
func (f *CalificarLeadFlow) fetchHistory(ctx context.Context, companyID string, logger *zap.Logger) companyHistory {
	var history companyHistory
	var err error

	if history.notes, err = f.crm.GetAssociatedNotes(ctx, companyID); err != nil {
		logger.Warn("could not fetch notes", zap.Error(err))
	}
	if history.calls, err = f.crm.GetAssociatedCalls(ctx, companyID); err != nil {
		logger.Warn("could not fetch calls", zap.Error(err))
	}
	if history.emails, err = f.crm.GetAssociatedEmails(ctx, companyID); err != nil {
		logger.Warn("could not fetch emails", zap.Error(err))
	}
	if history.contacts, err = f.crm.GetAssociatedContacts(ctx, companyID); err != nil {
		logger.Warn("could not fetch contacts", zap.Error(err))
	}

	communications, err := f.crm.GetAssociatedCommunications(ctx, companyID)
	if err != nil {
		logger.Warn("could not fetch communications", zap.Error(err))
	}
	for _, c := range communications {
		if strings.EqualFold(c.Properties["hs_communication_channel_type"], "WHATS_APP") {
			history.whatsapp = append(history.whatsapp, c)
		}
	}
	return history
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func cleanBody(body string, max int) string {
	return call.FixDoubleEncoding(truncate(webscrape.StripHTML(body), max))
}

// buildCalificarPrompt renders the company record and its interaction
// history as the analysis user prompt.
func buildCalificarPrompt(props hubspot.CompanyProperties, history companyHistory, hotelesData string) string {
	var parts []string

	parts = append(parts,
		"## Datos del Hotel",
		"- Nombre: "+orNA(props.Name),
		"- Ciudad: "+orNA(props.City),
		"- País: "+orNA(props.Country),
		"- Estado/Provincia: "+orNA(props.State),
		"- Website: "+orNA(props.Website),
		"- Teléfono: "+orNA(props.Phone),
		"- Booking URL: "+orNA(props.BookingURL),
	)
	if props.TipoDeEmpresa != "" {
		parts = append(parts, "- Tipo de Empresa (dato existente): "+props.TipoDeEmpresa)
	}
	if props.CantidadDeHabitaciones != "" {
		parts = append(parts, "- Habitaciones (dato existente): "+props.CantidadDeHabitaciones)
	}
	if props.MarketFit != "" {
		parts = append(parts, "- Market Fit (dato existente): "+props.MarketFit)
	}

	if len(history.notes) > 0 {
		parts = append(parts, "\n## Notas")
		for i, n := range history.notes {
			if i == 10 {
				break
			}
			if body := n.Properties["hs_note_body"]; body != "" {
				parts = append(parts, fmt.Sprintf("- [%s] %s", n.Properties["hs_timestamp"], cleanBody(body, 500)))
			}
		}
	}

	if len(history.calls) > 0 {
		parts = append(parts, "\n## Llamadas")
		for i, c := range history.calls {
			if i == 10 {
				break
			}
			line := fmt.Sprintf("- [%s] %s (%s)",
				c.Properties["hs_timestamp"], c.Properties["hs_call_direction"], c.Properties["hs_call_status"])
			if body := c.Properties["hs_call_body"]; body != "" {
				line += ": " + cleanBody(body, 300)
			}
			parts = append(parts, line)
		}
	}

	if len(history.emails) > 0 {
		parts = append(parts, "\n## Emails")
		for i, e := range history.emails {
			if i == 10 {
				break
			}
			parts = append(parts, fmt.Sprintf("- [%s] %s: %s",
				e.Properties["hs_timestamp"], e.Properties["hs_email_direction"], e.Properties["hs_email_subject"]))
		}
	}

	if len(history.whatsapp) > 0 {
		parts = append(parts, "\n## WhatsApp")
		for i, m := range history.whatsapp {
			if i == 15 {
				break
			}
			body := m.Properties["hs_communication_body"]
			if body == "" {
				body = m.Properties["hs_body_preview"]
			}
			if body != "" {
				parts = append(parts, fmt.Sprintf("- [%s] %s", m.Properties["hs_timestamp"], cleanBody(body, 300)))
			} else {
				parts = append(parts, fmt.Sprintf("- [%s] (sin contenido)", m.Properties["hs_timestamp"]))
			}
		}
	}

	if len(history.contacts) > 0 {
		parts = append(parts, "\n## Contactos")
		for i, c := range history.contacts {
			if i == 10 {
				break
			}
			cp := c.Properties
			name := strings.TrimSpace(strings.TrimSpace(cp.Firstname) + " " + strings.TrimSpace(cp.Lastname))
			if name == "" {
				name = "Sin nombre"
			}
			if cp.JobTitle != "" {
				name += " (" + cp.JobTitle + ")"
			}
			parts = append(parts, "- "+name)
		}
	}

	if hotelesData != "" {
		parts = append(parts, "\n## Datos de Hoteles.com", truncate(hotelesData, 1000))
	}

	return strings.Join(parts, "\n")
}

// handleNoFitLeads moves the company's leads to the disqualified stage and
// leaves a verification task for the owner when one is assigned.
func (f *CalificarLeadFlow) handleNoFitLeads(ctx context.Context, company *hubspot.Company, logger *zap.Logger) []model.LeadAction {
	leads, err := f.crm.GetAssociatedLeads(ctx, company.ID)
	if err != nil {
		logger.Warn("could not fetch leads", zap.Error(err))
		return nil
	}

	hotelName := company.Properties.Name
	if hotelName == "" {
		hotelName = "Hotel"
	}

	var actions []model.LeadAction
	for _, lead := range leads {
		if err := f.crm.UpdateLead(ctx, lead.ID, map[string]string{"hs_pipeline_stage": noFitStageID}); err != nil {
			logger.Warn("could not update lead stage", zap.String("lead_id", lead.ID), zap.Error(err))
			actions = append(actions, model.LeadAction{
				LeadID:   lead.ID,
				LeadName: lead.Properties.LeadName,
				Action:   "error",
				Message:  "failed to update lead",
			})
			continue
		}
		actions = append(actions, model.LeadAction{
			LeadID:   lead.ID,
			LeadName: lead.Properties.LeadName,
			Action:   "stage_updated",
			Message:  "pipeline stage updated to " + noFitStageID,
		})

		if lead.Properties.HubspotOwnerID == "" {
			continue
		}
		taskProps := map[string]string{
			"hs_task_subject":  "🔎 Verificar " + hotelName,
			"hs_task_body":     fmt.Sprintf("El agente calificó a %s como 'No es FIT'. Verificar si la clasificación es correcta.", hotelName),
			"hs_task_status":   "NOT_STARTED",
			"hs_task_priority": "MEDIUM",
			"hs_task_type":     "TODO",
			"hs_timestamp":     time.Now().UTC().Format(time.RFC3339),
			"hubspot_owner_id": lead.Properties.HubspotOwnerID,
		}
		if err := f.crm.CreateTask(ctx, company.ID, taskProps); err != nil {
			logger.Warn("could not create verification task", zap.String("lead_id", lead.ID), zap.Error(err))
			continue
		}
		actions = append(actions, model.LeadAction{
			LeadID:   lead.ID,
			LeadName: lead.Properties.LeadName,
			Action:   "task_created",
			Message:  "verification task created for owner " + lead.Properties.HubspotOwnerID,
		})
	}
	return actions
}

// buildCalificarNote renders the qualification summary note.
func buildCalificarNote(companyName, marketFit, rooms, reasoning, tipoDeEmpresa, resumen, lifecyclestage string, leadActions []model.LeadAction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Calificación de Lead - %s\n", companyName)

	if marketFit != "" {
		fmt.Fprintf(&b, "\nMarket Fit: %s\n", marketFit)
	}
	if rooms != "" {
		fmt.Fprintf(&b, "Habitaciones: %s\n", rooms)
	}
	if tipoDeEmpresa != "" {
		fmt.Fprintf(&b, "Tipo de empresa: %s\n", tipoDeEmpresa)
	}
	fmt.Fprintf(&b, "Lifecycle stage: %s\n", lifecyclestage)

	if reasoning != "" {
		fmt.Fprintf(&b, "\nRazonamiento:\n%s\n", reasoning)
	}
	if resumen != "" {
		fmt.Fprintf(&b, "\nResumen de interacciones:\n%s\n", resumen)
	}
	if len(leadActions) > 0 {
		b.WriteString("\nAcciones sobre leads:\n")
		for _, action := range leadActions {
			fmt.Fprintf(&b, "- %s (%s): %s\n", action.Action, action.LeadID, action.Message)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
