package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/call"
	"github.com/hotelbdd/agente-bdd/internal/enrich"
	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/pkg/elevenlabs"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
	"github.com/hotelbdd/agente-bdd/pkg/places"
	"github.com/hotelbdd/agente-bdd/pkg/webscrape"
)

// ProspeccionFlow places the outbound qualification call for a company:
// collects CRM context, walks the phone candidates, extracts the call
// analysis, and writes the results back.
type ProspeccionFlow struct {
	crm        hubspot.Client
	eleven     elevenlabs.Client
	places     places.Client // nil disables the state lookup
	controller *call.Controller
}

// NewProspeccionFlow wires the prospección flow.
func NewProspeccionFlow(crm hubspot.Client, eleven elevenlabs.Client, placesClient places.Client, controller *call.Controller) *ProspeccionFlow {
	return &ProspeccionFlow{
		crm:        crm,
		eleven:     eleven,
		places:     placesClient,
		controller: controller,
	}
}

// Run calls one company.
func (f *ProspeccionFlow) Run(ctx context.Context, companyID string) (any, error) {
	company, err := f.crm.GetCompany(ctx, companyID)
	if err != nil {
		return nil, eris.Wrapf(err, "prospeccion: get company %s", companyID)
	}
	props := company.Properties
	logger := zap.L().With(zap.String("company_id", companyID), zap.String("company", props.Name))

	notes, emails, contacts := f.fetchContext(ctx, companyID, logger)

	candidates := call.CollectCandidates(company, contacts)
	if len(candidates) == 0 {
		message := "no phone numbers found for company or contacts"
		f.createNote(ctx, companyID, enrich.BuildErrorNote(props.Name, message), logger)
		return &model.ProspeccionResult{
			CompanyID:   companyID,
			CompanyName: props.Name,
			Status:      "no_phone",
			Message:     message,
		}, nil
	}

	dynamicVars := buildDynamicVariables(props, notes, emails, contacts)

	result, attempts, err := f.controller.Run(ctx, candidates, dynamicVars)
	if err != nil {
		return nil, eris.Wrap(err, "prospeccion: call loop")
	}
	if result == nil {
		note := call.BuildProspeccionNote(props.Name, attempts, nil, "")
		f.createNote(ctx, companyID, note, logger)
		return &model.ProspeccionResult{
			CompanyID:    companyID,
			CompanyName:  props.Name,
			Status:       "all_failed",
			Message:      "all phone numbers failed",
			CallAttempts: attempts,
			Note:         note,
		}, nil
	}

	extracted := call.ExtractCallData(result.Analysis)
	transcript := call.FormatTranscript(result.Transcript)

	updates := map[string]string{}
	if props.MarketFit == "" && extracted.NumRooms != "" {
		if rooms, ok := enrich.ParseRoomCount(extracted.NumRooms); ok {
			updates["market_fit"] = enrich.Classify(rooms)
			updates["cantidad_de_habitaciones"] = extracted.NumRooms
		}
	}
	if props.State == "" {
		if state := f.lookupState(ctx, props, logger); state != "" {
			updates["state"] = state
		}
	}
	if len(updates) > 0 {
		if err := f.crm.UpdateCompany(ctx, companyID, updates); err != nil {
			logger.Warn("could not write call updates", zap.Error(err))
		}
	}

	note := call.BuildProspeccionNote(props.Name, attempts, &extracted, transcript)
	f.createNote(ctx, companyID, note, logger)

	f.upsertDecisionMaker(ctx, companyID, extracted, contacts, logger)
	f.registerCall(ctx, company, result, attempts, &extracted, logger)

	return &model.ProspeccionResult{
		CompanyID:     companyID,
		CompanyName:   props.Name,
		Status:        "completed",
		CallAttempts:  attempts,
		ExtractedData: &extracted,
		Transcript:    transcript,
		Note:          note,
	}, nil
}

// fetchContext pulls the company's notes, emails, and contacts. Each fetch
// is best-effort.
func (f *ProspeccionFlow) fetchContext(ctx context.Context, companyID string, logger *zap.Logger) ([]hubspot.Engagement, []hubspot.Engagement, []hubspot.Contact) {
	notes, err := f.crm.GetAssociatedNotes(ctx, companyID)
	if err != nil {
		logger.Warn("could not fetch notes", zap.Error(err))
	}
	emails, err := f.crm.GetAssociatedEmails(ctx, companyID)
	if err != nil {
		logger.Warn("could not fetch emails", zap.Error(err))
	}
	contacts, err := f.crm.GetAssociatedContacts(ctx, companyID)
	if err != nil {
		logger.Warn("could not fetch contacts", zap.Error(err))
	}
	return notes, emails, contacts
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// buildDynamicVariables seeds the voice agent's conversation context from
// the CRM record.
func buildDynamicVariables(props hubspot.CompanyProperties, notes, emails []hubspot.Engagement, contacts []hubspot.Contact) map[string]string {
	var contactSummaries []string
	for i, contact := range contacts {
		if i == 3 {
			break
		}
		cp := contact.Properties
		name := strings.TrimSpace(strings.TrimSpace(cp.Firstname) + " " + strings.TrimSpace(cp.Lastname))
		if name == "" {
			name = "Sin nombre"
		}
		if cp.JobTitle != "" {
			name += " (" + cp.JobTitle + ")"
		}
		contactSummaries = append(contactSummaries, name)
	}

	var noteSummaries []string
	for i, note := range notes {
		if i == 3 {
			break
		}
		if body := note.Properties["hs_note_body"]; body != "" {
			noteSummaries = append(noteSummaries, truncate(webscrape.StripHTML(body), 200))
		}
	}

	var emailSubjects []string
	for i, email := range emails {
		if i == 3 {
			break
		}
		if subject := email.Properties["hs_email_subject"]; subject != "" {
			emailSubjects = append(emailSubjects, subject)
		}
	}

	orDefault := func(parts []string, sep, fallback string) string {
		if len(parts) == 0 {
			return fallback
		}
		return strings.Join(parts, sep)
	}

	return map[string]string{
		"hotel_name":     props.Name,
		"hotel_city":     props.City,
		"hotel_country":  props.Country,
		"hotel_website":  props.Website,
		"hotel_address":  props.Address,
		"known_contacts": orDefault(contactSummaries, ", ", "Ninguno"),
		"recent_notes":   orDefault(noteSummaries, " | ", "Ninguna"),
		"recent_emails":  orDefault(emailSubjects, ", ", "Ninguno"),
	}
}

// lookupState resolves the company state through Places, best-effort.
func (f *ProspeccionFlow) lookupState(ctx context.Context, props hubspot.CompanyProperties, logger *zap.Logger) string {
	if f.places == nil {
		return ""
	}

	var place *places.Place
	if props.IDHotel != "" {
		p, err := f.places.GetPlaceDetails(ctx, props.IDHotel)
		if err != nil {
			logger.Warn("place details failed during state lookup", zap.Error(err))
		} else {
			place = p
		}
	}
	if place == nil {
		p, err := f.places.TextSearch(ctx, places.BuildSearchQuery(props.Name, props.City, props.Country))
		if err != nil {
			logger.Warn("state lookup search failed", zap.Error(err))
			return ""
		}
		place = p
	}
	if place == nil {
		return ""
	}
	return enrich.ParseAddressComponents(place.AddressComponents).State
}

// upsertDecisionMaker records the decision maker captured on the call,
// updating an existing contact matched by email or creating a new one.
// Best-effort.
func (f *ProspeccionFlow) upsertDecisionMaker(ctx context.Context, companyID string, extracted model.ExtractedCallData, contacts []hubspot.Contact, logger *zap.Logger) {
	if !extracted.HasData() {
		return
	}

	properties := map[string]string{}
	if extracted.DecisionMakerName != "" {
		first, last := call.SplitName(extracted.DecisionMakerName)
		if first != "" {
			properties["firstname"] = first
		}
		if last != "" {
			properties["lastname"] = last
		}
	}
	if extracted.DecisionMakerPhone != "" {
		properties["phone"] = extracted.DecisionMakerPhone
	}
	if extracted.DecisionMakerEmail != "" {
		properties["email"] = extracted.DecisionMakerEmail
	}

	var existing *hubspot.Contact
	if extracted.DecisionMakerEmail != "" {
		for i := range contacts {
			if strings.EqualFold(contacts[i].Properties.Email, extracted.DecisionMakerEmail) {
				existing = &contacts[i]
				break
			}
		}
	}

	if existing == nil {
		contactID, err := f.crm.CreateContact(ctx, companyID, properties)
		if err != nil {
			logger.Warn("could not create decision maker contact", zap.Error(err))
			return
		}
		logger.Info("created decision maker contact", zap.String("contact_id", contactID))
		return
	}

	// Only fill fields the existing contact is missing.
	current := map[string]string{
		"firstname": existing.Properties.Firstname,
		"lastname":  existing.Properties.Lastname,
		"email":     existing.Properties.Email,
		"phone":     existing.Properties.Phone,
	}
	updates := map[string]string{}
	for key, value := range properties {
		if current[key] == "" {
			updates[key] = value
		}
	}
	if len(updates) == 0 {
		return
	}
	if err := f.crm.UpdateContact(ctx, existing.ID, updates); err != nil {
		logger.Warn("could not update decision maker contact", zap.Error(err))
		return
	}
	logger.Info("updated decision maker contact", zap.String("contact_id", existing.ID))
}

// registerCall uploads the recording and files a CRM call engagement.
// Best-effort.
func (f *ProspeccionFlow) registerCall(ctx context.Context, company *hubspot.Company, result *model.CallResult, attempts []model.CallAttempt, extracted *model.ExtractedCallData, logger *zap.Logger) {
	var connected *model.CallAttempt
	for i := range attempts {
		if attempts[i].Status == "connected" {
			connected = &attempts[i]
			break
		}
	}
	if connected == nil {
		return
	}

	recordingURL := ""
	audio, err := f.eleven.GetConversationAudio(ctx, result.ConversationID)
	if err != nil {
		logger.Warn("could not download call audio", zap.Error(err))
	} else {
		filename := fmt.Sprintf("call_%s_%s.mp3", company.ID, result.ConversationID)
		recordingURL, err = f.crm.UploadFile(ctx, filename, audio)
		if err != nil {
			logger.Warn("could not upload call recording", zap.Error(err))
			recordingURL = ""
		}
	}

	properties := call.BuildCallEngagement(
		company.Properties.Name,
		connected.PhoneNumber,
		extracted,
		recordingURL,
		result.DurationMillis,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err := f.crm.CreateCall(ctx, company.ID, properties); err != nil {
		logger.Warn("could not register call engagement", zap.Error(err))
		return
	}
	logger.Info("registered call engagement", zap.String("conversation_id", result.ConversationID))
}

func (f *ProspeccionFlow) createNote(ctx context.Context, companyID, body string, logger *zap.Logger) {
	if err := f.crm.CreateNote(ctx, companyID, body); err != nil {
		logger.Warn("could not create note", zap.Error(err))
	}
}
