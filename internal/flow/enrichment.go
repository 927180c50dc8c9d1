package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/enrich"
	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
	"github.com/hotelbdd/agente-bdd/pkg/places"
	"github.com/hotelbdd/agente-bdd/pkg/tripadvisor"
)

// EnrichmentFlow refreshes a company record from Google Places, TripAdvisor,
// and the optional web lookups, merges the results, and leaves an audit note.
type EnrichmentFlow struct {
	crm         hubspot.Client
	places      places.Client
	tripadvisor tripadvisor.Client // nil when not configured
	enricher    *enrich.Enricher
	resolver    *enrich.Resolver
}

// NewEnrichmentFlow wires the enrichment flow.
func NewEnrichmentFlow(crm hubspot.Client, placesClient places.Client, ta tripadvisor.Client, enricher *enrich.Enricher) *EnrichmentFlow {
	return &EnrichmentFlow{
		crm:         crm,
		places:      placesClient,
		tripadvisor: ta,
		enricher:    enricher,
		resolver:    enrich.NewResolver(crm),
	}
}

// Run enriches one company.
func (f *EnrichmentFlow) Run(ctx context.Context, companyID string) (any, error) {
	company, err := f.crm.GetCompany(ctx, companyID)
	if err != nil {
		return nil, eris.Wrapf(err, "enrichment: get company %s", companyID)
	}
	props := company.Properties
	logger := zap.L().With(zap.String("company_id", companyID), zap.String("company", props.Name))

	place, err := f.findPlace(ctx, props, logger)
	if err != nil {
		return nil, eris.Wrapf(err, "enrichment: places lookup for %s", companyID)
	}
	taLocation := f.findTripAdvisor(ctx, props, place, logger)

	if place == nil && taLocation == nil {
		return &model.EnrichmentResult{
			CompanyID:   companyID,
			CompanyName: props.Name,
			Status:      "no_results",
			Message:     "no results from Google Places or TripAdvisor",
		}, nil
	}

	input := enrich.MergeInput{Place: place}
	if place != nil {
		input.Parsed = enrich.ParseAddressComponents(place.AddressComponents)
	}
	if taLocation != nil {
		input.TripAdvisorID = taLocation.LocationID
	}

	outcomes := f.runLookups(ctx, props, place, input.Parsed)
	for _, outcome := range outcomes {
		if !outcome.OK {
			continue
		}
		switch outcome.Lookup {
		case model.LookupWebsite:
			input.Web = outcome.Web
		case model.LookupBooking:
			input.Booking = outcome.Booking
		case model.LookupRooms:
			input.Rooms = outcome.Rooms
		}
	}

	updates, changes := enrich.MergeFields(props, input)
	if fit := marketFitUpdate(props, updates); fit != "" {
		updates["market_fit"] = fit
		changes = append(changes, model.FieldChange{Field: "market_fit", NewValue: fit})
	}

	merged, err := f.resolver.UpdateCompany(ctx, *company, updates)
	if err != nil {
		return nil, eris.Wrapf(err, "enrichment: update company %s", companyID)
	}
	if merged {
		logger.Info("duplicate company merged during enrichment")
	}

	note := enrich.BuildEnrichmentNote(props.Name, changes, outcomes)
	if err := f.crm.CreateNote(ctx, companyID, note); err != nil {
		logger.Warn("could not create enrichment note", zap.Error(err))
	}

	f.upsertWebContact(ctx, companyID, input.Web, logger)

	return &model.EnrichmentResult{
		CompanyID:   companyID,
		CompanyName: props.Name,
		Status:      "enriched",
		Changes:     changes,
		Outcomes:    outcomes,
		Note:        note,
	}, nil
}

// findPlace resolves the authoritative Places record: stored id first, text
// search as fallback. A nil place with a nil error means no match; the
// lookup itself is mandatory, so a transport or API failure propagates.
func (f *EnrichmentFlow) findPlace(ctx context.Context, props hubspot.CompanyProperties, logger *zap.Logger) (*places.Place, error) {
	if props.IDHotel != "" {
		place, err := f.places.GetPlaceDetails(ctx, props.IDHotel)
		if err == nil {
			return place, nil
		}
		logger.Warn("place details lookup failed, falling back to text search",
			zap.String("place_id", props.IDHotel),
			zap.Error(err),
		)
	}

	query := places.BuildSearchQuery(props.Name, props.City, props.Country)
	place, err := f.places.TextSearch(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "text search %q", query)
	}
	return place, nil
}

// findTripAdvisor is isolated: a failure never blocks the enrichment.
func (f *EnrichmentFlow) findTripAdvisor(ctx context.Context, props hubspot.CompanyProperties, place *places.Place, logger *zap.Logger) *tripadvisor.Location {
	if f.tripadvisor == nil {
		return nil
	}

	if props.IDTripAdvisor != "" {
		location, err := f.tripadvisor.GetDetails(ctx, props.IDTripAdvisor)
		if err == nil {
			return location
		}
		logger.Warn("tripadvisor details lookup failed",
			zap.String("location_id", props.IDTripAdvisor),
			zap.Error(err),
		)
		return nil
	}

	latLong := ""
	if place != nil && place.Location != nil {
		latLong = fmt.Sprintf("%f,%f", place.Location.Latitude, place.Location.Longitude)
	}
	location, err := f.tripadvisor.SearchAndGetDetails(ctx, tripadvisor.CleanName(props.Name), latLong)
	if err != nil {
		logger.Warn("tripadvisor search failed, continuing without it", zap.Error(err))
		return nil
	}
	return location
}

func (f *EnrichmentFlow) runLookups(ctx context.Context, props hubspot.CompanyProperties, place *places.Place, parsed enrich.ParsedAddress) []model.EnrichmentOutcome {
	if f.enricher == nil {
		return nil
	}

	target := enrich.Target{
		Name:       props.Name,
		City:       props.City,
		Country:    props.Country,
		WebsiteURL: props.Website,
	}
	if place != nil {
		if place.DisplayName.Text != "" {
			target.Name = place.DisplayName.Text
		}
		if parsed.City != "" {
			target.City = parsed.City
		}
		if parsed.Country != "" {
			target.Country = parsed.Country
		}
		if place.WebsiteURI != "" {
			target.WebsiteURL = place.WebsiteURI
		}
	}
	return f.enricher.Enrich(ctx, target)
}

// upsertWebContact records the contact data found on the hotel website as a
// CRM contact, unless a contact with that email already exists. Best-effort.
func (f *EnrichmentFlow) upsertWebContact(ctx context.Context, companyID string, web *model.WebContact, logger *zap.Logger) {
	if web == nil || len(web.Emails) == 0 {
		return
	}
	email := web.Emails[0]

	contacts, err := f.crm.GetAssociatedContacts(ctx, companyID)
	if err != nil {
		logger.Warn("could not fetch contacts for web upsert", zap.Error(err))
		return
	}
	for _, contact := range contacts {
		if strings.EqualFold(contact.Properties.Email, email) {
			return
		}
	}

	properties := map[string]string{"email": email}
	if len(web.Phones) > 0 {
		properties["phone"] = web.Phones[0]
	}
	contactID, err := f.crm.CreateContact(ctx, companyID, properties)
	if err != nil {
		logger.Warn("could not create website contact", zap.Error(err))
		return
	}
	logger.Info("created contact from website data", zap.String("contact_id", contactID))
}

// marketFitUpdate classifies the company when the record has no market fit
// yet and a room count is available after this run. Returns "" when there is
// nothing to set.
func marketFitUpdate(props hubspot.CompanyProperties, updates map[string]string) string {
	if props.MarketFit != "" {
		return ""
	}

	roomsRaw := props.CantidadDeHabitaciones
	if v, ok := updates["cantidad_de_habitaciones"]; ok {
		roomsRaw = v
	}
	rooms, ok := enrich.ParseRoomCount(roomsRaw)
	if !ok {
		return ""
	}

	hasBooking := props.BookingURL != "" || updates["booking_url"] != ""
	return enrich.ClassifyWithType(&rooms, props.TipoDeEmpresa, hasBooking)
}
