package enrich

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hotelbdd/agente-bdd/internal/model"
)

// Target identifies the hotel the lookups run against.
type Target struct {
	Name       string
	City       string
	Country    string
	WebsiteURL string
}

// WebsiteProvider extracts contact data from a hotel website.
type WebsiteProvider struct {
	Name string
	Fn   func(ctx context.Context, siteURL string) (*model.WebContact, error)
}

// SearchProvider answers a text search lookup (booking, rooms, reputation).
type SearchProvider[T any] struct {
	Name string
	Fn   func(ctx context.Context, hotelName, city, country string) (T, error)
}

// Enricher runs the four optional lookups concurrently, each against an
// ordered provider chain fixed at construction. A provider failure falls
// through to the next provider; a lookup with no provider left reports a
// failed outcome and never disturbs its siblings.
type Enricher struct {
	Website    []WebsiteProvider
	Booking    []SearchProvider[*model.BookingListing]
	Rooms      []SearchProvider[string]
	Reputation []SearchProvider[*model.Reputation]
}

// Enrich fans out the configured lookups for the target and collects one
// outcome per lookup. The website lookup is skipped when the target has no
// website URL.
func (e *Enricher) Enrich(ctx context.Context, target Target) []model.EnrichmentOutcome {
	var (
		outcomes = make([]model.EnrichmentOutcome, 0, 4)
		results  = make(chan model.EnrichmentOutcome, 4)
	)

	g, ctx := errgroup.WithContext(ctx)

	if target.WebsiteURL != "" && len(e.Website) > 0 {
		g.Go(func() error {
			results <- e.lookupWebsite(ctx, target)
			return nil
		})
	}
	if len(e.Booking) > 0 {
		g.Go(func() error {
			results <- lookupSearch(ctx, model.LookupBooking, e.Booking, target,
				func(o *model.EnrichmentOutcome, v *model.BookingListing) { o.Booking = v })
			return nil
		})
	}
	if len(e.Rooms) > 0 {
		g.Go(func() error {
			results <- lookupSearch(ctx, model.LookupRooms, e.Rooms, target,
				func(o *model.EnrichmentOutcome, v string) { o.Rooms = v })
			return nil
		})
	}
	if len(e.Reputation) > 0 {
		g.Go(func() error {
			results <- lookupSearch(ctx, model.LookupReputation, e.Reputation, target,
				func(o *model.EnrichmentOutcome, v *model.Reputation) { o.Reputation = v })
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (e *Enricher) lookupWebsite(ctx context.Context, target Target) model.EnrichmentOutcome {
	outcome := model.EnrichmentOutcome{Lookup: model.LookupWebsite}
	var lastErr error
	for _, p := range e.Website {
		contact, err := p.Fn(ctx, target.WebsiteURL)
		if err != nil {
			lastErr = err
			zap.L().Warn("website lookup provider failed",
				zap.String("provider", p.Name),
				zap.String("url", target.WebsiteURL),
				zap.Error(err),
			)
			continue
		}
		outcome.Source = p.Name
		outcome.OK = true
		outcome.Web = contact
		return outcome
	}
	outcome.Error = lastErr.Error()
	return outcome
}

func lookupSearch[T any](ctx context.Context, lookup model.Lookup, providers []SearchProvider[T], target Target, assign func(*model.EnrichmentOutcome, T)) model.EnrichmentOutcome {
	outcome := model.EnrichmentOutcome{Lookup: lookup}
	var lastErr error
	for _, p := range providers {
		value, err := p.Fn(ctx, target.Name, target.City, target.Country)
		if err != nil {
			lastErr = err
			zap.L().Warn("enrichment lookup provider failed",
				zap.String("lookup", string(lookup)),
				zap.String("provider", p.Name),
				zap.Error(err),
			)
			continue
		}
		outcome.Source = p.Name
		outcome.OK = true
		assign(&outcome, value)
		return outcome
	}
	outcome.Error = lastErr.Error()
	return outcome
}
