package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/call"
	"github.com/hotelbdd/agente-bdd/internal/config"
	"github.com/hotelbdd/agente-bdd/internal/enrich"
	"github.com/hotelbdd/agente-bdd/internal/flow"
	"github.com/hotelbdd/agente-bdd/internal/jobs"
	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/pkg/anthropic"
	"github.com/hotelbdd/agente-bdd/pkg/elevenlabs"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
	"github.com/hotelbdd/agente-bdd/pkg/perplexity"
	"github.com/hotelbdd/agente-bdd/pkg/places"
	"github.com/hotelbdd/agente-bdd/pkg/tavily"
	"github.com/hotelbdd/agente-bdd/pkg/tripadvisor"
	"github.com/hotelbdd/agente-bdd/pkg/webscrape"
)

// buildRunner wires the provider clients and flows from configuration.
// Optional providers are toggled by credential presence; a flow whose
// provider is missing is simply not registered.
func buildRunner(cfg *config.Config) (*flow.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	crm := hubspot.NewClient(cfg.HubSpot.Token,
		hubspot.WithBaseURL(cfg.HubSpot.BaseURL),
		hubspot.WithRequestsPerSec(int(cfg.HubSpot.RequestsPerSec)),
	)
	placesClient := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))

	var taClient tripadvisor.Client
	if cfg.TripAdvisor.Key != "" {
		taClient = tripadvisor.NewClient(cfg.TripAdvisor.Key, tripadvisor.WithBaseURL(cfg.TripAdvisor.BaseURL))
	}
	var tavilyClient tavily.Client
	if cfg.Tavily.Key != "" {
		tavilyClient = tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))
	}
	var perplexityClient perplexity.Client
	if cfg.Perplexity.Key != "" {
		perplexityClient = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	}

	store := jobs.NewStore(
		jobs.WithMaxJobs(cfg.Jobs.MaxJobs),
		jobs.WithCooldown(time.Duration(cfg.Jobs.CooldownMinutes)*time.Minute),
	)
	runner := flow.NewRunner(store, crm, time.Duration(cfg.Jobs.TimeoutMinutes)*time.Minute)

	enricher := buildEnricher(tavilyClient, perplexityClient)
	enrichment := flow.NewEnrichmentFlow(crm, placesClient, taClient, enricher)
	runner.Register(jobs.TaskEnrichment, enrichment.Run)
	runner.Register(jobs.TaskHacerTareas, flow.NewHacerTareasFlow(crm).Run)

	if cfg.ElevenLabs.Key != "" && cfg.ElevenLabs.AgentID != "" {
		eleven := elevenlabs.NewClient(cfg.ElevenLabs.Key, cfg.ElevenLabs.AgentID, cfg.ElevenLabs.PhoneNumberID,
			elevenlabs.WithBaseURL(cfg.ElevenLabs.BaseURL))
		dialer := call.NewDialer(eleven,
			elevenlabs.WithPollInterval(time.Duration(cfg.Call.PollIntervalSecs)*time.Second),
			elevenlabs.WithPollTimeout(time.Duration(cfg.Call.PollTimeoutSecs)*time.Second),
		)
		controller := call.NewController(dialer,
			call.WithAttemptsPerNumber(cfg.Call.AttemptsPerNumber),
			call.WithBusyRetryDelay(time.Duration(cfg.Call.BusyRetryDelaySecs)*time.Second),
		)
		prospeccion := flow.NewProspeccionFlow(crm, eleven, placesClient, controller)
		runner.Register(jobs.TaskProspeccion, prospeccion.Run)
	} else {
		zap.L().Info("elevenlabs not configured, prospección flow disabled")
	}

	if cfg.Anthropic.Key != "" {
		claude := anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithModel(cfg.Anthropic.Model))
		calificar := flow.NewCalificarLeadFlow(crm, claude, tavilyClient)
		runner.Register(jobs.TaskCalificarLead, calificar.Run)
	} else {
		zap.L().Info("anthropic not configured, lead qualification disabled")
	}

	return runner, nil
}

// buildEnricher assembles the lookup provider chains: Tavily first where
// available, Perplexity as search fallback, and the local scraper as the
// website fallback.
func buildEnricher(tavilyClient tavily.Client, perplexityClient perplexity.Client) *enrich.Enricher {
	enricher := &enrich.Enricher{}
	scraper := webscrape.NewScraper()

	if tavilyClient != nil {
		enricher.Website = append(enricher.Website, enrich.WebsiteProvider{
			Name: "tavily", Fn: tavilyClient.ExtractWebsite,
		})
		enricher.Booking = append(enricher.Booking, enrich.SearchProvider[*model.BookingListing]{
			Name: "tavily", Fn: tavilyClient.SearchBookingData,
		})
		enricher.Rooms = append(enricher.Rooms, enrich.SearchProvider[string]{
			Name: "tavily", Fn: tavilyClient.SearchRoomCount,
		})
		enricher.Reputation = append(enricher.Reputation, enrich.SearchProvider[*model.Reputation]{
			Name: "tavily", Fn: tavilyClient.SearchReputation,
		})
	}
	enricher.Website = append(enricher.Website, enrich.WebsiteProvider{
		Name: "scraper", Fn: scraper.Scrape,
	})
	if perplexityClient != nil {
		enricher.Booking = append(enricher.Booking, enrich.SearchProvider[*model.BookingListing]{
			Name: "perplexity", Fn: perplexityClient.SearchBookingData,
		})
		enricher.Rooms = append(enricher.Rooms, enrich.SearchProvider[string]{
			Name: "perplexity", Fn: perplexityClient.SearchRoomCount,
		})
		enricher.Reputation = append(enricher.Reputation, enrich.SearchProvider[*model.Reputation]{
			Name: "perplexity", Fn: perplexityClient.SearchReputation,
		})
	}
	return enricher
}
