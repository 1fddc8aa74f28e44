package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/location"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/apify"
	"github.com/sells-group/leadgen-cli/pkg/apollo"
	"github.com/sells-group/leadgen-cli/pkg/perplexity"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadgen.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initClassifier(ai anthropic.Client) (location.Classifier, error) {
	switch cfg.Location.Classifier {
	case "", "static":
		return location.NewStaticClassifier()
	case "llm":
		return location.NewLLMClassifier(ai, cfg.Anthropic.Model), nil
	default:
		return nil, eris.Errorf("unsupported location classifier: %s", cfg.Location.Classifier)
	}
}

// buildPipeline wires the external clients and stages from config.
func buildPipeline(st store.Store, format pipeline.ReportFormat) (*pipeline.Pipeline, *pipeline.ReportGenerator, error) {
	if cfg.Apify.Token == "" {
		return nil, nil, eris.New("apify token is required (LEADGEN_APIFY_TOKEN)")
	}
	if cfg.Perplexity.Key == "" {
		return nil, nil, eris.New("perplexity key is required (LEADGEN_PERPLEXITY_KEY)")
	}
	if cfg.Anthropic.Key == "" {
		return nil, nil, eris.New("anthropic key is required (LEADGEN_ANTHROPIC_KEY)")
	}
	if cfg.Apollo.Key == "" {
		return nil, nil, eris.New("apollo key is required (LEADGEN_APOLLO_KEY)")
	}

	ai := anthropic.NewClient(cfg.Anthropic.Key)
	pplx := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)
	directory := apify.NewClient(cfg.Apify.Token,
		apify.WithBaseURL(cfg.Apify.BaseURL),
		apify.WithActorID(cfg.Apify.ActorID),
		apify.WithMaxPlaces(cfg.Apify.MaxPlaces),
		apify.WithTimeout(time.Duration(cfg.Apify.TimeoutSecs)*time.Second),
	)
	people := apollo.NewClient(cfg.Apollo.Key,
		apollo.WithBaseURL(cfg.Apollo.BaseURL),
	)

	classifier, err := initClassifier(ai)
	if err != nil {
		return nil, nil, err
	}
	resolver := location.NewResolver(classifier, pplx, ai, cfg.Anthropic.Model)

	reports := pipeline.NewReportGenerator(cfg.Report.Dir, cfg.Report.Country)

	p := pipeline.New(
		resolver,
		pipeline.NewScraper(directory, cfg.Scrape.Concurrency),
		pipeline.NewDeduplicator("AU", cfg.Pipeline.MaxLeads),
		pipeline.NewOrgFilter(ai, cfg.Anthropic.Model, cfg.OrgFilter.BatchSize, cfg.OrgFilter.Concurrency),
		pipeline.NewContactResolver(people, ai, cfg.Anthropic.Model, cfg.Contacts.DomainBatchSize, cfg.Contacts.Concurrency),
		pipeline.NewEnricher(people, cfg.Contacts.EnrichBatchSize, cfg.Contacts.Concurrency),
		pipeline.NewEmailCrawler(&http.Client{Timeout: time.Duration(cfg.Crawl.FetchTimeoutSec) * time.Second}, cfg.Crawl.MaxPages, cfg.Crawl.Concurrency),
		reports,
		st,
		format,
	)
	return p, reports, nil
}
