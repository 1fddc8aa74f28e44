package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/location"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// Stage snapshot names persisted at stage boundaries.
const (
	StageScraped  = "scraped"
	StageDeduped  = "deduped"
	StageFiltered = "filtered"
	StageEnriched = "enriched"
	StageCrawled  = "crawled"
)

// Pipeline wires the stages into the lead-generation run. Only location
// normalization and area resolution can fail a run outright; every later
// stage absorbs partial failure and passes the surviving records on.
type Pipeline struct {
	resolver *location.Resolver
	scraper  *Scraper
	deduper  *Deduplicator
	orgs     *OrgFilter
	contacts *ContactResolver
	enricher *Enricher
	crawler  *EmailCrawler
	reports  *ReportGenerator
	store    store.Store
	format   ReportFormat
}

// New assembles a pipeline from its stages.
func New(
	resolver *location.Resolver,
	scraper *Scraper,
	deduper *Deduplicator,
	orgs *OrgFilter,
	contacts *ContactResolver,
	enricher *Enricher,
	crawler *EmailCrawler,
	reports *ReportGenerator,
	st store.Store,
	format ReportFormat,
) *Pipeline {
	if format == "" {
		format = FormatCSV
	}
	return &Pipeline{
		resolver: resolver,
		scraper:  scraper,
		deduper:  deduper,
		orgs:     orgs,
		contacts: contacts,
		enricher: enricher,
		crawler:  crawler,
		reports:  reports,
		store:    st,
		format:   format,
	}
}

// GenerateLeads runs the full pipeline for a business type and raw location.
// leadCount caps the number of unique leads for this run; 0 keeps the
// configured default. The returned outcome is always non-nil; the error is
// non-nil only for the failure outcome and carries the internal cause for
// logging.
func (p *Pipeline) GenerateLeads(ctx context.Context, businessType, rawLocation string, leadCount int) (*model.Outcome, error) {
	canonical, err := location.Normalize(rawLocation)
	if err != nil {
		if eris.Is(err, location.ErrInvalidLocation) {
			return &model.Outcome{
				Kind:    model.OutcomeFailure,
				Message: "please provide a specific location, not just a state",
			}, err
		}
		return &model.Outcome{
			Kind:    model.OutcomeFailure,
			Message: "invalid location",
		}, err
	}

	run, err := p.store.CreateRun(ctx, businessType, canonical)
	if err != nil {
		return p.failure("internal error starting run"), err
	}
	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("business_type", businessType),
		zap.String("location", canonical),
	)
	log.Info("pipeline: run started")

	outcome, err := p.run(ctx, log, run.ID, businessType, canonical, leadCount)
	if storeErr := p.store.UpdateRunOutcome(ctx, run.ID, outcome); storeErr != nil {
		log.Warn("pipeline: persist outcome failed", zap.Error(storeErr))
	}
	return outcome, err
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, runID, businessType, canonical string, leadCount int) (*model.Outcome, error) {
	p.setStatus(ctx, runID, model.RunStatusResolving)
	subAreas, err := p.resolver.Resolve(ctx, canonical)
	if err != nil {
		p.setStatus(ctx, runID, model.RunStatusFailed)
		if eris.Is(err, location.ErrAreaExpansion) {
			return p.failure("could not expand the location into sub-areas"), err
		}
		return p.failure("could not resolve the location"), err
	}

	p.setStatus(ctx, runID, model.RunStatusScraping)
	set := p.scraper.Scrape(ctx, businessType, subAreas)
	p.snapshot(ctx, runID, StageScraped, set)

	set = p.deduper.Dedupe(set, leadCount)
	p.snapshot(ctx, runID, StageDeduped, set)
	if set.Len() == 0 {
		return p.noLeads(ctx, log, runID), nil
	}

	p.setStatus(ctx, runID, model.RunStatusFiltering)
	set = p.orgs.Filter(ctx, set)
	p.snapshot(ctx, runID, StageFiltered, set)
	if set.Len() == 0 {
		return p.noLeads(ctx, log, runID), nil
	}

	p.setStatus(ctx, runID, model.RunStatusContacts)
	set = p.contacts.Resolve(ctx, set)

	p.setStatus(ctx, runID, model.RunStatusEnriching)
	set = p.enricher.Enrich(ctx, set)
	p.snapshot(ctx, runID, StageEnriched, set)

	p.setStatus(ctx, runID, model.RunStatusCrawling)
	set = p.crawler.Crawl(ctx, set)
	p.snapshot(ctx, runID, StageCrawled, set)

	p.setStatus(ctx, runID, model.RunStatusReporting)
	meta, err := p.reports.Generate(set, businessType, canonical, p.format)
	if err != nil {
		if eris.Is(err, ErrEmptyReport) {
			return p.noLeads(ctx, log, runID), nil
		}
		p.setStatus(ctx, runID, model.RunStatusFailed)
		return p.failure("could not write the report"), err
	}
	if err := p.store.SaveReportMeta(ctx, runID, *meta); err != nil {
		log.Warn("pipeline: persist report meta failed", zap.Error(err))
	}

	p.setStatus(ctx, runID, model.RunStatusComplete)
	log.Info("pipeline: run complete",
		zap.Int("lead_count", set.Len()),
		zap.String("report", meta.Filename),
	)
	return &model.Outcome{
		Kind:      model.OutcomeSuccess,
		Message:   "leads generated",
		LeadCount: set.Len(),
		Report:    meta,
	}, nil
}

// noLeads records the empty result and clears stale report metadata so the
// download surface cannot serve a previous run's artifact as current.
func (p *Pipeline) noLeads(ctx context.Context, log *zap.Logger, runID string) *model.Outcome {
	p.setStatus(ctx, runID, model.RunStatusNoLeads)
	if err := p.store.ClearReportMeta(ctx); err != nil {
		log.Warn("pipeline: clear report meta failed", zap.Error(err))
	}
	log.Info("pipeline: no leads found")
	return &model.Outcome{
		Kind:    model.OutcomeNoLeads,
		Message: "no leads found",
	}
}

func (p *Pipeline) failure(message string) *model.Outcome {
	return &model.Outcome{
		Kind:    model.OutcomeFailure,
		Message: message,
	}
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus) {
	if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
		zap.L().Warn("pipeline: update status failed",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) snapshot(ctx context.Context, runID, stage string, set *model.RecordSet) {
	if err := p.store.SaveRecords(ctx, runID, stage, set); err != nil {
		zap.L().Warn("pipeline: snapshot failed",
			zap.String("run_id", runID),
			zap.String("stage", stage),
			zap.Error(err),
		)
	}
}
