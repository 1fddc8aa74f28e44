// Package pipeline implements the lead-generation pipeline: directory
// scraping across resolved sub-areas, deduplication, large-organization
// filtering, contact resolution and enrichment, website email crawling, and
// report generation. Stages own the record set in sequence; each stage
// absorbs its own partial failures so that one bad sub-area, batch, or
// website never sinks the run.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pool"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/apify"
)

// scrapeConcurrency bounds how many sub-areas are searched at once.
const scrapeConcurrency = 7

// Scraper fans the business-type query out across resolved sub-areas and
// collects raw business records from the directory service.
type Scraper struct {
	apify       apify.Client
	concurrency int
	retry       resilience.RetryConfig
}

// NewScraper creates a directory scraper. A concurrency of 0 uses the
// default of 7.
func NewScraper(client apify.Client, concurrency int) *Scraper {
	if concurrency <= 0 {
		concurrency = scrapeConcurrency
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("apify", "search_places")
	return &Scraper{apify: client, concurrency: concurrency, retry: retry}
}

// Scrape searches every sub-area concurrently and returns the union of the
// results. A sub-area whose search fails after retries contributes nothing;
// the remaining sub-areas proceed. Records come back without IDs; the
// deduplication stage assigns them.
func (s *Scraper) Scrape(ctx context.Context, businessType string, subAreas []model.SubArea) *model.RecordSet {
	records := pool.Run(ctx, subAreas, s.concurrency, func(ctx context.Context, area model.SubArea) ([]model.BusinessRecord, error) {
		places, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]apify.Place, error) {
			return s.apify.SearchPlaces(ctx, businessType, area.Name)
		})
		if err != nil {
			return nil, err
		}

		out := make([]model.BusinessRecord, 0, len(places))
		for _, p := range places {
			rec := placeToRecord(p)
			if rec.CompanyName == "" {
				continue
			}
			out = append(out, rec)
		}
		zap.L().Debug("pipeline: sub-area scraped",
			zap.String("sub_area", area.Name),
			zap.Int("records", len(out)),
		)
		return out, nil
	})

	zap.L().Info("pipeline: scrape complete",
		zap.Int("sub_areas", len(subAreas)),
		zap.Int("records", len(records)),
	)
	return &model.RecordSet{Records: records}
}

// placeToRecord maps a raw directory result into a business record,
// normalizing absent fields to empty strings.
func placeToRecord(p apify.Place) model.BusinessRecord {
	return model.BusinessRecord{
		CompanyName: strings.TrimSpace(p.Title),
		Address:     strings.TrimSpace(p.Address),
		Website:     strings.TrimSpace(p.Website),
		Phone:       strings.TrimSpace(p.Phone),
	}
}
