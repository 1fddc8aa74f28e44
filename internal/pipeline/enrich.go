package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pool"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/apollo"
)

const (
	enrichBatchSize   = 10
	enrichConcurrency = 5
)

// Enricher resolves verified contact fields for the contacts selected during
// resolution. Enriched data only ever upgrades a record: a non-empty field is
// never overwritten with an empty one.
type Enricher struct {
	apollo      apollo.Client
	batchSize   int
	concurrency int
	retry       resilience.RetryConfig
}

// NewEnricher creates a contact enricher. Zero batchSize or concurrency
// selects the defaults of 10 and 5.
func NewEnricher(people apollo.Client, batchSize, concurrency int) *Enricher {
	if batchSize <= 0 {
		batchSize = enrichBatchSize
	}
	if concurrency <= 0 {
		concurrency = enrichConcurrency
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("apollo", "bulk_enrich")
	return &Enricher{
		apollo:      people,
		batchSize:   batchSize,
		concurrency: concurrency,
		retry:       retry,
	}
}

// Enrich bulk-matches the selected contact IDs in concurrent batches and
// merges the results onto the records. A batch that fails after retries
// leaves its records as they were.
func (e *Enricher) Enrich(ctx context.Context, set *model.RecordSet) *model.RecordSet {
	var ids []string
	seen := make(map[string]struct{})
	for i := range set.Records {
		id := set.Records[i].ContactID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return set
	}

	var mu sync.Mutex
	enriched := make(map[string]apollo.EnrichedPerson, len(ids))

	batches := pool.Batches(ids, e.batchSize)
	pool.Each(ctx, batches, e.concurrency, func(ctx context.Context, batch []string) error {
		matches, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) ([]apollo.EnrichedPerson, error) {
			return e.apollo.BulkEnrich(ctx, batch)
		})
		if err != nil {
			return err
		}
		mu.Lock()
		for _, m := range matches {
			// A match without an ID cannot be tied back to a record.
			if m.ID == "" {
				continue
			}
			enriched[m.ID] = m
		}
		mu.Unlock()
		return nil
	})

	applied := 0
	for i := range set.Records {
		rec := &set.Records[i]
		if rec.ContactID == "" {
			continue
		}
		person, ok := enriched[rec.ContactID]
		if !ok {
			continue
		}
		mergeContact(rec, person)
		applied++
	}

	zap.L().Info("pipeline: enrichment complete",
		zap.Int("contacts", len(ids)),
		zap.Int("matched", len(enriched)),
		zap.Int("records_updated", applied),
	)
	return set
}

// mergeContact copies enriched fields onto the record. Empty values from the
// enrichment service never replace data already on the record.
func mergeContact(rec *model.BusinessRecord, p apollo.EnrichedPerson) {
	setIfPresent(&rec.ContactFirstName, p.FirstName)
	setIfPresent(&rec.ContactLastName, p.LastName)
	setIfPresent(&rec.ContactTitle, p.Title)
	setIfPresent(&rec.ContactPersonalEmail, p.Email)
	setIfPresent(&rec.ContactLinkedInURL, p.LinkedInURL)
}

func setIfPresent(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}
