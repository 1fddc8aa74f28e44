package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pool"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

const (
	orgFilterBatchSize   = 30
	orgFilterConcurrency = 5
)

const orgFilterPrompt = `You review Australian business listings and flag large organizations: national or multinational chains, franchises, government bodies, hospitals, universities, and publicly listed companies. Small and medium independent local businesses are never flagged. Given a JSON array of businesses with "id", "name" and "address", respond with a valid JSON object listing only the flagged ids: {"large_ids": ["<id>", ...]}. When none are flagged respond {"large_ids": []}.`

// OrgFilter removes records belonging to large organizations. Batches that
// fail classification keep all their records: a filtering outage must never
// shrink the lead set.
type OrgFilter struct {
	anthropic   anthropic.Client
	model       string
	batchSize   int
	concurrency int
	retry       resilience.RetryConfig
}

// NewOrgFilter creates a large-organization filter. Zero batchSize or
// concurrency selects the defaults of 30 and 5.
func NewOrgFilter(client anthropic.Client, aiModel string, batchSize, concurrency int) *OrgFilter {
	if batchSize <= 0 {
		batchSize = orgFilterBatchSize
	}
	if concurrency <= 0 {
		concurrency = orgFilterConcurrency
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "flag_large_orgs")
	return &OrgFilter{
		anthropic:   client,
		model:       aiModel,
		batchSize:   batchSize,
		concurrency: concurrency,
		retry:       retry,
	}
}

type orgCandidate struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Filter classifies records in concurrent batches and returns the set with
// flagged records removed, preserving input order.
func (f *OrgFilter) Filter(ctx context.Context, set *model.RecordSet) *model.RecordSet {
	if set.Len() == 0 {
		return set
	}

	var mu sync.Mutex
	flagged := make(map[string]struct{})

	batches := pool.Batches(set.Records, f.batchSize)
	pool.Each(ctx, batches, f.concurrency, func(ctx context.Context, batch []model.BusinessRecord) error {
		ids, err := f.flagBatch(ctx, batch)
		if err != nil {
			// Fail open: an unclassified batch keeps every record.
			zap.L().Warn("pipeline: org filter batch failed, keeping records",
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			return nil
		}
		mu.Lock()
		for _, id := range ids {
			flagged[id] = struct{}{}
		}
		mu.Unlock()
		return nil
	})

	out := make([]model.BusinessRecord, 0, set.Len())
	for _, rec := range set.Records {
		if _, drop := flagged[rec.ID]; drop {
			continue
		}
		out = append(out, rec)
	}

	zap.L().Info("pipeline: org filter complete",
		zap.Int("before", set.Len()),
		zap.Int("flagged", len(flagged)),
		zap.Int("after", len(out)),
	)
	return &model.RecordSet{Records: out}
}

func (f *OrgFilter) flagBatch(ctx context.Context, batch []model.BusinessRecord) ([]string, error) {
	candidates := make([]orgCandidate, 0, len(batch))
	for _, rec := range batch {
		candidates = append(candidates, orgCandidate{
			ID:      rec.ID,
			Name:    rec.CompanyName,
			Address: rec.Address,
		})
	}
	payload, err := json.Marshal(candidates)
	if err != nil {
		return nil, err
	}

	resp, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return f.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     f.model,
			MaxTokens: 1024,
			System:    orgFilterPrompt,
			Messages: []anthropic.Message{
				{Role: "user", Content: string(payload)},
			},
		})
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		LargeIDs []string `json:"large_ids"`
	}
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &result); err != nil {
		return nil, err
	}

	// Only accept ids that belong to this batch; the model occasionally
	// hallucinates identifiers.
	valid := make(map[string]struct{}, len(batch))
	for _, rec := range batch {
		valid[rec.ID] = struct{}{}
	}
	var ids []string
	for _, id := range result.LargeIDs {
		id = strings.TrimSpace(id)
		if _, ok := valid[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
