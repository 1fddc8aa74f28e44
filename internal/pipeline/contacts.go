package pipeline

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pool"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/apollo"
)

const (
	contactDomainBatchSize = 10
	contactConcurrency     = 5
)

const rankContactPrompt = `You select the best outreach contact at a small business. Given a JSON array of people with "id" and "title", pick the most senior decision maker: owner or founder first, then managing director or CEO, then general manager, then any director, then the most senior remaining title. Respond with a valid JSON object: {"id": "<chosen id>"}.`

// ContactResolver finds a decision-maker contact for each business that has
// a website. Domains are searched in batches; per-company candidates are
// ranked by seniority and the winner's ID is written onto the record.
type ContactResolver struct {
	apollo      apollo.Client
	anthropic   anthropic.Client
	model       string
	batchSize   int
	concurrency int
	retry       resilience.RetryConfig
}

// NewContactResolver creates a contact resolver. Zero batchSize or
// concurrency selects the defaults of 10 and 5.
func NewContactResolver(people apollo.Client, ai anthropic.Client, aiModel string, batchSize, concurrency int) *ContactResolver {
	if batchSize <= 0 {
		batchSize = contactDomainBatchSize
	}
	if concurrency <= 0 {
		concurrency = contactConcurrency
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("apollo", "search_people")
	return &ContactResolver{
		apollo:      people,
		anthropic:   ai,
		model:       aiModel,
		batchSize:   batchSize,
		concurrency: concurrency,
		retry:       retry,
	}
}

// Resolve attaches a ContactID to every record whose website domain yields
// people-search candidates. Records without a website, and domains whose
// batch fails after retries, pass through unchanged.
func (r *ContactResolver) Resolve(ctx context.Context, set *model.RecordSet) *model.RecordSet {
	// Map each searchable domain to the records behind it. Two businesses
	// can share a domain (multi-location operators); both get the contact.
	domainRecords := make(map[string][]*model.BusinessRecord)
	var domains []string
	for i := range set.Records {
		rec := &set.Records[i]
		domain := NormalizeDomain(rec.Website)
		if domain == "" {
			continue
		}
		if _, seen := domainRecords[domain]; !seen {
			domains = append(domains, domain)
		}
		domainRecords[domain] = append(domainRecords[domain], rec)
	}
	if len(domains) == 0 {
		return set
	}

	var mu sync.Mutex
	chosen := make(map[string]string) // domain -> person ID

	batches := pool.Batches(domains, r.batchSize)
	pool.Each(ctx, batches, r.concurrency, func(ctx context.Context, batch []string) error {
		people, err := resilience.DoVal(ctx, r.retry, func(ctx context.Context) ([]apollo.Person, error) {
			return r.apollo.SearchPeople(ctx, batch)
		})
		if err != nil {
			return err
		}

		byDomain := make(map[string][]apollo.Person)
		for _, p := range people {
			d := NormalizeDomain(p.Domain)
			if d == "" {
				continue
			}
			byDomain[d] = append(byDomain[d], p)
		}

		for domain, candidates := range byDomain {
			id := r.pickContact(ctx, candidates)
			if id == "" {
				continue
			}
			mu.Lock()
			chosen[domain] = id
			mu.Unlock()
		}
		return nil
	})

	resolved := 0
	for domain, id := range chosen {
		for _, rec := range domainRecords[domain] {
			rec.ContactID = id
			resolved++
		}
	}

	zap.L().Info("pipeline: contact resolution complete",
		zap.Int("domains", len(domains)),
		zap.Int("resolved_records", resolved),
	)
	return set
}

// pickContact ranks the candidates by seniority. A single candidate wins
// outright; a ranking failure falls back to the first candidate rather than
// dropping the company.
func (r *ContactResolver) pickContact(ctx context.Context, candidates []apollo.Person) string {
	if len(candidates) == 0 {
		return ""
	}
	if len(candidates) == 1 {
		return candidates[0].ID
	}

	type rankedPerson struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	people := make([]rankedPerson, len(candidates))
	valid := make(map[string]struct{}, len(candidates))
	for i, c := range candidates {
		people[i] = rankedPerson{ID: c.ID, Title: c.Title}
		valid[c.ID] = struct{}{}
	}
	payload, err := json.Marshal(people)
	if err != nil {
		return candidates[0].ID
	}

	resp, err := r.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: 256,
		System:    rankContactPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: string(payload)},
		},
	})
	if err != nil {
		zap.L().Warn("pipeline: contact ranking failed, using first candidate",
			zap.Error(err),
		)
		return candidates[0].ID
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &result); err != nil {
		return candidates[0].ID
	}
	if _, ok := valid[result.ID]; !ok {
		return candidates[0].ID
	}
	return result.ID
}

// NormalizeDomain reduces a website URL to its bare registrable host:
// scheme, "www." prefix, path, and port are stripped, and the host is
// lowercased. Returns "" for unparseable input.
func NormalizeDomain(website string) string {
	s := strings.TrimSpace(website)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") {
		return ""
	}
	return host
}
