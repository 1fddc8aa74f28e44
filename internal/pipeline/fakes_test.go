package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/apify"
	"github.com/sells-group/leadgen-cli/pkg/apollo"
	"github.com/sells-group/leadgen-cli/pkg/perplexity"
)

// fakeAnthropic answers every message with a canned reply, or dispatches on
// the system prompt when replyFn is set.
type fakeAnthropic struct {
	reply   string
	err     error
	replyFn func(req anthropic.MessageRequest) (string, error)
	calls   atomic.Int32
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls.Add(1)
	reply, err := f.reply, f.err
	if f.replyFn != nil {
		reply, err = f.replyFn(req)
	}
	if err != nil {
		return nil, err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: reply}},
	}, nil
}

type fakeApify struct {
	placesFn func(businessType, location string) ([]apify.Place, error)

	mu       sync.Mutex
	inFlight int
	peak     int
	calls    int
}

func (f *fakeApify) SearchPlaces(_ context.Context, businessType, location string) ([]apify.Place, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.placesFn != nil {
		return f.placesFn(businessType, location)
	}
	return nil, nil
}

type fakeApollo struct {
	people    []apollo.Person
	enriched  []apollo.EnrichedPerson
	searchErr error
	enrichErr error

	// enrichFn overrides the canned enriched list when set.
	enrichFn func(ids []string) ([]apollo.EnrichedPerson, error)
}

func (f *fakeApollo) SearchPeople(_ context.Context, domains []string) ([]apollo.Person, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	want := make(map[string]bool, len(domains))
	for _, d := range domains {
		want[d] = true
	}
	var out []apollo.Person
	for _, p := range f.people {
		if want[p.Domain] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeApollo) BulkEnrich(_ context.Context, ids []string) ([]apollo.EnrichedPerson, error) {
	if f.enrichErr != nil {
		return nil, f.enrichErr
	}
	if f.enrichFn != nil {
		return f.enrichFn(ids)
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []apollo.EnrichedPerson
	for _, p := range f.enriched {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakePerplexity struct {
	answer string
	err    error
}

func (f *fakePerplexity) ChatCompletion(_ context.Context, _ perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	return nil, f.err
}

func (f *fakePerplexity) ListSubAreas(_ context.Context, _ string) (string, error) {
	return f.answer, f.err
}

// memStore is an in-memory Store for pipeline tests.
type memStore struct {
	mu        sync.Mutex
	runs      map[string]*model.Run
	snapshots map[string]*model.RecordSet
	report    *model.ReportMeta
	cleared   bool
}

func newMemStore() *memStore {
	return &memStore{
		runs:      make(map[string]*model.Run),
		snapshots: make(map[string]*model.RecordSet),
	}
}

func (m *memStore) CreateRun(_ context.Context, businessType, location string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := &model.Run{
		ID:           "run-1",
		BusinessType: businessType,
		Location:     location,
		Status:       model.RunStatusQueued,
	}
	m.runs[run.ID] = run
	return run, nil
}

func (m *memStore) UpdateRunStatus(_ context.Context, runID string, status model.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[runID]; ok {
		run.Status = status
	}
	return nil
}

func (m *memStore) UpdateRunOutcome(_ context.Context, runID string, outcome *model.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[runID]; ok {
		run.Outcome = outcome
	}
	return nil
}

func (m *memStore) GetRun(_ context.Context, runID string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[runID], nil
}

func (m *memStore) SaveRecords(_ context.Context, runID, stage string, set *model.RecordSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[runID+"/"+stage] = set
	return nil
}

func (m *memStore) LoadRecords(_ context.Context, runID, stage string) (*model.RecordSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[runID+"/"+stage], nil
}

func (m *memStore) SaveReportMeta(_ context.Context, _ string, meta model.ReportMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.report = &meta
	return nil
}

func (m *memStore) LatestReportMeta(_ context.Context) (*model.ReportMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.report, nil
}

func (m *memStore) ClearReportMeta(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.report = nil
	m.cleared = true
	return nil
}

func (m *memStore) Migrate(_ context.Context) error { return nil }
func (m *memStore) Close() error                    { return nil }
