package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/apollo"
)

func TestEnrich_FillsContactFields(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "A", ContactID: "p-1"},
	}}

	people := &fakeApollo{enriched: []apollo.EnrichedPerson{{
		ID:          "p-1",
		FirstName:   "Jordan",
		LastName:    "Smith",
		Email:       "jordan@acme.com",
		Title:       "Owner",
		LinkedInURL: "https://linkedin.com/in/jordansmith",
	}}}

	out := NewEnricher(people, 0, 0).Enrich(context.Background(), set)

	rec := out.Records[0]
	assert.Equal(t, "Jordan", rec.ContactFirstName)
	assert.Equal(t, "Smith", rec.ContactLastName)
	assert.Equal(t, "jordan@acme.com", rec.ContactPersonalEmail)
	assert.Equal(t, "Owner", rec.ContactTitle)
	assert.Equal(t, "https://linkedin.com/in/jordansmith", rec.ContactLinkedInURL)
}

func TestEnrich_NeverDowngradesFields(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{{
		ID:                   "1",
		CompanyName:          "A",
		ContactID:            "p-1",
		ContactFirstName:     "Existing",
		ContactPersonalEmail: "existing@acme.com",
	}}}

	// Enrichment returns empty email and first name but a new title.
	people := &fakeApollo{enriched: []apollo.EnrichedPerson{{
		ID:    "p-1",
		Title: "Managing Director",
	}}}

	out := NewEnricher(people, 0, 0).Enrich(context.Background(), set)

	rec := out.Records[0]
	assert.Equal(t, "Existing", rec.ContactFirstName)
	assert.Equal(t, "existing@acme.com", rec.ContactPersonalEmail)
	assert.Equal(t, "Managing Director", rec.ContactTitle)
}

func TestEnrich_FailedBatchLeavesRecordsUnchanged(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "A", ContactID: "p-1", ContactFirstName: "Kept"},
	}}

	people := &fakeApollo{enrichErr: fmt.Errorf("enrichment down")}
	out := NewEnricher(people, 0, 0).Enrich(context.Background(), set)

	assert.Equal(t, "Kept", out.Records[0].ContactFirstName)
	assert.Empty(t, out.Records[0].ContactPersonalEmail)
}

func TestEnrich_IgnoresMatchesWithoutID(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "A", ContactID: "p-1"},
		{ID: "2", CompanyName: "B"},
	}}

	// A match without an ID must not bleed onto records, in particular not
	// onto records that never had a contact resolved.
	people := &fakeApollo{enrichFn: func(_ []string) ([]apollo.EnrichedPerson, error) {
		return []apollo.EnrichedPerson{{FirstName: "Phantom", Email: "phantom@nowhere.com"}}, nil
	}}

	out := NewEnricher(people, 0, 0).Enrich(context.Background(), set)

	for _, rec := range out.Records {
		assert.Empty(t, rec.ContactFirstName)
		assert.Empty(t, rec.ContactPersonalEmail)
	}
}

func TestEnrich_SkipsRecordsWithoutContact(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "A"},
	}}

	out := NewEnricher(&fakeApollo{}, 0, 0).Enrich(context.Background(), set)
	assert.Empty(t, out.Records[0].ContactFirstName)
}
