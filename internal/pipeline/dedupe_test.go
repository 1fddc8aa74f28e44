package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func TestDedupe_PhoneKeyWins(t *testing.T) {
	// Same number in different formats collapses to one record.
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{CompanyName: "Joe's Plumbing", Phone: "+61 2 9876 5432"},
		{CompanyName: "Joes Plumbing Pty Ltd", Phone: "(02) 9876 5432"},
		{CompanyName: "Jane's Electrical", Phone: "+61 2 1234 5678"},
	}}

	out := NewDeduplicator("AU", 0).Dedupe(set, 0)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, "Joe's Plumbing", out.Records[0].CompanyName)
	assert.Equal(t, "Jane's Electrical", out.Records[1].CompanyName)
}

func TestDedupe_NameFallbackWhenNoPhone(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{CompanyName: "Acme Bakery", Address: "1 Main St"},
		{CompanyName: "acme bakery", Address: "2 Side St"},
		{CompanyName: "Other Bakery"},
	}}

	out := NewDeduplicator("AU", 0).Dedupe(set, 0)

	require.Equal(t, 2, out.Len())
	// First occurrence wins, address included.
	assert.Equal(t, "1 Main St", out.Records[0].Address)
}

func TestDedupe_PhoneBeatsName(t *testing.T) {
	// Different names with the same phone are the same business.
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{CompanyName: "Trading Name", Phone: "0298765432"},
		{CompanyName: "Registered Name", Phone: "0298765432"},
	}}

	out := NewDeduplicator("AU", 0).Dedupe(set, 0)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "Trading Name", out.Records[0].CompanyName)
}

func TestDedupe_AssignsUniqueIDs(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{CompanyName: "A"},
		{CompanyName: "B"},
		{CompanyName: "C"},
	}}

	out := NewDeduplicator("AU", 0).Dedupe(set, 0)

	seen := make(map[string]bool)
	for _, rec := range out.Records {
		require.NotEmpty(t, rec.ID)
		assert.False(t, seen[rec.ID], "duplicate ID %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestDedupe_RespectsLeadCap(t *testing.T) {
	var records []model.BusinessRecord
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		records = append(records, model.BusinessRecord{CompanyName: name})
	}

	out := NewDeduplicator("AU", 3).Dedupe(&model.RecordSet{Records: records}, 0)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, "A", out.Records[0].CompanyName)
	assert.Equal(t, "C", out.Records[2].CompanyName)
}

func TestDedupe_PerCallCapOverridesConfigured(t *testing.T) {
	var records []model.BusinessRecord
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		records = append(records, model.BusinessRecord{CompanyName: name})
	}

	out := NewDeduplicator("AU", 1000).Dedupe(&model.RecordSet{Records: records}, 2)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "B", out.Records[1].CompanyName)
}

func TestDedupe_DropsNamelessPhonelessRecords(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{CompanyName: "  "},
		{CompanyName: "Real Business"},
	}}

	out := NewDeduplicator("AU", 0).Dedupe(set, 0)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "Real Business", out.Records[0].CompanyName)
}
