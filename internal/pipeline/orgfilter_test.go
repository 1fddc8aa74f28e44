package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

func TestOrgFilter_RemovesFlaggedRecords(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "Local Cafe"},
		{ID: "2", CompanyName: "MegaCorp Nationwide"},
		{ID: "3", CompanyName: "Corner Bakery"},
	}}

	ai := &fakeAnthropic{reply: `{"large_ids": ["2"]}`}
	out := NewOrgFilter(ai, "test-model", 0, 0).Filter(context.Background(), set)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, "Local Cafe", out.Records[0].CompanyName)
	assert.Equal(t, "Corner Bakery", out.Records[1].CompanyName)
}

func TestOrgFilter_FailsOpen(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "A"},
		{ID: "2", CompanyName: "B"},
	}}

	ai := &fakeAnthropic{err: fmt.Errorf("service unavailable")}
	out := NewOrgFilter(ai, "test-model", 0, 0).Filter(context.Background(), set)

	assert.Equal(t, 2, out.Len())
}

func TestOrgFilter_UnparseableAnswerFailsOpen(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "A"},
	}}

	ai := &fakeAnthropic{reply: "I think they are all small businesses"}
	out := NewOrgFilter(ai, "test-model", 0, 0).Filter(context.Background(), set)

	assert.Equal(t, 1, out.Len())
}

func TestOrgFilter_IgnoresHallucinatedIDs(t *testing.T) {
	set := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "A"},
		{ID: "2", CompanyName: "B"},
	}}

	ai := &fakeAnthropic{reply: `{"large_ids": ["999", "2"]}`}
	out := NewOrgFilter(ai, "test-model", 0, 0).Filter(context.Background(), set)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, "1", out.Records[0].ID)
}

func TestOrgFilter_BatchesInput(t *testing.T) {
	var records []model.BusinessRecord
	for i := 0; i < 65; i++ {
		records = append(records, model.BusinessRecord{
			ID:          fmt.Sprintf("id-%d", i),
			CompanyName: fmt.Sprintf("Business %d", i),
		})
	}

	ai := &fakeAnthropic{replyFn: func(req anthropic.MessageRequest) (string, error) {
		var batch []orgCandidate
		require.Len(t, req.Messages, 1)
		require.NoError(t, json.Unmarshal([]byte(req.Messages[0].Content), &batch))
		assert.LessOrEqual(t, len(batch), 30)
		return `{"large_ids": []}`, nil
	}}

	out := NewOrgFilter(ai, "test-model", 30, 5).Filter(context.Background(), &model.RecordSet{Records: records})

	assert.Equal(t, 65, out.Len())
	assert.Equal(t, int32(3), ai.calls.Load())
}
