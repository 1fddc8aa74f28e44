package pipeline

import (
	"strings"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Deduplicator collapses records that refer to the same business. The
// identity key is the normalized phone number when present, otherwise the
// company name; the first record seen for a key wins. Deduplication runs
// before ID assignment so duplicates never consume identifiers.
type Deduplicator struct {
	region   string
	maxLeads int
}

// NewDeduplicator creates a deduplicator. region is the default phone region
// for numbers without a country prefix (e.g. "AU"). maxLeads caps the
// surviving set; 0 means no cap.
func NewDeduplicator(region string, maxLeads int) *Deduplicator {
	if region == "" {
		region = "AU"
	}
	return &Deduplicator{region: region, maxLeads: maxLeads}
}

// Dedupe returns the deduplicated set in first-seen order, with a fresh
// unique ID assigned to every survivor. maxLeads overrides the configured
// cap for this call; 0 keeps the configured default.
func (d *Deduplicator) Dedupe(set *model.RecordSet, maxLeads int) *model.RecordSet {
	if maxLeads <= 0 {
		maxLeads = d.maxLeads
	}

	seen := make(map[string]struct{}, set.Len())
	out := make([]model.BusinessRecord, 0, set.Len())

	for _, rec := range set.Records {
		key := d.identityKey(rec)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		rec.ID = uuid.New().String()
		out = append(out, rec)

		if maxLeads > 0 && len(out) >= maxLeads {
			zap.L().Info("pipeline: lead cap reached",
				zap.Int("max_leads", maxLeads),
			)
			break
		}
	}

	zap.L().Info("pipeline: dedupe complete",
		zap.Int("before", set.Len()),
		zap.Int("after", len(out)),
	)
	return &model.RecordSet{Records: out}
}

// identityKey derives the dedupe key: E.164 phone when the number parses,
// raw digits when it does not, and the lowercased company name as fallback.
func (d *Deduplicator) identityKey(rec model.BusinessRecord) string {
	if rec.Phone != "" {
		if num, err := phonenumbers.Parse(rec.Phone, d.region); err == nil && phonenumbers.IsValidNumber(num) {
			return "p:" + phonenumbers.Format(num, phonenumbers.E164)
		}
		if digits := digitsOnly(rec.Phone); digits != "" {
			return "p:" + digits
		}
	}
	name := strings.ToLower(strings.TrimSpace(rec.CompanyName))
	if name == "" {
		return ""
	}
	return "n:" + name
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
