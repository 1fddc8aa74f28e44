package location

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/perplexity"
)

const extractSubAreasPrompt = `Extract the list of suburbs from the given text. Respond with a valid JSON object: {"sub_areas": ["<suburb>", ...]}. Include every suburb mentioned, in order, and nothing else.`

// Resolver expands a canonical location into the sub-areas that drive the
// directory scraper. Specific locations resolve to themselves; broad ones go
// through the area-listing service and a structured extraction pass.
type Resolver struct {
	classifier Classifier
	perplexity perplexity.Client
	anthropic  anthropic.Client
	model      string
}

// NewResolver creates an area resolver.
func NewResolver(classifier Classifier, pplx perplexity.Client, ai anthropic.Client, model string) *Resolver {
	return &Resolver{
		classifier: classifier,
		perplexity: pplx,
		anthropic:  ai,
		model:      model,
	}
}

// Resolve classifies the canonical location and, for broad areas, expands it
// into constituent sub-areas. Total expansion failure is fatal to the run:
// no business-level records exist yet, so there is nothing to absorb into.
func (r *Resolver) Resolve(ctx context.Context, canonical string) ([]model.SubArea, error) {
	broad, err := r.classifier.Classify(ctx, canonical)
	if err != nil {
		return nil, eris.Wrap(err, "location: classify location")
	}

	if !broad {
		zap.L().Info("location: specific location, no expansion",
			zap.String("location", canonical),
		)
		return []model.SubArea{{Name: canonical}}, nil
	}

	zap.L().Info("location: broad location, expanding",
		zap.String("location", canonical),
	)

	unstructured, err := r.perplexity.ListSubAreas(ctx, canonical)
	if err != nil {
		return nil, eris.Wrap(err, "location: list sub-areas")
	}

	names, err := r.extractSubAreas(ctx, unstructured)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrAreaExpansion
	}

	subAreas := make([]model.SubArea, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		subAreas = append(subAreas, model.SubArea{Name: name})
	}
	if len(subAreas) == 0 {
		return nil, ErrAreaExpansion
	}

	zap.L().Info("location: expanded into sub-areas",
		zap.String("location", canonical),
		zap.Int("count", len(subAreas)),
	)
	return subAreas, nil
}

// extractSubAreas turns the area-listing service's free text into an ordered
// list of sub-area names.
func (r *Resolver) extractSubAreas(ctx context.Context, unstructured string) ([]string, error) {
	resp, err := r.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: 2048,
		System:    extractSubAreasPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: unstructured},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "location: extract sub-areas")
	}

	var result struct {
		SubAreas []string `json:"sub_areas"`
	}
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &result); err != nil {
		return nil, ErrAreaExpansion
	}
	return result.SubAreas, nil
}
