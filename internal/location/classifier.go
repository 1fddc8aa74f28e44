package location

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

// Classifier decides whether a location is broad (needs expansion into
// sub-areas) or specific (searchable directly). The static table and the
// LLM-backed implementation are interchangeable.
type Classifier interface {
	Classify(ctx context.Context, location string) (broad bool, err error)
}

//go:embed broad_areas.yaml
var broadAreasYAML []byte

type broadAreaTable struct {
	BroadAreas []string `yaml:"broad_areas"`
}

// StaticClassifier answers from the embedded metro/region table.
type StaticClassifier struct {
	areas map[string]bool
}

// NewStaticClassifier loads the embedded broad-area table.
func NewStaticClassifier() (*StaticClassifier, error) {
	var table broadAreaTable
	if err := yaml.Unmarshal(broadAreasYAML, &table); err != nil {
		return nil, eris.Wrap(err, "location: parse broad area table")
	}

	areas := make(map[string]bool, len(table.BroadAreas))
	for _, a := range table.BroadAreas {
		areas[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return &StaticClassifier{areas: areas}, nil
}

// Classify reports whether the canonical location's locality is in the
// broad-area table. Unknown localities are treated as specific: suburbs and
// small towns vastly outnumber metros, so that is the safe default.
func (c *StaticClassifier) Classify(_ context.Context, location string) (bool, error) {
	locality := strings.ToLower(Locality(location))
	return c.areas[locality], nil
}

const classifySystemPrompt = `Determine if the user input is too broad of a location. Suburbs and small cities are not broad locations; metro areas, whole cities and regions are. Be mindful of typos and synonyms. Respond with a valid JSON object: {"broad": <true|false>}`

// LLMClassifier delegates the broad/specific decision to the classification
// service. Same capability as StaticClassifier, different strategy.
type LLMClassifier struct {
	client anthropic.Client
	model  string
}

// NewLLMClassifier creates a service-backed classifier.
func NewLLMClassifier(client anthropic.Client, model string) *LLMClassifier {
	return &LLMClassifier{client: client, model: model}
}

// Classify asks the classification service whether the location is broad.
func (c *LLMClassifier) Classify(ctx context.Context, location string) (bool, error) {
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: 64,
		System:    classifySystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: strings.ToLower(location)},
		},
	})
	if err != nil {
		return false, eris.Wrap(err, "location: classify")
	}

	var result struct {
		Broad bool `json:"broad"`
	}
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &result); err != nil {
		// An unparseable answer falls back to specific rather than failing
		// the run before any records exist.
		zap.L().Warn("location: unparseable classification, assuming specific",
			zap.String("location", location),
			zap.Error(err),
		)
		return false, nil
	}
	return result.Broad, nil
}
