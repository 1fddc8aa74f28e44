package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/apify"
)

func subAreas(names ...string) []model.SubArea {
	out := make([]model.SubArea, len(names))
	for i, n := range names {
		out[i] = model.SubArea{Name: n}
	}
	return out
}

func TestScrape_CollectsAcrossSubAreas(t *testing.T) {
	directory := &fakeApify{placesFn: func(_, loc string) ([]apify.Place, error) {
		return []apify.Place{{Title: "Biz in " + loc, Address: " 1 Main St "}}, nil
	}}

	set := NewScraper(directory, 7).Scrape(context.Background(), "plumbers", subAreas("Bondi", "Manly", "Ryde"))

	require.Equal(t, 3, set.Len())
	assert.Equal(t, 3, directory.calls)
	// Fields come back trimmed.
	assert.Equal(t, "1 Main St", set.Records[0].Address)
}

func TestScrape_SkipsNamelessPlaces(t *testing.T) {
	directory := &fakeApify{placesFn: func(_, _ string) ([]apify.Place, error) {
		return []apify.Place{
			{Title: "  "},
			{Title: "Real Business"},
		}, nil
	}}

	set := NewScraper(directory, 7).Scrape(context.Background(), "cafes", subAreas("Bondi"))
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "Real Business", set.Records[0].CompanyName)
}

func TestScrape_FailedSubAreaIsAbsorbed(t *testing.T) {
	directory := &fakeApify{placesFn: func(_, loc string) ([]apify.Place, error) {
		if loc == "Manly" {
			return nil, fmt.Errorf("actor run failed")
		}
		return []apify.Place{{Title: "Biz in " + loc}}, nil
	}}

	set := NewScraper(directory, 7).Scrape(context.Background(), "plumbers", subAreas("Bondi", "Manly", "Ryde"))
	assert.Equal(t, 2, set.Len())
}

func TestScrape_BoundsConcurrency(t *testing.T) {
	directory := &fakeApify{placesFn: func(_, _ string) ([]apify.Place, error) {
		return nil, nil
	}}

	var areas []model.SubArea
	for i := 0; i < 30; i++ {
		areas = append(areas, model.SubArea{Name: fmt.Sprintf("Area %d", i)})
	}

	NewScraper(directory, 7).Scrape(context.Background(), "cafes", areas)
	assert.LessOrEqual(t, directory.peak, 7)
	assert.Equal(t, 30, directory.calls)
}
