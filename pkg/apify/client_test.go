package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPlaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acts/test-actor/run-sync-get-dataset-items", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))

		var input actorInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, []string{"plumbers"}, input.SearchStringsArray)
		assert.Equal(t, "Parramatta, Australia", input.LocationQuery)
		assert.Equal(t, 25, input.MaxCrawledPlacesPerSearch)
		assert.Equal(t, "en", input.Language)
		assert.True(t, input.ScrapeDirectories)
		assert.True(t, input.DeeperCityScrape)
		assert.Equal(t, "all", input.SearchMatching)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `[
			{"title": "Acme Plumbing", "address": "1 Main St, Parramatta NSW 2150, Australia", "website": "https://acme.com", "phoneUnformatted": "+61298765432"},
			{"title": "Bravo Plumbing", "address": "2 Side St, Parramatta NSW 2150, Australia"}
		]`)
	}))
	defer srv.Close()

	c := NewClient("test-token",
		WithBaseURL(srv.URL),
		WithActorID("test-actor"),
		WithMaxPlaces(25),
	)

	places, err := c.SearchPlaces(context.Background(), "plumbers", "Parramatta, Australia")
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "Acme Plumbing", places[0].Title)
	assert.Equal(t, "+61298765432", places[0].Phone)
	assert.Empty(t, places[1].Website)
}

func TestSearchPlaces_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "actor run failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("test-token", WithBaseURL(srv.URL))
	_, err := c.SearchPlaces(context.Background(), "plumbers", "Parramatta, Australia")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestSearchPlaces_EmptyDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient("test-token", WithBaseURL(srv.URL))
	places, err := c.SearchPlaces(context.Background(), "plumbers", "Nowhere, Australia")
	require.NoError(t, err)
	assert.Empty(t, places)
}
