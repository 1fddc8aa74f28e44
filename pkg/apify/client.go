// Package apify implements the business-directory search client on top of
// the Apify Google Maps scraper actor. One synchronous actor run returns the
// candidate businesses for a single business type + locality query.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"
	defaultActorID = "nwua9Gu5YrADL7ZDj"
)

// Client runs directory searches against the actor.
type Client interface {
	SearchPlaces(ctx context.Context, businessType, locationQuery string) ([]Place, error)
}

// Place is one directory hit. Optional fields are empty strings.
type Place struct {
	Title   string `json:"title"`
	Address string `json:"address"`
	Website string `json:"website"`
	Phone   string `json:"phoneUnformatted"`
}

// actorInput is the actor's run input. Field names and values mirror the
// scraper actor's contract.
type actorInput struct {
	SearchStringsArray        []string `json:"searchStringsArray"`
	LocationQuery             string   `json:"locationQuery"`
	MaxCrawledPlacesPerSearch int      `json:"maxCrawledPlacesPerSearch"`
	Language                  string   `json:"language"`
	MaxImages                 int      `json:"maxImages"`
	ScrapeImageAuthors        bool     `json:"scrapeImageAuthors"`
	OnlyDataFromSearchPage    bool     `json:"onlyDataFromSearchPage"`
	IncludeWebResults         bool     `json:"includeWebResults"`
	ScrapeDirectories         bool     `json:"scrapeDirectories"`
	DeeperCityScrape          bool     `json:"deeperCityScrape"`
	SearchMatching            string   `json:"searchMatching"`
	SkipClosedPlaces          bool     `json:"skipClosedPlaces"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithActorID overrides the default scraper actor.
func WithActorID(id string) Option {
	return func(c *httpClient) {
		c.actorID = id
	}
}

// WithMaxPlaces caps the number of places crawled per search.
func WithMaxPlaces(n int) Option {
	return func(c *httpClient) {
		c.maxPlaces = n
	}
}

// WithTimeout overrides the per-run HTTP timeout. Actor runs are slow, so
// the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	token     string
	baseURL   string
	actorID   string
	maxPlaces int
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates an Apify actor client. Runs are rate limited to stay
// inside the platform's concurrent-run allowance.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:     token,
		baseURL:   defaultBaseURL,
		actorID:   defaultActorID,
		maxPlaces: 50,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 7),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SearchPlaces runs the actor synchronously and returns the dataset items of
// the finished run.
func (c *httpClient) SearchPlaces(ctx context.Context, businessType, locationQuery string) ([]Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "apify: rate limit wait")
	}

	input := actorInput{
		SearchStringsArray:        []string{businessType},
		LocationQuery:             locationQuery,
		MaxCrawledPlacesPerSearch: c.maxPlaces,
		Language:                  "en",
		ScrapeDirectories:         true,
		DeeperCityScrape:          true,
		SearchMatching:            "all",
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "apify: marshal actor input")
	}

	endpoint := c.baseURL + "/acts/" + url.PathEscape(c.actorID) + "/run-sync-get-dataset-items?token=" + url.QueryEscape(c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "apify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "apify: run actor")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apify: read response")
	}

	// run-sync endpoints answer 201 on success.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, eris.Errorf("apify: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var places []Place
	if err := json.Unmarshal(respBody, &places); err != nil {
		return nil, eris.Wrap(err, "apify: unmarshal dataset items")
	}

	return places, nil
}
