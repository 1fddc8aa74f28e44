// Package apollo implements the people-search and contact-enrichment client.
// The pipeline searches people by company website domain, then enriches the
// selected person IDs in bulk to obtain verified contact fields.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.apollo.io"

// Client defines the people-search service operations used by the pipeline.
type Client interface {
	SearchPeople(ctx context.Context, domains []string) ([]Person, error)
	BulkEnrich(ctx context.Context, ids []string) ([]EnrichedPerson, error)
}

// Person is a people-search hit: enough to rank seniority and key the
// enrichment call, nothing more.
type Person struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Domain string `json:"domain"`
}

// EnrichedPerson carries the verified contact fields for a matched person.
type EnrichedPerson struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Title       string `json:"title"`
	LinkedInURL string `json:"linkedin_url"`
}

type searchRequest struct {
	OrganizationDomains []string `json:"q_organization_domains"`
	PerPage             int      `json:"per_page"`
}

type searchResponse struct {
	People []struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Organization struct {
			PrimaryDomain string `json:"primary_domain"`
		} `json:"organization"`
	} `json:"people"`
}

type bulkMatchRequest struct {
	Details []bulkMatchDetail `json:"details"`
}

type bulkMatchDetail struct {
	ID string `json:"id"`
}

type bulkMatchResponse struct {
	Matches []EnrichedPerson `json:"matches"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Apollo API client rate limited to the service's
// per-minute allowance.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SearchPeople searches people across the given organization domains.
func (c *httpClient) SearchPeople(ctx context.Context, domains []string) ([]Person, error) {
	var resp searchResponse
	err := c.post(ctx, "/v1/mixed_people/search", searchRequest{
		OrganizationDomains: domains,
		PerPage:             100,
	}, &resp)
	if err != nil {
		return nil, err
	}

	people := make([]Person, 0, len(resp.People))
	for _, p := range resp.People {
		people = append(people, Person{
			ID:     p.ID,
			Title:  p.Title,
			Domain: p.Organization.PrimaryDomain,
		})
	}
	return people, nil
}

// BulkEnrich resolves verified contact fields for up to ten person IDs in a
// single call.
func (c *httpClient) BulkEnrich(ctx context.Context, ids []string) ([]EnrichedPerson, error) {
	details := make([]bulkMatchDetail, len(ids))
	for i, id := range ids {
		details[i] = bulkMatchDetail{ID: id}
	}

	var resp bulkMatchResponse
	if err := c.post(ctx, "/v1/people/bulk_match", bulkMatchRequest{Details: details}, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "apollo: rate limit wait")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "apollo: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "apollo: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "apollo: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "apollo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("apollo: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "apollo: unmarshal response")
	}
	return nil
}
