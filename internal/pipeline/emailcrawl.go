package pipeline

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pool"
)

const (
	crawlMaxPages     = 40
	crawlConcurrency  = 5
	crawlFetchTimeout = 10 * time.Second
)

// seedPaths are the pages most likely to carry a contact address, queued
// after the homepage before any discovered links.
var seedPaths = []string{"/contact", "/contact-us", "/about", "/about-us", "/team"}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// assetExtensions are filename suffixes that produce false email matches,
// e.g. "logo@2x.png" in a srcset attribute.
var assetExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".woff", ".woff2", ".ttf", ".eot", ".mp4", ".webm", ".pdf",
}

// EmailCrawler fills the general email field for records that finished
// enrichment without any email. Each website gets a bounded breadth-first
// crawl that stops at the first plausible address.
type EmailCrawler struct {
	http        *http.Client
	maxPages    int
	concurrency int
}

// NewEmailCrawler creates a website email crawler. Zero maxPages or
// concurrency selects the defaults of 40 and 5.
func NewEmailCrawler(hc *http.Client, maxPages, concurrency int) *EmailCrawler {
	if hc == nil {
		hc = &http.Client{Timeout: crawlFetchTimeout}
	}
	if maxPages <= 0 {
		maxPages = crawlMaxPages
	}
	if concurrency <= 0 {
		concurrency = crawlConcurrency
	}
	return &EmailCrawler{http: hc, maxPages: maxPages, concurrency: concurrency}
}

// Crawl visits the websites of email-less records concurrently and writes the
// first discovered address into the general email field. A site that yields
// nothing, times out, or cannot be parsed leaves its record unchanged.
func (c *EmailCrawler) Crawl(ctx context.Context, set *model.RecordSet) *model.RecordSet {
	var targets []*model.BusinessRecord
	for i := range set.Records {
		rec := &set.Records[i]
		if rec.Website != "" && !rec.HasAnyEmail() {
			targets = append(targets, rec)
		}
	}
	if len(targets) == 0 {
		return set
	}

	pool.Each(ctx, targets, c.concurrency, func(ctx context.Context, rec *model.BusinessRecord) error {
		email, err := c.crawlSite(ctx, rec.Website)
		if err != nil {
			return eris.Wrapf(err, "crawl %s", rec.Website)
		}
		if email != "" {
			rec.ContactGeneralEmail = email
		}
		return nil
	})

	found := 0
	for _, rec := range targets {
		if rec.ContactGeneralEmail != "" {
			found++
		}
	}
	zap.L().Info("pipeline: email crawl complete",
		zap.Int("sites", len(targets)),
		zap.Int("emails_found", found),
	)
	return set
}

// crawlSite runs a breadth-first crawl rooted at the site's homepage,
// bounded by the page budget and restricted to same-origin links. It returns
// the first email found, or "" when the budget is exhausted.
func (c *EmailCrawler) crawlSite(ctx context.Context, website string) (string, error) {
	root, err := normalizeRoot(website)
	if err != nil {
		return "", err
	}

	queue := []string{root.String()}
	for _, p := range seedPaths {
		u := *root
		u.Path = p
		queue = append(queue, u.String())
	}

	visited := make(map[string]struct{})
	fetched := 0

	for len(queue) > 0 && fetched < c.maxPages {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		pageURL := queue[0]
		queue = queue[1:]

		key := canonicalKey(pageURL)
		if _, done := visited[key]; done {
			continue
		}
		visited[key] = struct{}{}

		doc, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			// Unreachable pages spend budget like any other; a site that is
			// entirely down exhausts its seeds and returns empty.
			fetched++
			continue
		}
		fetched++

		if email := extractEmail(doc); email != "" {
			return email, nil
		}

		for _, link := range extractLinks(doc, root) {
			if _, done := visited[canonicalKey(link)]; !done {
				queue = append(queue, link)
			}
		}
	}

	return "", nil
}

func (c *EmailCrawler) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	reqCtx, cancel := context.WithTimeout(ctx, crawlFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; leadgen-cli)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("unexpected status %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "text/html") {
		return nil, eris.Errorf("non-html content type %s", ct)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// extractEmail scans mailto links first, then the page text, returning the
// first match that is not an asset filename.
func extractEmail(doc *goquery.Document) string {
	var found string
	doc.Find("a[href^='mailto:']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if isPlausibleEmail(addr) {
			found = addr
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	for _, m := range emailPattern.FindAllString(doc.Text(), -1) {
		if isPlausibleEmail(m) {
			return m
		}
	}
	return ""
}

func isPlausibleEmail(addr string) bool {
	addr = strings.TrimSpace(addr)
	if !emailPattern.MatchString(addr) {
		return false
	}
	lower := strings.ToLower(addr)
	for _, ext := range assetExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// extractLinks returns the absolute same-origin links on the page.
func extractLinks(doc *goquery.Document, root *url.URL) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		u, err := root.Parse(href)
		if err != nil {
			return
		}
		if u.Hostname() != root.Hostname() {
			return
		}
		u.Fragment = ""
		links = append(links, u.String())
	})
	return links
}

// normalizeRoot parses the website into its origin URL.
func normalizeRoot(website string) (*url.URL, error) {
	s := strings.TrimSpace(website)
	if s == "" {
		return nil, eris.New("empty website")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, eris.Wrap(err, "parse website")
	}
	if u.Hostname() == "" {
		return nil, eris.New("website has no host")
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// canonicalKey normalizes a URL for the visited set: trailing slash and
// fragment insensitive.
func canonicalKey(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	u.Fragment = ""
	key := strings.TrimSuffix(u.String(), "/")
	return strings.ToLower(key)
}
