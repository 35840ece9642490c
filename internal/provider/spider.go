package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/config"
)

// relevantPageWords mark crawled pages worth mining for contacts.
var relevantPageWords = []string{"team", "about", "contact", "people", "staff", "leadership"}

// Spider crawls whole company sites and extracts contacts from the
// pages that look like team or about pages.
type Spider struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewSpider(cfg *config.Config) *Spider {
	return &Spider{
		apiURL: cfg.SpiderAPIURL,
		apiKey: cfg.SpiderAPIKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Spider) Name() string  { return "spider" }
func (p *Spider) Priority() int { return 4 }

type spiderPage struct {
	URL      string `json:"url"`
	Content  string `json:"content"`
	Markdown string `json:"markdown"`
}

func (p *Spider) Search(ctx context.Context, criteria SearchCriteria) (*Result, error) {
	if p.apiKey == "" {
		return &Result{Errors: []string{"Spider API key not configured"}}, nil
	}
	if len(criteria.CompanyDomains) == 0 {
		return &Result{Errors: []string{"Spider requires company_domains to crawl"}}, nil
	}

	result := &Result{}
	domains := criteria.CompanyDomains
	if len(domains) > criteria.Limit {
		domains = domains[:criteria.Limit]
	}
	for _, domain := range domains {
		crawled, err := p.crawlCompany(ctx, domain)
		if err != nil {
			return nil, err
		}
		result.Leads = append(result.Leads, crawled.Leads...)
		result.Errors = append(result.Errors, crawled.Errors...)
		result.CreditsConsumed += crawled.CreditsConsumed
	}

	result.TotalFound = len(result.Leads)
	if len(result.Leads) > criteria.Limit {
		result.Leads = result.Leads[:criteria.Limit]
	}
	return result, nil
}

func (p *Spider) crawlCompany(ctx context.Context, domain string) (*Result, error) {
	payload := map[string]any{
		"url":           "https://" + domain,
		"limit":         10,
		"return_format": "markdown",
		"request":       "smart",
		"depth":         2,
	}
	resp, err := p.post(ctx, p.apiURL+"/crawl", payload)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Result{Errors: []string{fmt.Sprintf("Spider connection error for %s: %v", domain, err)}}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &Result{
			Errors:          []string{fmt.Sprintf("Spider API error for %s: %d", domain, resp.StatusCode)},
			CreditsConsumed: 1.0,
		}, nil
	}

	// Responses are either a bare page list or wrapped in a data key.
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return &Result{Errors: []string{fmt.Sprintf("Spider response parse error for %s: %v", domain, err)}}, nil
	}
	var pages []spiderPage
	if err := json.Unmarshal(raw, &pages); err != nil {
		var wrapped struct {
			Data []spiderPage `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return &Result{Errors: []string{fmt.Sprintf("Spider response parse error for %s: %v", domain, err)}}, nil
		}
		pages = wrapped.Data
	}

	var leads []Lead
	seen := make(map[string]bool)
	for _, page := range pages {
		content := firstOf(page.Content, page.Markdown)
		if !relevantPage(page.URL, content) {
			continue
		}
		for _, lead := range extractLeads(content, domain, p.Name()) {
			if seen[lead.Email] {
				continue
			}
			seen[lead.Email] = true
			leads = append(leads, lead)
		}
	}

	return &Result{
		Leads:           leads,
		TotalFound:      len(leads),
		CreditsConsumed: float64(len(pages)) * 0.5,
	}, nil
}

// relevantPage reports whether a crawled page looks like a team or
// contact page, judged by its URL or the head of its content.
func relevantPage(pageURL, content string) bool {
	urlLower := strings.ToLower(pageURL)
	head := strings.ToLower(content)
	if len(head) > 500 {
		head = head[:500]
	}
	for _, kw := range relevantPageWords {
		if strings.Contains(urlLower, kw) || strings.Contains(head, kw) {
			return true
		}
	}
	return false
}

func (p *Spider) post(ctx context.Context, url string, payload map[string]any) (*http.Response, error) {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return p.client.Do(req)
}

func (p *Spider) HealthCheck(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	resp, err := p.post(ctx, p.apiURL+"/scrape", map[string]any{
		"url":           "https://example.com",
		"return_format": "markdown",
	})
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

func (p *Spider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
