package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/config"
)

const jinaSearchURL = "https://s.jina.ai/"

// teamPaths are the pages most likely to list named employees.
var teamPaths = []string{"/team", "/about", "/about-us", "/contact", "/our-team", "/people"}

// Jina scrapes company websites through the Jina Reader proxy and
// mines the rendered markdown for personal email addresses.
type Jina struct {
	readerURL string
	apiKey    string
	client    *http.Client
}

func NewJina(cfg *config.Config) *Jina {
	return &Jina{
		readerURL: cfg.JinaAPIURL,
		apiKey:    cfg.JinaAPIKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *Jina) Name() string  { return "jina" }
func (p *Jina) Priority() int { return 3 }

func (p *Jina) Search(ctx context.Context, criteria SearchCriteria) (*Result, error) {
	if len(criteria.CompanyDomains) == 0 {
		return p.searchByKeywords(ctx, criteria)
	}

	result := &Result{}
	domains := criteria.CompanyDomains
	if len(domains) > criteria.Limit {
		domains = domains[:criteria.Limit]
	}
	for _, domain := range domains {
		scraped, err := p.scrapeCompany(ctx, domain)
		if err != nil {
			return nil, err
		}
		result.Leads = append(result.Leads, scraped.Leads...)
		result.Errors = append(result.Errors, scraped.Errors...)
		result.CreditsConsumed += scraped.CreditsConsumed
	}

	result.TotalFound = len(result.Leads)
	if len(result.Leads) > criteria.Limit {
		result.Leads = result.Leads[:criteria.Limit]
	}
	return result, nil
}

// scrapeCompany tries the common team page paths in order and stops at
// the first page that yields contacts.
func (p *Jina) scrapeCompany(ctx context.Context, domain string) (*Result, error) {
	result := &Result{}
	for _, path := range teamPaths {
		target := fmt.Sprintf("https://%s%s", domain, path)
		content, status, err := p.fetch(ctx, p.readerURL+"/"+target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Errors = append(result.Errors, fmt.Sprintf("Jina scrape error for %s: %v", target, err))
			continue
		}
		result.CreditsConsumed += 1.0
		if status != http.StatusOK {
			continue
		}

		result.Leads = append(result.Leads, extractLeads(content, domain, p.Name())...)
		if len(result.Leads) > 0 {
			break
		}
	}
	result.TotalFound = len(result.Leads)
	return result, nil
}

func (p *Jina) searchByKeywords(ctx context.Context, criteria SearchCriteria) (*Result, error) {
	var parts []string
	if criteria.Industry != "" {
		parts = append(parts, criteria.Industry)
	}
	if len(criteria.JobTitles) > 0 {
		parts = append(parts, strings.Join(criteria.JobTitles, " "))
	}
	if len(criteria.Keywords) > 0 {
		parts = append(parts, strings.Join(criteria.Keywords, " "))
	}
	if len(parts) == 0 {
		return &Result{Errors: []string{"No search criteria provided for Jina"}}, nil
	}

	query := strings.Join(parts, " ") + " team contact email"
	content, status, err := p.fetch(ctx, jinaSearchURL+"?q="+url.QueryEscape(query))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Result{Errors: []string{fmt.Sprintf("Jina search error: %v", err)}}, nil
	}
	if status != http.StatusOK {
		return &Result{
			Errors:          []string{fmt.Sprintf("Jina search returned %d", status)},
			CreditsConsumed: 1.0,
		}, nil
	}

	leads := extractLeads(content, "", p.Name())
	result := &Result{
		Leads:           leads,
		TotalFound:      len(leads),
		CreditsConsumed: 1.0,
	}
	if len(result.Leads) > criteria.Limit {
		result.Leads = result.Leads[:criteria.Limit]
	}
	return result, nil
}

func (p *Jina) fetch(ctx context.Context, target string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Accept", "text/plain")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	return string(content), resp.StatusCode, nil
}

func (p *Jina) HealthCheck(ctx context.Context) bool {
	_, status, err := p.fetch(ctx, p.readerURL+"/https://example.com")
	return err == nil && status == http.StatusOK
}

func (p *Jina) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
