package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/config"
)

// AIArk is a B2B contact database with structured people search. It is
// the cheapest external source and runs first in the cascade.
type AIArk struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewAIArk(cfg *config.Config) *AIArk {
	return &AIArk{
		apiURL: cfg.AIArkAPIURL,
		apiKey: cfg.AIArkAPIKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *AIArk) Name() string  { return "ai_ark" }
func (p *AIArk) Priority() int { return 1 }

type aiArkPerson struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	WorkEmail     string `json:"work_email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	CompanyName   string `json:"company_name"`
	Company       string `json:"company"`
	CompanyDomain string `json:"company_domain"`
	Domain        string `json:"domain"`
	Title         string `json:"title"`
	JobTitle      string `json:"job_title"`
	LinkedInURL   string `json:"linkedin_url"`
	LinkedIn      string `json:"linkedin"`
	Phone         string `json:"phone"`
	Mobile        string `json:"mobile"`
	Location      string `json:"location"`
	City          string `json:"city"`
	Industry      string `json:"industry"`
	CompanySize   string `json:"company_size"`
	Employees     string `json:"employees"`
}

type aiArkResponse struct {
	Results []aiArkPerson `json:"results"`
	Data    []aiArkPerson `json:"data"`
	Total   int           `json:"total"`
}

func (p *AIArk) Search(ctx context.Context, criteria SearchCriteria) (*Result, error) {
	if p.apiKey == "" {
		return &Result{Errors: []string{"AI Ark API key not configured"}}, nil
	}

	payload := map[string]any{"limit": criteria.Limit}
	if len(criteria.JobTitles) > 0 {
		payload["job_titles"] = criteria.JobTitles
	}
	if criteria.Industry != "" {
		payload["industry"] = criteria.Industry
	}
	if len(criteria.Locations) > 0 {
		payload["locations"] = criteria.Locations
	}
	if len(criteria.CompanySizes) > 0 {
		payload["company_sizes"] = criteria.CompanySizes
	}
	if len(criteria.Keywords) > 0 {
		payload["keywords"] = criteria.Keywords
	}
	if len(criteria.CompanyDomains) > 0 {
		payload["company_domains"] = criteria.CompanyDomains
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/people/search", bytes.NewReader(body))
	if err != nil {
		return &Result{Errors: []string{fmt.Sprintf("AI Ark request error: %v", err)}}, nil
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Result{Errors: []string{fmt.Sprintf("AI Ark connection error: %v", err)}}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &Result{Errors: []string{fmt.Sprintf("AI Ark API error: %d", resp.StatusCode)}}, nil
	}

	var parsed aiArkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return &Result{Errors: []string{fmt.Sprintf("AI Ark response parse error: %v", err)}}, nil
	}

	people := parsed.Results
	if len(people) == 0 {
		people = parsed.Data
	}

	var leads []Lead
	for _, item := range people {
		email := firstOf(item.Email, item.WorkEmail)
		if email == "" {
			continue
		}
		leads = append(leads, Lead{
			Email:          email,
			FirstName:      item.FirstName,
			LastName:       item.LastName,
			CompanyName:    firstOf(item.CompanyName, item.Company),
			CompanyDomain:  firstOf(item.CompanyDomain, item.Domain),
			Title:          firstOf(item.Title, item.JobTitle),
			LinkedInURL:    firstOf(item.LinkedInURL, item.LinkedIn),
			Phone:          firstOf(item.Phone, item.Mobile),
			Location:       firstOf(item.Location, item.City),
			Industry:       item.Industry,
			CompanySize:    firstOf(item.CompanySize, item.Employees),
			SourceProvider: p.Name(),
			SourceID:       item.ID,
		})
	}

	total := parsed.Total
	if total == 0 {
		total = len(leads)
	}
	return &Result{
		Leads:           leads,
		TotalFound:      total,
		CreditsConsumed: float64(len(leads)),
	}, nil
}

func (p *AIArk) HealthCheck(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

func (p *AIArk) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// firstOf returns the first non-empty string.
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
