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

const clayRunsURL = "https://api.clay.com/v1/runs/"

// Clay pushes search criteria into a webhook-fed enrichment table.
// Results may come back inline or behind a run id that needs polling.
type Clay struct {
	webhookURL string
	apiKey     string
	client     *http.Client

	pollInterval time.Duration
	pollMax      time.Duration
}

func NewClay(cfg *config.Config) *Clay {
	return &Clay{
		webhookURL:   cfg.ClayWebhookURL,
		apiKey:       cfg.ClayAPIKey,
		client:       &http.Client{Timeout: 60 * time.Second},
		pollInterval: 10 * time.Second,
		pollMax:      180 * time.Second,
	}
}

func (p *Clay) Name() string  { return "clay" }
func (p *Clay) Priority() int { return 2 }

type clayResponse struct {
	Results []map[string]any `json:"results"`
	Rows    []map[string]any `json:"rows"`
	RunID   string           `json:"run_id"`
	ID      string           `json:"id"`
	Status  string           `json:"status"`
	Error   string           `json:"error"`
}

func (p *Clay) Search(ctx context.Context, criteria SearchCriteria) (*Result, error) {
	if p.webhookURL == "" {
		return &Result{Errors: []string{"Clay webhook URL not configured"}}, nil
	}

	body, _ := json.Marshal(criteria)
	resp, err := p.do(ctx, http.MethodPost, p.webhookURL, body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Result{Errors: []string{fmt.Sprintf("Clay connection error: %v", err)}}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &Result{Errors: []string{fmt.Sprintf("Clay webhook error: %d", resp.StatusCode)}}, nil
	}

	var parsed clayResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return &Result{Errors: []string{fmt.Sprintf("Clay response parse error: %v", err)}}, nil
	}

	// A pre-configured table answers inline, otherwise we get a run id.
	if len(parsed.Results) > 0 || len(parsed.Rows) > 0 {
		return p.parseRows(parsed), nil
	}

	runID := firstOf(parsed.RunID, parsed.ID)
	if runID != "" && p.apiKey != "" {
		return p.pollRun(ctx, runID)
	}

	return &Result{Errors: []string{"Clay webhook accepted - results will arrive asynchronously"}}, nil
}

func (p *Clay) parseRows(parsed clayResponse) *Result {
	rows := parsed.Results
	if len(rows) == 0 {
		rows = parsed.Rows
	}

	var leads []Lead
	for _, row := range rows {
		email := pick(row, "email", "work_email", "Email", "Work Email")
		if email == "" {
			continue
		}
		leads = append(leads, Lead{
			Email:          email,
			FirstName:      pick(row, "first_name", "First Name"),
			LastName:       pick(row, "last_name", "Last Name"),
			CompanyName:    pick(row, "company", "Company"),
			CompanyDomain:  pick(row, "domain", "Company Domain"),
			Title:          pick(row, "title", "Title", "Job Title"),
			LinkedInURL:    pick(row, "linkedin_url", "LinkedIn URL"),
			Phone:          pick(row, "phone", "Phone"),
			Location:       pick(row, "location", "Location"),
			Industry:       pick(row, "industry", "Industry"),
			SourceProvider: p.Name(),
		})
	}
	return &Result{
		Leads:      leads,
		TotalFound: len(leads),
		// Clay averages about two credits per enriched row.
		CreditsConsumed: float64(len(leads)) * 2.0,
	}
}

func (p *Clay) pollRun(ctx context.Context, runID string) (*Result, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	deadline := time.Now().Add(p.pollMax)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		resp, err := p.do(ctx, http.MethodGet, clayRunsURL+runID, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			continue
		}

		var parsed clayResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if decodeErr != nil {
			continue
		}

		switch parsed.Status {
		case "completed", "done":
			return p.parseRows(parsed), nil
		case "failed", "error":
			reason := parsed.Error
			if reason == "" {
				reason = "unknown"
			}
			return &Result{Errors: []string{fmt.Sprintf("Clay run %s failed: %s", runID, reason)}}, nil
		}
	}

	return &Result{Errors: []string{fmt.Sprintf("Clay run %s timed out after %s", runID, p.pollMax)}}, nil
}

func (p *Clay) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	return p.client.Do(req)
}

func (p *Clay) HealthCheck(ctx context.Context) bool {
	return p.webhookURL != ""
}

func (p *Clay) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// pick returns the first key in the row that holds a non-empty string.
func pick(row map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
