package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apqllyqn/lead-disposition/internal/config"
)

// TestSpiderSearch tests a crawl: relevant-page filtering, lead
// extraction, and per-page credit accounting.
func TestSpiderSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crawl" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"url": "https://acme.com/team", "content": "Email jane.doe@acme.com"},
			{"url": "https://acme.com/pricing", "content": "Plans start at $99. Email billing-bot@acme.com"},
		})
	}))
	defer srv.Close()

	p := NewSpider(&config.Config{SpiderAPIURL: srv.URL, SpiderAPIKey: "test-key"})
	result, err := p.Search(context.Background(), SearchCriteria{
		CompanyDomains: []string{"acme.com"},
		Limit:          10,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Leads) != 1 {
		t.Fatalf("expected 1 lead from the team page only, got %v", result.Leads)
	}
	if result.Leads[0].Email != "jane.doe@acme.com" {
		t.Errorf("unexpected lead %+v", result.Leads[0])
	}
	if result.CreditsConsumed != 1.0 {
		t.Errorf("expected 0.5 credits per page, got %v", result.CreditsConsumed)
	}
}

// TestSpiderSearchWrappedResponse tests the data-keyed response shape.
func TestSpiderSearchWrappedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"url": "https://acme.com/about", "markdown": "Write to jane.doe@acme.com"},
			},
		})
	}))
	defer srv.Close()

	p := NewSpider(&config.Config{SpiderAPIURL: srv.URL, SpiderAPIKey: "test-key"})
	result, err := p.Search(context.Background(), SearchCriteria{
		CompanyDomains: []string{"acme.com"},
		Limit:          10,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Leads) != 1 {
		t.Errorf("expected 1 lead from wrapped response, got %v", result.Leads)
	}
}

// TestSpiderSearchNoDomains tests that missing domains is a reported
// error, not a crawl of nothing.
func TestSpiderSearchNoDomains(t *testing.T) {
	p := NewSpider(&config.Config{SpiderAPIURL: "http://unused", SpiderAPIKey: "test-key"})
	result, err := p.Search(context.Background(), SearchCriteria{Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "company_domains") {
		t.Errorf("expected domain requirement error, got %v", result.Errors)
	}
}

// TestRelevantPage tests the team-page heuristic on URL and content.
func TestRelevantPage(t *testing.T) {
	if !relevantPage("https://acme.com/about-us", "nothing here") {
		t.Error("URL with about should match")
	}
	if !relevantPage("https://acme.com/x", "Meet the team behind Acme") {
		t.Error("content mentioning team should match")
	}
	if relevantPage("https://acme.com/pricing", "plans start at $99") {
		t.Error("pricing page should not match")
	}
}
