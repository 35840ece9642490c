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

// TestAIArkSearch tests the search round trip against a stub API.
func TestAIArkSearch(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/people/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"id": "p-1", "work_email": "jane@acme.com",
					"first_name": "Jane", "company": "Acme", "job_title": "CTO",
				},
				{"id": "p-2", "first_name": "NoEmail"},
			},
			"total": 40,
		})
	}))
	defer srv.Close()

	p := NewAIArk(&config.Config{AIArkAPIURL: srv.URL, AIArkAPIKey: "test-key"})
	result, err := p.Search(context.Background(), SearchCriteria{
		JobTitles: []string{"CTO"},
		Industry:  "saas",
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotPayload["industry"] != "saas" {
		t.Errorf("criteria not forwarded: %v", gotPayload)
	}
	if len(result.Leads) != 1 {
		t.Fatalf("expected 1 lead (email-less rows dropped), got %d", len(result.Leads))
	}
	lead := result.Leads[0]
	if lead.Email != "jane@acme.com" || lead.CompanyName != "Acme" || lead.Title != "CTO" {
		t.Errorf("alternate keys not picked up: %+v", lead)
	}
	if lead.SourceProvider != "ai_ark" || lead.SourceID != "p-1" {
		t.Errorf("provenance wrong: %+v", lead)
	}
	if result.TotalFound != 40 {
		t.Errorf("expected reported total 40, got %d", result.TotalFound)
	}
	if result.CreditsConsumed != 1 {
		t.Errorf("expected 1 credit per lead, got %v", result.CreditsConsumed)
	}
}

// TestAIArkSearchNoKey tests the unconfigured-key shape.
func TestAIArkSearchNoKey(t *testing.T) {
	p := NewAIArk(&config.Config{AIArkAPIURL: "http://unused"})
	result, err := p.Search(context.Background(), SearchCriteria{Limit: 5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "not configured") {
		t.Errorf("expected configuration error, got %v", result.Errors)
	}
	if len(result.Leads) != 0 || result.CreditsConsumed != 0 {
		t.Errorf("unconfigured search must be free and empty: %+v", result)
	}
}

// TestAIArkSearchHTTPError tests that API failures become result
// errors, not Go errors.
func TestAIArkSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewAIArk(&config.Config{AIArkAPIURL: srv.URL, AIArkAPIKey: "test-key"})
	result, err := p.Search(context.Background(), SearchCriteria{Limit: 5})
	if err != nil {
		t.Fatalf("Search should not error on HTTP failure: %v", err)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "429") {
		t.Errorf("expected status error, got %v", result.Errors)
	}
}

// TestAIArkSearchCancelled tests that cancellation surfaces as the Go
// error.
func TestAIArkSearchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := NewAIArk(&config.Config{AIArkAPIURL: srv.URL, AIArkAPIKey: "test-key"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Search(ctx, SearchCriteria{Limit: 5}); err == nil {
		t.Fatal("expected context error for cancelled search")
	}
}

// TestAIArkHealthCheck tests reachability classification.
func TestAIArkHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewAIArk(&config.Config{AIArkAPIURL: srv.URL, AIArkAPIKey: "test-key"})
	if !p.HealthCheck(context.Background()) {
		t.Error("expected healthy")
	}

	keyless := NewAIArk(&config.Config{AIArkAPIURL: srv.URL})
	if keyless.HealthCheck(context.Background()) {
		t.Error("expected unhealthy without a key")
	}
}
