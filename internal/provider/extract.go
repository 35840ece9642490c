package provider

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// genericLocalParts are mailbox names that never identify a person.
var genericLocalParts = map[string]bool{
	"info": true, "support": true, "hello": true, "contact": true,
	"noreply": true, "no-reply": true, "admin": true,
	"sales": true, "marketing": true,
}

// extractLeads pulls personal email addresses out of scraped page
// content. Names are guessed from first.last@ local parts when present.
// The domain overrides the email's own domain when non-empty.
func extractLeads(content, domain, providerName string) []Lead {
	seen := make(map[string]bool)
	var leads []Lead

	for _, email := range emailPattern.FindAllString(content, -1) {
		email = strings.ToLower(email)
		if seen[email] {
			continue
		}
		local, emailDomain, _ := strings.Cut(email, "@")
		if genericLocalParts[local] {
			continue
		}
		seen[email] = true

		lead := Lead{
			Email:          email,
			CompanyDomain:  domain,
			SourceProvider: providerName,
		}
		if lead.CompanyDomain == "" {
			lead.CompanyDomain = emailDomain
		}
		if parts := strings.Split(local, "."); len(parts) > 1 {
			lead.FirstName = capitalize(parts[0])
			lead.LastName = capitalize(parts[len(parts)-1])
		}
		leads = append(leads, lead)
	}
	return leads
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
