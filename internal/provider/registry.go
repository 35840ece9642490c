package provider

import "github.com/apqllyqn/lead-disposition/internal/config"

// FromConfig builds the providers whose credentials are configured,
// sorted by cascade priority. Jina is gated on its key even though the
// reader proxy works anonymously, so an unconfigured deployment stays
// fully internal.
func FromConfig(cfg *config.Config) []Provider {
	var providers []Provider
	if cfg.AIArkAPIKey != "" {
		providers = append(providers, NewAIArk(cfg))
	}
	if cfg.ClayWebhookURL != "" {
		providers = append(providers, NewClay(cfg))
	}
	if cfg.JinaAPIKey != "" {
		providers = append(providers, NewJina(cfg))
	}
	if cfg.SpiderAPIKey != "" {
		providers = append(providers, NewSpider(cfg))
	}
	return SortByPriority(providers)
}
