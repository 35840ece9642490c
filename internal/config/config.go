// Package config loads runtime settings from environment variables.
//
// Every setting has a sane default so a zero-config sqlite deployment
// works out of the box; production deployments set the POSTGRES_*
// variables and provider credentials.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full typed settings surface.
type Config struct {
	// Database.
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	UseSQLite        bool
	SQLitePath       string

	// Cooldown defaults, in days.
	CooldownNoResponseDays    int
	CooldownNeutralReplyDays  int
	CooldownNegativeReplyDays int
	CooldownLostClosedDays    int
	CooldownLinkedInDays      int
	CooldownPhoneDays         int

	// Ownership.
	OwnershipDurationMonths int

	// Campaign fill.
	MaxContactsPerCompany int
	FreshRetouchRatio     float64

	// Data freshness.
	StaleDataMonths int

	// TAM health thresholds, in weeks.
	TAMWarningWeeks  int
	TAMCriticalWeeks int

	// Provider endpoints and credentials.
	AIArkAPIURL    string
	AIArkAPIKey    string
	ClayWebhookURL string
	ClayAPIKey     string
	JinaAPIKey     string
	JinaAPIURL     string
	SpiderAPIKey   string
	SpiderAPIURL   string

	// Waterfall.
	WaterfallEnabled       bool
	WaterfallMaxCredits    float64
	WaterfallProviderOrder string

	// Bridge worker.
	PollInterval  time.Duration
	DefaultVolume int

	// Bridge worker log file; empty means stderr only.
	BridgeLogFile string
}

// Load reads configuration from the environment.
func Load() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_db", "postgres")
	v.SetDefault("postgres_user", "postgres")
	v.SetDefault("postgres_password", "")
	v.SetDefault("use_sqlite", false)
	v.SetDefault("sqlite_path", "disposition.db")

	v.SetDefault("cooldown_no_response_days", 90)
	v.SetDefault("cooldown_neutral_reply_days", 45)
	v.SetDefault("cooldown_negative_reply_days", 180)
	v.SetDefault("cooldown_lost_closed_days", 90)
	v.SetDefault("cooldown_linkedin_days", 30)
	v.SetDefault("cooldown_phone_days", 60)

	v.SetDefault("ownership_duration_months", 12)
	v.SetDefault("max_contacts_per_company", 3)
	v.SetDefault("fresh_retouch_ratio", 0.7)
	v.SetDefault("stale_data_months", 6)
	v.SetDefault("tam_warning_weeks", 8)
	v.SetDefault("tam_critical_weeks", 4)

	v.SetDefault("ai_ark_api_url", "https://api.ai-ark.com/v1")
	v.SetDefault("ai_ark_api_key", "")
	v.SetDefault("clay_webhook_url", "")
	v.SetDefault("clay_api_key", "")
	v.SetDefault("jina_api_key", "")
	v.SetDefault("jina_api_url", "https://r.jina.ai")
	v.SetDefault("spider_api_key", "")
	v.SetDefault("spider_api_url", "https://api.spider.cloud")

	v.SetDefault("waterfall_enabled", true)
	v.SetDefault("waterfall_max_credits_per_fill", 100.0)
	v.SetDefault("waterfall_provider_order", "internal,ai_ark,clay,jina,spider")

	v.SetDefault("poll_interval", 5)
	v.SetDefault("default_volume", 500)
	v.SetDefault("bridge_log_file", "")

	return &Config{
		PostgresHost:     v.GetString("postgres_host"),
		PostgresPort:     v.GetInt("postgres_port"),
		PostgresDB:       v.GetString("postgres_db"),
		PostgresUser:     v.GetString("postgres_user"),
		PostgresPassword: v.GetString("postgres_password"),
		UseSQLite:        v.GetBool("use_sqlite"),
		SQLitePath:       v.GetString("sqlite_path"),

		CooldownNoResponseDays:    v.GetInt("cooldown_no_response_days"),
		CooldownNeutralReplyDays:  v.GetInt("cooldown_neutral_reply_days"),
		CooldownNegativeReplyDays: v.GetInt("cooldown_negative_reply_days"),
		CooldownLostClosedDays:    v.GetInt("cooldown_lost_closed_days"),
		CooldownLinkedInDays:      v.GetInt("cooldown_linkedin_days"),
		CooldownPhoneDays:         v.GetInt("cooldown_phone_days"),

		OwnershipDurationMonths: v.GetInt("ownership_duration_months"),
		MaxContactsPerCompany:   v.GetInt("max_contacts_per_company"),
		FreshRetouchRatio:       v.GetFloat64("fresh_retouch_ratio"),
		StaleDataMonths:         v.GetInt("stale_data_months"),
		TAMWarningWeeks:         v.GetInt("tam_warning_weeks"),
		TAMCriticalWeeks:        v.GetInt("tam_critical_weeks"),

		AIArkAPIURL:    strings.TrimRight(v.GetString("ai_ark_api_url"), "/"),
		AIArkAPIKey:    v.GetString("ai_ark_api_key"),
		ClayWebhookURL: v.GetString("clay_webhook_url"),
		ClayAPIKey:     v.GetString("clay_api_key"),
		JinaAPIKey:     v.GetString("jina_api_key"),
		JinaAPIURL:     strings.TrimRight(v.GetString("jina_api_url"), "/"),
		SpiderAPIKey:   v.GetString("spider_api_key"),
		SpiderAPIURL:   strings.TrimRight(v.GetString("spider_api_url"), "/"),

		WaterfallEnabled:       v.GetBool("waterfall_enabled"),
		WaterfallMaxCredits:    v.GetFloat64("waterfall_max_credits_per_fill"),
		WaterfallProviderOrder: v.GetString("waterfall_provider_order"),

		PollInterval:  time.Duration(v.GetInt("poll_interval")) * time.Second,
		DefaultVolume: v.GetInt("default_volume"),
		BridgeLogFile: v.GetString("bridge_log_file"),
	}
}

// PostgresDSN builds the connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

// ProviderOrder parses the configured provider order string into a
// cleaned name list. "internal" refers to the fill-engine step and is
// not a provider adapter.
func (c *Config) ProviderOrder() []string {
	var out []string
	for _, name := range strings.Split(c.WaterfallProviderOrder, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
