package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings defines process-level paths and endpoints.
type Settings struct {
	CSVDirectory    string `yaml:"csv_directory"`
	OutputDirectory string `yaml:"output_directory"`
	DatabaseURL     string `yaml:"database_url"`
	MetricsAddr     string `yaml:"metrics_addr"`
}

// Collective defines the collective-wide rates and billing window.
type Collective struct {
	Name            string  `yaml:"name"`
	Language        string  `yaml:"language"`
	Currency        string  `yaml:"currency"`
	ShowDailyDetail bool    `yaml:"show_daily_detail"`
	BillingStart    string  `yaml:"billing_start"`
	BillingEnd      string  `yaml:"billing_end"`
	BillingInterval string  `yaml:"billing_interval"`
	LocalRate       float64 `yaml:"local_rate"`
	GridBuyRate     float64 `yaml:"grid_buy_rate"`
	GridSellRate    float64 `yaml:"grid_sell_rate"`
	VATRate         float64 `yaml:"vat_rate"`
	VATOnLocal      bool    `yaml:"vat_on_local"`
	VATOnGrid       bool    `yaml:"vat_on_grid"`
	VATOnFees       bool    `yaml:"vat_on_fees"`
}

// MeterEntry is one meter nested under a member.
type MeterEntry struct {
	ExternalID   string `yaml:"external_id"`
	Name         string `yaml:"name"`
	IsProduction bool   `yaml:"is_production"`
	IsVirtual    bool   `yaml:"is_virtual"`
}

// FeeEntry is an optional per-member fee. Type is yearly, per_kwh or
// percent; basis (local or grid) applies to per_kwh fees only.
type FeeEntry struct {
	Name  string  `yaml:"name"`
	Type  string  `yaml:"type"`
	Value float64 `yaml:"value"`
	Basis string  `yaml:"basis"`
}

// MemberEntry is one member of the collective.
type MemberEntry struct {
	FirstName string       `yaml:"first_name"`
	LastName  string       `yaml:"last_name"`
	Street    string       `yaml:"street"`
	Zip       string       `yaml:"zip"`
	City      string       `yaml:"city"`
	Canton    string       `yaml:"canton"`
	IsHost    bool         `yaml:"is_host"`
	Meters    []MeterEntry `yaml:"meters"`
	Fees      []FeeEntry   `yaml:"fees"`
}

// FullName returns "First Last".
func (m MemberEntry) FullName() string {
	return m.FirstName + " " + m.LastName
}

// Config is the root configuration document.
type Config struct {
	Settings   Settings      `yaml:"settings"`
	Collective Collective    `yaml:"collective"`
	Members    []MemberEntry `yaml:"members"`
}

// Load reads the yaml file at path and applies env fallbacks and defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Settings: Settings{
			CSVDirectory:    getenvDefault("CSV_DIRECTORY", "./data"),
			OutputDirectory: getenvDefault("OUTPUT_DIRECTORY", "./output"),
			DatabaseURL:     getenvDefault("DATABASE_URL", os.Getenv("PG_DSN")),
			MetricsAddr:     os.Getenv("METRICS_ADDR"),
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.Settings.DatabaseURL == "" {
		cfg.Settings.DatabaseURL = getenvDefault("DATABASE_URL", os.Getenv("PG_DSN"))
	}
	if cfg.Collective.Language == "" {
		cfg.Collective.Language = "en"
	}
	if cfg.Collective.Currency == "" {
		cfg.Collective.Currency = "CHF"
	}
	if cfg.Collective.BillingInterval == "" {
		cfg.Collective.BillingInterval = "monthly"
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Settings.DatabaseURL == "" {
		return errors.New("config: database_url (or DATABASE_URL/PG_DSN) is required")
	}
	if c.Collective.Name == "" {
		return errors.New("config: collective.name is required")
	}
	if len(c.Members) == 0 {
		return errors.New("config: at least one member is required")
	}
	seen := make(map[string]bool)
	hosts := 0
	for _, m := range c.Members {
		if m.IsHost {
			hosts++
		}
		for _, mt := range m.Meters {
			if mt.ExternalID == "" {
				return fmt.Errorf("config: member %s has a meter without external_id", m.FullName())
			}
			if seen[mt.ExternalID] {
				return fmt.Errorf("config: duplicate meter external_id %s", mt.ExternalID)
			}
			seen[mt.ExternalID] = true
		}
	}
	if hosts == 0 {
		return errors.New("config: one member must have is_host: true")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
