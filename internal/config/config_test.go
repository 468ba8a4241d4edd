package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
settings:
  csv_directory: ./data
  output_directory: ./output
  database_url: postgres://localhost/zev
collective:
  name: ZEV Sonnenhof
  language: de
  billing_start: "2025-01"
  billing_end: "2025-12"
  billing_interval: quarterly
  local_rate: 0.18
  grid_buy_rate: 0.30
  grid_sell_rate: 0.08
  vat_rate: 8.1
  vat_on_grid: true
  vat_on_fees: true
members:
  - first_name: Anna
    last_name: Keller
    is_host: true
    meters:
      - external_id: CH9001
        name: rooftop pv
        is_production: true
  - first_name: Beat
    last_name: Muster
    meters:
      - external_id: CH1001
        name: flat 1
    fees:
      - name: Grundgebühr
        type: yearly
        value: 120
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Collective.Name != "ZEV Sonnenhof" {
		t.Fatalf("unexpected name: %s", cfg.Collective.Name)
	}
	if cfg.Collective.Language != "de" {
		t.Fatalf("unexpected language: %s", cfg.Collective.Language)
	}
	if cfg.Collective.Currency != "CHF" {
		t.Fatalf("expected CHF default, got %s", cfg.Collective.Currency)
	}
	if cfg.Collective.BillingInterval != "quarterly" {
		t.Fatalf("unexpected interval: %s", cfg.Collective.BillingInterval)
	}
	if len(cfg.Members) != 2 || len(cfg.Members[1].Fees) != 1 {
		t.Fatalf("unexpected members: %+v", cfg.Members)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DSN", "")
	content := strings.Replace(validYAML, "  database_url: postgres://localhost/zev\n", "", 1)
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatalf("expected error without database_url")
	}
}

func TestLoadDatabaseURLFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/zev")
	content := strings.Replace(validYAML, "  database_url: postgres://localhost/zev\n", "", 1)
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings.DatabaseURL != "postgres://env-host/zev" {
		t.Fatalf("expected env fallback, got %s", cfg.Settings.DatabaseURL)
	}
}

func TestLoadRejectsDuplicateMeters(t *testing.T) {
	content := strings.Replace(validYAML, "CH1001", "CH9001", 1)
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatalf("expected error for duplicate external_id")
	}
}

func TestLoadRequiresHost(t *testing.T) {
	content := strings.Replace(validYAML, "    is_host: true\n", "", 1)
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatalf("expected error without a host member")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
