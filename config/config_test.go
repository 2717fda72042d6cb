package config

import (
	"os"
	"path/filepath"
	"testing"

	"tenderpricing/pricing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	for _, key := range []string{"OPENROUTER_API_KEY", "TENDER_VAT_RATE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Advisor.Enabled() {
		t.Error("advisor should be disabled without a key")
	}
	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.VATRate != 0.15 {
		t.Errorf("vat rate = %v, want 0.15", s.VATRate)
	}
	if len(s.Strategies) != 3 {
		t.Errorf("strategies = %d, want 3", len(s.Strategies))
	}
}

func TestSettingsOverrides(t *testing.T) {
	path := writeConfig(t, `
env: test
pricing:
  vat_rate: 0.05
  strategies:
    balanced:
      administrative: 0.075
    aggressive:
      label: هجومي
      overhead: 0.1
      profit: 0.03
      risk_factor: 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.VATRate != 0.05 {
		t.Errorf("vat = %v", s.VATRate)
	}
	b, _ := s.Strategy(pricing.StrategyBalanced)
	if b.Rates.Administrative != 0.075 || b.Rates.Overhead != 0.13 {
		t.Errorf("balanced rates = %+v", b.Rates)
	}
	a, ok := s.Strategy("aggressive")
	if !ok {
		t.Fatal("aggressive strategy missing")
	}
	if a.Label != "هجومي" || a.RiskFactor != 0.5 || a.Rates.Overhead != 0.1 || a.Rates.Profit != 0.03 {
		t.Errorf("aggressive = %+v", a)
	}
}

func TestSettingsRejectsBadRates(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"rate above one", "pricing:\n  strategies:\n    competitive:\n      profit: 1.5\n"},
		{"zero risk factor", "pricing:\n  strategies:\n    competitive:\n      risk_factor: 0\n"},
		{"negative vat", "pricing:\n  vat_rate: -0.1\n"},
		{"vat not a number", "pricing:\n  vat_rate: abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if _, err := cfg.Settings(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExplicitZeroVAT(t *testing.T) {
	os.Unsetenv("TENDER_VAT_RATE")
	cfg, err := Load(writeConfig(t, "pricing:\n  vat_rate: 0\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.VATRate != 0 {
		t.Errorf("vat rate = %v, want an explicit 0 to be kept", s.VATRate)
	}

	t.Setenv("TENDER_VAT_RATE", "0.05")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s, err = cfg.Settings(); err != nil || s.VATRate != 0.05 {
		t.Errorf("env vat rate = %v (err %v), want 0.05", s.VATRate, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}
