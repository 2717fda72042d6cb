package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/spf13/cast"

	"tenderpricing/pricing"
)

// PathEnv names the environment variable holding the YAML config path.
const PathEnv = "TENDER_CONFIG"

type Config struct {
	Env      string        `yaml:"env" env:"TENDER_ENV" env-default:"local"`
	SeedDemo bool          `yaml:"seed_demo" env:"TENDER_SEED_DEMO" env-default:"false"`
	PDFFont  string        `yaml:"pdf_font" env:"TENDER_PDF_FONT"`
	Pricing  PricingConfig `yaml:"pricing"`
	Advisor  AdvisorConfig `yaml:"advisor"`
}

type PricingConfig struct {
	VATRate    OptionalRate              `yaml:"vat_rate" env:"TENDER_VAT_RATE"`
	Strategies map[string]StrategyConfig `yaml:"strategies"`
}

// OptionalRate is a rate that may be left out of the config. It is kept as
// text so an explicit 0 stays distinct from an absent value.
type OptionalRate string

// Or returns the rate, or def when none was given.
func (r OptionalRate) Or(def float64) (float64, error) {
	v := strings.TrimSpace(string(r))
	if v == "" {
		return def, nil
	}
	return cast.ToFloat64E(v)
}

// StrategyConfig overrides or adds a strategy profile. Nil fields keep the
// built-in value.
type StrategyConfig struct {
	Label          string   `yaml:"label"`
	Overhead       *float64 `yaml:"overhead"`
	Profit         *float64 `yaml:"profit"`
	Administrative *float64 `yaml:"administrative"`
	Mobilisation   *float64 `yaml:"mobilisation"`
	BondsInsurance *float64 `yaml:"bonds_insurance"`
	RiskFactor     *float64 `yaml:"risk_factor"`
	Notes          []string `yaml:"notes"`
}

type AdvisorConfig struct {
	APIKey  string        `yaml:"api_key" env:"OPENROUTER_API_KEY"`
	Model   string        `yaml:"model" env:"TENDER_ADVISOR_MODEL" env-default:"openai/gpt-4o-mini"`
	Timeout time.Duration `yaml:"timeout" env:"TENDER_ADVISOR_TIMEOUT" env-default:"20s"`
}

// Enabled reports whether an advisor key is configured.
func (a AdvisorConfig) Enabled() bool { return a.APIKey != "" }

// MustLoad reads the file named by TENDER_CONFIG, or the environment alone
// when it is unset, and exits on failure.
func MustLoad() *Config {
	path := os.Getenv(PathEnv)
	if path == "" {
		slog.Info("config path is empty, reading environment only", slog.String("env", PathEnv))
	}
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load reads configuration from path, falling back to the environment when
// path is empty.
func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read env: %w", err)
		}
		return &cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return &cfg, nil
}

// Settings merges the pricing overrides onto the built-in constants and
// validates the result.
func (c *Config) Settings() (pricing.Settings, error) {
	s := pricing.DefaultSettings()
	vat, err := c.Pricing.VATRate.Or(s.VATRate)
	if err != nil {
		return pricing.Settings{}, fmt.Errorf("pricing settings: vat_rate: %w", err)
	}
	s.VATRate = vat
	for tag, o := range c.Pricing.Strategies {
		p, ok := s.Strategies[pricing.Strategy(tag)]
		if !ok {
			p = pricing.StrategyProfile{Tag: pricing.Strategy(tag), Label: tag, RiskFactor: 1}
		}
		if o.Label != "" {
			p.Label = o.Label
		}
		setIf(&p.Rates.Overhead, o.Overhead)
		setIf(&p.Rates.Profit, o.Profit)
		setIf(&p.Rates.Administrative, o.Administrative)
		setIf(&p.Rates.Mobilisation, o.Mobilisation)
		setIf(&p.Rates.BondsInsurance, o.BondsInsurance)
		setIf(&p.RiskFactor, o.RiskFactor)
		if len(o.Notes) > 0 {
			p.Notes = o.Notes
		}
		s.Strategies[p.Tag] = p
	}
	if err := s.Validate(); err != nil {
		return pricing.Settings{}, fmt.Errorf("pricing settings: %w", err)
	}
	return s, nil
}

func setIf(dst, src *float64) {
	if src != nil {
		*dst = *src
	}
}
