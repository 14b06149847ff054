// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg, err := config.LoadOrEnv("config.yaml")
//	budget := cfg.YNAB.BudgetID
//	start, err := cfg.ImportStartDate(time.Now())
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Transfer rule directions accepted in the config file.
const (
	DirectionOutflow = "outflow"
	DirectionInflow  = "inflow"
)

// Config represents the entire application configuration
type Config struct {
	YNAB          YNABConfig          `yaml:"ynab"`
	Nubank        NubankConfig        `yaml:"nubank"`
	Sync          SyncConfig          `yaml:"sync"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// YNABConfig holds the destination budget and accounts
type YNABConfig struct {
	Token             string `yaml:"token" envconfig:"YNAB_TOKEN"`
	BudgetID          string `yaml:"budget_id" envconfig:"YNAB_BUDGET_ID"`
	CreditAccountID   string `yaml:"credit_account_id" envconfig:"YNAB_CREDIT_ACCOUNT_ID"`
	CheckingAccountID string `yaml:"checking_account_id" envconfig:"YNAB_CHECKING_ACCOUNT_ID"`
	ImportDate        string `yaml:"import_date" envconfig:"YNAB_IMPORT_DATE"` // YYYY-MM-DD, optional
	BaseURL           string `yaml:"base_url" envconfig:"YNAB_BASE_URL"`
}

// NubankConfig holds the source account credentials
type NubankConfig struct {
	CertPath     string `yaml:"cert_path" envconfig:"NUBANK_CERT_PATH"`
	CPF          string `yaml:"cpf" envconfig:"NUBANK_CPF"`
	Password     string `yaml:"password" envconfig:"NUBANK_PASSWORD"`
	DiscoveryURL string `yaml:"discovery_url" envconfig:"NUBANK_DISCOVERY_URL"`
}

// SyncConfig holds normalization settings
type SyncConfig struct {
	Timezone     string `yaml:"timezone" envconfig:"SYNC_TIMEZONE" default:"America/Sao_Paulo"`
	LookbackDays int    `yaml:"lookback_days" envconfig:"SYNC_LOOKBACK_DAYS" default:"7"`
	InvoicePayee string `yaml:"invoice_payee" envconfig:"SYNC_INVOICE_PAYEE" default:"Fatura"`

	// TransferRules replaces the built-in rules for untagged movements.
	TransferRules []TransferRuleConfig `yaml:"transfer_rules" ignored:"true"`
}

// TransferRuleConfig maps a title phrase to "outflow" or "inflow"
type TransferRuleConfig struct {
	Phrase    string `yaml:"phrase"`
	Direction string `yaml:"direction"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" envconfig:"SYNC_DB_PATH" default:"nubank_sync.db"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" default:"text"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			Timezone:     "America/Sao_Paulo",
			LookbackDays: 7,
			InvoicePayee: "Fatura",
		},
		Storage: StorageConfig{
			DatabasePath: "nubank_sync.db",
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${YNAB_TOKEN})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	var cfg Config

	sections := []any{
		&cfg.YNAB,
		&cfg.Nubank,
		&cfg.Sync,
		&cfg.Storage,
		&cfg.Observability.Logging,
	}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return &cfg, nil
}

// LoadOrEnv tries to load from the given path, falls back to environment variables
func LoadOrEnv(path string) (*Config, error) {
	if path != "" {
		cfg, err := Load(path)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return LoadFromEnv()
}

// Validate checks that every setting needed for a sync run is present
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.YNAB),
		validation.Field(&c.Nubank),
		validation.Field(&c.Sync),
	)
}

// Validate implements validation.Validatable
func (c YNABConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.BudgetID, validation.Required),
		validation.Field(&c.CreditAccountID, validation.Required),
		validation.Field(&c.CheckingAccountID, validation.Required),
		validation.Field(&c.ImportDate, validation.Date(dateLayout)),
	)
}

// Validate implements validation.Validatable
func (c NubankConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CertPath, validation.Required),
		validation.Field(&c.CPF, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// Validate implements validation.Validatable
func (c SyncConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Timezone, validation.By(loadableLocation)),
		validation.Field(&c.LookbackDays, validation.Min(0)),
		validation.Field(&c.TransferRules),
	)
}

// Validate implements validation.Validatable
func (r TransferRuleConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phrase, validation.Required),
		validation.Field(&r.Direction, validation.Required, validation.In(DirectionOutflow, DirectionInflow)),
	)
}

func loadableLocation(value any) error {
	name, _ := value.(string)
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown timezone %q", name)
	}
	return nil
}

// Location returns the timezone used to decide what "today" is
func (c SyncConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ImportStartDate returns the first date to import. Without an explicit
// import date it is LookbackDays before today.
func (c *Config) ImportStartDate(now time.Time) (time.Time, error) {
	if c.YNAB.ImportDate != "" {
		return time.Parse(dateLayout, c.YNAB.ImportDate)
	}

	loc, err := c.Sync.Location()
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -c.Sync.LookbackDays), nil
}
