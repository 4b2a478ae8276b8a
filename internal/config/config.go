package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/carebridge/care-matching/pkg/core/constraints"
	"github.com/carebridge/care-matching/pkg/core/scoring"
	"github.com/carebridge/care-matching/pkg/core/services"
)

// ScoringConfig holds the candidate scorer's tunables
type ScoringConfig struct {
	Weights       scoring.Weights `yaml:"weights"`
	CloseRadiusKm float64         `yaml:"closeRadiusKm" validate:"gte=0"`
	MaxRadiusKm   float64         `yaml:"maxRadiusKm" validate:"gt=0"`
}

// ConstraintsConfig holds the soft-rule thresholds
type ConstraintsConfig struct {
	TravelThresholdKm  float64 `yaml:"travelThresholdKm" validate:"gte=0"`
	MinimumNoticeHours float64 `yaml:"minimumNoticeHours" validate:"gte=0"`
}

// MarketplaceConfig controls the partner fallback for uncovered requirements
type MarketplaceConfig struct {
	Fallback       bool `yaml:"fallback"`
	PartnerOptions int  `yaml:"partnerOptions" validate:"gte=0"`
}

// ExpirySweepConfig schedules the pending-suggestion expiry sweep
type ExpirySweepConfig struct {
	RRule string `yaml:"rrule" validate:"required"`
}

// FeedbackConfig points at the Redis stream outcome events go to. An empty
// address disables publishing.
type FeedbackConfig struct {
	RedisAddr string `yaml:"redisAddr,omitempty" validate:"omitempty,hostname_port"`
	RedisDB   int    `yaml:"redisDB" validate:"gte=0"`
	Stream    string `yaml:"stream" validate:"required"`
	MaxLen    int64  `yaml:"maxLen" validate:"gte=0"`
}

// ExplainConfig points at the explanation service. An empty URL disables it.
type ExplainConfig struct {
	BaseURL        string `yaml:"baseURL,omitempty" validate:"omitempty,url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" validate:"gte=0"`
}

// Secrets come from the environment, never from the YAML file
type Secrets struct {
	DatabaseURL           string `validate:"required"`
	RedisPassword         string
	GmailCredentialsFile  string
	SheetsCredentialsFile string
	ExplainAPIKey         string
}

// Config represents the application configuration
type Config struct {
	OrganizationID int64             `yaml:"organizationID" validate:"required,gt=0"`
	Scoring        ScoringConfig     `yaml:"scoring"`
	Constraints    ConstraintsConfig `yaml:"constraints"`
	Marketplace    MarketplaceConfig `yaml:"marketplace"`
	ExpirySweep    ExpirySweepConfig `yaml:"expirySweep"`
	Feedback       FeedbackConfig    `yaml:"feedback"`
	Explain        ExplainConfig     `yaml:"explain"`
	GmailSender    string            `yaml:"gmailSender,omitempty" validate:"omitempty,email"`

	// GridSpreadsheetID is where `grid --sheet` publishes when no ID is given
	GridSpreadsheetID string `yaml:"gridSpreadsheetID,omitempty"`

	Secrets Secrets `yaml:"-" validate:"-"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the documented defaults. Values missing from the YAML
// file keep these.
func Default() Config {
	engine := services.DefaultSettings()
	return Config{
		Scoring: ScoringConfig{
			Weights:       engine.Weights,
			CloseRadiusKm: engine.Proximity.CloseRadiusKm,
			MaxRadiusKm:   engine.Proximity.MaxRadiusKm,
		},
		Constraints: ConstraintsConfig{
			TravelThresholdKm:  engine.Constraints.TravelThresholdKm,
			MinimumNoticeHours: engine.Constraints.MinimumNotice.Hours(),
		},
		Marketplace: MarketplaceConfig{
			Fallback:       engine.MarketplaceFallback,
			PartnerOptions: engine.PartnerOptions,
		},
		ExpirySweep: ExpirySweepConfig{RRule: "FREQ=HOURLY;INTERVAL=1"},
		Feedback: FeedbackConfig{
			Stream: "care-matching:suggestion-outcomes",
			MaxLen: 100000,
		},
		Explain: ExplainConfig{TimeoutSeconds: 10},
	}
}

// LoadWithEnv loads care_matching_config.<env>.yaml and the secrets. A .env
// file in the current directory, if present, is loaded into the
// environment first without overriding variables already set.
func LoadWithEnv(env string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	configPath, err := findConfigFile(fmt.Sprintf("care_matching_config.%s.yaml", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		return nil, err
	}

	cfg.Secrets = SecretsFromEnv()
	if err := validate.Struct(cfg.Secrets); err != nil {
		return nil, fmt.Errorf("secrets validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SecretsFromEnv reads the secrets from the process environment
func SecretsFromEnv() Secrets {
	return Secrets{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		GmailCredentialsFile:  os.Getenv("GMAIL_CREDENTIALS_FILE"),
		SheetsCredentialsFile: os.Getenv("SHEETS_CREDENTIALS_FILE"),
		ExplainAPIKey:         os.Getenv("EXPLAIN_API_KEY"),
	}
}

// Validate validates the configuration struct, the scoring weights and the
// sweep rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.Scoring.Weights.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Scoring.CloseRadiusKm >= cfg.Scoring.MaxRadiusKm {
		return fmt.Errorf("config validation failed: closeRadiusKm must be below maxRadiusKm")
	}

	if _, err := rrule.StrToRRule(cfg.ExpirySweep.RRule); err != nil {
		return fmt.Errorf("invalid rrule in expirySweep: %w", err)
	}

	return nil
}

// EngineSettings converts the configuration into matching engine settings
func (c *Config) EngineSettings() services.Settings {
	return services.Settings{
		Constraints: constraints.Config{
			TravelThresholdKm: c.Constraints.TravelThresholdKm,
			MinimumNotice:     time.Duration(c.Constraints.MinimumNoticeHours * float64(time.Hour)),
		},
		Weights: c.Scoring.Weights,
		Proximity: scoring.ProximityConfig{
			CloseRadiusKm: c.Scoring.CloseRadiusKm,
			MaxRadiusKm:   c.Scoring.MaxRadiusKm,
		},
		MarketplaceFallback: c.Marketplace.Fallback,
		PartnerOptions:      c.Marketplace.PartnerOptions,
	}
}

// Schedule returns the sweep occurrences starting from the given time
func (e ExpirySweepConfig) Schedule(from time.Time) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(e.RRule)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule in expirySweep: %w", err)
	}
	opt.Dtstart = from.Truncate(time.Minute)
	return rrule.NewRRule(*opt)
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(configFileName string) (string, error) {
	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
