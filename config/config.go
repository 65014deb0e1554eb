package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Persistence
	StoreBackend string // "sqlite", "redis" or "memory", default: sqlite
	DBPath       string // sqlite file, default: vidsmith.db
	RedisAddr    string // required for the redis backend; enables rate limiting

	// Providers
	ProvidersFile     string // optional YAML tariff file, built-in defaults otherwise
	Providers         []Provider
	SynthesiaAPIKey   string
	ReplicateAPIToken string
	HeyGenAPIKey      string
	VeoServiceAccount string // service account JSON
	VeoProjectID      string

	// Generation
	SimulationMode       bool  // default simulation-mode flag when the store has none
	GenerationsPerMinute int64 // per-client submit rate limit, default: 6

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"
}

// Provider is the immutable tariff and capability record for one video provider.
type Provider struct {
	ID                      string   `yaml:"id"`
	Name                    string   `yaml:"name"`
	FreeLimitSeconds        float64  `yaml:"free_limit_seconds"`
	CostPerSecond           float64  `yaml:"cost_per_second"`
	CostAfterLimitPerSecond *float64 `yaml:"cost_after_limit_per_second"`
	Quality                 string   `yaml:"quality"`
	Features                []string `yaml:"features"`
	RequiresCredential      bool     `yaml:"requires_credential"`
}

// Rate returns the per-second rate billed once the free allowance is exhausted.
// The tiered after-limit rate wins over the base rate when both are set.
func (p Provider) Rate() float64 {
	if p.CostAfterLimitPerSecond != nil {
		return *p.CostAfterLimitPerSecond
	}
	return p.CostPerSecond
}

func ptr(f float64) *float64 { return &f }

// DefaultProviders returns the built-in tariff table.
func DefaultProviders() []Provider {
	return []Provider{
		{
			ID:                      "synthesia",
			Name:                    "Synthesia",
			FreeLimitSeconds:        180,
			CostPerSecond:           0,
			CostAfterLimitPerSecond: ptr(0.15),
			Quality:                 "high",
			Features:                []string{"avatar", "multilingual", "text-to-speech"},
			RequiresCredential:      true,
		},
		{
			ID:                 "replicate",
			Name:               "Replicate",
			FreeLimitSeconds:   0,
			CostPerSecond:      0.08,
			Quality:            "very-high",
			Features:           []string{"text-to-video", "image-to-video", "style-transfer"},
			RequiresCredential: true,
		},
		{
			ID:                 "veo",
			Name:               "Google Veo",
			FreeLimitSeconds:   3000,
			CostPerSecond:      0.12,
			Quality:            "highest",
			Features:           []string{"cinematic", "high-res", "long-duration"},
			RequiresCredential: true,
		},
		{
			ID:                 "heygen",
			Name:               "HeyGen",
			FreeLimitSeconds:   60,
			CostPerSecond:      0.10,
			Quality:            "high",
			Features:           []string{"avatar", "voice-cloning", "multilingual"},
			RequiresCredential: true,
		},
	}
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		StoreBackend:         getEnv("STORE_BACKEND", "sqlite"),
		DBPath:               getEnv("DB_PATH", "vidsmith.db"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		ProvidersFile:        os.Getenv("PROVIDERS_FILE"),
		SynthesiaAPIKey:      os.Getenv("SYNTHESIA_API_KEY"),
		ReplicateAPIToken:    os.Getenv("REPLICATE_API_TOKEN"),
		HeyGenAPIKey:         os.Getenv("HEYGEN_API_KEY"),
		VeoServiceAccount:    os.Getenv("VEO_SERVICE_ACCOUNT_JSON"),
		VeoProjectID:         os.Getenv("VEO_PROJECT_ID"),
		SimulationMode:       getEnv("SIMULATION_MODE", "false") == "true",
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	gpmStr := getEnv("GENERATIONS_PER_MINUTE", "6")
	gpm, err := strconv.ParseInt(gpmStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GENERATIONS_PER_MINUTE: %w", err)
	}
	cfg.GenerationsPerMinute = gpm

	cfg.Providers = DefaultProviders()
	if cfg.ProvidersFile != "" {
		providers, err := LoadProviders(cfg.ProvidersFile)
		if err != nil {
			return nil, err
		}
		cfg.Providers = providers
	}

	// Validation
	switch cfg.StoreBackend {
	case "sqlite":
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("DB_PATH is required for the sqlite backend")
		}
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// LoadProviders reads a YAML tariff file and expands environment variables in it.
func LoadProviders(path string) ([]Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var doc struct {
		Providers []Provider `yaml:"providers"`
	}
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}
	if len(doc.Providers) == 0 {
		return nil, fmt.Errorf("providers file %s defines no providers", path)
	}
	for _, p := range doc.Providers {
		if p.ID == "" {
			return nil, fmt.Errorf("providers file %s: provider with empty id", path)
		}
		if p.FreeLimitSeconds < 0 {
			return nil, fmt.Errorf("provider %s: free_limit_seconds must be non-negative", p.ID)
		}
	}
	return doc.Providers, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
