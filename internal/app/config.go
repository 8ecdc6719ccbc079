package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOPAGENT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL; in-memory stores are used when empty" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (SHOPAGENT_API_KEY_PEPPER)" flag:"api-key-pepper"`
	DevAPIKey    string `usage:"API key registered in memory when no database is configured" flag:"dev-api-key"`
	LLM          LLMConfig
	Payment      PaymentConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// LLMConfig points the agent at a chat-completions endpoint.
type LLMConfig struct {
	BaseURL   string `default:"" usage:"Chat completions endpoint URL (provider default when empty)" flag:"llm-base-url"`
	APIKey    string `usage:"Completions API key (SHOPAGENT_LLM_API_KEY)" flag:"llm-api-key"`
	Model     string `default:"gpt-4o-mini" usage:"Model identifier" flag:"llm-model"`
	MaxTokens int    `default:"1024" usage:"Completion token cap" flag:"llm-max-tokens"`
}

// PaymentConfig points the payment protocol at its gateway.
type PaymentConfig struct {
	BaseURL string `default:"" usage:"Payment gateway base URL (provider default when empty)" flag:"payment-base-url"`
	APIKey  string `usage:"Payment gateway secret key (SHOPAGENT_PAYMENT_API_KEY)" flag:"payment-api-key"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"60" usage:"Max requests per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOPAGENT",
		Files:     []string{"config.yaml", "/etc/shopagent/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.LLM.APIKey == "" {
		return nil, errors.New("LLM API key is required: set SHOPAGENT_LLM_API_KEY")
	}
	if cfg.Payment.APIKey == "" {
		return nil, errors.New("payment gateway key is required: set SHOPAGENT_PAYMENT_API_KEY")
	}
	if cfg.DatabaseURL == "" && cfg.DevAPIKey == "" {
		return nil, errors.New("without a database, a dev API key is required: set SHOPAGENT_DEV_API_KEY")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOPAGENT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
