// Package config provides configuration structures and loading logic for the server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// Config holds the global configuration for the server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RDAP      RDAPConfig      `yaml:"rdap"`
	Policy    PolicyConfig    `yaml:"policy"`
	Auth      AuthConfig      `yaml:"auth"`
	Ownership OwnershipConfig `yaml:"ownership"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds configuration for the HTTP servers.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	AdminAddress    string        `yaml:"admin_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TLS             *TLSConfig    `yaml:"tls,omitempty"`
}

// TLSConfig enables HTTPS on the public listener.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// RDAPConfig holds the protocol settings of the public listener.
type RDAPConfig struct {
	Language                  string   `yaml:"language"`
	Zones                     []string `yaml:"zones"`
	MinSearchPatternLength    int      `yaml:"min_search_pattern_length"`
	MaxResultsAuthenticated   int      `yaml:"max_results_authenticated"`
	MaxResultsUnauthenticated int      `yaml:"max_results_unauthenticated"`
	AnonymousUsername         string   `yaml:"anonymous_username"`
	Port43                    string   `yaml:"port43"`
	BaseURL                   string   `yaml:"base_url"`
	DisabledKinds             []string `yaml:"disabled_kinds"`
}

// PolicyConfig locates operator policy overrides.
type PolicyConfig struct {
	OverrideDir string `yaml:"override_dir"`
	Watch       bool   `yaml:"watch"`
}

// AuthConfig holds the credentials accepted by the public listener.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWTIssuer string        `yaml:"jwt_issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	UsersFile string        `yaml:"users_file"`
}

// OwnershipConfig selects how ownership of a record is decided.
type OwnershipConfig struct {
	RegoFile  string `yaml:"rego_file"`
	RegoQuery string `yaml:"rego_query"`
}

// StorageConfig selects the record backend.
type StorageConfig struct {
	DSN             string        `yaml:"dsn"`
	Fixtures        string        `yaml:"fixtures"`
	RedisURL        string        `yaml:"redis_url"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
	Environment  string `yaml:"environment"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// RateLimitConfig holds the per-client request budget. A zero rate disables
// limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// MemoryDSN selects the in-process record store.
const MemoryDSN = "memory"

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			AdminAddress:    ":9090",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		RDAP: RDAPConfig{
			Language:                  "en",
			MinSearchPatternLength:    5,
			MaxResultsAuthenticated:   20,
			MaxResultsUnauthenticated: 10,
			AnonymousUsername:         "anonymous",
		},
		Auth: AuthConfig{
			JWTIssuer: "rdap-server",
			TokenTTL:  time.Hour,
		},
		Ownership: OwnershipConfig{
			RegoQuery: "data.rdap.ownership.allow",
		},
		Storage: StorageConfig{
			DSN:      MemoryDSN,
			CacheTTL: 5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "rdap-server",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by admin/operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("RDAP_ADDRESS"); val != "" {
		cfg.Server.Address = val
	}
	if val := os.Getenv("RDAP_ADMIN_ADDRESS"); val != "" {
		cfg.Server.AdminAddress = val
	}
	if val := os.Getenv("RDAP_TLS_CERT_FILE"); val != "" {
		if cfg.Server.TLS == nil {
			cfg.Server.TLS = &TLSConfig{}
		}
		cfg.Server.TLS.CertFile = val
	}
	if val := os.Getenv("RDAP_TLS_KEY_FILE"); val != "" {
		if cfg.Server.TLS == nil {
			cfg.Server.TLS = &TLSConfig{}
		}
		cfg.Server.TLS.KeyFile = val
	}

	if val := os.Getenv("RDAP_ZONES"); val != "" {
		cfg.RDAP.Zones = splitList(val)
	}
	if val := os.Getenv("RDAP_PORT43"); val != "" {
		cfg.RDAP.Port43 = val
	}
	if val := os.Getenv("RDAP_BASE_URL"); val != "" {
		cfg.RDAP.BaseURL = val
	}

	if val := os.Getenv("RDAP_POLICY_DIR"); val != "" {
		cfg.Policy.OverrideDir = val
	}
	if val := os.Getenv("RDAP_POLICY_WATCH"); val == "true" {
		cfg.Policy.Watch = true
	}

	if val := os.Getenv("RDAP_JWT_SECRET"); val != "" {
		cfg.Auth.JWTSecret = val
	}
	if val := os.Getenv("RDAP_USERS_FILE"); val != "" {
		cfg.Auth.UsersFile = val
	}
	if val := os.Getenv("RDAP_OWNERSHIP_REGO"); val != "" {
		cfg.Ownership.RegoFile = val
	}

	if val := os.Getenv("RDAP_STORAGE_DSN"); val != "" {
		cfg.Storage.DSN = val
	}
	if val := os.Getenv("RDAP_FIXTURES"); val != "" {
		cfg.Storage.Fixtures = val
	}
	if val := os.Getenv("RDAP_REDIS_URL"); val != "" {
		cfg.Storage.RedisURL = val
	}

	if val := os.Getenv("RDAP_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("RDAP_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}
	if val := os.Getenv("RDAP_ENVIRONMENT"); val != "" {
		cfg.Telemetry.Environment = val
	}

	if val := os.Getenv("RDAP_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("RDAP_LOG_PRETTY"); val == "true" {
		cfg.Logging.Pretty = true
	}

	if val := os.Getenv("RDAP_RATE_LIMIT_RPS"); val != "" {
		if rps, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = rps
		}
	}
	if val := os.Getenv("RDAP_RATE_LIMIT_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.Burst = burst
		}
	}
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate performs comprehensive validation of the entire configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration: %w", err)
	}
	if err := c.RDAP.Validate(); err != nil {
		return fmt.Errorf("rdap configuration: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth configuration: %w", err)
	}
	if err := c.Ownership.Validate(); err != nil {
		return fmt.Errorf("ownership configuration: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage configuration: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry configuration: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration: %w", err)
	}
	return nil
}

// Validate performs validation of server configuration
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		c.Address = ":8080"
	}
	if strings.TrimSpace(c.AdminAddress) == "" {
		c.AdminAddress = ":9090"
	}
	if c.Address == c.AdminAddress {
		return fmt.Errorf("address %q conflicts with admin_address", c.Address)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return fmt.Errorf("TLS configuration: %w", err)
		}
	}
	return nil
}

// Enabled reports whether both certificate and key are set.
func (c *TLSConfig) Enabled() bool {
	return c != nil && c.CertFile != "" && c.KeyFile != ""
}

// Validate performs validation of TLS configuration
func (c *TLSConfig) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("cert_file and key_file must be set together")
	}
	return nil
}

// Validate performs validation of the RDAP settings and normalises zones.
func (c *RDAPConfig) Validate() error {
	if strings.TrimSpace(c.Language) == "" {
		c.Language = "en"
	}
	if c.MinSearchPatternLength < 1 {
		return fmt.Errorf("min_search_pattern_length must be at least 1, got %d", c.MinSearchPatternLength)
	}
	if c.MaxResultsAuthenticated <= 0 {
		return fmt.Errorf("max_results_authenticated must be positive, got %d", c.MaxResultsAuthenticated)
	}
	if c.MaxResultsUnauthenticated <= 0 {
		return fmt.Errorf("max_results_unauthenticated must be positive, got %d", c.MaxResultsUnauthenticated)
	}
	if strings.TrimSpace(c.AnonymousUsername) == "" {
		c.AnonymousUsername = "anonymous"
	}

	zones := make([]string, 0, len(c.Zones))
	for _, z := range c.Zones {
		if z = strings.Trim(strings.ToLower(strings.TrimSpace(z)), "."); z != "" {
			zones = append(zones, z)
		}
	}
	c.Zones = zones

	if _, err := c.Kinds(); err != nil {
		return err
	}
	return nil
}

// Kinds resolves the disabled kinds.
func (c *RDAPConfig) Kinds() ([]domain.Kind, error) {
	kinds := make([]domain.Kind, 0, len(c.DisabledKinds))
	for _, name := range c.DisabledKinds {
		kind, err := domain.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("disabled_kinds: %w", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Validate performs validation of auth configuration. Neither a secret nor a
// users file is required; without them every request is anonymous.
func (c *AuthConfig) Validate() error {
	if strings.TrimSpace(c.JWTIssuer) == "" {
		c.JWTIssuer = "rdap-server"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
	return nil
}

// Validate performs validation of ownership configuration
func (c *OwnershipConfig) Validate() error {
	if strings.TrimSpace(c.RegoQuery) == "" {
		c.RegoQuery = "data.rdap.ownership.allow"
	}
	return nil
}

var storageSchemes = []string{"postgres://", "postgresql://", "mysql://", "sqlite://"}

// Validate performs validation of storage configuration
func (c *StorageConfig) Validate() error {
	dsn := strings.TrimSpace(c.DSN)
	if dsn == "" {
		c.DSN = MemoryDSN
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return errors.New("connection pool sizes must not be negative")
	}
	if c.DSN == MemoryDSN {
		return nil
	}
	for _, scheme := range storageSchemes {
		if strings.HasPrefix(dsn, scheme) {
			return nil
		}
	}
	return errors.New("dsn must be \"memory\" or start with postgres://, mysql:// or sqlite://")
}

// Validate performs validation of telemetry configuration
func (c *TelemetryConfig) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = "rdap-server"
	}
	return nil
}

// Validate performs validation of logging configuration
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return fmt.Errorf("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}
}

// Validate performs validation of rate limit configuration
func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		c.Burst = max(1, int(c.RequestsPerSecond))
	}
	return nil
}
