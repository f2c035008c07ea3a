package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pcarana/rdap-server/pkg/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}

	if cfg.Server.Address != ":8080" || cfg.Server.AdminAddress != ":9090" {
		t.Errorf("unexpected addresses %q, %q", cfg.Server.Address, cfg.Server.AdminAddress)
	}
	if cfg.RDAP.MinSearchPatternLength != 5 {
		t.Errorf("Expected min_search_pattern_length 5, got %d", cfg.RDAP.MinSearchPatternLength)
	}
	if cfg.RDAP.MaxResultsAuthenticated != 20 || cfg.RDAP.MaxResultsUnauthenticated != 10 {
		t.Errorf("unexpected result limits %d/%d", cfg.RDAP.MaxResultsAuthenticated, cfg.RDAP.MaxResultsUnauthenticated)
	}
	if cfg.RDAP.AnonymousUsername != "anonymous" {
		t.Errorf("Expected anonymous username, got %q", cfg.RDAP.AnonymousUsername)
	}
	if cfg.Storage.DSN != MemoryDSN {
		t.Errorf("Expected memory storage, got %q", cfg.Storage.DSN)
	}
	if cfg.Storage.CacheTTL != 5*time.Minute {
		t.Errorf("Expected 5m cache ttl, got %v", cfg.Storage.CacheTTL)
	}
	if cfg.Ownership.RegoQuery != "data.rdap.ownership.allow" {
		t.Errorf("unexpected rego query %q", cfg.Ownership.RegoQuery)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected info log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":8443"
  admin_address: ":9443"
  read_timeout: 5s
  tls:
    cert_file: /etc/rdap/tls.crt
    key_file: /etc/rdap/tls.key
rdap:
  zones: [" .MX ", "com.", ""]
  port43: whois.example.mx
  disabled_kinds: ["autnum", "ip"]
  max_results_unauthenticated: 3
policy:
  override_dir: /etc/rdap/policy
  watch: true
storage:
  dsn: sqlite:///var/lib/rdap/records.db
  cache_ttl: 30s
logging:
  level: DEBUG
rate_limit:
  requests_per_second: 2.5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read timeout 5s, got %v", cfg.Server.ReadTimeout)
	}
	if !cfg.Server.TLS.Enabled() {
		t.Error("Expected TLS to be enabled")
	}
	if got := strings.Join(cfg.RDAP.Zones, ","); got != "mx,com" {
		t.Errorf("Expected normalised zones mx,com, got %q", got)
	}
	kinds, err := cfg.RDAP.Kinds()
	if err != nil {
		t.Fatalf("Kinds: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != domain.KindAutnum || kinds[1] != domain.KindIPNetwork {
		t.Errorf("unexpected disabled kinds %v", kinds)
	}
	if cfg.RDAP.MaxResultsUnauthenticated != 3 || cfg.RDAP.MaxResultsAuthenticated != 20 {
		t.Errorf("unexpected result limits %d/%d", cfg.RDAP.MaxResultsAuthenticated, cfg.RDAP.MaxResultsUnauthenticated)
	}
	if !cfg.Policy.Watch || cfg.Policy.OverrideDir != "/etc/rdap/policy" {
		t.Errorf("unexpected policy config %+v", cfg.Policy)
	}
	if cfg.Storage.CacheTTL != 30*time.Second {
		t.Errorf("Expected cache ttl 30s, got %v", cfg.Storage.CacheTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level to be normalised, got %q", cfg.Logging.Level)
	}
	if cfg.RateLimit.Burst != 2 {
		t.Errorf("Expected burst to default to 2, got %d", cfg.RateLimit.Burst)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RDAP_ADDRESS", ":18080")
	t.Setenv("RDAP_ZONES", "mx, com.mx")
	t.Setenv("RDAP_STORAGE_DSN", "postgres://rdap:secret@db/rdap")
	t.Setenv("RDAP_JWT_SECRET", "s3cret")
	t.Setenv("RDAP_LOG_LEVEL", "warn")
	t.Setenv("RDAP_RATE_LIMIT_RPS", "10")
	t.Setenv("RDAP_RATE_LIMIT_BURST", "20")

	cfg, err := Load(writeConfig(t, "server:\n  address: \":7000\"\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Address != ":18080" {
		t.Errorf("Expected env address to win, got %q", cfg.Server.Address)
	}
	if got := strings.Join(cfg.RDAP.Zones, ","); got != "mx,com.mx" {
		t.Errorf("unexpected zones %q", got)
	}
	if cfg.Storage.DSN != "postgres://rdap:secret@db/rdap" {
		t.Errorf("unexpected dsn %q", cfg.Storage.DSN)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Error("Expected jwt secret from environment")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("unexpected log level %q", cfg.Logging.Level)
	}
	if cfg.RateLimit.RequestsPerSecond != 10 || cfg.RateLimit.Burst != 20 {
		t.Errorf("unexpected rate limit %+v", cfg.RateLimit)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "conflicting addresses",
			content: "server:\n  address: \":8080\"\n  admin_address: \":8080\"\n",
			wantErr: "server configuration",
		},
		{
			name:    "half tls",
			content: "server:\n  tls:\n    cert_file: /tmp/cert.pem\n",
			wantErr: "cert_file and key_file must be set together",
		},
		{
			name:    "zero search limit",
			content: "rdap:\n  max_results_authenticated: 0\n",
			wantErr: "max_results_authenticated must be positive",
		},
		{
			name:    "negative unauthenticated limit",
			content: "rdap:\n  max_results_unauthenticated: -1\n",
			wantErr: "max_results_unauthenticated must be positive",
		},
		{
			name:    "zero pattern length",
			content: "rdap:\n  min_search_pattern_length: 0\n",
			wantErr: "min_search_pattern_length",
		},
		{
			name:    "unknown kind",
			content: "rdap:\n  disabled_kinds: [tld]\n",
			wantErr: "disabled_kinds",
		},
		{
			name:    "unsupported dsn",
			content: "storage:\n  dsn: mongodb://localhost\n",
			wantErr: "storage configuration",
		},
		{
			name:    "bad log level",
			content: "logging:\n  level: verbose\n",
			wantErr: "invalid log level",
		},
		{
			name:    "negative rate",
			content: "rate_limit:\n  requests_per_second: -1\n",
			wantErr: "rate limit configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Fatalf("Expected read error, got %v", err)
	}
}
