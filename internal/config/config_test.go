package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Backend: BackendConfig{
			Addrs: []string{"localhost:6379"},
		},
		TextSearch: TextSearchConfig{Root: "/notes"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingBackendAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.Addrs = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing backend addrs")
	}
}

func TestValidate_MissingTextSearchRoot(t *testing.T) {
	cfg := validConfig()
	cfg.TextSearch.Root = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing text search root")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Backend.Index != "kensaku-notes" {
		t.Errorf("expected Index='kensaku-notes', got %q", cfg.Backend.Index)
	}
	if cfg.Backend.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Backend.ReadinessTimeout)
	}
	if cfg.Backend.TimeoutSec != 30 {
		t.Errorf("expected TimeoutSec=30, got %d", cfg.Backend.TimeoutSec)
	}
	if cfg.TextSearch.TimeoutSec != 10 {
		t.Errorf("expected TextSearch.TimeoutSec=10, got %d", cfg.TextSearch.TimeoutSec)
	}
	if cfg.TextSearch.MaxMatches != 20 {
		t.Errorf("expected MaxMatches=20, got %d", cfg.TextSearch.MaxMatches)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Backend:    BackendConfig{Index: "custom", ReadinessTimeout: 15, TimeoutSec: 5},
		TextSearch: TextSearchConfig{TimeoutSec: 3, MaxMatches: 50},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Backend.Index != "custom" {
		t.Errorf("expected Index='custom', got %q", cfg.Backend.Index)
	}
	if cfg.Backend.TimeoutSec != 5 {
		t.Errorf("expected TimeoutSec=5, got %d", cfg.Backend.TimeoutSec)
	}
	if cfg.TextSearch.MaxMatches != 50 {
		t.Errorf("expected MaxMatches=50, got %d", cfg.TextSearch.MaxMatches)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("KENSAKU_TEST_VAR", "secret")

	in := []byte("api_key: ${KENSAKU_TEST_VAR}\nbase_url: ${KENSAKU_MISSING:-https://example.com/v1}\n")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nbase_url: https://example.com/v1\n"
	if out != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, want)
	}
}
