package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigString(t *testing.T) {
	cfg := Config{Name: "orders", MailboxBufferSize: 32}

	str := cfg.String()

	if !strings.Contains(str, "Name:orders") {
		t.Errorf("Config.String() should contain the network name, got %s", str)
	}
	if !strings.Contains(str, "MailboxBufferSize:32") {
		t.Errorf("Config.String() should contain mailbox settings, got %s", str)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config

	if got := cfg.GetMailboxTransport(); got != DefaultMailboxTransport {
		t.Errorf("GetMailboxTransport() = %q, want %q", got, DefaultMailboxTransport)
	}
	if got := cfg.NetworkName(); got != "chanflow" {
		t.Errorf("NetworkName() = %q, want chanflow", got)
	}

	var nilCfg *Config
	if got := nilCfg.NetworkName(); got != "chanflow" {
		t.Errorf("nil NetworkName() = %q, want chanflow", got)
	}

	cfg.MailboxTransport = "custom"
	if got := cfg.GetMailboxTransport(); got != "custom" {
		t.Errorf("GetMailboxTransport() = %q, want custom", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "zero value is valid", cfg: Config{}},
		{
			name: "fully specified",
			cfg: Config{
				Name:                 "net",
				MailboxBufferSize:    16,
				RetryMaxRetries:      3,
				RetryInitialInterval: time.Millisecond,
				RetryMaxInterval:     time.Second,
				MetricsEnabled:       true,
				MetricsPort:          9090,
				TopologyEnabled:      true,
				TopologyPort:         8081,
			},
		},
		{name: "negative buffer", cfg: Config{MailboxBufferSize: -1}, wantErr: "mailbox: buffer size cannot be negative"},
		{name: "padded transport", cfg: Config{MailboxTransport: " channel"}, wantErr: "surrounding whitespace"},
		{name: "negative retries", cfg: Config{RetryMaxRetries: -1}, wantErr: "retry: max retries cannot be negative"},
		{name: "negative initial interval", cfg: Config{RetryInitialInterval: -time.Second}, wantErr: "retry: initial interval cannot be negative"},
		{name: "negative max interval", cfg: Config{RetryMaxInterval: -time.Second}, wantErr: "retry: max interval cannot be negative"},
		{
			name:    "initial exceeds max",
			cfg:     Config{RetryInitialInterval: time.Minute, RetryMaxInterval: time.Second},
			wantErr: "retry: initial interval cannot exceed max interval",
		},
		{name: "metrics port", cfg: Config{MetricsPort: 70000}, wantErr: "metrics: invalid port 70000"},
		{name: "topology port", cfg: Config{TopologyPort: -2}, wantErr: "topology: invalid port -2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Config{MailboxBufferSize: -1, RetryMaxRetries: -1, MetricsPort: -1}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"mailbox", "retry", "metrics"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q should mention %s", err, want)
		}
	}
}

func TestValidateConfigNil(t *testing.T) {
	if err := ValidateConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if err := ValidateConfig(&Config{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
