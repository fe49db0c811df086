package config

import (
	"errors"
	"testing"
)

func TestResolveAPIKey(t *testing.T) {
	t.Run("environment wins over config", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-from-config"}}
		key, source, err := ResolveAPIKey(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-ant-from-env" || source != KeySourceEnv {
			t.Errorf("resolved %q from %s, want the environment key", key, source)
		}
	})

	t.Run("config fallback expands references", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		t.Setenv("DELEGA_TEST_KEY", "sk-ant-expanded-key")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${DELEGA_TEST_KEY}"}}
		key, source, err := ResolveAPIKey(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-ant-expanded-key" || source != KeySourceConfig {
			t.Errorf("resolved %q from %s, want the expanded config key", key, source)
		}
	})

	t.Run("unresolved reference is no key", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${DELEGA_UNSET_TEST_KEY}"}}
		if _, source, err := ResolveAPIKey(cfg); !errors.Is(err, ErrNoAPIKey) || source != KeySourceNone {
			t.Errorf("got source %s, err %v, want KeySourceNone with ErrNoAPIKey", source, err)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		if _, _, err := ResolveAPIKey(&Config{}); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "sk-ant-REDACTED", false},
		{"empty key", "", true},
		{"wrong prefix", "sk-openai-12345678901234567890", true},
		{"too short", "sk-ant-abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"valid key", "sk-ant-REDACTED", "sk-ant-...wxyz"},
		{"empty key", "", "(not set)"},
		{"short key", "short", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.expected {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}
