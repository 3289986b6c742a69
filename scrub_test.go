package pulseagent

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestScrubAppConfigs(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		extra   string
		wantRed bool
	}{
		{"suffix password", "db_password", "", true},
		{"suffix key", "aws_secret_key", "", true},
		{"suffix token", "github_token", "", true},
		{"upper case", "DB_PASSWORD", "", true},
		{"camel case password", "MyPassword", "", true},
		{"camel case token", "apiToken", "", true},
		{"camel case key", "APIKey", "", true},
		{"extra pattern", "foobar", ".*bar", true},
		{"extra pattern is full match", "foobarbaz", ".*bar", false},
		{"extra pattern case-insensitive", "FOOBAR", ".*bar", true},
		{"plain config", "MyConfig", "", false},
		{"no separator", "password", "", false},
		{"password mid-key", "password_hint", "", false},
		{"value is never inspected", "url", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []AppConfigEntry{{Key: tt.key, Value: "original"}}
			if err := ScrubAppConfigs(entries, tt.extra); err != nil {
				t.Fatalf("ScrubAppConfigs() error = %v", err)
			}

			want := "original"
			if tt.wantRed {
				want = RedactedValue
			}
			if entries[0].Value != want {
				t.Errorf("Value = %q, want %q", entries[0].Value, want)
			}
			if entries[0].Key != tt.key {
				t.Errorf("Key = %q, want it unchanged", entries[0].Key)
			}
		})
	}
}

func TestScrubAppConfigs_Empty(t *testing.T) {
	if err := ScrubAppConfigs(nil, ""); err != nil {
		t.Errorf("ScrubAppConfigs(nil) error = %v", err)
	}
}

func TestScrubAppConfigs_InvalidPattern(t *testing.T) {
	entries := []AppConfigEntry{{Key: "db_password", Value: "hunter2"}}

	err := ScrubAppConfigs(entries, "[unclosed")
	if err == nil {
		t.Fatal("ScrubAppConfigs() expected error, got nil")
	}
	if !errors.Is(err, ErrInvalidScrubPattern) {
		t.Errorf("error = %v, want ErrInvalidScrubPattern", err)
	}
	if entries[0].Value != "hunter2" {
		t.Errorf("Value = %q, entries must be untouched on error", entries[0].Value)
	}
}

func TestSplitCamel(t *testing.T) {
	tests := map[string]string{
		"MyPassword":  "My_Password",
		"apiToken":    "api_Token",
		"APIKey":      "API_Key",
		"db_password": "db_password",
		"v2Token":     "v2_Token",
		"URL":         "URL",
	}
	for in, want := range tests {
		if got := splitCamel(in); got != want {
			t.Errorf("splitCamel(%q) = %q, want %q", in, got, want)
		}
	}
}
