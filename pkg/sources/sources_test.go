package sources

import (
	"testing"

	"github.com/nuspect/nuspect/pkg/errors"
)

func strptr(s string) *string { return &s }

func validConfig(name string, priority int) Config {
	return Config{
		Name:     name,
		URL:      "https://example.test/v3/index.json",
		Kind:     KindNuGet,
		Enabled:  true,
		Priority: priority,
	}
}

func TestEnabledSourcesOrdering(t *testing.T) {
	r, err := NewRegistry([]Config{
		validConfig("low", 1),
		validConfig("high", 10),
		{Name: "off", URL: "https://example.test", Kind: KindNuGet, Enabled: false, Priority: 100},
		validConfig("mid", 5),
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	got := r.EnabledSources()
	want := []string{"high", "mid", "low"}
	if len(got) != len(want) {
		t.Fatalf("got %d sources, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("position %d: %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestEnabledSourcesStableOnTies(t *testing.T) {
	r, err := NewRegistry([]Config{
		validConfig("first", 5),
		validConfig("second", 5),
		validConfig("third", 5),
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	got := r.EnabledSources()
	for i, name := range []string{"first", "second", "third"} {
		if got[i].Name != name {
			t.Errorf("equal priorities must keep declaration order; position %d = %q", i, got[i].Name)
		}
	}
}

func TestPrimarySource(t *testing.T) {
	r, _ := NewRegistry([]Config{validConfig("a", 1), validConfig("b", 2)})
	primary, err := r.PrimarySource()
	if err != nil {
		t.Fatalf("PrimarySource: %v", err)
	}
	if primary.Name != "b" {
		t.Errorf("primary = %q, want b", primary.Name)
	}
}

func TestPrimarySourceNoneEnabled(t *testing.T) {
	cfg := validConfig("a", 1)
	cfg.Enabled = false
	r, _ := NewRegistry([]Config{cfg})

	_, err := r.PrimarySource()
	if errors.GetCode(err) != errors.ErrCodeNoEnabledSources {
		t.Errorf("code = %s, want NO_ENABLED_SOURCES", errors.GetCode(err))
	}
}

func TestNewRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry([]Config{validConfig("dup", 1), validConfig("dup", 2)})
	if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Errorf("code = %s, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode errors.Code
	}{
		{"valid anonymous", func(c *Config) {}, ""},
		{"valid api key", func(c *Config) { c.APIKey = strptr("key") }, ""},
		{"valid basic auth", func(c *Config) { c.Username = strptr("u"); c.Password = strptr("p") }, ""},
		{"empty name", func(c *Config) { c.Name = " " }, errors.ErrCodeInvalidConfig},
		{"bad url", func(c *Config) { c.URL = "ftp://feed" }, errors.ErrCodeInvalidConfig},
		{"unknown kind", func(c *Config) { c.Kind = "gopher" }, errors.ErrCodeInvalidConfig},
		{"both auth schemes", func(c *Config) {
			c.APIKey = strptr("key")
			c.Username = strptr("u")
			c.Password = strptr("p")
		}, errors.ErrCodeInvalidConfig},
		{"blank api key", func(c *Config) { c.APIKey = strptr("  ") }, errors.ErrCodeBlankCredential},
		{"blank username", func(c *Config) { c.Username = strptr("") }, errors.ErrCodeBlankCredential},
		{"blank password", func(c *Config) { c.Username = strptr("u"); c.Password = strptr("") }, errors.ErrCodeBlankCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig("src", 1)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("code = %s, want %s", errors.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestAzdoRequiresFeedID(t *testing.T) {
	cfg := validConfig("corp", 1)
	cfg.Kind = KindAzureDevOps
	if err := cfg.Validate(); errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Errorf("azdo source without feed id: code = %s, want INVALID_CONFIG", errors.GetCode(err))
	}
	cfg.FeedID = "my-feed"
	if err := cfg.Validate(); err != nil {
		t.Errorf("azdo source with feed id: %v", err)
	}
}
