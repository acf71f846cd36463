package errors

import (
	"strings"
	"testing"
)

func TestValidatePackageID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid simple", "Newtonsoft.Json", false},
		{"valid with hyphen", "my-package", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 101), true},
		{"path traversal", "../etc/passwd", true},
		{"double slash", "a//b", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"control character", "pkg\x01name", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && GetCode(err) != ErrCodeInvalidPackage {
				t.Errorf("expected INVALID_PACKAGE code, got %s", GetCode(err))
			}
		})
	}
}

func TestValidateNuGetPackageID(t *testing.T) {
	valid := []string{"Newtonsoft.Json", "Microsoft.Extensions.Logging", "x", "A1.B2-c3", "under_score"}
	for _, id := range valid {
		if err := ValidateNuGetPackageID(id); err != nil {
			t.Errorf("ValidateNuGetPackageID(%q) = %v, want nil", id, err)
		}
	}
	invalid := []string{"", ".leading", "trailing.", "two..dots", "sp ace", "semi;colon", "pct%20"}
	for _, id := range invalid {
		if err := ValidateNuGetPackageID(id); err == nil {
			t.Errorf("ValidateNuGetPackageID(%q) = nil, want error", id)
		}
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://api.nuget.org/v3/index.json"); err != nil {
		t.Errorf("https URL rejected: %v", err)
	}
	if err := ValidateURL("http://localhost:8080/feed"); err != nil {
		t.Errorf("http URL rejected: %v", err)
	}
	for _, u := range []string{"", "ftp://host/feed", "file:///etc/passwd", "nuget.org"} {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}

func TestValidateCredential(t *testing.T) {
	key := "secret"
	blank := "   "
	empty := ""

	if err := ValidateCredential("api key", nil); err != nil {
		t.Errorf("absent credential should be valid, got %v", err)
	}
	if err := ValidateCredential("api key", &key); err != nil {
		t.Errorf("set credential should be valid, got %v", err)
	}
	for name, v := range map[string]*string{"blank": &blank, "empty": &empty} {
		err := ValidateCredential("api key", v)
		if err == nil {
			t.Errorf("%s credential should be rejected", name)
			continue
		}
		if GetCode(err) != ErrCodeBlankCredential {
			t.Errorf("%s credential: code = %s, want BLANK_CREDENTIAL", name, GetCode(err))
		}
	}
}
