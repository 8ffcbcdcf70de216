package config

import (
	"slices"
	"testing"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
)

func TestLoadTemplates(t *testing.T) {
	path := writeFile(t, "healthcheck-templates.yaml", `"*.my-domain1.com":
  type: HTTPS
  resource_path: /healthz
my-domain2.it:
  type: TCP
  port: 22
  regions: [us-east-1, eu-west-1, ap-southeast-1]
`)

	tm, err := LoadTemplatesFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"*.my-domain1.com", "my-domain2.it"}
	if got := tm.Patterns(); !slices.Equal(got, want) {
		t.Fatalf("expected patterns %v, got %v", want, got)
	}

	spec, ok := tm.Lookup("my-domain2.it")
	if !ok {
		t.Fatal("expected a template for my-domain2.it")
	}
	if spec.Port != 22 || len(spec.Regions) != 3 {
		t.Errorf("unexpected template: %+v", spec)
	}
}

func TestLoadTemplates_MissingType(t *testing.T) {
	path := writeFile(t, "healthcheck-templates.yaml", "app.example.com:\n  port: 80\n")
	if _, err := LoadTemplatesFromPath(path); err == nil {
		t.Fatal("expected error for template without type, got nil")
	}
}

func TestLookup(t *testing.T) {
	tm := NewTemplateMap(map[string]healthcheck.Spec{
		"my-domain1.com": {Type: "HTTPS"},
		"my-domain2.it":  {Type: "HTTP"},
	})

	tests := []struct {
		hostname string
		wantType string
		wantOK   bool
	}{
		{"app.my-domain1.com", "HTTPS", true},
		{"deep.nested.my-domain1.com", "HTTPS", true},
		{"my-domain1.com", "HTTPS", true},
		{"service.my-domain2.it", "HTTP", true},
		{"app.my-domain1.com.", "HTTPS", true}, // trailing dot (FQDN)
		{"unknown.com", "", false},
		{"notmydomain.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			spec, ok := tm.Lookup(tt.hostname)
			if ok != tt.wantOK {
				t.Errorf("Lookup(%q): got ok=%v, want %v", tt.hostname, ok, tt.wantOK)
			}
			if spec.Type != tt.wantType {
				t.Errorf("Lookup(%q): got type=%q, want %q", tt.hostname, spec.Type, tt.wantType)
			}
		})
	}
}

func TestLookupWildcard(t *testing.T) {
	tm := NewTemplateMap(map[string]healthcheck.Spec{
		"*.mydomain.com":       {Type: "HTTPS"},
		"app2.mydomain.com":    {Type: "HTTP"},
		"mydomain.com":         {Type: "TCP", Port: 443},
		"*.other.mydomain.com": {Type: "HTTPS_STR_MATCH", SearchString: "ok"},
	})

	tests := []struct {
		hostname string
		wantType string
		wantOK   bool
	}{
		{"app1.mydomain.com", "HTTPS", true},                // wildcard *.mydomain.com
		{"app2.mydomain.com", "HTTP", true},                 // exact wins
		{"deep.nested.mydomain.com", "HTTPS", true},         // wildcard (walks up)
		{"mydomain.com", "TCP", true},                       // exact base domain
		{"foo.other.mydomain.com", "HTTPS_STR_MATCH", true}, // wildcard *.other.mydomain.com
		{"other.mydomain.com", "HTTPS", true},               // wildcard *.mydomain.com
		{"other.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			spec, ok := tm.Lookup(tt.hostname)
			if ok != tt.wantOK {
				t.Errorf("Lookup(%q): got ok=%v, want %v", tt.hostname, ok, tt.wantOK)
			}
			if spec.Type != tt.wantType {
				t.Errorf("Lookup(%q): got type=%q, want %q", tt.hostname, spec.Type, tt.wantType)
			}
		})
	}
}

func TestLookup_WildcardSkipsBareDomain(t *testing.T) {
	tm := NewTemplateMap(map[string]healthcheck.Spec{"*.mydomain.com": {Type: "HTTPS"}})
	if _, ok := tm.Lookup("mydomain.com"); ok {
		t.Error("wildcard must not match the bare domain")
	}
}

func TestLookup_FillsEndpoint(t *testing.T) {
	tm := NewTemplateMap(map[string]healthcheck.Spec{
		"*.example.com":      {Type: "HTTPS", Regions: []string{"us-east-1", "us-west-1", "us-west-2"}},
		"db.example.com":     {Type: "TCP", Port: 5432, IPAddress: "192.0.2.20"},
		"status.example.com": {Type: "HTTP", FQDN: "status-origin.example.com"},
	})

	spec, _ := tm.Lookup("app.example.com.")
	if spec.FQDN != "app.example.com" {
		t.Errorf("expected fqdn from hostname, got %q", spec.FQDN)
	}
	spec.Regions[0] = "eu-west-1"
	again, _ := tm.Lookup("app.example.com")
	if again.Regions[0] != "us-east-1" {
		t.Error("Lookup must not hand out the template's region slice")
	}

	if spec, _ := tm.Lookup("db.example.com"); spec.FQDN != "" || spec.IPAddress != "192.0.2.20" {
		t.Errorf("template with an ip address must be kept as is: %+v", spec)
	}
	if spec, _ := tm.Lookup("status.example.com"); spec.FQDN != "status-origin.example.com" {
		t.Errorf("template fqdn must be kept, got %q", spec.FQDN)
	}
}

func TestLookup_CalculatedKeepsNoEndpoint(t *testing.T) {
	tm := NewTemplateMap(map[string]healthcheck.Spec{
		"status.example.com": {Type: "calculated", ChildHealthChecks: []string{"hc-1", "hc-2"}},
	})
	spec, ok := tm.Lookup("status.example.com")
	if !ok {
		t.Fatal("expected a template for status.example.com")
	}
	if spec.FQDN != "" {
		t.Errorf("calculated template must not get an fqdn, got %q", spec.FQDN)
	}
	if err := healthcheck.Validate(spec); err != nil {
		t.Errorf("expected a valid calculated check, got %v", err)
	}
}
