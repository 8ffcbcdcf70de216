package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
)

// TemplateMap maps hostname patterns to health check templates.
type TemplateMap struct {
	entries map[string]healthcheck.Spec
}

// NewTemplateMap returns a TemplateMap over the given entries.
func NewTemplateMap(entries map[string]healthcheck.Spec) *TemplateMap {
	return &TemplateMap{entries: entries}
}

// LoadTemplates reads the template map from the path in HEALTHCHECK_TEMPLATES_PATH,
// defaulting to "configs/healthcheck-templates.yaml".
func LoadTemplates() (*TemplateMap, error) {
	path := os.Getenv("HEALTHCHECK_TEMPLATES_PATH")
	if path == "" {
		path = "configs/healthcheck-templates.yaml"
	}
	return LoadTemplatesFromPath(path)
}

// LoadTemplatesFromPath reads a YAML file mapping hostname patterns to templates.
func LoadTemplatesFromPath(path string) (*TemplateMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template file: %w", err)
	}

	entries := make(map[string]healthcheck.Spec)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing template file: %w", err)
	}

	for pattern, spec := range entries {
		if spec.Type == "" {
			return nil, fmt.Errorf("template %q: missing required field 'type'", pattern)
		}
	}

	return &TemplateMap{entries: entries}, nil
}

// Lookup finds the template for a hostname by matching against the patterns.
// It walks up the domain labels checking for exact matches and wildcard entries.
// Exact matches take priority over wildcards. For example, given:
//
//	"*.mydomain.com":    {type: HTTPS}
//	"app2.mydomain.com": {type: HTTP}
//
// "app1.mydomain.com" gets the HTTPS template (wildcard match)
// "app2.mydomain.com" gets the HTTP template (exact match wins)
//
// When an endpoint template names neither ip_address nor fqdn, fqdn is set to the hostname.
func (tm *TemplateMap) Lookup(hostname string) (healthcheck.Spec, bool) {
	hostname = strings.TrimSuffix(hostname, ".")
	// Walk up the domain labels until we find a match
	for h := hostname; h != ""; {
		if spec, ok := tm.entries[h]; ok {
			return forHost(spec, hostname), true
		}
		idx := strings.Index(h, ".")
		if idx < 0 {
			break
		}
		if spec, ok := tm.entries["*."+h[idx+1:]]; ok {
			return forHost(spec, hostname), true
		}
		h = h[idx+1:]
	}
	return healthcheck.Spec{}, false
}

// Patterns returns all configured hostname patterns, sorted.
func (tm *TemplateMap) Patterns() []string {
	patterns := make([]string, 0, len(tm.entries))
	for p := range tm.entries {
		patterns = append(patterns, p)
	}
	slices.Sort(patterns)
	return patterns
}

func forHost(spec healthcheck.Spec, hostname string) healthcheck.Spec {
	spec.Regions = slices.Clone(spec.Regions)
	spec.ChildHealthChecks = slices.Clone(spec.ChildHealthChecks)
	t := healthcheck.Type(strings.ToUpper(strings.TrimSpace(spec.Type)))
	if t.Endpoint() && spec.IPAddress == "" && spec.FQDN == "" {
		spec.FQDN = hostname
	}
	return spec
}
