package config

import (
	"fmt"
	"os"
	"slices"

	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
)

// HealthChecks holds the declared health checks by logical name.
type HealthChecks struct {
	Checks map[string]healthcheck.Spec `yaml:"health_checks"`
}

// LoadHealthChecks reads the declarations from the path in HEALTHCHECKS_PATH,
// defaulting to "configs/healthchecks.yaml".
func LoadHealthChecks() (*HealthChecks, error) {
	path := os.Getenv("HEALTHCHECKS_PATH")
	if path == "" {
		path = "configs/healthchecks.yaml"
	}
	return LoadHealthChecksFromPath(path)
}

// LoadHealthChecksFromPath reads the declarations from the given file path.
// Entries are not validated here; the reconciler validates each one before use.
func LoadHealthChecksFromPath(path string) (*HealthChecks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading health check file: %w", err)
	}

	var hc HealthChecks
	if err := yaml.Unmarshal(data, &hc); err != nil {
		return nil, fmt.Errorf("parsing health check file: %w", err)
	}
	if hc.Checks == nil {
		hc.Checks = make(map[string]healthcheck.Spec)
	}
	return &hc, nil
}

// Names returns the logical names in sorted order.
func (hc *HealthChecks) Names() []string {
	names := make([]string, 0, len(hc.Checks))
	for name := range hc.Checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns the declaration for name.
func (hc *HealthChecks) Get(name string) (healthcheck.Spec, bool) {
	spec, ok := hc.Checks[name]
	return spec, ok
}
