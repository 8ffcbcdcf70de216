package healthcheck

import (
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	DefaultRequestInterval  int32 = 30
	DefaultFailureThreshold int32 = 3
)

// DefaultRegions are the regions a health check is probed from when none are declared.
var DefaultRegions = []string{"us-west-1", "us-east-1", "us-west-2"}

// Build derives the canonical DesiredConfig from a declared Spec.
// It has no side effects and returns the same value for the same input.
func Build(spec Spec) DesiredConfig {
	t := Type(strings.ToUpper(strings.TrimSpace(spec.Type)))

	cfg := DesiredConfig{
		Type:              t,
		IPAddress:         optional(spec.IPAddress),
		Port:              spec.Port,
		FQDN:              optional(strings.TrimSuffix(strings.TrimSpace(spec.FQDN), ".")),
		SearchString:      optional(spec.SearchString),
		ResourcePath:      optional(spec.ResourcePath),
		EnableSNI:         t.Secure(),
		RequestInterval:   spec.RequestInterval,
		FailureThreshold:  spec.FailureThreshold,
		Inverted:          spec.Inverted,
		MeasureLatency:    spec.MeasureLatency,
		Regions:           NormalizeRegions(spec.Regions),
		ChildHealthChecks: normalizeIDs(spec.ChildHealthChecks),
		HealthThreshold:   spec.HealthThreshold,
		FailOnError:       true,
	}

	if spec.EnableSNI != nil {
		cfg.EnableSNI = *spec.EnableSNI
	}
	if spec.FailOnError != nil {
		cfg.FailOnError = *spec.FailOnError
	}
	if cfg.RequestInterval == 0 {
		cfg.RequestInterval = DefaultRequestInterval
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort(t)
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = NormalizeRegions(DefaultRegions)
	}
	// Unless told otherwise a calculated check is healthy only when every child is.
	if t == TypeCalculated && cfg.HealthThreshold == 0 {
		cfg.HealthThreshold = int32(len(cfg.ChildHealthChecks))
	}
	return cfg
}

// NormalizeRegions returns a lower-cased, de-duplicated, ascending copy of regions.
// Empty entries are dropped; a nil result means no regions were given.
func NormalizeRegions(regions []string) []string {
	set := sets.New[string]()
	for _, r := range regions {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			set.Insert(r)
		}
	}
	if set.Len() == 0 {
		return nil
	}
	return sets.List(set)
}

// normalizeIDs returns a trimmed, de-duplicated, ascending copy of ids.
func normalizeIDs(ids []string) []string {
	set := sets.New[string]()
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set.Insert(id)
		}
	}
	if set.Len() == 0 {
		return nil
	}
	return sets.List(set)
}

func defaultPort(t Type) int32 {
	switch t {
	case TypeHTTP, TypeHTTPStrMatch:
		return 80
	case TypeHTTPS, TypeHTTPSStrMatch:
		return 443
	}
	return 0
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
