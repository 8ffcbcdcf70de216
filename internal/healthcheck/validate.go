package healthcheck

import (
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

const (
	minRegions     = 3
	maxChildChecks = 256
)

// Validate reports every field of spec the provider would reject.
// It returns nil or a field.ErrorList aggregate.
func Validate(spec Spec) error {
	var errs field.ErrorList
	cfg := Build(spec)

	if spec.Type == "" {
		errs = append(errs, field.Required(field.NewPath("type"), ""))
	} else if !cfg.Type.Known() {
		supported := make([]string, 0, len(SupportedTypes))
		for _, t := range SupportedTypes {
			supported = append(supported, string(t))
		}
		errs = append(errs, field.NotSupported(field.NewPath("type"), spec.Type, supported))
	}

	if cfg.Type.Endpoint() {
		if cfg.Port < 1 || cfg.Port > 65535 {
			errs = append(errs, field.Invalid(field.NewPath("port"), cfg.Port, "must be between 1 and 65535"))
		}
		if cfg.IPAddress == nil && cfg.FQDN == nil {
			errs = append(errs, field.Required(field.NewPath("fqdn"), "one of ip_address or fqdn is required"))
		}
	}

	if cfg.RequestInterval != 10 && cfg.RequestInterval != 30 {
		errs = append(errs, field.NotSupported(field.NewPath("request_interval"), cfg.RequestInterval, []string{"10", "30"}))
	}
	if cfg.FailureThreshold < 1 || cfg.FailureThreshold > 10 {
		errs = append(errs, field.Invalid(field.NewPath("failure_threshold"), cfg.FailureThreshold, "must be between 1 and 10"))
	}

	if len(spec.Regions) > 0 && len(cfg.Regions) < minRegions {
		errs = append(errs, field.Invalid(field.NewPath("regions"), strings.Join(cfg.Regions, ","), "at least 3 distinct regions are required"))
	}

	if !cfg.Type.Endpoint() && cfg.Type.Known() {
		endpointOnly := []struct {
			name string
			set  bool
		}{
			{"ip_address", cfg.IPAddress != nil},
			{"fqdn", cfg.FQDN != nil},
			{"resource_path", cfg.ResourcePath != nil},
			{"port", spec.Port != 0},
			{"request_interval", spec.RequestInterval != 0},
			{"failure_threshold", spec.FailureThreshold != 0},
			{"measure_latency", spec.MeasureLatency},
			{"regions", len(spec.Regions) > 0},
		}
		for _, f := range endpointOnly {
			if f.set {
				errs = append(errs, field.Forbidden(field.NewPath(f.name), "only allowed for health checks that probe an endpoint"))
			}
		}
	}
	if cfg.Type == TypeCalculated {
		children := field.NewPath("child_health_checks")
		switch n := len(cfg.ChildHealthChecks); {
		case n == 0:
			errs = append(errs, field.Required(children, "required for CALCULATED health checks"))
		case n > maxChildChecks:
			errs = append(errs, field.TooMany(children, n, maxChildChecks))
		}
		if cfg.HealthThreshold < 0 || int(cfg.HealthThreshold) > len(cfg.ChildHealthChecks) {
			errs = append(errs, field.Invalid(field.NewPath("health_threshold"), cfg.HealthThreshold,
				"must be between 0 and the number of child health checks"))
		}
	} else {
		if len(spec.ChildHealthChecks) > 0 {
			errs = append(errs, field.Forbidden(field.NewPath("child_health_checks"), "only allowed for CALCULATED health checks"))
		}
		if spec.HealthThreshold != 0 {
			errs = append(errs, field.Forbidden(field.NewPath("health_threshold"), "only allowed for CALCULATED health checks"))
		}
	}

	if spec.EnableSNI != nil && *spec.EnableSNI && !cfg.Type.Secure() {
		errs = append(errs, field.Forbidden(field.NewPath("enable_sni"), "only allowed for HTTPS health checks"))
	}

	if cfg.SearchString != nil && !cfg.Type.StringMatch() {
		errs = append(errs, field.Forbidden(field.NewPath("search_string"), "only allowed for HTTP_STR_MATCH and HTTPS_STR_MATCH"))
	}
	if cfg.Type.StringMatch() && cfg.SearchString == nil {
		errs = append(errs, field.Required(field.NewPath("search_string"), "required for string matching health checks"))
	}
	if cfg.ResourcePath != nil && !strings.HasPrefix(*cfg.ResourcePath, "/") {
		errs = append(errs, field.Invalid(field.NewPath("resource_path"), *cfg.ResourcePath, "must start with /"))
	}

	return errs.ToAggregate()
}
