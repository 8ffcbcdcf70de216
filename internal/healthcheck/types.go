package healthcheck

import "slices"

// Type is the monitor protocol of a health check.
type Type string

const (
	TypeHTTP          Type = "HTTP"
	TypeHTTPS         Type = "HTTPS"
	TypeHTTPStrMatch  Type = "HTTP_STR_MATCH"
	TypeHTTPSStrMatch Type = "HTTPS_STR_MATCH"
	TypeTCP           Type = "TCP"
	TypeCalculated    Type = "CALCULATED"
)

// SupportedTypes lists every Type a health check can be declared with.
var SupportedTypes = []Type{TypeHTTP, TypeHTTPS, TypeHTTPStrMatch, TypeHTTPSStrMatch, TypeTCP, TypeCalculated}

// Known reports whether t is a supported monitor type.
func (t Type) Known() bool {
	return slices.Contains(SupportedTypes, t)
}

// Secure reports whether t probes over TLS.
func (t Type) Secure() bool {
	return t == TypeHTTPS || t == TypeHTTPSStrMatch
}

// StringMatch reports whether t checks the response body for a search string.
func (t Type) StringMatch() bool {
	return t == TypeHTTPStrMatch || t == TypeHTTPSStrMatch
}

// Endpoint reports whether t probes a network endpoint, and therefore needs a
// port plus an ip address or a domain name.
func (t Type) Endpoint() bool {
	switch t {
	case TypeHTTP, TypeHTTPS, TypeHTTPStrMatch, TypeHTTPSStrMatch, TypeTCP:
		return true
	}
	return false
}

// Spec is a health check as declared by the user. Unset fields take the
// defaults applied by Build.
type Spec struct {
	Type             string   `yaml:"type" json:"type"`
	IPAddress        string   `yaml:"ip_address,omitempty" json:"ip_address,omitempty"`
	Port             int32    `yaml:"port,omitempty" json:"port,omitempty"`
	FQDN             string   `yaml:"fqdn,omitempty" json:"fqdn,omitempty"`
	SearchString     string   `yaml:"search_string,omitempty" json:"search_string,omitempty"`
	ResourcePath     string   `yaml:"resource_path,omitempty" json:"resource_path,omitempty"`
	EnableSNI        *bool    `yaml:"enable_sni,omitempty" json:"enable_sni,omitempty"`
	RequestInterval  int32    `yaml:"request_interval,omitempty" json:"request_interval,omitempty"`
	FailureThreshold int32    `yaml:"failure_threshold,omitempty" json:"failure_threshold,omitempty"`
	Inverted         bool     `yaml:"inverted,omitempty" json:"inverted,omitempty"`
	MeasureLatency   bool     `yaml:"measure_latency,omitempty" json:"measure_latency,omitempty"`
	Regions          []string `yaml:"regions,omitempty" json:"regions,omitempty"`
	FailOnError      *bool    `yaml:"fail_on_error,omitempty" json:"fail_on_error,omitempty"`

	// ChildHealthChecks and HealthThreshold apply to CALCULATED checks only.
	ChildHealthChecks []string `yaml:"child_health_checks,omitempty" json:"child_health_checks,omitempty"`
	HealthThreshold   int32    `yaml:"health_threshold,omitempty" json:"health_threshold,omitempty"`
}

// DesiredConfig is the canonical configuration a health check should converge to.
// Optional string fields are nil when not set; an empty string is never stored.
type DesiredConfig struct {
	Type              Type     `json:"type"`
	IPAddress         *string  `json:"ipAddress,omitempty"`
	Port              int32    `json:"port,omitempty"`
	FQDN              *string  `json:"fqdn,omitempty"`
	SearchString      *string  `json:"searchString,omitempty"`
	ResourcePath      *string  `json:"resourcePath,omitempty"`
	EnableSNI         bool     `json:"enableSni"`
	RequestInterval   int32    `json:"requestInterval"`
	FailureThreshold  int32    `json:"failureThreshold"`
	Inverted          bool     `json:"inverted"`
	MeasureLatency    bool     `json:"measureLatency"`
	Regions           []string `json:"checkRegions"`
	ChildHealthChecks []string `json:"childHealthChecks,omitempty"`
	HealthThreshold   int32    `json:"healthThreshold,omitempty"`

	// FailOnError is local only and never sent to the provider.
	FailOnError bool `json:"-"`
}

// RemoteConfig is the live configuration reported by the provider.
type RemoteConfig struct {
	Type              Type
	IPAddress         *string
	Port              int32
	FQDN              *string
	SearchString      *string
	ResourcePath      *string
	EnableSNI         bool
	RequestInterval   int32
	FailureThreshold  int32
	Inverted          bool
	MeasureLatency    bool
	Regions           []string
	ChildHealthChecks []string
	HealthThreshold   int32
}

// MutableConfig is the subset of a configuration that may be changed on an
// existing health check. It has no type, request interval or latency field, so
// an update can never carry them.
type MutableConfig struct {
	IPAddress         *string  `json:"ipAddress,omitempty"`
	Port              int32    `json:"port,omitempty"`
	FQDN              *string  `json:"fqdn,omitempty"`
	SearchString      *string  `json:"searchString,omitempty"`
	ResourcePath      *string  `json:"resourcePath,omitempty"`
	EnableSNI         bool     `json:"enableSni"`
	FailureThreshold  int32    `json:"failureThreshold"`
	Inverted          bool     `json:"inverted"`
	Regions           []string `json:"checkRegions"`
	ChildHealthChecks []string `json:"childHealthChecks,omitempty"`
	HealthThreshold   int32    `json:"healthThreshold,omitempty"`

	// Endpoint is set for checks that monitor an endpoint. Endpoint settings are
	// only sent for those.
	Endpoint bool `json:"-"`
}

// Mutable returns the fields of d that an update may carry.
func (d DesiredConfig) Mutable() MutableConfig {
	return MutableConfig{
		IPAddress:         d.IPAddress,
		Port:              d.Port,
		FQDN:              d.FQDN,
		SearchString:      d.SearchString,
		ResourcePath:      d.ResourcePath,
		EnableSNI:         d.EnableSNI,
		FailureThreshold:  d.FailureThreshold,
		Inverted:          d.Inverted,
		Regions:           slices.Clone(d.Regions),
		ChildHealthChecks: slices.Clone(d.ChildHealthChecks),
		HealthThreshold:   d.HealthThreshold,
		Endpoint:          d.Type.Endpoint(),
	}
}

// Remote returns the configuration the provider should report once d has been applied.
func (d DesiredConfig) Remote() RemoteConfig {
	return RemoteConfig{
		Type:              d.Type,
		IPAddress:         d.IPAddress,
		Port:              d.Port,
		FQDN:              d.FQDN,
		SearchString:      d.SearchString,
		ResourcePath:      d.ResourcePath,
		EnableSNI:         d.EnableSNI,
		RequestInterval:   d.RequestInterval,
		FailureThreshold:  d.FailureThreshold,
		Inverted:          d.Inverted,
		MeasureLatency:    d.MeasureLatency,
		Regions:           slices.Clone(d.Regions),
		ChildHealthChecks: slices.Clone(d.ChildHealthChecks),
		HealthThreshold:   d.HealthThreshold,
	}
}
