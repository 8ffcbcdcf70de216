package healthcheck

import "slices"

// Kind classifies the outcome of comparing desired and live configuration.
type Kind int

const (
	Unchanged Kind = iota
	NeedsUpdate
	ImmutableConflict
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "Unchanged"
	case NeedsUpdate:
		return "NeedsUpdate"
	case ImmutableConflict:
		return "ImmutableConflict"
	}
	return "Unknown"
}

// Field names as reported in a Result.
const (
	FieldType              = "type"
	FieldRequestInterval   = "request_interval"
	FieldMeasureLatency    = "measure_latency"
	FieldPort              = "port"
	FieldEnableSNI         = "enable_sni"
	FieldFailureThreshold  = "failure_threshold"
	FieldInverted          = "inverted"
	FieldRegions           = "regions"
	FieldIPAddress         = "ip_address"
	FieldResourcePath      = "resource_path"
	FieldFQDN              = "fqdn"
	FieldSearchString      = "search_string"
	FieldChildHealthChecks = "child_health_checks"
	FieldHealthThreshold   = "health_threshold"
)

// ImmutableFields cannot change on an existing health check, in the order Diff checks them.
var ImmutableFields = []string{FieldType, FieldRequestInterval, FieldMeasureLatency}

// Result is the outcome of Diff.
type Result struct {
	Kind Kind

	// Changed lists the differing mutable fields when Kind is NeedsUpdate.
	Changed []string
	// Update is the full mutable record to send when Kind is NeedsUpdate.
	Update MutableConfig

	// Field, Desired and Current describe the conflict when Kind is ImmutableConflict.
	Field   string
	Desired any
	Current any
}

// Err returns an *ImmutableFieldConflictError for a conflicting result and nil otherwise.
func (r Result) Err() error {
	if r.Kind != ImmutableConflict {
		return nil
	}
	return &ImmutableFieldConflictError{Field: r.Field, Desired: r.Desired, Current: r.Current}
}

// Diff compares desired against the live configuration.
// Immutable fields are checked first and the first mismatch wins.
func Diff(desired DesiredConfig, current RemoteConfig) Result {
	immutable := []struct {
		name             string
		desired, current any
	}{
		{FieldType, desired.Type, current.Type},
		{FieldRequestInterval, desired.RequestInterval, current.RequestInterval},
		{FieldMeasureLatency, desired.MeasureLatency, current.MeasureLatency},
	}
	for _, f := range immutable {
		if f.desired != f.current {
			return Result{Kind: ImmutableConflict, Field: f.name, Desired: f.desired, Current: f.current}
		}
	}

	var changed []string
	if desired.Port != current.Port {
		changed = append(changed, FieldPort)
	}
	if desired.EnableSNI != current.EnableSNI {
		changed = append(changed, FieldEnableSNI)
	}
	if desired.FailureThreshold != current.FailureThreshold {
		changed = append(changed, FieldFailureThreshold)
	}
	if desired.Inverted != current.Inverted {
		changed = append(changed, FieldInverted)
	}
	if !slices.Equal(NormalizeRegions(desired.Regions), NormalizeRegions(current.Regions)) {
		changed = append(changed, FieldRegions)
	}
	if !equalOptional(desired.IPAddress, current.IPAddress) {
		changed = append(changed, FieldIPAddress)
	}
	if !equalOptional(desired.ResourcePath, current.ResourcePath) {
		changed = append(changed, FieldResourcePath)
	}
	if !equalOptional(desired.FQDN, current.FQDN) {
		changed = append(changed, FieldFQDN)
	}
	if !equalOptional(desired.SearchString, current.SearchString) {
		changed = append(changed, FieldSearchString)
	}
	if !slices.Equal(normalizeIDs(desired.ChildHealthChecks), normalizeIDs(current.ChildHealthChecks)) {
		changed = append(changed, FieldChildHealthChecks)
	}
	if desired.HealthThreshold != current.HealthThreshold {
		changed = append(changed, FieldHealthThreshold)
	}

	if len(changed) == 0 {
		return Result{Kind: Unchanged}
	}
	return Result{Kind: NeedsUpdate, Changed: changed, Update: desired.Mutable()}
}

// equalOptional treats a nil pointer as "not set", which never equals a set value.
func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
