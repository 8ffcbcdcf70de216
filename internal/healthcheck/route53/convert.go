package route53

import (
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	r53 "github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
)

func toConfig(cfg healthcheck.DesiredConfig) *r53types.HealthCheckConfig {
	out := &r53types.HealthCheckConfig{
		Type:                     r53types.HealthCheckType(cfg.Type),
		IPAddress:                cfg.IPAddress,
		Port:                     port(cfg.Port),
		FullyQualifiedDomainName: cfg.FQDN,
		SearchString:             cfg.SearchString,
		ResourcePath:             cfg.ResourcePath,
		Inverted:                 aws.Bool(cfg.Inverted),
	}
	if cfg.Type.Endpoint() {
		out.EnableSNI = aws.Bool(cfg.EnableSNI)
		out.RequestInterval = aws.Int32(cfg.RequestInterval)
		out.FailureThreshold = aws.Int32(cfg.FailureThreshold)
		out.MeasureLatency = aws.Bool(cfg.MeasureLatency)
		out.Regions = regions(cfg.Regions)
	}
	if cfg.Type == healthcheck.TypeCalculated {
		out.ChildHealthChecks = cfg.ChildHealthChecks
		out.HealthThreshold = aws.Int32(cfg.HealthThreshold)
	}
	return out
}

// toUpdate builds the update request. Route 53 has no reset element for the ip
// address, so an address dropped from the declaration stays in place remotely.
func toUpdate(remoteID string, cfg healthcheck.MutableConfig) *r53.UpdateHealthCheckInput {
	in := &r53.UpdateHealthCheckInput{
		HealthCheckId: aws.String(remoteID),
		Inverted:      aws.Bool(cfg.Inverted),
	}
	if !cfg.Endpoint {
		if len(cfg.ChildHealthChecks) > 0 {
			in.ChildHealthChecks = cfg.ChildHealthChecks
			in.HealthThreshold = aws.Int32(cfg.HealthThreshold)
		}
		return in
	}

	in.IPAddress = cfg.IPAddress
	in.Port = port(cfg.Port)
	in.FullyQualifiedDomainName = cfg.FQDN
	in.SearchString = cfg.SearchString
	in.ResourcePath = cfg.ResourcePath
	in.EnableSNI = aws.Bool(cfg.EnableSNI)
	in.FailureThreshold = aws.Int32(cfg.FailureThreshold)
	in.Regions = regions(cfg.Regions)
	if cfg.FQDN == nil {
		in.ResetElements = append(in.ResetElements, r53types.ResettableElementNameFullyQualifiedDomainName)
	}
	if cfg.ResourcePath == nil {
		in.ResetElements = append(in.ResetElements, r53types.ResettableElementNameResourcePath)
	}
	if len(cfg.Regions) == 0 {
		in.ResetElements = append(in.ResetElements, r53types.ResettableElementNameRegions)
	}
	return in
}

func toRemote(c *r53types.HealthCheckConfig) healthcheck.RemoteConfig {
	t := healthcheck.Type(c.Type)
	out := healthcheck.RemoteConfig{
		Type:              t,
		IPAddress:         nonEmpty(c.IPAddress),
		Port:              aws.ToInt32(c.Port),
		FQDN:              nonEmpty(c.FullyQualifiedDomainName),
		SearchString:      nonEmpty(c.SearchString),
		ResourcePath:      nonEmpty(c.ResourcePath),
		EnableSNI:         aws.ToBool(c.EnableSNI),
		RequestInterval:   aws.ToInt32(c.RequestInterval),
		FailureThreshold:  aws.ToInt32(c.FailureThreshold),
		Inverted:          aws.ToBool(c.Inverted),
		MeasureLatency:    aws.ToBool(c.MeasureLatency),
		ChildHealthChecks: slices.Clone(c.ChildHealthChecks),
		HealthThreshold:   aws.ToInt32(c.HealthThreshold),
	}
	if len(out.ChildHealthChecks) == 0 {
		out.ChildHealthChecks = nil
	}

	names := make([]string, 0, len(c.Regions))
	for _, r := range c.Regions {
		names = append(names, string(r))
	}
	out.Regions = healthcheck.NormalizeRegions(names)

	// Route 53 keeps no probe settings for checks that do not probe an endpoint;
	// report the defaults Build fills in so both sides compare equal.
	if !t.Endpoint() {
		if len(out.Regions) == 0 {
			out.Regions = healthcheck.NormalizeRegions(healthcheck.DefaultRegions)
		}
		if out.RequestInterval == 0 {
			out.RequestInterval = healthcheck.DefaultRequestInterval
		}
		if out.FailureThreshold == 0 {
			out.FailureThreshold = healthcheck.DefaultFailureThreshold
		}
	}
	return out
}

func port(p int32) *int32 {
	if p == 0 {
		return nil
	}
	return aws.Int32(p)
}

func regions(in []string) []r53types.HealthCheckRegion {
	if len(in) == 0 {
		return nil
	}
	out := make([]r53types.HealthCheckRegion, 0, len(in))
	for _, r := range in {
		out = append(out, r53types.HealthCheckRegion(r))
	}
	return out
}

// nonEmpty maps the provider's empty string and missing value to the same "not set".
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
