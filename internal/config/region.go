package config

import "os"

// FallbackRegion is used when no region is configured anywhere.
const FallbackRegion = "us-east-1"

// ResolveRegion picks the provider region: the explicit setting, then AWS_REGION,
// then AWS_DEFAULT_REGION, then FallbackRegion.
func ResolveRegion(explicit string) string {
	return resolveRegion(explicit, os.LookupEnv)
}

func resolveRegion(explicit string, lookupEnv func(string) (string, bool)) string {
	if explicit != "" {
		return explicit
	}
	for _, key := range []string{"AWS_REGION", "AWS_DEFAULT_REGION"} {
		if v, ok := lookupEnv(key); ok && v != "" {
			return v
		}
	}
	return FallbackRegion
}
