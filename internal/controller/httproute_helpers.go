package controller

import (
	"fmt"
	"slices"
	"strings"

	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/identity"
)

// checkName is the logical name of the health check for hostname on route.
func checkName(route *gatewayv1.HTTPRoute, hostname string) string {
	return route.Namespace + "/" + route.Name + "/" + hostname
}

// FormatHealthChecks returns a human-readable summary of the health checks
// recorded for an HTTPRoute.
func FormatHealthChecks(route *gatewayv1.HTTPRoute, ids map[string]identity.Identity) string {
	var b strings.Builder

	fmt.Fprintf(&b, "HTTPRoute %s/%s\n", route.Namespace, route.Name)

	seen := make(map[string]bool, len(route.Spec.Hostnames))
	if len(route.Spec.Hostnames) > 0 {
		fmt.Fprintf(&b, "  Hostnames:\n")
		for _, h := range route.Spec.Hostnames {
			name := checkName(route, string(h))
			seen[name] = true
			if id, ok := ids[name]; ok {
				fmt.Fprintf(&b, "    - %s -> %s\n", h, id.RemoteID)
			} else {
				fmt.Fprintf(&b, "    - %s (no health check)\n", h)
			}
		}
	}

	// Identities left behind by hostnames that were removed
	var stale []string
	for name, id := range ids {
		if !seen[name] {
			stale = append(stale, fmt.Sprintf("    - %s -> %s\n", name, id.RemoteID))
		}
	}
	if len(stale) > 0 {
		slices.Sort(stale)
		fmt.Fprintf(&b, "  Orphaned:\n")
		for _, line := range stale {
			b.WriteString(line)
		}
	}

	return b.String()
}
