// Package providers imports all health check provider packages to trigger their init() registration.
package providers

import (
	_ "github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck/route53"
)
