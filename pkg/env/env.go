// Package env reads the handful of settings needed before config.Load runs,
// or that a hosting platform injects without the service prefix.
package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable the service owns.
const Prefix = "TICKETBOOTH_"

// Get returns TICKETBOOTH_<name> when set, then the bare <name>, then fallback.
// Whitespace-only values count as unset.
func Get(name, fallback string) string {
	for _, key := range []string{Prefix + name, name} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return fallback
}
