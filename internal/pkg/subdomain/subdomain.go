// internal/pkg/subdomain/subdomain.go
package subdomain

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	xerrors "qg-chatting-service/internal/pkg/errors"
)

var labelPattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// Labels that can never be claimed as an agency subdomain because they collide
// with infrastructure hosts or the root site itself.
var reserved = map[string]bool{
	"www":     true,
	"api":     true,
	"app":     true,
	"admin":   true,
	"mail":    true,
	"smtp":    true,
	"ftp":     true,
	"root":    true,
	"staging": true,
	"cdn":     true,
	"assets":  true,
	"status":  true,
}

// Normalize lowercases and validates an agency subdomain label.
func Normalize(raw string) (string, error) {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return "", fmt.Errorf("%w: subdomain is required", xerrors.ErrInvalidInput)
	}
	if len(label) > 63 {
		return "", fmt.Errorf("%w: subdomain exceeds 63 characters", xerrors.ErrInvalidInput)
	}
	if !labelPattern.MatchString(label) {
		return "", fmt.Errorf("%w: subdomain must be a valid DNS label", xerrors.ErrInvalidInput)
	}
	if reserved[label] {
		return "", fmt.Errorf("%w: subdomain %q is reserved", xerrors.ErrInvalidInput, label)
	}
	return label, nil
}

// IsReserved reports whether the label is on the reserved list.
func IsReserved(label string) bool {
	return reserved[strings.ToLower(label)]
}

// FromHost extracts the tenant label from a request Host header. It returns
// ok=false for the bare root domain, www, localhost and hosts outside the
// root domain, so every call site shares one edge-case policy.
func FromHost(host, rootDomain string) (string, bool) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	rootDomain = strings.ToLower(strings.TrimSuffix(rootDomain, "."))

	if host == "" || rootDomain == "" {
		return "", false
	}
	if host == rootDomain || host == "localhost" {
		return "", false
	}
	if !strings.HasSuffix(host, "."+rootDomain) {
		return "", false
	}

	label := strings.TrimSuffix(host, "."+rootDomain)
	if strings.Contains(label, ".") {
		// nested subdomains are not tenant hosts
		return "", false
	}
	if label == "" || reserved[label] {
		return "", false
	}
	return label, true
}

// FQDN joins a tenant label with the root domain.
func FQDN(label, rootDomain string) string {
	return label + "." + strings.TrimSuffix(rootDomain, ".")
}
