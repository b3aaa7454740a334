// Package normalize holds the pure canonicalization functions used for deduplication:
// URLs are reduced to a canonical string and fingerprinted, tag names are trimmed and
// lower-cased. Nothing here touches storage.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/url"
	"strings"

	"github.com/mmeshcher/linkvault/internal/apperror"
)

// FingerprintLength is the length of a hex-encoded SHA-256 digest.
const FingerprintLength = 64

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// URL canonicalizes raw: scheme, host and path are lower-cased, default ports,
// user info, the fragment and trailing slashes are dropped. The query string is kept
// verbatim. URL(URL(x)) == URL(x) for every accepted x.
func URL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperror.InvalidInput("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", apperror.InvalidInputf("invalid url %q", raw).WithCause(err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" || u.Host == "" {
		return "", apperror.InvalidInputf("invalid url %q: scheme and host are required", raw)
	}
	if _, ok := defaultPorts[scheme]; !ok {
		return "", apperror.InvalidInputf("invalid url %q: unsupported scheme %q", raw, scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", apperror.InvalidInputf("invalid url %q: scheme and host are required", raw)
	}
	// An IPv6 zone names a local interface and means nothing to another machine.
	if strings.Contains(host, "%") {
		return "", apperror.InvalidInputf("invalid url %q: zoned IPv6 hosts are not supported", raw)
	}
	if port := u.Port(); port != "" && port != defaultPorts[scheme] {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	path := strings.TrimRight(strings.ToLower(u.EscapedPath()), "/")

	var b strings.Builder
	b.Grow(len(raw))
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}

	return b.String(), nil
}

// Fingerprint returns the hex SHA-256 of an already canonical URL. It is a lookup key,
// not a security primitive.
func Fingerprint(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])
}
