package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

// sensitiveKeys marks log keys whose values must never be emitted verbatim.
// Signing keys and RPC credentials fall in this bucket.
var sensitiveKeys = map[string]struct{}{
	"private_key": {},
	"privatekey":  {},
	"mnemonic":    {},
	"secret":      {},
	"api_key":     {},
	"password":    {},
}

// IsSensitive reports whether the provided key must be masked.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := sensitiveKeys[normalized]
	return ok
}

// MaskField returns a slog.Attr with the value replaced by the redaction
// placeholder when the key is sensitive. Empty values pass through so absent
// fields stay visibly absent.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || !IsSensitive(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
