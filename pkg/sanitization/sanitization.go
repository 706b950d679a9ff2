package sanitization

import (
	"fmt"
	"net/http"
	"strings"
)

const redactedValue = "[REDACTED]"

const (
	emptyMaskedValue = "(empty)"
	maskedValue      = "***masked***"
)

// SanitizationType defines how to sanitize a field.
type SanitizationType int

const (
	FullyRedact SanitizationType = iota
	PartialMask
)

// SensitiveFields maps lowercased field names to their sanitization.
var SensitiveFields = map[string]SanitizationType{
	"api_key":       FullyRedact,
	"api_key_value": FullyRedact,
	"x-api-key":     FullyRedact,
	"x_api_key":     FullyRedact,
	"key_value":     FullyRedact,
	"value":         FullyRedact,

	"authorization":         FullyRedact,
	"aws_secret_access_key": FullyRedact,
	"aws_session_token":     FullyRedact,
	"secret_access_key":     FullyRedact,
	"session_token":         FullyRedact,
	"password":              FullyRedact,
	"secret":                FullyRedact,

	"api_key_id":        PartialMask,
	"key_id":            PartialMask,
	"aws_access_key_id": PartialMask,
	"access_key_id":     PartialMask,
}

// SensitiveHeaders are HTTP headers whose values never reach the logs.
var SensitiveHeaders = map[string]bool{
	"X-Api-Key":            true,
	"Authorization":        true,
	"X-Amz-Security-Token": true,
}

var blockedSubstrings = []string{
	"secret",
	"token",
	"password",
	"api_key",
	"apikey",
	"authorization",
}

// SanitizeLogString removes control characters that could enable log forging.
func SanitizeLogString(value string) string {
	if value == "" {
		return value
	}
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

// SanitizeFieldValue sanitizes a field value based on its key name.
func SanitizeFieldValue(key string, value any) any {
	keyLower := strings.ToLower(strings.TrimSpace(key))
	if keyLower == "" {
		return sanitizeValue(value)
	}

	if typ, ok := SensitiveFields[keyLower]; ok {
		if typ == PartialMask {
			return maskIdentifierValue(value)
		}
		return redactedValue
	}

	for _, substr := range blockedSubstrings {
		if strings.Contains(keyLower, substr) {
			return redactedValue
		}
	}

	return sanitizeValue(value)
}

// SanitizeHeaders returns a copy of h with sensitive header values redacted.
func SanitizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		canonical := http.CanonicalHeaderKey(name)
		if SensitiveHeaders[canonical] {
			out[canonical] = redactedValue
			continue
		}
		out[canonical] = SanitizeLogString(strings.Join(values, ","))
	}
	return out
}

// MaskFirstLast keeps the first prefixLen and last suffixLen characters and masks the middle.
func MaskFirstLast(value string, prefixLen, suffixLen int) string {
	if value == "" {
		return emptyMaskedValue
	}
	if prefixLen < 0 || suffixLen < 0 {
		return maskedValue
	}
	if len(value) <= prefixLen+suffixLen {
		return maskedValue
	}
	return value[:prefixLen] + "***" + value[len(value)-suffixLen:]
}

// MaskAPIKeyID keeps only the last four characters of an API key id.
func MaskAPIKeyID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) < 4 {
		return redactedValue
	}
	return "..." + id[len(id)-4:]
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return SanitizeLogString(typed)
	case []byte:
		return SanitizeLogString(string(typed))
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = SanitizeFieldValue(k, v)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = SanitizeFieldValue(k, v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = sanitizeValue(typed[i])
		}
		return out
	case bool, int, int32, int64, float32, float64:
		return typed
	case error:
		return SanitizeLogString(typed.Error())
	default:
		return SanitizeLogString(fmt.Sprintf("%v", typed))
	}
}

func maskIdentifierValue(value any) string {
	switch v := value.(type) {
	case string:
		return MaskAPIKeyID(v)
	case []byte:
		return MaskAPIKeyID(string(v))
	default:
		return redactedValue
	}
}
