// Package masking redacts secrets and card data before anything is logged or
// persisted. Every function returns a copy and leaves its input untouched.
package masking

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

const (
	MaxDepth = 10

	DepthExceeded = "[MAX_DEPTH_EXCEEDED]"
	Filtered      = "[FILTERED]"
)

var cardNumberPattern = regexp.MustCompile(`^[0-9]{13,19}$`)

// sensitiveFields are compared after lowercasing and dropping '_' and '-'.
var sensitiveFields = map[string]struct{}{
	"key":             {},
	"apikey":          {},
	"privatekey":      {},
	"publickey":       {},
	"secretkey":       {},
	"password":        {},
	"passwd":          {},
	"secret":          {},
	"token":           {},
	"accesstoken":     {},
	"refreshtoken":    {},
	"cardtoken":       {},
	"tokenid":         {},
	"sourceid":        {},
	"authorization":   {},
	"cardnumber":      {},
	"number":          {},
	"pan":             {},
	"cvv":             {},
	"cvv2":            {},
	"cvc":             {},
	"expiry":          {},
	"expirationdate":  {},
	"expirationmonth": {},
	"expirationyear":  {},
	"nationalid":      {},
	"documentnumber":  {},
	"documentid":      {},
	"bankaccount":     {},
	"accountnumber":   {},
	"clabe":           {},
	"devicesessionid": {},
	"deviceid":        {},
}

// fragments mark a field as sensitive wherever they appear in its name.
var fragments = []string{"password", "secret", "privatekey", "apikey", "cardnumber", "cvv", "bankaccount"}

func normalize(field string) string {
	field = strings.ToLower(field)
	field = strings.ReplaceAll(field, "_", "")
	return strings.ReplaceAll(field, "-", "")
}

// IsSensitiveField reports whether values stored under field must be masked.
func IsSensitiveField(field string) bool {
	n := normalize(field)
	if _, ok := sensitiveFields[n]; ok {
		return true
	}
	for _, f := range fragments {
		if strings.Contains(n, f) {
			return true
		}
	}
	return false
}

// IsCardNumber reports whether s looks like a bare primary account number.
func IsCardNumber(s string) bool {
	return cardNumberPattern.MatchString(s)
}

// MaskCardNumber keeps the first six and last four digits.
func MaskCardNumber(s string) string {
	if len(s) <= 10 {
		return strings.Repeat("*", len(s))
	}
	return s[:6] + strings.Repeat("*", len(s)-10) + s[len(s)-4:]
}

// MaskPartial keeps the first and last four characters of values longer than
// eight; shorter values are fully starred.
func MaskPartial(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// MaskString applies the field rule and the card rule to a single value.
func MaskString(field, value string) string {
	if IsCardNumber(value) {
		return MaskCardNumber(value)
	}
	if field != "" && IsSensitiveField(field) {
		return MaskPartial(value)
	}
	return value
}

// Mask returns a masked deep copy of a decoded JSON-like tree.
func Mask(v any) any {
	return mask("", v, 0)
}

func mask(field string, v any, depth int) any {
	if depth > MaxDepth {
		return DepthExceeded
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = mask(k, item, depth+1)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = mask(k, item, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = mask(field, item, depth+1)
		}
		return out
	case string:
		return MaskString(field, val)
	case json.Number:
		return maskScalar(field, val.String(), v)
	case float64:
		if field != "" && IsSensitiveField(field) {
			return Filtered
		}
		return val
	case int, int64:
		if field != "" && IsSensitiveField(field) {
			return Filtered
		}
		return val
	default:
		return v
	}
}

func maskScalar(field, text string, original any) any {
	if IsCardNumber(text) {
		return MaskCardNumber(text)
	}
	if field != "" && IsSensitiveField(field) {
		return Filtered
	}
	return original
}

// MaskValue masks an arbitrary value (structs included) by first converting
// it to its JSON form. Values that cannot be encoded pass through as a marker.
func MaskValue(v any) any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Filtered
	}
	var decoded any
	if err := decodeNumbers(raw, &decoded); err != nil {
		return Filtered
	}
	return Mask(decoded)
}

// MaskJSON masks a raw JSON document. Input that is not JSON comes back as a
// JSON string, or as a redaction marker when it mentions a secret or a card.
func MaskJSON(body []byte) []byte {
	if len(body) == 0 {
		return body
	}

	var decoded any
	if err := decodeNumbers(body, &decoded); err != nil {
		text := string(body)
		lower := normalize(text)
		for _, f := range fragments {
			if strings.Contains(lower, f) {
				return []byte(`"` + Filtered + `"`)
			}
		}
		for _, word := range strings.Fields(text) {
			if IsCardNumber(word) {
				return []byte(`"` + Filtered + `"`)
			}
		}
		out, _ := json.Marshal(text)
		return out
	}

	out, err := json.Marshal(Mask(decoded))
	if err != nil {
		return []byte(`"` + Filtered + `"`)
	}
	return out
}

func decodeNumbers(raw []byte, dst *any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}
