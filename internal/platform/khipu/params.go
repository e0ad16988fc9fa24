// Package khipu implements the signed-request client for the Khipu payment API.
package khipu

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IdentityKey is sent with every legacy request but never signed.
const IdentityKey = "receiver_id"

// Params is the parameter set of a single request.
type Params map[string]string

// Set stores value coerced to its string form. Nil and empty values are skipped.
func (p Params) Set(key string, value any) {
	var s string
	switch v := value.(type) {
	case nil:
		return
	case string:
		s = v
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		s = FormatAmount(v)
	case bool:
		s = strconv.FormatBool(v)
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	if s == "" {
		return
	}
	p[key] = s
}

// Clone returns a copy with empty values dropped.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Values converts the set to url.Values for form bodies and query strings.
func (p Params) Values() url.Values {
	vals := make(url.Values, len(p))
	for k, v := range p {
		if v != "" {
			vals.Set(k, v)
		}
	}
	return vals
}

// FormatAmount renders an amount without exponent or trailing zeros: 1000, 10.5.
// NaN and infinities have no decimal form and fall back to strconv.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

// SigningScheme selects how the string-to-sign is encoded. Historical
// deployments disagree on the encoding, so the choice is configuration.
type SigningScheme struct {
	Name string

	// EncodeValues percent-encodes each value before joining.
	EncodeValues bool

	// EncodeOuter percent-encodes the target and the whole joined parameter string.
	EncodeOuter bool

	// FullURL signs base URL + endpoint instead of the endpoint alone.
	FullURL bool
}

var (
	// SchemeRaw signs the endpoint and unencoded values.
	SchemeRaw = SigningScheme{Name: "raw"}

	// SchemePerValue signs the endpoint and percent-encoded values.
	SchemePerValue = SigningScheme{Name: "per_value", EncodeValues: true}

	// SchemeFullURL signs the encoded full URL and the encoded joined parameters.
	SchemeFullURL = SigningScheme{Name: "full_url", EncodeOuter: true, FullURL: true}
)

// SchemeByName resolves a configured scheme name. Empty selects SchemeRaw.
func SchemeByName(name string) (SigningScheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SchemeRaw.Name:
		return SchemeRaw, nil
	case SchemePerValue.Name:
		return SchemePerValue, nil
	case SchemeFullURL.Name:
		return SchemeFullURL, nil
	default:
		return SigningScheme{}, fmt.Errorf("unknown signing scheme %q", name)
	}
}

// Canonical encodes params as key=value pairs sorted by key, dropping the
// identity key and empty values.
func (s SigningScheme) Canonical(params Params) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == IdentityKey || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		if s.EncodeValues {
			v = EscapeComponent(v)
		}
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, "&")
}

// Target returns the path-or-URL portion signed for an endpoint.
func (s SigningScheme) Target(baseURL, endpoint string) string {
	if s.FullURL {
		return strings.TrimRight(baseURL, "/") + endpoint
	}
	return endpoint
}

// EscapeComponent percent-encodes s leaving only A-Z a-z 0-9 and - _ . ! ~ * ' ( )
// intact, matching the provider's reference encoder byte for byte.
func EscapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
