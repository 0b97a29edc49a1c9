// Package phone maps user-entered phone numbers to the canonical dialing
// form used for SMS delivery.
package phone

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is prefixed to bare national mobile numbers.
const DefaultCountryCode = "+91"

var (
	nationalMobile = regexp.MustCompile(`^[6-9]\d{9}$`)
	trunkPrefixed  = regexp.MustCompile(`^0[6-9]\d{9}$`)
)

// Normalize returns raw in canonical form. It never fails: input that matches
// no known shape is returned trimmed but otherwise unchanged.
//
//	"9876543210"    -> "+919876543210"
//	"09876543210"   -> "+919876543210"
//	"+19876543210"  -> "+19876543210"
//	"12345"         -> "12345"
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "+"):
		return s
	case nationalMobile.MatchString(s):
		return DefaultCountryCode + s
	case trunkPrefixed.MatchString(s):
		return DefaultCountryCode + s[1:]
	default:
		return s
	}
}
