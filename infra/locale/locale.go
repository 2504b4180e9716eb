// Package locale resolves the host measurement system used by the "system"
// unit preference.
package locale

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// envKeys are consulted in POSIX precedence order.
var envKeys = []string{"LC_ALL", "LC_MEASUREMENT", "LANG"}

// imperialRegions still measure road distance in miles.
var imperialRegions = map[string]bool{
	"US": true,
	"LR": true,
	"MM": true,
	"GB": true,
}

// UsesMetric reports whether the locale tag (such as "fr_FR.UTF-8" or
// "en-US") uses metric road distances. Tags without a known region fall back
// to imperial, matching the canonical storage unit.
func UsesMetric(tag string) bool {
	tag = normalize(tag)
	if tag == "" {
		return false
	}
	t, err := language.Parse(tag)
	if err != nil {
		return false
	}
	region, conf := t.Region()
	if conf == language.No {
		return false
	}
	return !imperialRegions[region.String()]
}

// FromEnv returns the first non-empty locale from the environment.
func FromEnv() string {
	for _, k := range envKeys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// SystemMetric returns a resolver bound to tag, or to the environment when
// tag is empty. It is meant for units.NewConverter.
func SystemMetric(tag string) func() bool {
	if tag == "" {
		tag = FromEnv()
	}
	metric := UsesMetric(tag)
	return func() bool { return metric }
}

// normalize strips the POSIX codeset and modifier and maps "_" to "-".
func normalize(tag string) string {
	if i := strings.IndexAny(tag, ".@"); i >= 0 {
		tag = tag[:i]
	}
	if tag == "C" || tag == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(tag, "_", "-")
}
