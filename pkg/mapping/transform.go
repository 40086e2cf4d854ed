package mapping

import (
	"fmt"
	"sort"
	"strings"
)

// Transform is a paired pure value conversion. Reverse may be nil for
// intentionally destructive transforms; reverse mapping then reports the
// field instead of guessing.
type Transform struct {
	Forward func(string) (string, error)
	Reverse func(string) (string, error)
}

// TransformRegistry maps transform names to their implementations.
type TransformRegistry map[string]Transform

// DefaultTransforms returns the built-in transform set. Callers may add their
// own before constructing the engine.
func DefaultTransforms() TransformRegistry {
	return TransformRegistry{
		"trim": {
			Forward: func(s string) (string, error) { return strings.TrimSpace(s), nil },
			Reverse: func(s string) (string, error) { return s, nil },
		},
		"upper": {
			Forward: func(s string) (string, error) { return strings.ToUpper(s), nil },
			Reverse: func(s string) (string, error) { return s, nil },
		},
		// EDIFACT CCYYMMDDHHMM timestamps to ISO 8601 and back.
		"edifact_datetime_203": {
			Forward: func(s string) (string, error) {
				if len(s) != 12 {
					return "", fmt.Errorf("%w: %q is not CCYYMMDDHHMM", ErrTypeConversion, s)
				}
				return s[0:4] + "-" + s[4:6] + "-" + s[6:8] + "T" + s[8:10] + ":" + s[10:12] + ":00Z", nil
			},
			Reverse: func(s string) (string, error) {
				clean := strings.NewReplacer("-", "", ":", "", "T", "", "Z", "").Replace(s)
				if len(clean) < 12 {
					return "", fmt.Errorf("%w: %q is not an ISO timestamp", ErrTypeConversion, s)
				}
				return clean[:12], nil
			},
		},
		// EDIFACT CCYYMMDD dates to ISO 8601 and back.
		"edifact_date_102": {
			Forward: func(s string) (string, error) {
				if len(s) != 8 {
					return "", fmt.Errorf("%w: %q is not CCYYMMDD", ErrTypeConversion, s)
				}
				return s[0:4] + "-" + s[4:6] + "-" + s[6:8], nil
			},
			Reverse: func(s string) (string, error) {
				clean := strings.ReplaceAll(s, "-", "")
				if len(clean) != 8 {
					return "", fmt.Errorf("%w: %q is not an ISO date", ErrTypeConversion, s)
				}
				return clean, nil
			},
		},
	}
}

// reverseEnum performs the deterministic reverse lookup of an enum map: among
// all source keys mapping to the wanted target value, the lexicographically
// smallest key wins.
func reverseEnum(enum map[string]string, target string) (string, bool) {
	keys := make([]string, 0, len(enum))
	for k, v := range enum {
		if v == target {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	return keys[0], true
}
