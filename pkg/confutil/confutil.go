// Package confutil contains small helper functions for turning optional
// pointer fields in config structs into concrete values with defaults.
//
// These helpers must not depend on the log package - log depends on config,
// and config depends on this package, so a cycle back through log would be
// fatal at init time.
package confutil

import "time"

// Int returns *v if set, otherwise def.
func Int(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// IntMin returns *v if set and >= min, otherwise def.
func IntMin(v *int, min, def int) int {
	if v == nil || *v < min {
		return def
	}
	return *v
}

// Int64 returns *v if set, otherwise def.
func Int64(v *int64, def int64) int64 {
	if v == nil {
		return def
	}
	return *v
}

// Bool returns *v if set, otherwise def.
func Bool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// StringNotEmpty returns *v if set and non-empty, otherwise def.
func StringNotEmpty(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

// StringOrEmpty returns *v if set, otherwise "".
func StringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// DurationMin parses *v as a duration, falling back to def if unset,
// empty, unparsable, or below min.
func DurationMin(v *string, min time.Duration, def string) time.Duration {
	defDur, err := time.ParseDuration(def)
	if err != nil {
		defDur = 0
	}
	if v == nil || *v == "" {
		return defDur
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d < min {
		return defDur
	}
	return d
}

// P returns a pointer to v, for building literal default config structs.
func P[T any](v T) *T {
	return &v
}
