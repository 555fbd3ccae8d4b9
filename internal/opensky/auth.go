// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package opensky

// AuthMode records whether an upstream request carried a bearer token.
type AuthMode int

const (
	// Anonymous requests use the lower anonymous quota.
	Anonymous AuthMode = iota
	// Authenticated requests carried an Authorization header.
	Authenticated
)

// String returns the provenance tag used in API responses.
func (m AuthMode) String() string {
	if m == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// MarshalText implements encoding.TextMarshaler.
func (m AuthMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *AuthMode) UnmarshalText(b []byte) error {
	if string(b) == "authenticated" {
		*m = Authenticated
	} else {
		*m = Anonymous
	}
	return nil
}
