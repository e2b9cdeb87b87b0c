// Package persistence provides wizard session storage backends: in-memory,
// SQLite, PostgreSQL, Redis and MongoDB. Every backend hands out an
// api.Storage per session key; step data, file references and extra data
// are gob-encoded.
package persistence

import (
	"regexp"
)

var sessionKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ValidSessionKey reports whether key may be used as a session key. Keys
// are limited to 128 characters of letters, digits and ._:- so they are
// safe in every backend's key space.
func ValidSessionKey(key string) bool {
	return sessionKeyPattern.MatchString(key)
}
