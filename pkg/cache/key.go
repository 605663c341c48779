package cache

import "strings"

// keyPrefix namespaces all code-list keys in Redis.
const keyPrefix = "noark:codelists"

// wildcard stands in for an empty type or field.
const wildcard = "*"

// Key identifies a cached code-list lookup. Empty Type or Field means the
// lookup was not restricted on that dimension.
type Key struct {
	Type  string
	Field string
}

// String generates the Redis key.
// Format: noark:codelists:<type>:<field>
//
// Example:
//
//	noark:codelists:Dokument:dokumenttype
//	noark:codelists:*:*
func (k Key) String() string {
	return strings.Join([]string{keyPrefix, orWildcard(k.Type), orWildcard(k.Field)}, ":")
}

// Covering returns the keys whose cached lists may include values of k:
// k itself, the type-wide and field-wide lookups, and the unrestricted
// lookup.
func (k Key) Covering() []Key {
	keys := []Key{k}
	if k.Type != "" && k.Field != "" {
		keys = append(keys, Key{Type: k.Type}, Key{Field: k.Field})
	}
	if k != (Key{}) {
		keys = append(keys, Key{})
	}
	return keys
}

func orWildcard(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return wildcard
	}
	return s
}
