package core

import (
	"context"
	"fmt"
	"strings"
)

// Scope partitions the state store by lifecycle and visibility.
type Scope string

const (
	// ScopeSession values live until the session ends or times out.
	ScopeSession Scope = "session"
	// ScopeUser values persist across all sessions of the same user.
	ScopeUser Scope = "user"
	// ScopeTemp values are cleared at the end of every top-level request.
	ScopeTemp Scope = "temp"
)

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeSession, ScopeUser, ScopeTemp:
		return true
	}
	return false
}

// ParseKey splits a qualified key such as "user:call_count" into its scope and
// bare key. Keys without a known prefix belong to the session scope.
func ParseKey(qualified string) (Scope, string) {
	if prefix, key, ok := strings.Cut(qualified, ":"); ok {
		switch Scope(prefix) {
		case ScopeUser, ScopeTemp:
			return Scope(prefix), key
		}
	}
	return ScopeSession, qualified
}

// QualifiedKey is the inverse of ParseKey.
func QualifiedKey(scope Scope, key string) string {
	if scope == ScopeSession || scope == "" {
		return key
	}
	return string(scope) + ":" + key
}

// StateStore maps (scope, key) pairs to arbitrary serializable values.
//
// All operations are atomic per individual key. Increment is the only way to
// update a counter: callers never read-modify-write a shared value themselves.
type StateStore interface {
	// Get returns the value stored under (scope, key) and whether it exists.
	Get(ctx context.Context, scope Scope, key string) (any, bool, error)
	// Set stores value under (scope, key), last write wins.
	Set(ctx context.Context, scope Scope, key string, value any) error
	// Increment atomically adds one to the integer stored under (scope, key)
	// and returns the new value. A missing key counts from zero.
	Increment(ctx context.Context, scope Scope, key string) (int64, error)
	// Snapshot returns a copy of every scope keyed by qualified key.
	Snapshot(ctx context.Context) (map[string]any, error)
}

// GetOr returns the stored value or def when the key is missing or unreadable.
func GetOr(ctx context.Context, store StateStore, scope Scope, key string, def any) any {
	v, ok, err := store.Get(ctx, scope, key)
	if err != nil || !ok {
		return def
	}
	return v
}

// GetString reads a string value, returning "" when missing or of another type.
func GetString(ctx context.Context, store StateStore, scope Scope, key string) string {
	s, _ := GetOr(ctx, store, scope, key, "").(string)
	return s
}

// ToInt64 converts the numeric representations produced by the state backends
// into an int64.
func ToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("value of type %T is not a counter", v)
	}
}
