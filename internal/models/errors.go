package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RecoverableError is implemented by enriched errors that carry structured
// context and remediation hints. Both the store and output packages use this
// interface to avoid an import cycle.
type RecoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrAmbiguousMatch   = errors.New("ambiguous match")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError reports input that fails a stated constraint. It is always
// returned before any store mutation happens.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Options []string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Options) > 0 {
		msg += " (valid: " + strings.Join(e.Options, ", ") + ")"
	}
	return msg
}
func (e *ValidationError) ErrorCode() string { return "VALIDATION" }
func (e *ValidationError) Context() map[string]string {
	return map[string]string{
		"field": e.Field,
		"value": e.Value,
	}
}
func (e *ValidationError) SuggestedAction() string {
	if len(e.Options) > 0 {
		return "use one of: " + strings.Join(e.Options, ", ")
	}
	return "correct the " + e.Field + " and retry"
}
func (e *ValidationError) SlogAttrs() []any {
	return []any{
		"field", e.Field,
		"invalid_value", e.Value,
		"valid_options", e.Options,
	}
}
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a lookup by id, name or prefix that matched nothing.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}
func (e *NotFoundError) ErrorCode() string { return "NOT_FOUND" }
func (e *NotFoundError) Context() map[string]string {
	return map[string]string{
		"entity": e.Entity,
		"key":    e.Key,
	}
}
func (e *NotFoundError) SuggestedAction() string {
	return fmt.Sprintf("list %ss to find a valid identifier", e.Entity)
}
func (e *NotFoundError) SlogAttrs() []any {
	return []any{"entity", e.Entity, "key", e.Key}
}
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AmbiguousMatchError reports a prefix lookup that matched more than one row.
// Matches holds a sample of the conflicting identifiers.
type AmbiguousMatchError struct {
	Entity  string
	Prefix  string
	Matches []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("prefix %q matches multiple %ss: %s", e.Prefix, e.Entity, strings.Join(e.Matches, ", "))
}
func (e *AmbiguousMatchError) ErrorCode() string { return "AMBIGUOUS_MATCH" }
func (e *AmbiguousMatchError) Context() map[string]string {
	return map[string]string{
		"entity":  e.Entity,
		"prefix":  e.Prefix,
		"matches": strconv.Itoa(len(e.Matches)),
	}
}
func (e *AmbiguousMatchError) SuggestedAction() string {
	return "use a longer prefix"
}
func (e *AmbiguousMatchError) SlogAttrs() []any {
	return []any{"entity", e.Entity, "prefix", e.Prefix, "matches", e.Matches}
}
func (e *AmbiguousMatchError) Is(target error) bool { return target == ErrAmbiguousMatch }

// StoreUnavailableError wraps an infrastructure failure of the underlying
// store (disk error, locked file, broken schema).
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}
func (e *StoreUnavailableError) Unwrap() error     { return e.Err }
func (e *StoreUnavailableError) ErrorCode() string { return "STORE_UNAVAILABLE" }
func (e *StoreUnavailableError) Context() map[string]string {
	return map[string]string{"op": e.Op}
}
func (e *StoreUnavailableError) SuggestedAction() string {
	return "check the database path and that no other process holds a write lock"
}
func (e *StoreUnavailableError) SlogAttrs() []any {
	return []any{"op", e.Op}
}
func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

var (
	_ RecoverableError = (*ValidationError)(nil)
	_ RecoverableError = (*NotFoundError)(nil)
	_ RecoverableError = (*AmbiguousMatchError)(nil)
	_ RecoverableError = (*StoreUnavailableError)(nil)
)
