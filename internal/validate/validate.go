// SPDX-License-Identifier: MIT

// Package validate provides configuration validation utilities.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Error represents a validation error
type Error struct {
	Field   string // Field name that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
}

// Error implements the error interface
func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates validation errors and can produce a ValidationError when invalid.
type Validator struct {
	errors []Error
}

// ValidationError bundles multiple validation errors into a single error value.
type ValidationError struct {
	errors []Error
}

// New creates a new validator
func New() *Validator {
	return &Validator{errors: make([]Error, 0)}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

// IsValid returns true if no errors have been accumulated
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all accumulated validation errors
func (v *Validator) Errors() []Error {
	return v.errors
}

// Err converts the accumulated validation errors into an error value.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

// Errors returns the individual validation errors making up the validation failure.
func (e ValidationError) Errors() []Error {
	return e.errors
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// URL validates an absolute URL with one of the allowed schemes.
// An empty value is accepted when optional is set.
func (v *Validator) URL(field, value string, allowedSchemes []string, optional bool) {
	if value == "" {
		if !optional {
			v.AddError(field, "URL cannot be empty", value)
		}
		return
	}

	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
		return
	}
	if u.Host == "" {
		v.AddError(field, "URL must have a host", value)
		return
	}
	if len(allowedSchemes) > 0 && !slices.Contains(allowedSchemes, u.Scheme) {
		v.AddError(field,
			fmt.Sprintf("unsupported URL scheme %q (allowed: %v)", u.Scheme, allowedSchemes),
			value)
	}
}

// ListenAddr validates a host:port listen address. The host part may be empty.
func (v *Validator) ListenAddr(field, addr string) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), addr)
		return
	}
	if port == "" {
		v.AddError(field, "listen address must include a port", addr)
	}
}

// Range validates that an integer is within a specified range (inclusive)
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field,
			fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value),
			value)
	}
}

// Directory validates a directory path. When mustExist is false a missing
// directory is accepted as long as its parent exists.
func (v *Validator) Directory(field, path string, mustExist bool) {
	if path == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}
	if strings.Contains(path, "..") {
		v.AddError(field, "path contains traversal sequences (..)", path)
		return
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			v.AddError(field, "path is not a directory", path)
		}
	case os.IsNotExist(err):
		if mustExist {
			v.AddError(field, "directory does not exist", path)
			return
		}
		parent := filepath.Dir(filepath.Clean(path))
		if _, perr := os.Stat(parent); perr != nil {
			v.AddError(field, fmt.Sprintf("parent directory not accessible: %v", perr), path)
		}
	default:
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
	}
}

// NotEmpty validates that a string is not empty or whitespace-only
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	if slices.Contains(allowed, value) {
		return
	}
	v.AddError(field,
		fmt.Sprintf("value must be one of %v, got %q", allowed, value),
		value)
}

// NonNegative validates that a number is non-negative (>= 0)
func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("value cannot be negative, got %d", value), value)
	}
}

// Custom allows custom validation logic.
func (v *Validator) Custom(field string, value any, check func(any) error) {
	if err := check(value); err != nil {
		v.AddError(field, err.Error(), value)
	}
}
