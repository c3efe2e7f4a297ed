// Package sanitizer normalizes free-form user input before validation and storage.
//
// All functions are idempotent: applying them twice yields the same result as
// applying them once. Invalid input never produces an error; it is reduced to
// whatever can be kept, possibly the empty string.
//
// Normalization includes:
//   - Strings: collapse whitespace, trim leading/trailing spaces
//   - Free text (reasons, notes): strip control characters, cap the length in runes
//   - Color codes: lowercase, leading '#'
package sanitizer
