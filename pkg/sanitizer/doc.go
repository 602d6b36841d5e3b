// Package sanitizer normalizes contact input before validation and storage.
//
// All functions are idempotent and never return errors; invalid input yields
// an empty string instead.
//
// Normalization includes:
//   - Names and labels: trim, collapse runs of whitespace to one space
//   - Numbers: trim only, inner formatting is kept as entered
//   - Lookup keys: E.164 form of a number for a default region
package sanitizer
