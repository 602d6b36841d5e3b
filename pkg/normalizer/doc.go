// Package normalizer reconciles the phone numbers of a single contact for one
// national numbering scheme.
//
// A number is managed when, after removing whitespace and hyphens, it starts
// with the scheme's local prefix ("07") or its international prefix ("+2507").
// Every managed number has exactly one counterpart in the other format, and a
// contact is considered closed when each managed number's counterpart is
// present in its own number list.
//
// All functions are pure: they never mutate their inputs, hold no package
// state and are safe for concurrent use. Reconcile is idempotent, so applying
// it to its own output is a no-op.
//
// Numbers outside the scheme are passed through untouched. Managed numbers
// whose subscriber part is empty or contains anything other than digits are
// treated the same way: they never need a fix and never get a counterpart.
package normalizer
