// Package kind maps reply kinds to comparators.
//
// A kind names the typed interpretation rule for a free-text reply
// (number, boolean, regex, choice). Each kind resolves to exactly one
// comparator: a pure function that validates and parses reply text,
// never erroring on merely-unparseable input.
//
// Extra arguments (bounds, patterns, choice lists) are validated up
// front via Registry.Vet so a malformed prompt definition fails at
// registration time, not when the first reply arrives.
package kind
