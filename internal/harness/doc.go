// Package harness provides a scenario-driven conformance harness for
// the context engine.
//
// A scenario is a YAML file describing a conversation: push steps ask
// questions, message steps feed envelopes to the engine, and expected
// match outcomes are asserted along the way. Each scenario runs against
// a real engine wired to an in-memory SQLite store and a scripted
// adapter with sequential delivery handles, so the produced trace is
// byte-stable and can be compared against golden files.
package harness
