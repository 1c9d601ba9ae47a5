// Package promptspec loads and compiles CUE prompt packs.
//
// A prompt pack is a directory of CUE files declaring named prompts: a
// question text, the kind that types its reply, and kind-specific extra
// arguments (bounds, a pattern, a choice list). Packs are validated
// structurally against an embedded CUE schema at load time, and against
// the comparator registry via Vet, so a malformed definition fails
// before the bot ever asks the question.
package promptspec
