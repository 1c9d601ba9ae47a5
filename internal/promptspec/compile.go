package promptspec

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/parleybot/parley/internal/kind"
)

// Prompt is one compiled prompt definition.
type Prompt struct {
	Name  string    `json:"name"`
	Kind  kind.Kind `json:"kind"`
	Text  string    `json:"text"`
	Extra []string  `json:"extra,omitempty"`
}

// CompileError reports a malformed prompt definition.
type CompileError struct {
	Prompt  string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	where := e.Field
	if e.Prompt != "" {
		where = e.Prompt + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// Compile parses a unified CUE value into prompt definitions, sorted by
// name for deterministic registration order.
func Compile(v cue.Value) ([]Prompt, error) {
	promptsVal := v.LookupPath(cue.ParsePath("prompts"))
	if !promptsVal.Exists() {
		return nil, &CompileError{Field: "prompts", Message: "prompts is required", Pos: v.Pos()}
	}

	iter, err := promptsVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "prompts", Message: err.Error(), Pos: promptsVal.Pos()}
	}

	var prompts []Prompt
	for iter.Next() {
		name := strings.Trim(iter.Selector().String(), `"`)
		prompt, err := compilePrompt(name, iter.Value())
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}

	if len(prompts) == 0 {
		return nil, &CompileError{Field: "prompts", Message: "at least one prompt is required", Pos: promptsVal.Pos()}
	}

	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })
	return prompts, nil
}

// compilePrompt parses a single prompt struct.
func compilePrompt(name string, v cue.Value) (Prompt, error) {
	p := Prompt{Name: name}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return Prompt{}, &CompileError{Prompt: name, Field: "kind", Message: "kind is required", Pos: v.Pos()}
	}
	k, err := kindVal.String()
	if err != nil {
		return Prompt{}, &CompileError{Prompt: name, Field: "kind", Message: err.Error(), Pos: kindVal.Pos()}
	}
	p.Kind = kind.Kind(k)

	textVal := v.LookupPath(cue.ParsePath("text"))
	if !textVal.Exists() {
		return Prompt{}, &CompileError{Prompt: name, Field: "text", Message: "text is required", Pos: v.Pos()}
	}
	text, err := textVal.String()
	if err != nil {
		return Prompt{}, &CompileError{Prompt: name, Field: "text", Message: err.Error(), Pos: textVal.Pos()}
	}
	p.Text = text

	extraVal := v.LookupPath(cue.ParsePath("extra"))
	if extraVal.Exists() {
		list, err := extraVal.List()
		if err != nil {
			return Prompt{}, &CompileError{Prompt: name, Field: "extra", Message: err.Error(), Pos: extraVal.Pos()}
		}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return Prompt{}, &CompileError{Prompt: name, Field: "extra", Message: err.Error(), Pos: list.Value().Pos()}
			}
			p.Extra = append(p.Extra, s)
		}
	}

	return p, nil
}

// Vet checks every prompt's kind and extra arguments against the
// registry. This is the registration-time coverage check: an unknown
// kind or malformed extras fail here, not on the first reply.
func Vet(prompts []Prompt, reg *kind.Registry) error {
	for _, p := range prompts {
		if err := reg.Vet(p.Kind, p.Extra); err != nil {
			return fmt.Errorf("prompt %q: %w", p.Name, err)
		}
	}
	return nil
}
