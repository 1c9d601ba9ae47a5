package kind

import (
	"fmt"
	"sort"
)

// Kind tags how a reply must be interpreted.
type Kind string

// Builtin kinds. The set is extensible via Registry.Register.
const (
	Number  Kind = "number"
	Boolean Kind = "boolean"
	Regex   Kind = "regex"
	Choice  Kind = "choice"
)

// Comparator validates and parses reply text for one kind.
//
// It returns the parsed value and true on success, or (nil, false) when
// the text does not parse. A comparator must be pure and must not fail
// for unparseable input - by the time it runs, extra arguments have
// already passed Vet.
type Comparator func(text string, extra []string) (Value, bool)

// Vetter checks a kind's extra arguments at registration time.
// Returns an error describing the first problem found.
type Vetter func(extra []string) error

type entry struct {
	compare Comparator
	vet     Vetter
}

// Registry maps kinds to comparators. The zero value is unusable; use
// NewRegistry, which pre-registers the builtin kinds.
//
// Thread-safety: Register must complete before concurrent use. After
// setup the registry is read-only and safe to share.
type Registry struct {
	entries map[Kind]entry
}

// NewRegistry returns a registry with the builtin kinds registered.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[Kind]entry)}

	// Builtins cannot collide in a fresh map; errors are impossible here.
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(r.Register(Number, compareNumber, vetNumber))
	must(r.Register(Boolean, compareBoolean, vetNone))
	must(r.Register(Regex, compareRegex, vetRegex))
	must(r.Register(Choice, compareChoice, vetChoice))

	return r
}

// Register adds a kind. Duplicate registration is an error: each kind
// maps to exactly one comparator. A nil vetter means the kind takes no
// extra arguments.
func (r *Registry) Register(k Kind, c Comparator, v Vetter) error {
	if k == "" {
		return fmt.Errorf("register kind: empty kind")
	}
	if c == nil {
		return fmt.Errorf("register kind %q: nil comparator", k)
	}
	if _, dup := r.entries[k]; dup {
		return fmt.Errorf("register kind %q: already registered", k)
	}
	if v == nil {
		v = vetNone
	}
	r.entries[k] = entry{compare: c, vet: v}
	return nil
}

// Resolve returns the comparator for a kind.
func (r *Registry) Resolve(k Kind) (Comparator, bool) {
	e, ok := r.entries[k]
	if !ok {
		return nil, false
	}
	return e.compare, true
}

// Vet validates extra arguments for a kind. An unknown kind is an
// error, as is any argument the kind's vetter rejects.
func (r *Registry) Vet(k Kind, extra []string) error {
	e, ok := r.entries[k]
	if !ok {
		return fmt.Errorf("unknown kind %q", k)
	}
	if err := e.vet(extra); err != nil {
		return fmt.Errorf("kind %q: %w", k, err)
	}
	return nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	ks := make([]Kind, 0, len(r.entries))
	for k := range r.entries {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i] < ks[j] })
	return ks
}
