package kind

// Value is a sealed interface over the parsed reply types.
// Only Int, Bool, and String implement it. No float type exists:
// replies parse to integers or text, and keeping the set closed makes
// comparator results exhaustively switchable.
type Value interface {
	value() // sealed
}

// Int is a parsed integer reply.
type Int int64

func (Int) value() {}

// Bool is a parsed yes/no reply.
type Bool bool

func (Bool) value() {}

// String is a parsed textual reply (regex match, chosen option).
type String string

func (String) value() {}
