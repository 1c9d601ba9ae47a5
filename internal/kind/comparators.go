package kind

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// compareNumber parses an integer reply. Extra arguments, when present,
// are inclusive [min, max] bounds; a parsed value outside them is
// invalid, not an error.
func compareNumber(text string, extra []string) (Value, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return nil, false
	}
	if len(extra) == 2 {
		// Bounds passed Vet; ParseInt cannot fail here.
		min, _ := strconv.ParseInt(extra[0], 10, 64)
		max, _ := strconv.ParseInt(extra[1], 10, 64)
		if n < min || n > max {
			return nil, false
		}
	}
	return Int(n), true
}

func vetNumber(extra []string) error {
	switch len(extra) {
	case 0:
		return nil
	case 2:
		min, err := strconv.ParseInt(extra[0], 10, 64)
		if err != nil {
			return fmt.Errorf("lower bound %q is not an integer", extra[0])
		}
		max, err := strconv.ParseInt(extra[1], 10, 64)
		if err != nil {
			return fmt.Errorf("upper bound %q is not an integer", extra[1])
		}
		if min > max {
			return fmt.Errorf("bounds inverted: %d > %d", min, max)
		}
		return nil
	default:
		return fmt.Errorf("want 0 or 2 extra args (min, max), got %d", len(extra))
	}
}

// affirmative and negative reply forms accepted by the boolean kind.
var boolForms = map[string]bool{
	"yes": true, "y": true, "true": true, "1": true,
	"no": false, "n": false, "false": false, "0": false,
}

// compareBoolean parses a yes/no reply, case-insensitively.
func compareBoolean(text string, _ []string) (Value, bool) {
	b, ok := boolForms[strings.ToLower(strings.TrimSpace(text))]
	if !ok {
		return nil, false
	}
	return Bool(b), true
}

// compareRegex matches the reply against the pattern in extra[0].
// The parsed value is the first capture group when the pattern has one,
// otherwise the full match.
func compareRegex(text string, extra []string) (Value, bool) {
	// Pattern passed Vet; Compile cannot fail here.
	re := regexp.MustCompile(extra[0])
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	if len(m) > 1 {
		return String(m[1]), true
	}
	return String(m[0]), true
}

func vetRegex(extra []string) error {
	if len(extra) != 1 {
		return fmt.Errorf("want exactly 1 extra arg (pattern), got %d", len(extra))
	}
	if _, err := regexp.Compile(extra[0]); err != nil {
		return fmt.Errorf("pattern does not compile: %w", err)
	}
	return nil
}

// compareChoice matches the reply against the allowed options in extra,
// case-insensitively. The parsed value is the canonical option as
// declared, not as typed.
func compareChoice(text string, extra []string) (Value, bool) {
	reply := strings.TrimSpace(text)
	for _, option := range extra {
		if strings.EqualFold(reply, option) {
			return String(option), true
		}
	}
	return nil, false
}

func vetChoice(extra []string) error {
	if len(extra) == 0 {
		return fmt.Errorf("want at least 1 option")
	}
	seen := make(map[string]bool, len(extra))
	for _, option := range extra {
		folded := strings.ToLower(option)
		if seen[folded] {
			return fmt.Errorf("duplicate option %q", option)
		}
		seen[folded] = true
	}
	return nil
}

// vetNone rejects any extra arguments.
func vetNone(extra []string) error {
	if len(extra) != 0 {
		return fmt.Errorf("want no extra args, got %d", len(extra))
	}
	return nil
}
