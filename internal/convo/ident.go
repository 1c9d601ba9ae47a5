package convo

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/parleybot/parley/internal/adapter"
)

// NormalizeIdent reduces a user or channel input to its bare
// identifier: NFC-normalized, whitespace-trimmed, with a single leading
// @ or # sigil removed. Both the raw-string and richer-object forms of
// an identity normalize to the same value, which is what makes them
// interchangeable in matching.
func NormalizeIdent(id adapter.Identity) string {
	if id == nil {
		return ""
	}
	return normalize(id.Ident())
}

func normalize(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	if len(s) > 1 && (s[0] == '@' || s[0] == '#') {
		s = s[1:]
	}
	return s
}

// stripMention removes a leading address marker (the bot's name, with
// an optional @ sigil) plus one following separator from reply text.
// Without this a user who explicitly addresses the bot would corrupt
// kind-specific parsing: "bot: 42" is not a number, "42" is.
//
// A reply with the marker already absent passes through unchanged apart
// from trimming and NFC normalization, so stripped and unstripped forms
// produce identical comparator inputs. Markers are stored in NFC, so
// the text must be NFC too or a decomposed bot name would never match.
func stripMention(text string, markers []string) string {
	t := norm.NFC.String(strings.TrimSpace(text))
	for _, marker := range markers {
		if rest, ok := cutMarker(t, marker); ok {
			return rest
		}
	}
	return t
}

// cutMarker strips one marker (case-insensitive, optional @ prefix) and
// one separator. The marker must be followed by a separator or end the
// text; "botox 42" does not match marker "bot".
func cutMarker(t, marker string) (string, bool) {
	s := t
	if strings.HasPrefix(s, "@") {
		s = s[1:]
	}
	if len(s) < len(marker) || !strings.EqualFold(s[:len(marker)], marker) {
		return "", false
	}
	rest := s[len(marker):]
	if rest == "" {
		return "", true
	}
	switch rest[0] {
	case ':', ',', ' ', '\t':
		return strings.TrimSpace(rest[1:]), true
	}
	return "", false
}
