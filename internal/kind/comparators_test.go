package kind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareNumber(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		extra []string
		want  Value
		ok    bool
	}{
		{name: "plain integer", text: "7", want: Int(7), ok: true},
		{name: "negative integer", text: "-3", want: Int(-3), ok: true},
		{name: "surrounding whitespace", text: "  42  ", want: Int(42), ok: true},
		{name: "not a number", text: "seven", ok: false},
		{name: "float rejected", text: "3.14", ok: false},
		{name: "empty", text: "", ok: false},
		{name: "within bounds", text: "5", extra: []string{"1", "10"}, want: Int(5), ok: true},
		{name: "at lower bound", text: "1", extra: []string{"1", "10"}, want: Int(1), ok: true},
		{name: "at upper bound", text: "10", extra: []string{"1", "10"}, want: Int(10), ok: true},
		{name: "below bounds", text: "0", extra: []string{"1", "10"}, ok: false},
		{name: "above bounds", text: "11", extra: []string{"1", "10"}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := compareNumber(tt.text, tt.extra)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestVetNumber(t *testing.T) {
	assert.NoError(t, vetNumber(nil))
	assert.NoError(t, vetNumber([]string{"1", "10"}))
	assert.Error(t, vetNumber([]string{"1"}), "single bound")
	assert.Error(t, vetNumber([]string{"a", "10"}), "non-integer lower bound")
	assert.Error(t, vetNumber([]string{"1", "b"}), "non-integer upper bound")
	assert.Error(t, vetNumber([]string{"10", "1"}), "inverted bounds")
}

func TestCompareBoolean(t *testing.T) {
	for _, text := range []string{"yes", "y", "YES", "true", "1", " Yes "} {
		got, ok := compareBoolean(text, nil)
		require.True(t, ok, "expected %q to parse", text)
		assert.Equal(t, Bool(true), got)
	}
	for _, text := range []string{"no", "n", "NO", "false", "0"} {
		got, ok := compareBoolean(text, nil)
		require.True(t, ok, "expected %q to parse", text)
		assert.Equal(t, Bool(false), got)
	}
	for _, text := range []string{"maybe", "", "yeah nah", "2"} {
		_, ok := compareBoolean(text, nil)
		assert.False(t, ok, "expected %q to be invalid", text)
	}
}

func TestCompareRegex(t *testing.T) {
	got, ok := compareRegex("deploy v1.2.3 now", []string{`v(\d+\.\d+\.\d+)`})
	require.True(t, ok)
	assert.Equal(t, String("1.2.3"), got, "first capture group wins")

	got, ok = compareRegex("red", []string{`red|blue`})
	require.True(t, ok)
	assert.Equal(t, String("red"), got, "full match when no groups")

	_, ok = compareRegex("green", []string{`red|blue`})
	assert.False(t, ok)
}

func TestVetRegex(t *testing.T) {
	assert.NoError(t, vetRegex([]string{`\d+`}))
	assert.Error(t, vetRegex(nil), "missing pattern")
	assert.Error(t, vetRegex([]string{`\d+`, "extra"}), "too many args")
	assert.Error(t, vetRegex([]string{`([`}), "uncompilable pattern")
}

func TestCompareChoice(t *testing.T) {
	options := []string{"Staging", "Production"}

	got, ok := compareChoice("staging", options)
	require.True(t, ok)
	assert.Equal(t, String("Staging"), got, "canonical casing returned")

	got, ok = compareChoice("  PRODUCTION ", options)
	require.True(t, ok)
	assert.Equal(t, String("Production"), got)

	_, ok = compareChoice("qa", options)
	assert.False(t, ok)
}

func TestVetChoice(t *testing.T) {
	assert.NoError(t, vetChoice([]string{"a", "b"}))
	assert.Error(t, vetChoice(nil), "no options")
	assert.Error(t, vetChoice([]string{"a", "A"}), "case-folded duplicate")
}
