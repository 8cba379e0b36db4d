package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddSpaces(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "inline math padded",
			input:    `Euler: $e^{i\pi}+1=0$.`,
			expected: `Euler:  $e^{i\pi}+1=0$ .`,
		},
		{
			name:     "display math padded",
			input:    `Consider$$x^2$$now`,
			expected: `Consider $$x^2$$ now`,
		},
		{
			name:     "bracket form padded",
			input:    `so\[a+b\]done`,
			expected: `so \[a+b\] done`,
		},
		{
			name:     "paren form padded",
			input:    `so\(a+b\)done`,
			expected: `so \(a+b\) done`,
		},
		{
			name:     "display dollars not treated as inline",
			input:    `$$a$$`,
			expected: ` $$a$$ `,
		},
		{
			name:     "no math untouched",
			input:    "plain text, $100 is not math without a closer on this line",
			expected: "plain text, $100 is not math without a closer on this line",
		},
		{
			name:     "multiple inline expressions",
			input:    `$a$ and $b$`,
			expected: ` $a$  and  $b$ `,
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AddSpaces(tc.input))
		})
	}
}

func TestFilterOutlet(t *testing.T) {
	messages := []map[string]any{
		{"role": "user", "content": "what is $x$?"},
		{"role": "assistant", "content": "it is $42$"},
	}

	got := NewFilter().Outlet(messages)

	// Only assistant content is rewritten.
	assert.Equal(t, "what is $x$?", got[0]["content"])
	assert.Equal(t, "it is  $42$ ", got[1]["content"])
}

func TestFilterDisabled(t *testing.T) {
	messages := []map[string]any{
		{"role": "assistant", "content": "$x$"},
	}
	got := (&Filter{}).Outlet(messages)
	assert.Equal(t, "$x$", got[0]["content"])
}

func TestFilterNonStringContent(t *testing.T) {
	messages := []map[string]any{
		{"role": "assistant", "content": []any{"structured"}},
	}
	got := NewFilter().Outlet(messages)
	assert.Equal(t, []any{"structured"}, got[0]["content"])
}
