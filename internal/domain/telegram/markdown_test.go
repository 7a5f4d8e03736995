package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2_PlainTextUnchanged(t *testing.T) {
	assert.Equal(t, "Математический анализ", EscapeMarkdownV2("Математический анализ"))
}

func TestEscapeMarkdownV2_EscapesEveryControlCharacter(t *testing.T) {
	in := "_*[]()~`>#+-=|{}.!"
	out := EscapeMarkdownV2(in)

	for _, r := range in {
		assert.Contains(t, out, "\\"+string(r))
	}
	// Every control character gained exactly one backslash.
	assert.Equal(t, len(in)*2, len(out))
}

func TestEscapeMarkdownV2_RoundTrip(t *testing.T) {
	// Rendering by the MarkdownV2 dialect strips one backslash before each
	// escaped character, which must yield the original literal text.
	in := "Теория вероятностей (лекции), ч.1!"
	out := EscapeMarkdownV2(in)

	var rendered strings.Builder
	escaped := false
	for _, r := range out {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		rendered.WriteRune(r)
	}
	assert.Equal(t, in, rendered.String())
}

func TestEscapeMarkdownV2_NoDoubleEscaping(t *testing.T) {
	assert.Equal(t, "\\+2\\.5", EscapeMarkdownV2("+2.5"))
	assert.Equal(t, "\\-3", EscapeMarkdownV2("-3"))
}
