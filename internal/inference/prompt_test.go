package inference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstructions(t *testing.T) {
	in := "1.Replace organic with coffee beans.\n\n  2: Add the product name above the frame\n3) Name should read regular coffee\nno number here\n   \n4."
	got := ParseInstructions(in)
	assert.Equal(t, []string{
		"Replace organic with coffee beans.",
		"Add the product name above the frame",
		"Name should read regular coffee",
		"no number here",
	}, got)
	assert.Empty(t, ParseInstructions(" \n\t\n"))
}

func TestBuildPromptNumbersInstructions(t *testing.T) {
	p := BuildPrompt([]string{"first", "second"})
	assert.Contains(t, p, "1. first\n2. second")
	assert.Contains(t, p, "arrowStartX")
	assert.Contains(t, p, "Respond ONLY with a valid JSON array")
	assert.Contains(t, p, "same language as the instructions")
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `[{"a":1}]`, ExtractJSON("Here you go:\n```json\n[{\"a\":1}]\n```\nthanks"))
	assert.Equal(t, `[]`, ExtractJSON("```\n[]\n```"))
	assert.Equal(t, `[1]`, ExtractJSON("  [1]  "))
}

func TestDecodeAnnotations(t *testing.T) {
	list, err := DecodeAnnotations("```json\n[{\"number\":1,\"label\":\"x\",\"targetX\":140,\"targetY\":5,\"arrowStartX\":10,\"arrowStartY\":5}]\n```")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 100.0, list[0].TargetX)

	_, err = DecodeAnnotations("I could not find anything")
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}
