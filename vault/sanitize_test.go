package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t,
		"&lt;a href=&quot;x&quot;&gt;&#x27;&amp;&#x27;&lt;&#x2F;a&gt;",
		Sanitize(`<a href="x">'&'</a>`))
	assert.Equal(t, "plain text", Sanitize("plain text"))
}

func TestIsSafe(t *testing.T) {
	tests := []struct {
		input string
		safe  bool
	}{
		{"user-8f14e45f", true},
		{"Summer sale: 20% off <b>shoes</b>", true},
		{"mailto:shop@example.com", true},
		{"<script>alert(1)</script>", false},
		{"< SCRIPT src=x>", false},
		{"javascript:alert(1)", false},
		{"JavaScript :void(0)", false},
		{"vbscript:msgbox", false},
		{"data:text/html;base64,PHNjcmlwdD4=", false},
		{`<img src=x onerror="alert(1)">`, false},
		{"<iframe src=//evil>", false},
		{"<object data=x>", false},
		{"width: expression(alert(1))", false},
		{"\uff1cscript\uff1ealert(1)", false},
		{"\uff4aavascript:alert(1)", false},
		{"\ufb01le \uff21\uff22\uff23", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.safe, IsSafe(tt.input))
		})
	}
}

func TestNeutralize(t *testing.T) {
	assert.Equal(t, "&lt;script>x&lt;/script>", neutralize("<script>x</script>"))
	assert.Equal(t, "&lt; script>", neutralize("< script>"))
	assert.Equal(t, "blocked:alert(1)", neutralize("javascript:alert(1)"))
	assert.Equal(t, "a <b> c", neutralize("a <b> c"))
}

func TestHash(t *testing.T) {
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		Hash("abc"))
	assert.Len(t, Hash(""), 64)
	assert.NotEqual(t, Hash("a"), Hash("b"))
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken(DefaultTokenLength)
	require.NoError(t, err)
	assert.Len(t, tok, 64)

	short, err := GenerateToken(8)
	require.NoError(t, err)
	assert.Len(t, short, 16)

	other, _ := GenerateToken(DefaultTokenLength)
	assert.NotEqual(t, tok, other)

	_, err = GenerateToken(0)
	assert.Error(t, err)
	_, err = GenerateToken(4096)
	assert.Error(t, err)
}
