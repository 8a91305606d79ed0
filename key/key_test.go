package key

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k, err := New()
	require.NoError(t, err)

	plainText := []byte("hello")
	sealed, err := k.Seal(plainText)
	require.NoError(t, err)

	decrypted, err := k.Open(sealed)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plainText, decrypted))

	t.Run("WrongKey", func(t *testing.T) {
		other, err := New()
		require.NoError(t, err)
		_, err = other.Open(sealed)
		assert.Error(t, err)
		assert.False(t, k.Equal(other))
	})

	t.Run("FromBytesWipesSource", func(t *testing.T) {
		raw := bytes.Repeat([]byte{7}, Size)
		_, err := FromBytes(raw)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, Size), raw)
	})

	t.Run("FromBytesRejectsBadSize", func(t *testing.T) {
		_, err := FromBytes(make([]byte, 16))
		assert.Error(t, err)
	})

	t.Run("ZeroKeyIsUnusable", func(t *testing.T) {
		var zero Key
		_, err := zero.Seal(plainText)
		assert.Error(t, err)
	})

	t.Run("EqualFailsClosed", func(t *testing.T) {
		assert.True(t, k.Equal(k))
		assert.False(t, k.Equal(&Key{}))
		assert.False(t, (&Key{}).Equal(k))
		assert.False(t, (&Key{}).Equal(&Key{}))
	})
}

func TestKeyJSON(t *testing.T) {
	k, err := New()
	require.NoError(t, err)

	data, err := json.Marshal(k)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "oct", fields["kty"])
	assert.Equal(t, "A256GCM", fields["alg"])
	assert.Equal(t, true, fields["ext"])
	assert.NotContains(t, fields["k"], "=")

	t.Run("RoundTrip", func(t *testing.T) {
		parsed, err := Parse(data)
		require.NoError(t, err)
		assert.True(t, k.Equal(parsed))

		sealed, err := k.Seal([]byte("x"))
		require.NoError(t, err)
		out, err := parsed.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), out)
	})

	t.Run("UnmarshalIntoValue", func(t *testing.T) {
		var restored Key
		require.NoError(t, json.Unmarshal(data, &restored))
		assert.True(t, k.Equal(&restored))
	})

	t.Run("Invalid", func(t *testing.T) {
		tests := []struct {
			name string
			json string
		}{
			{"NotJSON", "{"},
			{"WrongType", `{"kty":"RSA","k":"AAAA"}`},
			{"WrongAlg", `{"kty":"oct","alg":"A128CBC","k":"AAAA"}`},
			{"BadOps", `{"kty":"oct","key_ops":["sign"],"k":"AAAA"}`},
			{"BadBase64", `{"kty":"oct","k":"!!!"}`},
			{"ShortKey", `{"kty":"oct","k":"` + strings.Repeat("A", 22) + `"}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Parse([]byte(tt.json))
				assert.Error(t, err)
			})
		}
	})
}
