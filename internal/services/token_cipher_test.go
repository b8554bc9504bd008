package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCipher(t *testing.T) {
	c, err := NewTokenCipher("a-long-session-secret", "salt")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		sealed, err := c.Encrypt("IGQVJ-access-token")
		require.NoError(t, err)
		assert.NotContains(t, sealed, "IGQVJ")

		plain, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "IGQVJ-access-token", plain)
	})

	t.Run("nonce differs per call", func(t *testing.T) {
		a, err := c.Encrypt("same")
		require.NoError(t, err)
		b, err := c.Encrypt("same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("other secret cannot decrypt", func(t *testing.T) {
		sealed, err := c.Encrypt("token")
		require.NoError(t, err)

		other, err := NewTokenCipher("a-different-secret", "salt")
		require.NoError(t, err)
		_, err = other.Decrypt(sealed)
		assert.ErrorIs(t, err, ErrTokenCiphertext)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := c.Decrypt("!!not base64!!")
		assert.ErrorIs(t, err, ErrTokenCiphertext)
		_, err = c.Decrypt("abc")
		assert.ErrorIs(t, err, ErrTokenCiphertext)
	})

	t.Run("secret is required", func(t *testing.T) {
		_, err := NewTokenCipher("", "salt")
		assert.Error(t, err)
	})
}
