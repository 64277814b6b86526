package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast; the format is identical.
var testParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashPassword_RoundTrip(t *testing.T) {
	for _, plain := range []string{"secret1", "", "пароль-ünïcode", strings.Repeat("x", 512)} {
		hash, err := HashPasswordWithParams(plain, testParams)
		require.NoError(t, err)
		assert.NotEqual(t, plain, string(hash))
		assert.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$t=1,m=8192,p=1$"))

		ok, err := VerifyPassword(plain, hash)
		require.NoError(t, err)
		assert.True(t, ok, "verify %q", plain)

		ok, err = VerifyPassword(plain+"x", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPasswordWithParams("secret1", testParams)
	require.NoError(t, err)
	b, err := HashPasswordWithParams("secret1", testParams)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashPassword_DefaultParams(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	ok, err := VerifyPassword("secret1", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$2a$10$bcryptlookingvalue",
		"$argon2id$v=18$t=1,m=8192,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$t=x,m=8192,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$t=1,m=8192,p=1$!!!$aGFzaA",
		"$argon2id$v=19$t=1,m=8192,p=1$c2FsdA$",
	}
	for _, encoded := range cases {
		ok, err := VerifyPassword("secret1", []byte(encoded))
		assert.False(t, ok, encoded)
		assert.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}
