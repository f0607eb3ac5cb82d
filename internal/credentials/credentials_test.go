package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("password1")
	require.NoError(t, err)
	assert.NotEqual(t, "password1", hash)
	assert.True(t, h.Compare(hash, "password1"))
	assert.False(t, h.Compare(hash, "password2"))
	assert.False(t, h.Compare("", "password1"))
	assert.False(t, h.Compare("not-a-hash", "password1"))
}

func TestValidatePassword(t *testing.T) {
	cases := map[string]bool{
		"short1":     false,
		"allletters": false,
		"12345678":   false,
		"password1":  true,
		"Secr3tPass": true,
	}
	for pw, ok := range cases {
		err := ValidatePassword(pw)
		if ok {
			assert.NoError(t, err, pw)
		} else {
			assert.True(t, apierr.Is(err, apierr.KindValidation), pw)
		}
	}
}

func TestRandomPasswordIsValid(t *testing.T) {
	a, err := RandomPassword()
	require.NoError(t, err)
	b, err := RandomPassword()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NoError(t, ValidatePassword(a))
}
