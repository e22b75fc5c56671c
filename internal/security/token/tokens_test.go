package tokens

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(32)
	require.NoError(t, err)
	b, err := GenerateOpaqueToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestNewCode(t *testing.T) {
	code, err := NewCode(6, Digits)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, strings.ContainsRune(Digits, c))
	}

	code, err = NewCode(10, "AB")
	require.NoError(t, err)
	assert.Len(t, code, 10)
	assert.Empty(t, strings.Trim(code, "AB"))

	_, err = NewCode(0, Digits)
	assert.Error(t, err)
	_, err = NewCode(6, "A")
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("s3cret", "s3cret"))
	assert.False(t, Equal("s3cret", "s3creT"))
	assert.False(t, Equal("s3cre", "s3cret"))
	assert.False(t, Equal("", "s3cret"))
	assert.True(t, Equal("", ""))
}

func TestNewID(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
	assert.Len(t, NewID(), 36)
}
