package secret

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoxRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	box, err := ParseKey(key)
	require.NoError(t, err)

	sealed, err := box.Seal("Ab3dE5gH")
	require.NoError(t, err)
	require.NotContains(t, sealed, "Ab3dE5gH")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "Ab3dE5gH", opened)
}

func TestBoxRejectsForeignKey(t *testing.T) {
	first, _ := GenerateKey()
	second, _ := GenerateKey()
	a, err := ParseKey(first)
	require.NoError(t, err)
	b, err := ParseKey(second)
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)
	_, err = b.Open(sealed)
	require.ErrorIs(t, err, ErrDecrypt)

	_, err = b.Open("not base64!")
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestParseKeyValidatesLength(t *testing.T) {
	_, err := ParseKey("c2hvcnQ=")
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = ParseKey("")
	require.ErrorIs(t, err, ErrInvalidKey)
}
