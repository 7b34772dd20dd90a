package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidNIF(t *testing.T) {
	cases := map[string]bool{
		"SN1234567":   true,
		" sn1234567 ": true,
		"SN123456":    false,
		"SN12345678":  false,
		"XX1234567":   false,
		"SNabcdefg":   false,
		"":            false,
	}
	for nif, want := range cases {
		require.Equal(t, want, ValidNIF(nif), nif)
	}
}

func TestTeacherUsernameIsLowerCaseNIF(t *testing.T) {
	teacher := Teacher{NIF: "SN7654321"}
	require.Equal(t, "sn7654321", teacher.Username())
	require.Equal(t, "SN7654321", NormalizeNIF(" sn7654321"))
}
