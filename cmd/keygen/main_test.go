package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecretLength(t *testing.T) {
	s, err := generateSecret(50)
	require.NoError(t, err)
	require.Len(t, s, 50)
	for _, r := range s {
		require.Contains(t, charset, string(r))
	}
}

func TestGenerateSecretRejectsNonPositiveLength(t *testing.T) {
	_, err := generateSecret(0)
	require.Error(t, err)
	_, err = generateSecret(-1)
	require.Error(t, err)
}

func TestGenerateSecretIsRandom(t *testing.T) {
	a, err := generateSecret(50)
	require.NoError(t, err)
	b, err := generateSecret(50)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
