package idgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSnowflakeRejectsOutOfRangeNode(t *testing.T) {
	_, err := NewSnowflake(-1)
	require.Error(t, err)

	_, err = NewSnowflake(1024)
	require.Error(t, err)

	s, err := NewSnowflake(1)
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestGenerateIsMonotonicAndUnique(t *testing.T) {
	s, err := NewSnowflake(7)
	require.NoError(t, err)

	seen := make(map[int64]bool)
	var prev int64
	for i := 0; i < 1000; i++ {
		id := s.Generate()
		require.False(t, seen[id], "duplicate id generated")
		seen[id] = true
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestGenerateTransactionReferencePrefix(t *testing.T) {
	ref := GenerateTransactionReference("DE")
	require.Regexp(t, `^DE-\d{4}[0-9a-z]{4}$`, ref)

	ref2 := GenerateTransactionReference("WI")
	require.Regexp(t, `^WI-\d{4}[0-9a-z]{4}$`, ref2)
	require.NotEqual(t, ref, ref2)
}
