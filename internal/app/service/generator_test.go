package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomGenerator_Generate(t *testing.T) {
	g := NewRandomGenerator("")

	for _, length := range []int{1, 6, 32} {
		code, err := g.Generate(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.True(t, InAlphabet(code))
	}
}

func TestRandomGenerator_InvalidLength(t *testing.T) {
	g := NewRandomGenerator(Alphabet)

	for _, length := range []int{0, -1} {
		_, err := g.Generate(length)
		assert.ErrorIs(t, err, ErrInvalidLength)
	}
}

func TestRandomGenerator_SingleSymbol(t *testing.T) {
	g := NewRandomGenerator("x")

	code, err := g.Generate(4)
	require.NoError(t, err)
	assert.Equal(t, "xxxx", code)
}

func TestRandomGenerator_UsesWholeAlphabet(t *testing.T) {
	g := NewRandomGenerator("abcd")
	seen := make(map[rune]int)

	for i := 0; i < 200; i++ {
		code, err := g.Generate(10)
		require.NoError(t, err)
		for _, c := range code {
			require.True(t, strings.ContainsRune("abcd", c))
			seen[c]++
		}
	}

	// 2000 draws over 4 symbols; each should land near 500.
	for _, c := range "abcd" {
		assert.Greater(t, seen[c], 350, "symbol %q", c)
	}
}

func TestInAlphabet(t *testing.T) {
	assert.True(t, InAlphabet("aB3xQ9"))
	assert.False(t, InAlphabet("ab-12"))
	assert.False(t, InAlphabet("ключ"))
	assert.True(t, InAlphabet(""))
}
