package service

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// Alphabet is the default set of symbols short codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultCodeLength is the length of generated short codes unless configured otherwise.
const DefaultCodeLength = 6

var (
	ErrInvalidLength = errors.New("code length must be positive")
	ErrEmptyAlphabet = errors.New("alphabet must not be empty")
)

// CodeGenerator proposes candidate short codes. It does not check uniqueness.
type CodeGenerator interface {
	Generate(length int) (string, error)
}

// RandomGenerator draws every symbol independently and uniformly from its
// alphabet using crypto/rand. It is safe for concurrent use.
type RandomGenerator struct {
	alphabet []byte
	max      *big.Int
}

// NewRandomGenerator returns a generator over alphabet, or over Alphabet
// when alphabet is empty.
func NewRandomGenerator(alphabet string) *RandomGenerator {
	if alphabet == "" {
		alphabet = Alphabet
	}

	return &RandomGenerator{
		alphabet: []byte(alphabet),
		max:      big.NewInt(int64(len(alphabet))),
	}
}

// Generate returns a code of exactly length symbols.
func (g *RandomGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	if len(g.alphabet) == 0 {
		return "", ErrEmptyAlphabet
	}

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, g.max)
		if err != nil {
			return "", err
		}
		code[i] = g.alphabet[n.Int64()]
	}

	return string(code), nil
}

// InAlphabet reports whether every byte of code belongs to Alphabet.
func InAlphabet(code string) bool {
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
