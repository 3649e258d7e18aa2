package hashfactory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIsDeterministic(t *testing.T) {
	a := Hash([]byte("some cipher text"))
	b := Hash([]byte("some cipher text"))
	assert.Equal(t, a, b)
}

func TestHashDiffersOnDifferentInput(t *testing.T) {
	a := Hash([]byte("some cipher text"))
	b := Hash([]byte("some other cipher text"))
	assert.NotEqual(t, a, b)
}

func TestHashLengthIsFixed(t *testing.T) {
	h := Hash([]byte("x"))
	assert.Len(t, h[:], 64)
}
