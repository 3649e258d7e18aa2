package confutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntFallsBackOnNil(t *testing.T) {
	assert.Equal(t, 5, Int(nil, 5))
	assert.Equal(t, 7, Int(P(7), 5))
}

func TestIntMinRejectsBelowMinimum(t *testing.T) {
	assert.Equal(t, 5, IntMin(nil, 1, 5))
	assert.Equal(t, 5, IntMin(P(0), 1, 5))
	assert.Equal(t, 3, IntMin(P(3), 1, 5))
}

func TestInt64FallsBackOnNil(t *testing.T) {
	assert.Equal(t, int64(5), Int64(nil, 5))
	assert.Equal(t, int64(42), Int64(P(int64(42)), 5))
}

func TestBoolFallsBackOnNil(t *testing.T) {
	assert.True(t, Bool(nil, true))
	assert.False(t, Bool(P(false), true))
}

func TestStringNotEmptyFallsBackOnNilOrEmpty(t *testing.T) {
	assert.Equal(t, "def", StringNotEmpty(nil, "def"))
	assert.Equal(t, "def", StringNotEmpty(P(""), "def"))
	assert.Equal(t, "set", StringNotEmpty(P("set"), "def"))
}

func TestStringOrEmptyReturnsEmptyOnNil(t *testing.T) {
	assert.Equal(t, "", StringOrEmpty(nil))
	assert.Equal(t, "x", StringOrEmpty(P("x")))
}

func TestDurationMinFallsBackOnNilEmptyUnparsableOrBelowMin(t *testing.T) {
	assert.Equal(t, 10*time.Second, DurationMin(nil, 0, "10s"))
	assert.Equal(t, 10*time.Second, DurationMin(P(""), 0, "10s"))
	assert.Equal(t, 10*time.Second, DurationMin(P("not-a-duration"), 0, "10s"))
	assert.Equal(t, 10*time.Second, DurationMin(P("1ms"), time.Second, "10s"))
	assert.Equal(t, 30*time.Second, DurationMin(P("30s"), time.Second, "10s"))
}

func TestPReturnsAddressableCopy(t *testing.T) {
	p := P(42)
	assert.Equal(t, 42, *p)
}
